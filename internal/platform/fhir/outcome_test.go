package fhir

import (
	"encoding/json"
	"testing"
)

func TestConflictOutcome(t *testing.T) {
	oo := ConflictOutcome("sync already running")
	if oo.ResourceType != "OperationOutcome" {
		t.Errorf("expected resourceType OperationOutcome, got %s", oo.ResourceType)
	}
	if len(oo.Issue) != 1 || oo.Issue[0].Code != "conflict" {
		t.Fatalf("unexpected issues: %+v", oo.Issue)
	}
	if !oo.HasSeverity(IssueSeverityError) {
		t.Error("ConflictOutcome should carry an error issue")
	}
}

func TestGoneOutcome_IsNotFound(t *testing.T) {
	oo := GoneOutcome("Patient", "p1")
	if !oo.IsNotFound() {
		t.Error("GoneOutcome should be treated as not found")
	}
	if oo.Issue[0].Diagnostics != "Patient/p1 has been deleted" {
		t.Errorf("unexpected diagnostics %q", oo.Issue[0].Diagnostics)
	}
}

func TestThrottleOutcome_JSON(t *testing.T) {
	data, err := json.Marshal(ThrottleOutcome())
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	issue := parsed["issue"].([]interface{})[0].(map[string]interface{})
	if issue["code"] != "throttled" {
		t.Errorf("expected code throttled, got %v", issue["code"])
	}
}
