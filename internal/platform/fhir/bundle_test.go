package fhir

import (
	"encoding/json"
	"testing"
)

const searchBundle = `{
  "resourceType": "Bundle",
  "type": "searchset",
  "link": [
    {"relation": "self", "url": "http://x/Condition?patient=p1"},
    {"relation": "next", "url": "http://x/Condition?patient=p1&page=2"}
  ],
  "entry": [
    {"resource": {"resourceType": "Condition", "id": "c1", "code": {"text": "Asthma"}}},
    {"resource": {"resourceType": "OperationOutcome", "issue": []}, "search": {"mode": "outcome"}},
    {"resource": {"resourceType": "Condition", "id": "c2"}},
    {}
  ]
}`

func TestBundle_NextLink(t *testing.T) {
	var b Bundle
	if err := json.Unmarshal([]byte(searchBundle), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := b.NextLink(); got != "http://x/Condition?patient=p1&page=2" {
		t.Errorf("unexpected next link %q", got)
	}

	var last Bundle
	if last.NextLink() != "" {
		t.Error("expected no next link on empty bundle")
	}
	var nilBundle *Bundle
	if nilBundle.NextLink() != "" {
		t.Error("expected no next link on nil bundle")
	}
}

func TestResourcesOfType_SkipsOtherTypes(t *testing.T) {
	var b Bundle
	if err := json.Unmarshal([]byte(searchBundle), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	conds, err := ResourcesOfType[Condition](&b, "Condition")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(conds))
	}
	if conds[0].ID != "c1" || conds[0].Code == nil || conds[0].Code.Text != "Asthma" {
		t.Errorf("unexpected first condition %+v", conds[0])
	}
}

func TestResourcesOfType_DecodeError(t *testing.T) {
	b := &Bundle{Entry: []BundleEntry{
		{Resource: json.RawMessage(`{"resourceType":"Condition","id":42}`)},
	}}
	if _, err := ResourcesOfType[Condition](b, "Condition"); err == nil {
		t.Error("expected decode error for numeric id")
	}
}
