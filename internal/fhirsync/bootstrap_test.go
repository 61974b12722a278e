package fhirsync

import (
	"context"
	"errors"
	"testing"
)

func TestBootstrap_CreatesFromRemote(t *testing.T) {
	source := newFakeSource(testFHIRID)
	patients := newMockPatientRepo()

	p, err := Bootstrap(context.Background(), source, patients, "user-1", testFHIRID)
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != "user-1" || p.RemoteID() != testFHIRID {
		t.Errorf("unexpected patient %+v", p)
	}
	if deref(p.FirstName) != "Ada" {
		t.Errorf("expected remote demographics, got %s", deref(p.FirstName))
	}
	if patients.count() != 1 {
		t.Errorf("expected one patient stored, got %d", patients.count())
	}
}

func TestBootstrap_ReturnsExisting(t *testing.T) {
	source := newFakeSource(testFHIRID)
	patients := newMockPatientRepo()
	first, err := Bootstrap(context.Background(), source, patients, "user-1", testFHIRID)
	if err != nil {
		t.Fatal(err)
	}

	second, err := Bootstrap(context.Background(), source, patients, "user-1", testFHIRID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Error("expected the existing patient back")
	}
	if source.callCount("Patient") != 1 {
		t.Errorf("expected no remote call for an existing patient, got %d", source.callCount("Patient"))
	}
}

func TestBootstrap_RemoteMissing(t *testing.T) {
	source := newFakeSource(testFHIRID)
	source.found = false

	_, err := Bootstrap(context.Background(), source, newMockPatientRepo(), "user-1", testFHIRID)
	if !errors.Is(err, ErrRemotePatientMissing) {
		t.Errorf("expected ErrRemotePatientMissing, got %v", err)
	}
}

func TestBootstrap_RemoteFailure(t *testing.T) {
	source := newFakeSource(testFHIRID)
	source.patErr = &FetchError{Resource: "Patient", Err: errors.New("timeout")}
	patients := newMockPatientRepo()

	_, err := Bootstrap(context.Background(), source, patients, "user-1", testFHIRID)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("expected FetchError, got %v", err)
	}
	if patients.count() != 0 {
		t.Error("expected nothing stored")
	}
}

func TestBootstrap_RequiresIDs(t *testing.T) {
	if _, err := Bootstrap(context.Background(), newFakeSource(testFHIRID), newMockPatientRepo(), "", testFHIRID); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := Bootstrap(context.Background(), newFakeSource(testFHIRID), newMockPatientRepo(), "u", ""); err == nil {
		t.Error("expected error for empty fhir id")
	}
}
