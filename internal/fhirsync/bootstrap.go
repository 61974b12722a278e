package fhirsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/ehr/healthsync/internal/domain/identity"
)

var ErrRemotePatientMissing = errors.New("remote patient does not exist")

// Bootstrap returns the local patient for userID, creating it from the
// remote Patient fhirID on first use.
func Bootstrap(ctx context.Context, source Source, patients identity.PatientRepository, userID, fhirID string) (*identity.Patient, error) {
	if userID == "" || fhirID == "" {
		return nil, fmt.Errorf("bootstrap: user id and fhir id are required")
	}

	p, err := patients.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, identity.ErrPatientNotFound) {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	remote, found, err := source.Patient(ctx, fhirID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("bootstrap %s: %w", fhirID, ErrRemotePatientMissing)
	}

	remote.UserID = userID
	if err := patients.Create(ctx, remote); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return remote, nil
}
