package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error)
	GetByUserID(ctx context.Context, userID string) (*Patient, error)
	UpdateDemographics(ctx context.Context, p *Patient) error
	UpdateProfile(ctx context.Context, p *Patient) error
	// Delete removes the patient row. Rows in tables that reference the
	// patient go with it through ON DELETE CASCADE.
	Delete(ctx context.Context, id uuid.UUID) error
	// CountUserEntered counts the patient's health record rows that were
	// entered locally rather than synced.
	CountUserEntered(ctx context.Context, id uuid.UUID) (int, error)
}
