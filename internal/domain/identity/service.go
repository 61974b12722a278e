package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/ehr/healthsync/pkg/fhirmodels"
)

type Service struct {
	patients PatientRepository
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients}
}

func (s *Service) GetPatientByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return s.patients.GetByFHIRID(ctx, fhirID)
}

func (s *Service) GetPatientByUserID(ctx context.Context, userID string) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

// UpdateProfile replaces the user-owned profile fields of the patient linked
// to fhirID. Demographics are left alone; they belong to the remote system.
func (s *Service) UpdateProfile(ctx context.Context, fhirID string, pr Profile) (*Patient, error) {
	if err := validateProfile(pr); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByFHIRID(ctx, fhirID)
	if err != nil {
		return nil, err
	}
	p.SetProfile(pr)
	if err := s.patients.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

var ErrInvalidProfile = errors.New("invalid profile")

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func validateProfile(pr Profile) error {
	if pr.BloodType != nil && !bloodTypes[*pr.BloodType] {
		return fmt.Errorf("%w: unknown blood_type %q", ErrInvalidProfile, *pr.BloodType)
	}
	if pr.Height != nil && *pr.Height <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidProfile)
	}
	if pr.Weight != nil && *pr.Weight <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidProfile)
	}
	return nil
}

// ValidGender reports whether g is empty or an AdministrativeGender code.
func ValidGender(g *string) bool {
	return g == nil || fhirmodels.IsGender(*g)
}
