package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Demographic fields mirror the remote
// FHIR Patient when the record is linked; profile fields are entered by the
// user and never touched by sync.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	FHIRID         *string    `db:"fhir_id" json:"fhir_id,omitempty"`
	FirstName      *string    `db:"first_name" json:"first_name,omitempty"`
	MiddleName     *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName       *string    `db:"last_name" json:"last_name,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	BloodType      *string    `db:"blood_type" json:"blood_type,omitempty"`
	Height         *float64   `db:"height" json:"height,omitempty"`
	HeightUnit     *string    `db:"height_unit" json:"height_unit,omitempty"`
	Weight         *float64   `db:"weight" json:"weight,omitempty"`
	WeightUnit     *string    `db:"weight_unit" json:"weight_unit,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profile_picture,omitempty"`
	Relationship   *string    `db:"relationship" json:"relationship,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Demographics is the subset of Patient owned by the remote health system.
type Demographics struct {
	FirstName   *string    `json:"first_name,omitempty"`
	MiddleName  *string    `json:"middle_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// Profile is the subset of Patient owned by the user.
type Profile struct {
	BloodType      *string  `json:"blood_type,omitempty"`
	Height         *float64 `json:"height,omitempty"`
	HeightUnit     *string  `json:"height_unit,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	WeightUnit     *string  `json:"weight_unit,omitempty"`
	ProfilePicture *string  `json:"profile_picture,omitempty"`
	Relationship   *string  `json:"relationship,omitempty"`
}

func (p *Patient) Demographics() Demographics {
	return Demographics{
		FirstName:   p.FirstName,
		MiddleName:  p.MiddleName,
		LastName:    p.LastName,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth,
	}
}

// SetDemographics overwrites every demographic field, including with nil.
func (p *Patient) SetDemographics(d Demographics) {
	p.FirstName = d.FirstName
	p.MiddleName = d.MiddleName
	p.LastName = d.LastName
	p.Gender = d.Gender
	p.DateOfBirth = d.DateOfBirth
}

func (p *Patient) Profile() Profile {
	return Profile{
		BloodType:      p.BloodType,
		Height:         p.Height,
		HeightUnit:     p.HeightUnit,
		Weight:         p.Weight,
		WeightUnit:     p.WeightUnit,
		ProfilePicture: p.ProfilePicture,
		Relationship:   p.Relationship,
	}
}

func (p *Patient) SetProfile(pr Profile) {
	p.BloodType = pr.BloodType
	p.Height = pr.Height
	p.HeightUnit = pr.HeightUnit
	p.Weight = pr.Weight
	p.WeightUnit = pr.WeightUnit
	p.ProfilePicture = pr.ProfilePicture
	p.Relationship = pr.Relationship
}

// Linked reports whether the patient is bound to a remote FHIR Patient.
func (p *Patient) Linked() bool {
	return p.FHIRID != nil && *p.FHIRID != ""
}

// RemoteID returns the remote FHIR id, or "" for an unlinked patient.
func (p *Patient) RemoteID() string {
	if p.FHIRID == nil {
		return ""
	}
	return *p.FHIRID
}
