package healthrecord

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("health record not found")
	// ErrUnlinked is returned when a write is attempted with a record that
	// does not carry a remote id.
	ErrUnlinked = errors.New("health record is not linked to a remote resource")
)

// LinkedStore reads and writes the linked rows of one health record table.
// Rows entered by the user (linked_health_system = false) are invisible to
// every method.
type LinkedStore[R Record] interface {
	GetByFHIRID(ctx context.Context, patientID uuid.UUID, fhirID string) (R, error)
	ListFHIRIDs(ctx context.Context, patientID uuid.UUID) ([]string, error)
	List(ctx context.Context, patientID uuid.UUID) ([]R, error)
	Create(ctx context.Context, r R) error
	// UpdateByFHIRID overwrites every type-specific column of the row
	// matching r's patient and remote id.
	UpdateByFHIRID(ctx context.Context, r R) error
	DeleteByFHIRID(ctx context.Context, patientID uuid.UUID, fhirID string) error
	DeleteAllLinked(ctx context.Context, patientID uuid.UUID) (int64, error)
}

// Stores groups the linked stores for every health record type.
type Stores struct {
	Conditions            LinkedStore[*Condition]
	Allergies             LinkedStore[*Allergy]
	Medications           LinkedStore[*Medication]
	Hospitalizations      LinkedStore[*Hospitalization]
	SurgeryProcedures     LinkedStore[*SurgeryProcedure]
	DischargeInstructions LinkedStore[*DischargeInstruction]
	Goals                 LinkedStore[*Goal]
}

// CheckLinked verifies r may be written through a LinkedStore.
func CheckLinked(r Record) error {
	b := r.Base()
	if !b.LinkedHealthSystem || b.RemoteID() == "" {
		return ErrUnlinked
	}
	return nil
}

// Snapshot is every linked record of one patient, grouped by type.
type Snapshot struct {
	Conditions            []*Condition            `json:"conditions"`
	Allergies             []*Allergy              `json:"allergies"`
	Medications           []*Medication           `json:"medications"`
	Hospitalizations      []*Hospitalization      `json:"hospitalizations"`
	SurgeryProcedures     []*SurgeryProcedure     `json:"surgery_procedures"`
	DischargeInstructions []*DischargeInstruction `json:"discharge_instructions"`
	Goals                 []*Goal                 `json:"goals"`
}

// Snapshot lists the linked rows of every type for patientID.
func (s *Stores) Snapshot(ctx context.Context, patientID uuid.UUID) (*Snapshot, error) {
	var (
		out Snapshot
		err error
	)
	if out.Conditions, err = listOrEmpty(ctx, s.Conditions, patientID); err != nil {
		return nil, err
	}
	if out.Allergies, err = listOrEmpty(ctx, s.Allergies, patientID); err != nil {
		return nil, err
	}
	if out.Medications, err = listOrEmpty(ctx, s.Medications, patientID); err != nil {
		return nil, err
	}
	if out.Hospitalizations, err = listOrEmpty(ctx, s.Hospitalizations, patientID); err != nil {
		return nil, err
	}
	if out.SurgeryProcedures, err = listOrEmpty(ctx, s.SurgeryProcedures, patientID); err != nil {
		return nil, err
	}
	if out.DischargeInstructions, err = listOrEmpty(ctx, s.DischargeInstructions, patientID); err != nil {
		return nil, err
	}
	if out.Goals, err = listOrEmpty(ctx, s.Goals, patientID); err != nil {
		return nil, err
	}
	return &out, nil
}

func listOrEmpty[R Record](ctx context.Context, store LinkedStore[R], patientID uuid.UUID) ([]R, error) {
	rs, err := store.List(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = []R{}
	}
	return rs, nil
}
