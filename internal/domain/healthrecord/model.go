package healthrecord

import (
	"time"

	"github.com/google/uuid"
)

// Linked holds the columns shared by every health record table. A row is
// linked when it mirrors a resource on the remote health system; then
// LinkedHealthSystem is true and FHIRID is the remote id.
type Linked struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	LinkedHealthSystem bool      `db:"linked_health_system" json:"linked_health_system"`
	FHIRID             *string   `db:"fhir_id" json:"fhir_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

func (l *Linked) Base() *Linked { return l }

// RemoteID returns the remote id, or "" when none is set.
func (l *Linked) RemoteID() string {
	if l.FHIRID == nil {
		return ""
	}
	return *l.FHIRID
}

// Record is implemented by pointers to every health record type.
type Record interface {
	Base() *Linked
}

type Condition struct {
	Linked
	ConditionName *string `db:"condition_name" json:"condition_name,omitempty"`
}

type Allergy struct {
	Linked
	Topic     *string    `db:"topic" json:"topic,omitempty"`
	Details   *string    `db:"details" json:"details,omitempty"`
	OnsetDate *time.Time `db:"onset_date" json:"onset_date,omitempty"`
	Severity  *string    `db:"severity" json:"severity,omitempty"`
}

type Medication struct {
	Linked
	Name    *string `db:"name" json:"name,omitempty"`
	Details *string `db:"details" json:"details,omitempty"`
}

type Hospitalization struct {
	Linked
	AdmissionDate *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	Details       *string    `db:"details" json:"details,omitempty"`
}

type SurgeryProcedure struct {
	Linked
	ProcedureName *string    `db:"procedure_name" json:"procedure_name,omitempty"`
	Facility      *string    `db:"facility" json:"facility,omitempty"`
	Complications *string    `db:"complications" json:"complications,omitempty"`
	SurgeonName   *string    `db:"surgeon_name" json:"surgeon_name,omitempty"`
	ProcedureDate *time.Time `db:"procedure_date" json:"procedure_date,omitempty"`
	Details       *string    `db:"details" json:"details,omitempty"`
}

type DischargeInstruction struct {
	Linked
	Summary       *string    `db:"summary" json:"summary,omitempty"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	Details       *string    `db:"details" json:"details,omitempty"`
}

type Goal struct {
	Linked
	GoalDescription *string    `db:"goal_description" json:"goal_description,omitempty"`
	TargetDate      *time.Time `db:"target_date" json:"target_date,omitempty"`
}
