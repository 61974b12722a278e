package fhir

import (
	"encoding/json"
)

// Resource is the base FHIR resource representation.
type Resource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
	Meta         *Meta  `json:"meta,omitempty"`
}

type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Label returns the concept's text, falling back to the first coding's
// display. It returns nil when neither is present.
func (c *CodeableConcept) Label() *string {
	if c == nil {
		return nil
	}
	if c.Text != "" {
		return strPtr(c.Text)
	}
	if len(c.Coding) > 0 && c.Coding[0].Display != "" {
		return strPtr(c.Coding[0].Display)
	}
	return nil
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

// Period keeps FHIR dateTime values as received; callers parse them.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
}

type Annotation struct {
	Text string `json:"text,omitempty"`
	Time string `json:"time,omitempty"`
}

// Patient is the subset of the FHIR R4 Patient resource used by sync.
type Patient struct {
	Resource
	Identifier []Identifier `json:"identifier,omitempty"`
	Active     *bool        `json:"active,omitempty"`
	Name       []HumanName  `json:"name,omitempty"`
	Gender     string       `json:"gender,omitempty"`
	BirthDate  string       `json:"birthDate,omitempty"`
}

type Condition struct {
	Resource
	ClinicalStatus *CodeableConcept `json:"clinicalStatus,omitempty"`
	Code           *CodeableConcept `json:"code,omitempty"`
	Subject        *Reference       `json:"subject,omitempty"`
	OnsetDateTime  string           `json:"onsetDateTime,omitempty"`
	RecordedDate   string           `json:"recordedDate,omitempty"`
}

type AllergyReaction struct {
	Substance     *CodeableConcept  `json:"substance,omitempty"`
	Manifestation []CodeableConcept `json:"manifestation,omitempty"`
	Description   string            `json:"description,omitempty"`
	Severity      string            `json:"severity,omitempty"`
}

type AllergyIntolerance struct {
	Resource
	Code          *CodeableConcept  `json:"code,omitempty"`
	Patient       *Reference        `json:"patient,omitempty"`
	OnsetDateTime string            `json:"onsetDateTime,omitempty"`
	OnsetPeriod   *Period           `json:"onsetPeriod,omitempty"`
	Reaction      []AllergyReaction `json:"reaction,omitempty"`
}

type Timing struct {
	Code *CodeableConcept `json:"code,omitempty"`
}

type DoseAndRate struct {
	DoseQuantity *Quantity `json:"doseQuantity,omitempty"`
}

type Dosage struct {
	Text        string           `json:"text,omitempty"`
	Timing      *Timing          `json:"timing,omitempty"`
	Route       *CodeableConcept `json:"route,omitempty"`
	DoseAndRate []DoseAndRate    `json:"doseAndRate,omitempty"`
}

type MedicationStatement struct {
	Resource
	Status                    string           `json:"status,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference       `json:"subject,omitempty"`
	Dosage                    []Dosage         `json:"dosage,omitempty"`
}

type Encounter struct {
	Resource
	Status     string            `json:"status,omitempty"`
	Subject    *Reference        `json:"subject,omitempty"`
	Period     *Period           `json:"period,omitempty"`
	ReasonCode []CodeableConcept `json:"reasonCode,omitempty"`
}

type ClinicalImpression struct {
	Resource
	Status            string     `json:"status,omitempty"`
	Subject           *Reference `json:"subject,omitempty"`
	Description       string     `json:"description,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Date              string     `json:"date,omitempty"`
	EffectiveDateTime string     `json:"effectiveDateTime,omitempty"`
}

type ProcedurePerformer struct {
	Actor *Reference `json:"actor,omitempty"`
}

type Procedure struct {
	Resource
	Status            string               `json:"status,omitempty"`
	Code              *CodeableConcept     `json:"code,omitempty"`
	Subject           *Reference           `json:"subject,omitempty"`
	PerformedDateTime string               `json:"performedDateTime,omitempty"`
	PerformedPeriod   *Period              `json:"performedPeriod,omitempty"`
	Performer         []ProcedurePerformer `json:"performer,omitempty"`
	Location          *Reference           `json:"location,omitempty"`
	Complication      []CodeableConcept    `json:"complication,omitempty"`
	Note              []Annotation         `json:"note,omitempty"`
}

type GoalTarget struct {
	DueDate string `json:"dueDate,omitempty"`
}

type Goal struct {
	Resource
	LifecycleStatus string           `json:"lifecycleStatus,omitempty"`
	Description     *CodeableConcept `json:"description,omitempty"`
	Subject         *Reference       `json:"subject,omitempty"`
	Target          []GoalTarget     `json:"target,omitempty"`
}

// PeekResourceType reads the resourceType of a raw JSON resource without
// decoding the rest of it. It returns "" when the payload is not an object.
func PeekResourceType(raw []byte) string {
	var r struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return ""
	}
	return r.ResourceType
}

func strPtr(s string) *string { return &s }
