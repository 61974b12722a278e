package fhirsync

import (
	"strconv"
	"strings"
	"time"

	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/platform/fhir"
	"github.com/ehr/healthsync/pkg/fhirmodels"
)

// Mappers translate remote FHIR resources into local records. They are pure:
// absent remote fields become nil, never "", and a nil resource maps to nil.
// The local patient id is left unset; fetchers inject it.

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// parseDate accepts the FHIR date and dateTime forms YYYY, YYYY-MM,
// YYYY-MM-DD and RFC 3339. Anything else yields nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, "T") {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return &t
		}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstDate(candidates ...string) *time.Time {
	for _, c := range candidates {
		if t := parseDate(c); t != nil {
			return t
		}
	}
	return nil
}

func linkedTo(r fhir.Resource) healthrecord.Linked {
	return healthrecord.Linked{LinkedHealthSystem: true, FHIRID: optString(r.ID)}
}

func firstConcept(cs []fhir.CodeableConcept) *fhir.CodeableConcept {
	if len(cs) == 0 {
		return nil
	}
	return &cs[0]
}

func MapPatient(r *fhir.Patient) *identity.Patient {
	if r == nil {
		return nil
	}
	p := &identity.Patient{FHIRID: optString(r.ID)}
	if len(r.Name) > 0 {
		n := r.Name[0]
		if len(n.Given) > 0 {
			p.FirstName = optString(n.Given[0])
		}
		if len(n.Given) > 1 {
			p.MiddleName = optString(n.Given[1])
		}
		p.LastName = optString(n.Family)
	}
	if g := optString(r.Gender); identity.ValidGender(g) {
		p.Gender = g
	}
	p.DateOfBirth = parseDate(r.BirthDate)
	return p
}

// PatientToRemote renders the local demographics as a FHIR Patient.
func PatientToRemote(p *identity.Patient) *fhir.Patient {
	if p == nil {
		return nil
	}
	out := &fhir.Patient{Resource: fhir.Resource{ResourceType: fhirmodels.ResourceTypePatient, ID: p.RemoteID()}}

	var name fhir.HumanName
	for _, g := range []*string{p.FirstName, p.MiddleName} {
		if g != nil && *g != "" {
			name.Given = append(name.Given, *g)
		}
	}
	if p.LastName != nil {
		name.Family = *p.LastName
	}
	if name.Family != "" || len(name.Given) > 0 {
		out.Name = []fhir.HumanName{name}
	}
	if p.Gender != nil {
		out.Gender = *p.Gender
	}
	if p.DateOfBirth != nil {
		out.BirthDate = p.DateOfBirth.Format("2006-01-02")
	}
	return out
}

func MapCondition(r *fhir.Condition) *healthrecord.Condition {
	if r == nil {
		return nil
	}
	return &healthrecord.Condition{
		Linked:        linkedTo(r.Resource),
		ConditionName: r.Code.Label(),
	}
}

// normalizeSeverity maps a reaction severity onto mild, moderate or severe.
func normalizeSeverity(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !fhirmodels.IsReactionSeverity(s) {
		return nil
	}
	return &s
}

func MapAllergy(r *fhir.AllergyIntolerance) *healthrecord.Allergy {
	if r == nil {
		return nil
	}
	a := &healthrecord.Allergy{
		Linked: linkedTo(r.Resource),
		Topic:  r.Code.Label(),
	}
	onsetStart := ""
	if r.OnsetPeriod != nil {
		onsetStart = r.OnsetPeriod.Start
	}
	a.OnsetDate = firstDate(r.OnsetDateTime, onsetStart)

	if len(r.Reaction) > 0 {
		rx := r.Reaction[0]
		if m := firstConcept(rx.Manifestation); m != nil {
			a.Details = optString(m.Text)
		}
		a.Severity = normalizeSeverity(rx.Severity)
	}
	return a
}

func MapMedication(r *fhir.MedicationStatement) *healthrecord.Medication {
	if r == nil {
		return nil
	}
	m := &healthrecord.Medication{
		Linked: linkedTo(r.Resource),
		Name:   r.MedicationCodeableConcept.Label(),
	}
	if len(r.Dosage) > 0 {
		m.Details = dosageDetails(r.Dosage[0])
	}
	return m
}

func dosageDetails(d fhir.Dosage) *string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(d.Text)
	if len(d.DoseAndRate) > 0 && d.DoseAndRate[0].DoseQuantity != nil {
		q := d.DoseAndRate[0].DoseQuantity
		if q.Value != nil {
			add(strconv.FormatFloat(*q.Value, 'f', -1, 64))
		}
		add(q.Unit)
	}
	if d.Timing != nil && d.Timing.Code != nil {
		add(d.Timing.Code.Text)
	}
	if d.Route != nil {
		add(d.Route.Text)
	}

	if len(parts) == 0 {
		return nil
	}
	s := "Dosage: " + strings.Join(parts, " ")
	return &s
}

func MapEncounter(r *fhir.Encounter) *healthrecord.Hospitalization {
	if r == nil {
		return nil
	}
	h := &healthrecord.Hospitalization{
		Linked:  linkedTo(r.Resource),
		Details: firstConcept(r.ReasonCode).Label(),
	}
	if r.Period != nil {
		h.AdmissionDate = parseDate(r.Period.Start)
		h.DischargeDate = parseDate(r.Period.End)
	}
	return h
}

func MapClinicalImpression(r *fhir.ClinicalImpression) *healthrecord.DischargeInstruction {
	if r == nil {
		return nil
	}
	return &healthrecord.DischargeInstruction{
		Linked:        linkedTo(r.Resource),
		Summary:       optString(r.Summary),
		DischargeDate: firstDate(r.Date, r.EffectiveDateTime),
		Details:       optString(r.Description),
	}
}

func MapProcedure(r *fhir.Procedure) *healthrecord.SurgeryProcedure {
	if r == nil {
		return nil
	}
	sp := &healthrecord.SurgeryProcedure{
		Linked:        linkedTo(r.Resource),
		ProcedureName: r.Code.Label(),
		Complications: firstConcept(r.Complication).Label(),
	}
	if r.Location != nil {
		sp.Facility = optString(r.Location.Display)
	}
	if len(r.Performer) > 0 && r.Performer[0].Actor != nil {
		sp.SurgeonName = optString(r.Performer[0].Actor.Display)
	}
	periodStart := ""
	if r.PerformedPeriod != nil {
		periodStart = r.PerformedPeriod.Start
	}
	sp.ProcedureDate = firstDate(r.PerformedDateTime, periodStart)
	if len(r.Note) > 0 {
		sp.Details = optString(r.Note[0].Text)
	}
	return sp
}

func MapGoal(r *fhir.Goal) *healthrecord.Goal {
	if r == nil {
		return nil
	}
	g := &healthrecord.Goal{
		Linked:          linkedTo(r.Resource),
		GoalDescription: r.Description.Label(),
	}
	if len(r.Target) > 0 {
		g.TargetDate = parseDate(r.Target[0].DueDate)
	}
	return g
}
