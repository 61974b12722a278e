package healthrecord

import "github.com/jackc/pgx/v5/pgxpool"

var conditionTable = tableSpec[*Condition]{
	table:   "patient_condition",
	columns: []string{"condition_name"},
	newRec:  func() *Condition { return &Condition{} },
	values:  func(r *Condition) []interface{} { return []interface{}{r.ConditionName} },
	fields:  func(r *Condition) []interface{} { return []interface{}{&r.ConditionName} },
}

var allergyTable = tableSpec[*Allergy]{
	table:   "patient_allergy",
	columns: []string{"topic", "details", "onset_date", "severity"},
	newRec:  func() *Allergy { return &Allergy{} },
	values: func(r *Allergy) []interface{} {
		return []interface{}{r.Topic, r.Details, r.OnsetDate, r.Severity}
	},
	fields: func(r *Allergy) []interface{} {
		return []interface{}{&r.Topic, &r.Details, &r.OnsetDate, &r.Severity}
	},
}

var medicationTable = tableSpec[*Medication]{
	table:   "patient_medication",
	columns: []string{"name", "details"},
	newRec:  func() *Medication { return &Medication{} },
	values:  func(r *Medication) []interface{} { return []interface{}{r.Name, r.Details} },
	fields:  func(r *Medication) []interface{} { return []interface{}{&r.Name, &r.Details} },
}

var hospitalizationTable = tableSpec[*Hospitalization]{
	table:   "hospitalization",
	columns: []string{"admission_date", "discharge_date", "details"},
	newRec:  func() *Hospitalization { return &Hospitalization{} },
	values: func(r *Hospitalization) []interface{} {
		return []interface{}{r.AdmissionDate, r.DischargeDate, r.Details}
	},
	fields: func(r *Hospitalization) []interface{} {
		return []interface{}{&r.AdmissionDate, &r.DischargeDate, &r.Details}
	},
}

var surgeryProcedureTable = tableSpec[*SurgeryProcedure]{
	table:   "surgery_procedure",
	columns: []string{"procedure_name", "facility", "complications", "surgeon_name", "procedure_date", "details"},
	newRec:  func() *SurgeryProcedure { return &SurgeryProcedure{} },
	values: func(r *SurgeryProcedure) []interface{} {
		return []interface{}{r.ProcedureName, r.Facility, r.Complications, r.SurgeonName, r.ProcedureDate, r.Details}
	},
	fields: func(r *SurgeryProcedure) []interface{} {
		return []interface{}{&r.ProcedureName, &r.Facility, &r.Complications, &r.SurgeonName, &r.ProcedureDate, &r.Details}
	},
}

var dischargeInstructionTable = tableSpec[*DischargeInstruction]{
	table:   "discharge_instruction",
	columns: []string{"summary", "discharge_date", "details"},
	newRec:  func() *DischargeInstruction { return &DischargeInstruction{} },
	values: func(r *DischargeInstruction) []interface{} {
		return []interface{}{r.Summary, r.DischargeDate, r.Details}
	},
	fields: func(r *DischargeInstruction) []interface{} {
		return []interface{}{&r.Summary, &r.DischargeDate, &r.Details}
	},
}

var goalTable = tableSpec[*Goal]{
	table:   "patient_goal",
	columns: []string{"goal_description", "target_date"},
	newRec:  func() *Goal { return &Goal{} },
	values:  func(r *Goal) []interface{} { return []interface{}{r.GoalDescription, r.TargetDate} },
	fields:  func(r *Goal) []interface{} { return []interface{}{&r.GoalDescription, &r.TargetDate} },
}

// NewStores builds the PostgreSQL-backed linked stores.
func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Conditions:            newLinkedStore(pool, conditionTable),
		Allergies:             newLinkedStore(pool, allergyTable),
		Medications:           newLinkedStore(pool, medicationTable),
		Hospitalizations:      newLinkedStore(pool, hospitalizationTable),
		SurgeryProcedures:     newLinkedStore(pool, surgeryProcedureTable),
		DischargeInstructions: newLinkedStore(pool, dischargeInstructionTable),
		Goals:                 newLinkedStore(pool, goalTable),
	}
}
