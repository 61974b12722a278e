package fhirmodels

// Common FHIR value set constants used across the application.

// Resource types read from the remote health system.
const (
	ResourceTypePatient             = "Patient"
	ResourceTypeCondition           = "Condition"
	ResourceTypeAllergyIntolerance  = "AllergyIntolerance"
	ResourceTypeMedicationStatement = "MedicationStatement"
	ResourceTypeEncounter           = "Encounter"
	ResourceTypeClinicalImpression  = "ClinicalImpression"
	ResourceTypeProcedure           = "Procedure"
	ResourceTypeGoal                = "Goal"
	ResourceTypeBundle              = "Bundle"
	ResourceTypeOperationOutcome    = "OperationOutcome"
)

// AllergyIntoleranceReaction severity codes per FHIR R4.
const (
	ReactionSeverityMild     = "mild"
	ReactionSeverityModerate = "moderate"
	ReactionSeveritySevere   = "severe"
)

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// Bundle link relations.
const (
	LinkSelf     = "self"
	LinkNext     = "next"
	LinkPrevious = "previous"
)

// IsReactionSeverity reports whether s is a known reaction severity code.
func IsReactionSeverity(s string) bool {
	switch s {
	case ReactionSeverityMild, ReactionSeverityModerate, ReactionSeveritySevere:
		return true
	}
	return false
}

// IsGender reports whether s is a valid AdministrativeGender code.
func IsGender(s string) bool {
	switch s {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}
