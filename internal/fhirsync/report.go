package fhirsync

import "time"

// Action is the reconciliation decision for one resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSkip   Action = "skip"
)

// Decide maps the presence of a resource on each side to an action. The
// remote side always wins.
func Decide(remotePresent, localPresent bool) Action {
	switch {
	case remotePresent && localPresent:
		return ActionUpdate
	case remotePresent:
		return ActionCreate
	case localPresent:
		return ActionDelete
	default:
		return ActionSkip
	}
}

// TypeReport is the outcome of reconciling one linked resource type.
type TypeReport struct {
	Resource string `json:"resource"`
	Fetched  int    `json:"fetched"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Deleted  int    `json:"deleted"`
	Skipped  int    `json:"skipped"`
	Failed   bool   `json:"failed,omitempty"`
	Hard     bool   `json:"hard,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report describes one sync pass.
type Report struct {
	PatientFHIRID  string       `json:"patient_fhir_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	PatientAction  Action       `json:"patient_action,omitempty"`
	PatientDeleted bool         `json:"patient_deleted"`
	HardFailure    bool         `json:"hard_failure"`
	Types          []TypeReport `json:"types,omitempty"`
}

// Failed lists the resource types that could not be reconciled.
func (r *Report) Failed() []string {
	var out []string
	for _, t := range r.Types {
		if t.Failed {
			out = append(out, t.Resource)
		}
	}
	return out
}

// PatientGone reports whether the pass left no patient to sync: the pass
// deleted it, or it was already absent locally and remotely.
func (r *Report) PatientGone() bool {
	return r.PatientDeleted || r.PatientAction == ActionSkip
}
