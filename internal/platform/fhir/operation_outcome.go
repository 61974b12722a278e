package fhir

import (
	"fmt"
	"strings"
)

// OperationOutcome severity levels per FHIR R4 spec.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes per FHIR R4 spec.
const (
	IssueTypeInvalid      = "invalid"
	IssueTypeNotFound     = "not-found"
	IssueTypeProcessing   = "processing"
	IssueTypeSecurity     = "security"
	IssueTypeThrottled    = "throttled"
	IssueTypeNotSupported = "not-supported"
	IssueTypeException    = "exception"
	IssueTypeTimeout      = "timeout"
	IssueTypeDeleted      = "deleted"
)

// OperationOutcome represents a FHIR OperationOutcome. Remote servers return
// it in place of the requested resource to report semantic failures.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, resourceType+"/"+id+" not found")
}

// HasSeverity reports whether any issue carries one of the given severities.
func (o *OperationOutcome) HasSeverity(severities ...string) bool {
	if o == nil {
		return false
	}
	for _, issue := range o.Issue {
		for _, s := range severities {
			if issue.Severity == s {
				return true
			}
		}
	}
	return false
}

// IsNotFound reports whether the outcome says the requested resource does
// not exist or has been deleted.
func (o *OperationOutcome) IsNotFound() bool {
	if o == nil {
		return false
	}
	for _, issue := range o.Issue {
		if issue.Code == IssueTypeNotFound || issue.Code == IssueTypeDeleted {
			return true
		}
	}
	return false
}

// Summary renders the issues as "severity/code: diagnostics" joined by "; ".
func (o *OperationOutcome) Summary() string {
	if o == nil || len(o.Issue) == 0 {
		return "empty OperationOutcome"
	}
	parts := make([]string, 0, len(o.Issue))
	for _, issue := range o.Issue {
		s := fmt.Sprintf("%s/%s", issue.Severity, issue.Code)
		if issue.Diagnostics != "" {
			s += ": " + issue.Diagnostics
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}
