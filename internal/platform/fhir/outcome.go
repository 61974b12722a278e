package fhir

import "fmt"

// ConflictOutcome creates a 409-style OperationOutcome for a request that
// collides with work already in progress.
func ConflictOutcome(message string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, "conflict", message)
}

// ThrottleOutcome creates a 429-style OperationOutcome indicating the server is
// rate-limiting the client. The FHIR spec uses issue type "throttled".
func ThrottleOutcome() *OperationOutcome {
	return NewOperationOutcome(
		IssueSeverityError,
		IssueTypeThrottled,
		"Rate limit exceeded. Please retry after a delay.",
	)
}

// GoneOutcome creates a 410-style OperationOutcome for a resource that has been
// deleted. The FHIR spec uses issue type "deleted" for this scenario.
func GoneOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome(
		IssueSeverityError,
		IssueTypeDeleted,
		fmt.Sprintf("%s/%s has been deleted", resourceType, id),
	)
}
