package fhirclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ehr/healthsync/internal/platform/fhir"
)

// Error is a failed call to the remote FHIR server. StatusCode is 0 for
// network-level failures where no response was received. Outcome is set
// when the server described the failure with an OperationOutcome, whether
// on an error status or in place of the requested resource.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Outcome    *fhir.OperationOutcome
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("fhir %s %s: %v", e.Method, e.URL, e.Err)
	case e.Outcome != nil:
		return fmt.Sprintf("fhir %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Outcome.Summary())
	case e.Err != nil:
		return fmt.Sprintf("fhir %s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("fhir %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on another attempt:
// no status at all, 429, or any 5xx.
func (e *Error) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable classifies any error returned by an operation passed to Retry.
// Errors that carry no HTTP status are treated as network failures and are
// retryable, except for context cancellation.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return true
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// OutcomeOf returns the OperationOutcome carried by err, if any.
func OutcomeOf(err error) *fhir.OperationOutcome {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Outcome
	}
	return nil
}

// IsNotFound reports whether err means the remote resource does not exist:
// a 404 or 410 response, or a 2xx response carrying an OperationOutcome
// with a not-found/deleted issue. Any other status, even with such an
// outcome, is a failure rather than absence.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	switch code := StatusCode(err); {
	case code == http.StatusNotFound, code == http.StatusGone:
		return true
	case code >= 200 && code <= 299:
		return OutcomeOf(err).IsNotFound()
	}
	return false
}
