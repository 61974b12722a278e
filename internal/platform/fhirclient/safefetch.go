package fhirclient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/platform/fhir"
)

// Classifier decides which OperationOutcome severities make a failure hard.
type Classifier struct {
	HardSeverities []string
}

// DefaultClassifier treats only "fatal" issues as hard failures.
func DefaultClassifier() Classifier {
	return Classifier{HardSeverities: []string{fhir.IssueSeverityFatal}}
}

// StrictClassifier treats both "fatal" and "error" issues as hard failures.
func StrictClassifier() Classifier {
	return Classifier{HardSeverities: []string{fhir.IssueSeverityFatal, fhir.IssueSeverityError}}
}

// IsHard reports whether oo contains an issue with a hard severity.
func (c Classifier) IsHard(oo *fhir.OperationOutcome) bool {
	return oo.HasSeverity(c.HardSeverities...)
}

// Result is what SafeFetch hands back instead of an error.
//
// Exactly one of these holds:
//   - OK: Value was fetched.
//   - Hard: the server reported a hard OperationOutcome; Err is set.
//   - Outcome != nil: the server reported only non-hard issues; the outcome is
//     returned so the caller may interpret it. Err is set.
//   - otherwise Err describes a network, HTTP or decode failure.
type Result[T any] struct {
	Value   T
	OK      bool
	Hard    bool
	Outcome *fhir.OperationOutcome
	Err     error
}

// Guard carries the retry policy, the outcome classifier and the logger used
// by SafeFetch.
type Guard struct {
	Policy     RetryPolicy
	Classifier Classifier
	Logger     zerolog.Logger
}

// SafeFetch runs op under Retry and converts every failure into a Result.
// It never panics past its boundary.
func SafeFetch[T any](ctx context.Context, g *Guard, name string, op func(context.Context) (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("%s: panic: %v", name, r)}
			g.Logger.Error().Str("request", name).Interface("panic", r).Msg("fhir fetch panicked")
		}
	}()

	v, err := Retry(ctx, g.Policy, op)
	if err == nil {
		return Result[T]{Value: v, OK: true}
	}

	if oo := OutcomeOf(err); oo != nil && len(oo.Issue) > 0 {
		if g.Classifier.IsHard(oo) {
			g.Logger.Error().Str("request", name).Str("outcome", oo.Summary()).Msg("fhir fetch hard failure")
			return Result[T]{Hard: true, Err: err}
		}
		g.Logger.Warn().Str("request", name).Str("outcome", oo.Summary()).Msg("fhir fetch returned non-fatal outcome")
		return Result[T]{Outcome: oo, Err: err}
	}

	g.Logger.Warn().Err(err).Str("request", name).Int("status", StatusCode(err)).Msg("fhir fetch failed")
	return Result[T]{Err: err}
}
