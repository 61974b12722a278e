package fhirsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/platform/fhir"
	"github.com/ehr/healthsync/internal/platform/fhirclient"
	"github.com/ehr/healthsync/pkg/fhirmodels"
)

// FetchError means a remote collection or the remote Patient could not be
// read. It never means the remote data is absent.
type FetchError struct {
	Resource string
	Hard     bool
	Err      error
}

func (e *FetchError) Error() string {
	kind := "fetch"
	if e.Hard {
		kind = "hard fetch"
	}
	return fmt.Sprintf("%s failure for %s: %v", kind, e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsHardFailure reports whether err is a FetchError classified as hard.
func IsHardFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Hard
}

var errPageLimit = errors.New("page limit reached before the last page")

// Remote is the read surface of a FHIR server.
type Remote interface {
	Read(ctx context.Context, resourceType, id string, out any) error
	Search(ctx context.Context, resourceType string, params map[string]string) (*fhir.Bundle, error)
	Page(ctx context.Context, link string) (*fhir.Bundle, error)
}

// Source yields the remote state of one patient in local form.
type Source interface {
	Patient(ctx context.Context, fhirID string) (*identity.Patient, bool, error)
	Conditions(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Condition, error)
	Allergies(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Allergy, error)
	Medications(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Medication, error)
	Hospitalizations(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Hospitalization, error)
	DischargeInstructions(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.DischargeInstruction, error)
	SurgeryProcedures(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.SurgeryProcedure, error)
	Goals(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Goal, error)
}

// Fetcher reads a patient's resources through SafeFetch, following search
// pagination so that a partial result is never mistaken for the full set.
type Fetcher struct {
	remote   Remote
	guard    *fhirclient.Guard
	pageSize int
	maxPages int
	logger   zerolog.Logger
}

func NewFetcher(remote Remote, guard *fhirclient.Guard, pageSize, maxPages int, logger zerolog.Logger) *Fetcher {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Fetcher{
		remote:   remote,
		guard:    guard,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.With().Str("component", "fetcher").Logger(),
	}
}

// Patient reads the remote Patient. found is false only when the server says
// the patient does not exist; every other failure is returned as an error.
func (f *Fetcher) Patient(ctx context.Context, fhirID string) (*identity.Patient, bool, error) {
	res := fhirclient.SafeFetch(ctx, f.guard, "Patient/"+fhirID, func(ctx context.Context) (*fhir.Patient, error) {
		var p fhir.Patient
		if err := f.remote.Read(ctx, fhirmodels.ResourceTypePatient, fhirID, &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if res.OK {
		return MapPatient(res.Value), true, nil
	}
	if fhirclient.IsNotFound(res.Err) {
		return nil, false, nil
	}
	return nil, false, &FetchError{Resource: fhirmodels.ResourceTypePatient, Hard: res.Hard, Err: res.Err}
}

// searchAll returns every page of a patient-scoped search, or a FetchError.
func (f *Fetcher) searchAll(ctx context.Context, resourceType, fhirID string) ([]*fhir.Bundle, error) {
	params := map[string]string{"patient": fhirID}
	if f.pageSize > 0 {
		params["_count"] = strconv.Itoa(f.pageSize)
	}

	res := fhirclient.SafeFetch(ctx, f.guard, resourceType, func(ctx context.Context) (*fhir.Bundle, error) {
		return f.remote.Search(ctx, resourceType, params)
	})
	if !res.OK {
		return nil, &FetchError{Resource: resourceType, Hard: res.Hard, Err: res.Err}
	}
	pages := []*fhir.Bundle{res.Value}

	for next := res.Value.NextLink(); next != ""; next = pages[len(pages)-1].NextLink() {
		if len(pages) >= f.maxPages {
			return nil, &FetchError{Resource: resourceType, Err: errPageLimit}
		}
		link := next
		res := fhirclient.SafeFetch(ctx, f.guard, resourceType+" page", func(ctx context.Context) (*fhir.Bundle, error) {
			return f.remote.Page(ctx, link)
		})
		if !res.OK {
			return nil, &FetchError{Resource: resourceType, Hard: res.Hard, Err: res.Err}
		}
		pages = append(pages, res.Value)
	}
	return pages, nil
}

func fetchLinked[F any, R healthrecord.Record](
	ctx context.Context,
	f *Fetcher,
	resourceType, fhirID string,
	patientID uuid.UUID,
	mapFn func(*F) R,
) ([]R, error) {
	pages, err := f.searchAll(ctx, resourceType, fhirID)
	if err != nil {
		return nil, err
	}

	var out []R
	for _, page := range pages {
		items, err := fhir.ResourcesOfType[F](page, resourceType)
		if err != nil {
			return nil, &FetchError{Resource: resourceType, Err: err}
		}
		for i := range items {
			rec := mapFn(&items[i])
			rec.Base().PatientID = patientID
			out = append(out, rec)
		}
	}
	f.logger.Debug().Str("resource", resourceType).Str("patient", fhirID).
		Int("pages", len(pages)).Int("count", len(out)).Msg("fetched remote resources")
	return out, nil
}

func (f *Fetcher) Conditions(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Condition, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeCondition, fhirID, patientID, MapCondition)
}

func (f *Fetcher) Allergies(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Allergy, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeAllergyIntolerance, fhirID, patientID, MapAllergy)
}

func (f *Fetcher) Medications(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Medication, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeMedicationStatement, fhirID, patientID, MapMedication)
}

func (f *Fetcher) Hospitalizations(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Hospitalization, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeEncounter, fhirID, patientID, MapEncounter)
}

func (f *Fetcher) DischargeInstructions(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.DischargeInstruction, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeClinicalImpression, fhirID, patientID, MapClinicalImpression)
}

func (f *Fetcher) SurgeryProcedures(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.SurgeryProcedure, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeProcedure, fhirID, patientID, MapProcedure)
}

func (f *Fetcher) Goals(ctx context.Context, fhirID string, patientID uuid.UUID) ([]*healthrecord.Goal, error) {
	return fetchLinked(ctx, f, fhirmodels.ResourceTypeGoal, fhirID, patientID, MapGoal)
}
