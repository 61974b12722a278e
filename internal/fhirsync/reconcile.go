package fhirsync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
)

type fetchFunc[R healthrecord.Record] func(s Source, ctx context.Context, fhirID string, patientID uuid.UUID) ([]R, error)

func linkedStep[R healthrecord.Record](name string, fetch fetchFunc[R], store healthrecord.LinkedStore[R]) typeStep {
	return func(ctx context.Context, e *Engine, p *identity.Patient) TypeReport {
		return reconcileLinked(ctx, e, name, p, fetch, store)
	}
}

// reconcileLinked brings the linked rows of one type in line with the remote
// set. A failed fetch leaves local rows untouched. Writes for the type share
// one transaction, so a store error rolls back the whole type.
func reconcileLinked[R healthrecord.Record](
	ctx context.Context,
	e *Engine,
	name string,
	p *identity.Patient,
	fetch fetchFunc[R],
	store healthrecord.LinkedStore[R],
) TypeReport {
	tr := TypeReport{Resource: name}
	log := e.logger.With().Str("patient", p.RemoteID()).Str("resource", name).Logger()

	remote, err := fetch(e.source, ctx, p.RemoteID(), p.ID)
	if err != nil {
		tr.Failed = true
		tr.Hard = IsHardFailure(err)
		tr.Error = err.Error()
		log.Warn().Err(err).Bool("hard", tr.Hard).Msg("fetch failed; leaving local records untouched")
		return tr
	}
	tr.Fetched = len(remote)

	counts := TypeReport{Resource: name, Fetched: len(remote)}
	err = e.tx.InTx(ctx, func(ctx context.Context) error {
		seen := make(map[string]bool, len(remote))
		for _, item := range remote {
			b := item.Base()
			id := b.RemoteID()
			if id == "" {
				counts.Skipped++
				log.Debug().Msg("remote item without id skipped")
				continue
			}
			seen[id] = true
			b.PatientID = p.ID

			_, err := store.GetByFHIRID(ctx, p.ID, id)
			if err != nil && !errors.Is(err, healthrecord.ErrNotFound) {
				return err
			}
			switch Decide(true, err == nil) {
			case ActionCreate:
				if err := store.Create(ctx, item); err != nil {
					return err
				}
				counts.Created++
			case ActionUpdate:
				if err := store.UpdateByFHIRID(ctx, item); err != nil {
					return err
				}
				counts.Updated++
			}
			log.Debug().Str("fhir_id", id).Msg("reconciled")
		}

		local, err := store.ListFHIRIDs(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, id := range local {
			if seen[id] {
				continue
			}
			// Absent from a complete remote fetch.
			if err := store.DeleteByFHIRID(ctx, p.ID, id); err != nil && !errors.Is(err, healthrecord.ErrNotFound) {
				return err
			}
			counts.Deleted++
			log.Debug().Str("fhir_id", id).Msg("deleted; no longer on remote")
		}
		return nil
	})
	if err != nil {
		tr.Failed = true
		tr.Error = err.Error()
		log.Error().Err(err).Msg("reconcile failed; changes for this type rolled back")
		return tr
	}
	return counts
}
