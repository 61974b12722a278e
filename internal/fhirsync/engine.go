package fhirsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/platform/db"
)

var ErrNotLinked = errors.New("patient is not linked to a remote health system")

// Engine runs one reconciliation pass for one patient.
type Engine struct {
	source   Source
	patients identity.PatientRepository
	records  *healthrecord.Stores
	status   StatusRepository
	tx       db.TxRunner
	clock    Clock
	logger   zerolog.Logger
}

func NewEngine(
	source Source,
	patients identity.PatientRepository,
	records *healthrecord.Stores,
	status StatusRepository,
	tx db.TxRunner,
	clock Clock,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		source:   source,
		patients: patients,
		records:  records,
		status:   status,
		tx:       tx,
		clock:    clock,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// typeStep reconciles one linked resource type.
type typeStep func(ctx context.Context, e *Engine, p *identity.Patient) TypeReport

func (e *Engine) steps() []typeStep {
	return []typeStep{
		linkedStep("Condition", Source.Conditions, e.records.Conditions),
		linkedStep("AllergyIntolerance", Source.Allergies, e.records.Allergies),
		linkedStep("MedicationStatement", Source.Medications, e.records.Medications),
		linkedStep("Encounter", Source.Hospitalizations, e.records.Hospitalizations),
		linkedStep("ClinicalImpression", Source.DischargeInstructions, e.records.DischargeInstructions),
		linkedStep("Procedure", Source.SurgeryProcedures, e.records.SurgeryProcedures),
		linkedStep("Goal", Source.Goals, e.records.Goals),
	}
}

// Run reconciles the local state of patient against the remote server.
// It returns an error only when the pass could not start or the patient
// step failed; failures of individual resource types are recorded in the
// report and do not stop the pass.
func (e *Engine) Run(ctx context.Context, patient *identity.Patient) (*Report, error) {
	fhirID := patient.RemoteID()
	rep := &Report{PatientFHIRID: fhirID, StartedAt: e.clock.Now()}
	defer func() { rep.FinishedAt = e.clock.Now() }()

	if fhirID == "" {
		return rep, ErrNotLinked
	}
	log := e.logger.With().Str("patient", fhirID).Logger()

	remote, found, err := e.source.Patient(ctx, fhirID)
	if err != nil {
		rep.HardFailure = IsHardFailure(err)
		log.Error().Err(err).Msg("remote patient fetch failed; pass aborted")
		return rep, fmt.Errorf("fetch patient %s: %w", fhirID, err)
	}

	local, err := e.patients.GetByFHIRID(ctx, fhirID)
	if err != nil && !errors.Is(err, identity.ErrPatientNotFound) {
		return rep, fmt.Errorf("load local patient: %w", err)
	}
	localPresent := err == nil

	rep.PatientAction = Decide(found, localPresent)
	switch rep.PatientAction {
	case ActionDelete:
		if err := e.deletePatient(ctx, local, log); err != nil {
			return rep, err
		}
		rep.PatientDeleted = true
		return rep, nil
	case ActionSkip:
		log.Warn().Msg("patient absent locally and remotely; nothing to sync")
		return rep, nil
	case ActionCreate:
		remote.UserID = patient.UserID
		if err := e.patients.Create(ctx, remote); err != nil {
			return rep, fmt.Errorf("create patient: %w", err)
		}
		local = remote
		log.Info().Str("id", local.ID.String()).Msg("created local patient from remote")
	case ActionUpdate:
		local.SetDemographics(remote.Demographics())
		if err := e.patients.UpdateDemographics(ctx, local); err != nil {
			return rep, fmt.Errorf("update patient demographics: %w", err)
		}
		log.Debug().Msg("updated patient demographics")
	}

	for _, step := range e.steps() {
		tr := step(ctx, e, local)
		if tr.Hard {
			rep.HardFailure = true
		}
		rep.Types = append(rep.Types, tr)
	}

	log.Info().
		Bool("hard_failure", rep.HardFailure).
		Strs("failed", rep.Failed()).
		Msg("sync pass finished")
	return rep, nil
}

// deletePatient removes the patient's linked rows, its sync status and the
// patient row in one transaction. User-entered rows go through the
// patient foreign key cascade.
func (e *Engine) deletePatient(ctx context.Context, p *identity.Patient, log zerolog.Logger) error {
	deleters := []func(context.Context, uuid.UUID) (int64, error){
		e.records.Conditions.DeleteAllLinked,
		e.records.Allergies.DeleteAllLinked,
		e.records.Medications.DeleteAllLinked,
		e.records.Hospitalizations.DeleteAllLinked,
		e.records.DischargeInstructions.DeleteAllLinked,
		e.records.SurgeryProcedures.DeleteAllLinked,
		e.records.Goals.DeleteAllLinked,
	}

	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		userEntered, err := e.patients.CountUserEntered(ctx, p.ID)
		if err != nil {
			return err
		}
		if userEntered > 0 {
			log.Warn().Int("user_entered", userEntered).Msg("remote patient gone; removing user-entered records with it")
		}

		var linked int64
		for _, del := range deleters {
			n, err := del(ctx, p.ID)
			if err != nil {
				return err
			}
			linked += n
		}
		if err := e.status.Delete(ctx, p.RemoteID()); err != nil {
			return err
		}
		if err := e.patients.Delete(ctx, p.ID); err != nil {
			return err
		}
		log.Warn().Int64("linked", linked).Msg("remote patient gone; local patient deleted")
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete patient %s: %w", p.RemoteID(), err)
	}
	return nil
}
