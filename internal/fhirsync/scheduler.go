package fhirsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/platform/lock"
)

var ErrAlreadyRunning = errors.New("sync already running for patient")

// Runner performs one sync pass.
type Runner interface {
	Run(ctx context.Context, patient *identity.Patient) (*Report, error)
}

// Scheduler runs passes for one patient on a fixed-delay loop: after a pass
// finishes it waits one full interval before checking again. Passes for the
// same patient never overlap, across goroutines or, with a shared Locker,
// across processes.
type Scheduler struct {
	runner   Runner
	status   StatusRepository
	locker   lock.Locker
	clock    Clock
	interval time.Duration
	lockTTL  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running string
}

// NewScheduler creates a Scheduler. An interval of zero disables the loop;
// passes then run only through SyncNow.
func NewScheduler(runner Runner, status StatusRepository, locker lock.Locker, clock Clock, interval, lockTTL time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		status:   status,
		locker:   locker,
		clock:    clock,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// ShouldSync reports whether a scheduled pass is due for fhirID.
func (s *Scheduler) ShouldSync(ctx context.Context, fhirID string) (bool, error) {
	if s.interval <= 0 {
		return false, nil
	}
	st, err := s.status.Get(ctx, fhirID)
	if errors.Is(err, ErrStatusNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if st.LastSyncedAt == nil {
		return true, nil
	}
	return s.clock.Now().Sub(*st.LastSyncedAt) >= s.interval, nil
}

// UpdateSyncStatus records the outcome of a pass at the current time.
func (s *Scheduler) UpdateSyncStatus(ctx context.Context, fhirID string, ok bool) error {
	return s.status.Upsert(ctx, fhirID, s.clock.Now(), ok)
}

// Status returns the recorded status for fhirID.
func (s *Scheduler) Status(ctx context.Context, fhirID string) (*SyncStatus, error) {
	return s.status.Get(ctx, fhirID)
}

// SyncNow runs a pass immediately, ignoring the cooldown. It returns
// ErrAlreadyRunning when a pass for the patient is in progress.
func (s *Scheduler) SyncNow(ctx context.Context, patient *identity.Patient) (*Report, error) {
	unlock, err := s.locker.TryLock(ctx, lockKey(patient), s.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.pass(ctx, patient)
}

// pass runs the engine and records the outcome. A pass that finds the
// patient gone leaves no status behind and ends the patient's loop, even
// when the pass came from SyncNow.
func (s *Scheduler) pass(ctx context.Context, patient *identity.Patient) (*Report, error) {
	fhirID := patient.RemoteID()
	rep, runErr := s.runner.Run(ctx, patient)
	if rep != nil && rep.PatientGone() {
		s.endLoop(fhirID)
		return rep, runErr
	}

	ok := runErr == nil && (rep == nil || !rep.HardFailure)
	if err := s.UpdateSyncStatus(ctx, fhirID, ok); err != nil {
		s.logger.Error().Err(err).Str("patient", fhirID).Msg("failed to record sync status")
		if runErr == nil {
			runErr = err
		}
	}
	return rep, runErr
}

// tick runs a pass if one is due. It reports whether the patient was deleted.
func (s *Scheduler) tick(ctx context.Context, patient *identity.Patient) bool {
	fhirID := patient.RemoteID()
	log := s.logger.With().Str("patient", fhirID).Logger()

	unlock, err := s.locker.TryLock(ctx, lockKey(patient), s.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		log.Debug().Msg("pass already running elsewhere")
		return false
	}
	if err != nil {
		log.Error().Err(err).Msg("acquire sync lock")
		return false
	}
	defer unlock()

	// A pass that ended the loop may have released the lock just now.
	if ctx.Err() != nil {
		return false
	}

	due, err := s.ShouldSync(ctx, fhirID)
	if err != nil {
		log.Error().Err(err).Msg("read sync status")
		return false
	}
	if !due {
		return false
	}

	rep, err := s.pass(ctx, patient)
	if err != nil {
		log.Error().Err(err).Msg("sync pass failed")
	}
	return rep != nil && rep.PatientGone()
}

// endLoop cancels the loop when it belongs to fhirID. Stop still waits
// for it to exit.
func (s *Scheduler) endLoop(fhirID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil && s.running == fhirID {
		s.cancel()
	}
}

// Start launches the loop for patient. It is a no-op in manual-only mode.
func (s *Scheduler) Start(ctx context.Context, patient *identity.Patient) error {
	if s.interval <= 0 {
		s.logger.Info().Msg("sync interval not set; manual sync only")
		return nil
	}
	if !patient.Linked() {
		return ErrNotLinked
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("scheduler: %w", ErrAlreadyRunning)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = patient.RemoteID()

	go func() {
		defer close(done)
		for {
			if s.tick(ctx, patient) {
				s.logger.Info().Str("patient", patient.RemoteID()).Msg("patient gone; scheduler stopped")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(s.interval):
			}
		}
	}()
	s.logger.Info().Str("patient", patient.RemoteID()).Dur("interval", s.interval).Msg("scheduler started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.running = nil, nil, ""
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop exits. It returns nil if the loop never started.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func lockKey(p *identity.Patient) string {
	return "sync:" + p.RemoteID()
}
