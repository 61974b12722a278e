package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/config"
	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/fhirsync"
	"github.com/ehr/healthsync/internal/platform/db"
	"github.com/ehr/healthsync/internal/platform/fhirclient"
	"github.com/ehr/healthsync/internal/platform/lock"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	patients  identity.PatientRepository
	records   *healthrecord.Stores
	fetcher   *fhirsync.Fetcher
	scheduler *fhirsync.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to database")

	a := &app{cfg: cfg, logger: logger, pool: pool}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.redis = client
		locker = lock.NewRedis(client, "healthsync:")
		logger.Info().Msg("using redis sync lock")
	}

	guard := &fhirclient.Guard{
		Policy:     cfg.RetryPolicy(),
		Classifier: cfg.Classifier(),
		Logger:     logger.With().Str("component", "fhirclient").Logger(),
	}
	client := fhirclient.NewClient(cfg.ClientConfig())

	a.patients = identity.NewPatientRepo(pool)
	a.records = healthrecord.NewStores(pool)
	a.fetcher = fhirsync.NewFetcher(client, guard, cfg.FHIRPageSize, cfg.FHIRMaxPages, logger)

	clock := fhirsync.RealClock()
	status := fhirsync.NewStatusRepo(pool)
	engine := fhirsync.NewEngine(a.fetcher, a.patients, a.records, status, db.NewTxRunner(pool), clock, logger)
	a.scheduler = fhirsync.NewScheduler(engine, status, locker, clock, cfg.SyncInterval(), cfg.LockTTL(), logger)
	return a, nil
}

func (a *app) checks() []db.Check {
	checks := []db.Check{db.PoolCheck(a.pool)}
	if a.redis != nil {
		checks = append(checks, db.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// resolvePatient finds the local patient for fhirID. With a user id it
// bootstraps the patient from the remote server on first use.
func (a *app) resolvePatient(ctx context.Context, userID, fhirID string) (*identity.Patient, error) {
	if userID != "" {
		return fhirsync.Bootstrap(ctx, a.fetcher, a.patients, userID, fhirID)
	}
	p, err := a.patients.GetByFHIRID(ctx, fhirID)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return nil, fmt.Errorf("patient %s not found locally; run bootstrap or set PATIENT_USER_ID", fhirID)
	}
	return p, err
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pool.Close()
}
