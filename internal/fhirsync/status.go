package fhirsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/healthsync/internal/platform/db"
)

var ErrStatusNotFound = errors.New("sync status not found")

// SyncStatus maps to the sync_patient_data table: the outcome of the most
// recent pass for one remote patient.
type SyncStatus struct {
	PatientFHIRID string     `db:"patient_fhir_id" json:"patient_fhir_id"`
	LastSyncedAt  *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	Status        bool       `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type StatusRepository interface {
	Get(ctx context.Context, fhirID string) (*SyncStatus, error)
	Upsert(ctx context.Context, fhirID string, syncedAt time.Time, ok bool) error
	Delete(ctx context.Context, fhirID string) error
}

type statusRepoPG struct {
	pool *pgxpool.Pool
}

func NewStatusRepo(pool *pgxpool.Pool) StatusRepository {
	return &statusRepoPG{pool: pool}
}

func (r *statusRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *statusRepoPG) Get(ctx context.Context, fhirID string) (*SyncStatus, error) {
	var s SyncStatus
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_fhir_id, last_synced_at, status, created_at, updated_at
		FROM sync_patient_data WHERE patient_fhir_id = $1`, fhirID,
	).Scan(&s.PatientFHIRID, &s.LastSyncedAt, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync status: %w", err)
	}
	return &s, nil
}

func (r *statusRepoPG) Upsert(ctx context.Context, fhirID string, syncedAt time.Time, ok bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sync_patient_data (patient_fhir_id, last_synced_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_fhir_id)
		DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at, status = EXCLUDED.status, updated_at = NOW()`,
		fhirID, syncedAt, ok,
	)
	if err != nil {
		return fmt.Errorf("upsert sync status: %w", err)
	}
	return nil
}

func (r *statusRepoPG) Delete(ctx context.Context, fhirID string) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM sync_patient_data WHERE patient_fhir_id = $1`, fhirID); err != nil {
		return fmt.Errorf("delete sync status: %w", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
