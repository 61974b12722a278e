package healthrecord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/healthsync/internal/platform/db"
)

// tableSpec describes how one record type maps onto its table. columns lists
// the type-specific columns; values and fields return them in the same order.
type tableSpec[R Record] struct {
	table   string
	columns []string
	newRec  func() R
	values  func(r R) []interface{}
	fields  func(r R) []interface{}
}

type statements struct {
	insert    string
	update    string
	get       string
	list      string
	listIDs   string
	deleteOne string
	deleteAll string
}

const baseCols = `id, patient_id, linked_health_system, fhir_id, created_at, updated_at`

func (s tableSpec[R]) statements() statements {
	cols := strings.Join(s.columns, ", ")
	selectCols := baseCols + ", " + cols

	insertPh := make([]string, 0, 4+len(s.columns))
	for i := 1; i <= 4+len(s.columns); i++ {
		insertPh = append(insertPh, fmt.Sprintf("$%d", i))
	}
	sets := make([]string, 0, len(s.columns))
	for i, c := range s.columns {
		sets = append(sets, fmt.Sprintf("%s=$%d", c, i+3))
	}

	return statements{
		insert: fmt.Sprintf(`INSERT INTO %s (id, patient_id, linked_health_system, fhir_id, %s) VALUES (%s) RETURNING created_at, updated_at`,
			s.table, cols, strings.Join(insertPh, ",")),
		update: fmt.Sprintf(`UPDATE %s SET %s, updated_at=NOW() WHERE patient_id = $1 AND fhir_id = $2 AND linked_health_system = TRUE RETURNING id, created_at, updated_at`,
			s.table, strings.Join(sets, ", ")),
		get: fmt.Sprintf(`SELECT %s FROM %s WHERE patient_id = $1 AND fhir_id = $2 AND linked_health_system = TRUE`,
			selectCols, s.table),
		list: fmt.Sprintf(`SELECT %s FROM %s WHERE patient_id = $1 AND linked_health_system = TRUE ORDER BY created_at`,
			selectCols, s.table),
		listIDs: fmt.Sprintf(`SELECT fhir_id FROM %s WHERE patient_id = $1 AND linked_health_system = TRUE`,
			s.table),
		deleteOne: fmt.Sprintf(`DELETE FROM %s WHERE patient_id = $1 AND fhir_id = $2 AND linked_health_system = TRUE`,
			s.table),
		deleteAll: fmt.Sprintf(`DELETE FROM %s WHERE patient_id = $1 AND linked_health_system = TRUE`,
			s.table),
	}
}

type linkedStorePG[R Record] struct {
	pool *pgxpool.Pool
	spec tableSpec[R]
	sql  statements
}

func newLinkedStore[R Record](pool *pgxpool.Pool, spec tableSpec[R]) *linkedStorePG[R] {
	return &linkedStorePG[R]{pool: pool, spec: spec, sql: spec.statements()}
}

func (s *linkedStorePG[R]) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *linkedStorePG[R]) scan(row pgx.Row) (R, error) {
	r := s.spec.newRec()
	b := r.Base()
	dest := append([]interface{}{&b.ID, &b.PatientID, &b.LinkedHealthSystem, &b.FHIRID, &b.CreatedAt, &b.UpdatedAt},
		s.spec.fields(r)...)
	if err := row.Scan(dest...); err != nil {
		var zero R
		return zero, err
	}
	return r, nil
}

func (s *linkedStorePG[R]) GetByFHIRID(ctx context.Context, patientID uuid.UUID, fhirID string) (R, error) {
	r, err := s.scan(s.conn(ctx).QueryRow(ctx, s.sql.get, patientID, fhirID))
	if errors.Is(err, pgx.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get %s: %w", s.spec.table, err)
	}
	return r, nil
}

func (s *linkedStorePG[R]) ListFHIRIDs(ctx context.Context, patientID uuid.UUID) ([]string, error) {
	rows, err := s.conn(ctx).Query(ctx, s.sql.listIDs, patientID)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", s.spec.table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", s.spec.table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *linkedStorePG[R]) List(ctx context.Context, patientID uuid.UUID) ([]R, error) {
	rows, err := s.conn(ctx).Query(ctx, s.sql.list, patientID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.spec.table, err)
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		r, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.spec.table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *linkedStorePG[R]) Create(ctx context.Context, r R) error {
	if err := CheckLinked(r); err != nil {
		return err
	}
	b := r.Base()
	b.ID = uuid.New()
	args := append([]interface{}{b.ID, b.PatientID, true, b.FHIRID}, s.spec.values(r)...)
	if err := s.conn(ctx).QueryRow(ctx, s.sql.insert, args...).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create %s: %w", s.spec.table, err)
	}
	return nil
}

func (s *linkedStorePG[R]) UpdateByFHIRID(ctx context.Context, r R) error {
	if err := CheckLinked(r); err != nil {
		return err
	}
	b := r.Base()
	args := append([]interface{}{b.PatientID, b.FHIRID}, s.spec.values(r)...)
	err := s.conn(ctx).QueryRow(ctx, s.sql.update, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", s.spec.table, err)
	}
	return nil
}

func (s *linkedStorePG[R]) DeleteByFHIRID(ctx context.Context, patientID uuid.UUID, fhirID string) error {
	tag, err := s.conn(ctx).Exec(ctx, s.sql.deleteOne, patientID, fhirID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.spec.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *linkedStorePG[R]) DeleteAllLinked(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := s.conn(ctx).Exec(ctx, s.sql.deleteAll, patientID)
	if err != nil {
		return 0, fmt.Errorf("delete linked %s: %w", s.spec.table, err)
	}
	return tag.RowsAffected(), nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
