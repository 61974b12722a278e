package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/healthsync/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, user_id, fhir_id, first_name, middle_name, last_name, gender, date_of_birth,
	blood_type, height, height_unit, weight, weight_unit, profile_picture, relationship,
	created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, user_id, fhir_id, first_name, middle_name, last_name, gender, date_of_birth,
			blood_type, height, height_unit, weight, weight_unit, profile_picture, relationship
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.FHIRID, p.FirstName, p.MiddleName, p.LastName, p.Gender, p.DateOfBirth,
		p.BloodType, p.Height, p.HeightUnit, p.Weight, p.WeightUnit, p.ProfilePicture, p.Relationship,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id)
}

func (r *patientRepoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE fhir_id = $1`, fhirID)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patient WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID)
}

func (r *patientRepoPG) getOne(ctx context.Context, query string, arg interface{}) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) UpdateDemographics(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, middle_name=$3, last_name=$4, gender=$5, date_of_birth=$6,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.Gender, p.DateOfBirth,
	)
	return affectedOne(tag, err, "update patient demographics")
}

func (r *patientRepoPG) UpdateProfile(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET blood_type=$2, height=$3, height_unit=$4, weight=$5, weight_unit=$6,
			profile_picture=$7, relationship=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.BloodType, p.Height, p.HeightUnit, p.Weight, p.WeightUnit, p.ProfilePicture, p.Relationship,
	)
	return affectedOne(tag, err, "update patient profile")
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return affectedOne(tag, err, "delete patient")
}

// userEnteredTables lists every table holding per-patient health records.
var userEnteredTables = []string{
	"patient_condition",
	"patient_allergy",
	"patient_medication",
	"hospitalization",
	"surgery_procedure",
	"discharge_instruction",
	"patient_goal",
}

func (r *patientRepoPG) CountUserEntered(ctx context.Context, id uuid.UUID) (int, error) {
	var total int
	for _, table := range userEnteredTables {
		var n int
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM `+table+` WHERE patient_id = $1 AND linked_health_system = FALSE`, id,
		).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func affectedOne(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.UserID, &p.FHIRID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Gender, &p.DateOfBirth,
		&p.BloodType, &p.Height, &p.HeightUnit, &p.Weight, &p.WeightUnit, &p.ProfilePicture, &p.Relationship,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
