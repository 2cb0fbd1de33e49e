package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
)

const searchLimit = 500

type PatientRepository struct {
	db *sql.DB
}

func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

var _ patient.Repository = (*PatientRepository)(nil)

const patientSelect = `
SELECT p.id, p.patient_id, p.firstname, p.lastname, p.date_of_birth,
       COALESCE(p.sex, ''), COALESCE(p.mobile, ''), COALESCE(p.address, ''),
       COALESCE(p.insurance_id, 0), COALESCE(i.name, ''), COALESCE(p.picture, ''), p.created_at
FROM patient AS p
LEFT JOIN insurance AS i ON i.insurance_id = p.insurance_id`

func (r *PatientRepository) ByID(ctx context.Context, id int64) (*patient.Patient, error) {
	return r.one(ctx, patientSelect+`
WHERE p.id=$1 LIMIT 1;`, id)
}

func (r *PatientRepository) ByCode(ctx context.Context, code string) (*patient.Patient, error) {
	return r.one(ctx, patientSelect+`
WHERE p.patient_id=$1 ORDER BY p.id DESC LIMIT 1;`, code)
}

func (r *PatientRepository) Search(ctx context.Context, sq patient.SearchQuery) ([]*patient.Patient, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if sq.ID > 0 {
		add("p.id=$%d", sq.ID)
	}
	if v := likeContains(sq.FirstName); v != "" {
		add("p.firstname ILIKE $%d", v)
	}
	if v := likeContains(sq.LastName); v != "" {
		add("p.lastname ILIKE $%d", v)
	}

	limit := sq.Limit
	if limit <= 0 || limit > searchLimit {
		limit = searchLimit
	}

	q := patientSelect
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf("\nORDER BY p.id DESC LIMIT $%d;", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*patient.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepository) one(ctx context.Context, q string, arg any) (*patient.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	return p, err
}

func scanPatient(s scanner) (*patient.Patient, error) {
	var p patient.Patient
	var dob sql.NullTime
	if err := s.Scan(
		&p.ID, &p.PatientCode, &p.FirstName, &p.LastName, &dob,
		&p.Sex, &p.Mobile, &p.Address,
		&p.InsuranceID, &p.Insurance, &p.Picture, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	return &p, nil
}
