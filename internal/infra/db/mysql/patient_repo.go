package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
)

// SearchLimit caps patient searches.
const SearchLimit = 500

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

// ByID by primary key, with insurance name
func (r *PatientRepository) ByID(ctx context.Context, id int64) (*patient.Patient, error) {
	const q = patientSelect + `
WHERE p.id=? LIMIT 1;`
	return r.one(ctx, q, id)
}

// ByCode by external patient identifier
func (r *PatientRepository) ByCode(ctx context.Context, code string) (*patient.Patient, error) {
	const q = patientSelect + `
WHERE p.patient_id=? ORDER BY p.id DESC LIMIT 1;`
	return r.one(ctx, q, code)
}

// Search filters by id and name substrings, newest first.
func (r *PatientRepository) Search(ctx context.Context, sq patient.SearchQuery) ([]*patient.Patient, error) {
	var (
		conds []string
		args  []any
	)
	if sq.ID > 0 {
		conds = append(conds, "p.id=?")
		args = append(args, sq.ID)
	}
	if v := likeContains(sq.FirstName); v != "" {
		conds = append(conds, "p.firstname LIKE ?")
		args = append(args, v)
	}
	if v := likeContains(sq.LastName); v != "" {
		conds = append(conds, "p.lastname LIKE ?")
		args = append(args, v)
	}

	q := patientSelect
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}
	q += "\nORDER BY p.id DESC LIMIT ?;"
	args = append(args, searchLimit(sq.Limit))

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

func searchLimit(n int) int {
	if n <= 0 || n > SearchLimit {
		return SearchLimit
	}
	return n
}
