package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates missing tables; existing ones are left as they are.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS insurance (
  insurance_id SERIAL PRIMARY KEY,
  name TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS patient (
  id SERIAL PRIMARY KEY,
  patient_id TEXT NOT NULL,
  firstname TEXT NOT NULL,
  lastname TEXT NOT NULL,
  date_of_birth DATE NULL,
  sex TEXT NULL,
  mobile TEXT NULL,
  address TEXT NULL,
  insurance_id INT NULL,
  picture TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	`CREATE INDEX IF NOT EXISTS idx_patient_code ON patient (patient_id);`,
	`CREATE TABLE IF NOT EXISTS document (
  id SERIAL PRIMARY KEY,
  document_id INT NOT NULL,
  request_detail_id INT NOT NULL,
  document_type SMALLINT NOT NULL,
  observation TEXT NULL,
  document TEXT NULL,
  created_at DATE NOT NULL,
  upload_by INT NULL,
  CONSTRAINT uq_document_scope UNIQUE (request_detail_id, document_type, document_id)
);`,
	`CREATE INDEX IF NOT EXISTS idx_document_id ON document (document_id, document_type);`,
}
