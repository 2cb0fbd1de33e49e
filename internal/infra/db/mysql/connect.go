package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables this service reads and writes when they are
// missing. Existing tables are left untouched.
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
  insurance_id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(255) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS patient (
  id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  patient_id VARCHAR(64) NOT NULL,
  firstname VARCHAR(128) NOT NULL,
  lastname VARCHAR(128) NOT NULL,
  date_of_birth DATE NULL,
  sex VARCHAR(16) NULL,
  mobile VARCHAR(32) NULL,
  address VARCHAR(255) NULL,
  insurance_id INT NULL,
  picture VARCHAR(255) NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  KEY idx_patient_code (patient_id),
  KEY idx_patient_name (firstname, lastname)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS document (
  id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  document_id INT NOT NULL,
  request_detail_id INT NOT NULL,
  document_type TINYINT NOT NULL,
  observation MEDIUMTEXT NULL,
  document VARCHAR(512) NULL,
  created_at DATE NOT NULL,
  upload_by INT NULL,
  UNIQUE KEY uq_document_scope (request_detail_id, document_type, document_id),
  KEY idx_document_id (document_id, document_type)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}
