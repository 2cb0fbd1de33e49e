package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
)

const maxAllocAttempts = 3

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var _ document.Repository = (*DocumentRepository)(nil)

const documentColumns = `id, document_id, request_detail_id, document_type,
       COALESCE(observation, ''), COALESCE(document, ''), created_at, COALESCE(upload_by, 0)`

func (r *DocumentRepository) NextID(ctx context.Context, key document.ScopeKey) (int64, error) {
	const q = `
SELECT COALESCE(MAX(document_id), 0) + 1
FROM document
WHERE request_detail_id=? AND document_type=?;
`
	var next int64
	if err := r.db.QueryRowContext(ctx, q, key.RequestDetailID, int(key.Type)).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// CreateNext allocates and inserts inside one transaction. The locking read
// holds the scope's index range until commit, and the unique scope key turns
// any race that slips through into a retryable duplicate.
func (r *DocumentRepository) CreateNext(ctx context.Context, d *document.Document) error {
	if d.Type == 0 {
		return errors.New("document type is required")
	}
	var err error
	for attempt := 1; attempt <= maxAllocAttempts; attempt++ {
		if err = r.createNextOnce(ctx, d); err == nil || !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("allocate document id for detail %d type %d after %d attempts: %w",
		d.RequestDetailID, d.Type, maxAllocAttempts, err)
}

func (r *DocumentRepository) createNextOnce(ctx context.Context, d *document.Document) (err error) {
	const qMax = `
SELECT COALESCE(MAX(document_id), 0) + 1
FROM document
WHERE request_detail_id=? AND document_type=?
FOR UPDATE;
`
	const qInsert = `
INSERT INTO document
(document_id, request_detail_id, document_type, observation, document, created_at, upload_by)
VALUES (?,?,?,?,?,?,?);
`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int64
	if err = tx.QueryRowContext(ctx, qMax, d.RequestDetailID, int(d.Type)).Scan(&next); err != nil {
		return err
	}

	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx, qInsert,
		next, d.RequestDetailID, int(d.Type), d.Observation, d.File, created, d.UploadBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	d.ID = id
	d.DocumentID = next
	d.CreatedAt = created
	return nil
}

func (r *DocumentRepository) GetAIReport(ctx context.Context, documentID, requestDetailID int64) (*document.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM document
WHERE document_id=? AND document_type=?
ORDER BY created_at DESC, id DESC LIMIT 1;
`
	const qScoped = `
SELECT ` + documentColumns + `
FROM document
WHERE document_id=? AND document_type=? AND request_detail_id=?
LIMIT 1;
`
	var row *sql.Row
	if requestDetailID > 0 {
		row = r.db.QueryRowContext(ctx, qScoped, documentID, int(document.TypeAIReport), requestDetailID)
	} else {
		row = r.db.QueryRowContext(ctx, q, documentID, int(document.TypeAIReport))
	}
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	return d, err
}

func (r *DocumentRepository) ListByScope(ctx context.Context, key document.ScopeKey) ([]*document.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM document
WHERE request_detail_id=? AND document_type=?
ORDER BY document_id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, key.RequestDetailID, int(key.Type))
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// ListAIReports returns AI reports newest first. requestDetailID 0 lists all.
func (r *DocumentRepository) ListAIReports(ctx context.Context, requestDetailID int64) ([]*document.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM document
WHERE document_type=?
ORDER BY created_at DESC, id DESC;
`
	const qScoped = `
SELECT ` + documentColumns + `
FROM document
WHERE document_type=? AND request_detail_id=?
ORDER BY created_at DESC, id DESC;
`
	var (
		rows *sql.Rows
		err  error
	)
	if requestDetailID > 0 {
		rows, err = r.db.QueryContext(ctx, qScoped, int(document.TypeAIReport), requestDetailID)
	} else {
		rows, err = r.db.QueryContext(ctx, q, int(document.TypeAIReport))
	}
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func scanDocument(s scanner) (*document.Document, error) {
	var d document.Document
	var typ int
	if err := s.Scan(
		&d.ID, &d.DocumentID, &d.RequestDetailID, &typ,
		&d.Observation, &d.File, &d.CreatedAt, &d.UploadBy,
	); err != nil {
		return nil, err
	}
	d.Type = document.Type(typ)
	return &d, nil
}

func collectDocuments(rows *sql.Rows) ([]*document.Document, error) {
	defer rows.Close()
	var out []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
