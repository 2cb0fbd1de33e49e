package postgres

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
WHERE request_detail_id=$1 AND document_type=$2;`
	var next int64
	err := r.db.QueryRowContext(ctx, q, key.RequestDetailID, int(key.Type)).Scan(&next)
	return next, err
}

// CreateNext serialises allocators of one scope on a transaction-scoped
// advisory lock, then reads the max and inserts before the lock is released.
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
	const qLock = `SELECT pg_advisory_xact_lock($1::bigint);`
	const qMax = `
SELECT COALESCE(MAX(document_id), 0) + 1
FROM document
WHERE request_detail_id=$1 AND document_type=$2;`
	const qInsert = `
INSERT INTO document
(document_id, request_detail_id, document_type, observation, document, created_at, upload_by)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, qLock, scopeLockKey(d.Scope())); err != nil {
		return err
	}
	var next int64
	if err = tx.QueryRowContext(ctx, qMax, d.RequestDetailID, int(d.Type)).Scan(&next); err != nil {
		return err
	}

	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var id int64
	if err = tx.QueryRowContext(ctx, qInsert,
		next, d.RequestDetailID, int(d.Type), d.Observation, d.File, created, d.UploadBy,
	).Scan(&id); err != nil {
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

// scopeLockKey packs a scope into one advisory-lock key: the encounter id
// shifted left over the document type. Keys of different scopes only collide
// for encounter ids beyond 2^59, which then share a lock.
func scopeLockKey(k document.ScopeKey) int64 {
	return k.RequestDetailID<<4 | int64(k.Type)&0xf
}

func (r *DocumentRepository) GetAIReport(ctx context.Context, documentID, requestDetailID int64) (*document.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM document
WHERE document_id=$1 AND document_type=$2
ORDER BY created_at DESC, id DESC LIMIT 1;`
	const qScoped = `
SELECT ` + documentColumns + `
FROM document
WHERE document_id=$1 AND document_type=$2 AND request_detail_id=$3
LIMIT 1;`
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
WHERE request_detail_id=$1 AND document_type=$2
ORDER BY document_id ASC;`
	rows, err := r.db.QueryContext(ctx, q, key.RequestDetailID, int(key.Type))
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (r *DocumentRepository) ListAIReports(ctx context.Context, requestDetailID int64) ([]*document.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM document
WHERE document_type=$1 AND ($2::int = 0 OR request_detail_id=$2)
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, int(document.TypeAIReport), requestDetailID)
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
