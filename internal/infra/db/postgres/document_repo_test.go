package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
)

const (
	qLock   = `SELECT pg_advisory_xact_lock\(\$1::bigint\)`
	qMax    = `SELECT COALESCE\(MAX\(document_id\), 0\) \+ 1 FROM document WHERE request_detail_id=\$1 AND document_type=\$2`
	qInsert = `INSERT INTO document .* RETURNING id`
)

var documentCols = []string{"id", "document_id", "request_detail_id", "document_type", "observation", "document", "created_at", "upload_by"}

func newMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepository(db), mock
}

func TestDocumentRepository_CreateNext(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(qLock).WithArgs(int64(5<<4 | 3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qMax).WithArgs(int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectQuery(qInsert).
		WithArgs(int64(1), int64(5), int64(3), "{}", "", created, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectCommit()

	d := &document.Document{RequestDetailID: 5, Type: document.TypeAIReport, Observation: "{}", CreatedAt: created}
	require.NoError(t, repo.CreateNext(context.Background(), d))
	assert.EqualValues(t, 1, d.DocumentID)
	assert.EqualValues(t, 40, d.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_CreateNextLargeDetailID(t *testing.T) {
	repo, mock := newMock(t)
	detail := int64(3_000_000_000)

	mock.ExpectBegin()
	mock.ExpectExec(qLock).WithArgs(int64(48_000_000_003)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qMax).WithArgs(detail, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectQuery(qInsert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	d := &document.Document{RequestDetailID: detail, Type: document.TypeAIReport}
	require.NoError(t, repo.CreateNext(context.Background(), d))
	assert.EqualValues(t, 1, d.DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeLockKey(t *testing.T) {
	a := scopeLockKey(document.ScopeKey{RequestDetailID: 5, Type: document.TypeXRay})
	b := scopeLockKey(document.ScopeKey{RequestDetailID: 5, Type: document.TypeAIReport})
	c := scopeLockKey(document.ScopeKey{RequestDetailID: 6, Type: document.TypeXRay})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.EqualValues(t, 5<<4|1, a)
}

func TestDocumentRepository_CreateNextRetriesUniqueViolation(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(qLock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qMax).WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectQuery(qInsert).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(qLock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qMax).WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectQuery(qInsert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectCommit()

	d := &document.Document{RequestDetailID: 5, Type: document.TypeXRay}
	require.NoError(t, repo.CreateNext(context.Background(), d))
	assert.EqualValues(t, 3, d.DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_GetAIReportNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`WHERE document_id=\$1 AND document_type=\$2 AND request_detail_id=\$3`).
		WithArgs(int64(9), int64(3), int64(5)).
		WillReturnRows(sqlmock.NewRows(documentCols))

	_, err := repo.GetAIReport(context.Background(), 9, 5)
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_ListAIReports(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE document_type=\$1 AND \(\$2::int = 0 OR request_detail_id=\$2\)`).
		WithArgs(int64(3), int64(0)).
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow(2, 2, 5, 3, "{}", "", created, 0).
			AddRow(1, 1, 5, 3, "{}", "", created, 0))

	got, err := repo.ListAIReports(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[0].DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
