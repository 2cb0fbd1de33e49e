package document

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document matches the lookup.
var ErrNotFound = errors.New("document not found")

// Repository port for the document table.
type Repository interface {
	// NextID reports max(document_id)+1 for the scope, or 1 for a fresh scope.
	// It only peeks; CreateNext is the allocating write.
	NextID(ctx context.Context, key ScopeKey) (int64, error)

	// CreateNext allocates the next id in d's scope and inserts d as one
	// atomic unit. d.DocumentID and d.ID are set on success.
	CreateNext(ctx context.Context, d *Document) error

	// GetAIReport finds an AI report by its document id. requestDetailID
	// narrows the lookup to one encounter; 0 means the newest match wins.
	GetAIReport(ctx context.Context, documentID, requestDetailID int64) (*Document, error)

	ListByScope(ctx context.Context, key ScopeKey) ([]*Document, error)
	ListAIReports(ctx context.Context, requestDetailID int64) ([]*Document, error)
}
