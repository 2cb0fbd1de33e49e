package patient

import (
	"context"
	"errors"
)

// ErrNotFound indicates the patient reference does not resolve.
var ErrNotFound = errors.New("patient not found")

// Repository port for patient lookups. Patient CRUD lives elsewhere.
type Repository interface {
	ByID(ctx context.Context, id int64) (*Patient, error)
	ByCode(ctx context.Context, code string) (*Patient, error)
	Search(ctx context.Context, q SearchQuery) ([]*Patient, error)
}
