package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
)

// DocumentRepository keeps documents in process memory. Used by tests and by
// the "memory" database driver.
type DocumentRepository struct {
	mu     sync.RWMutex
	docs   []*document.Document
	lastID int64

	scopeMu sync.Mutex
	scopes  map[document.ScopeKey]*sync.Mutex
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{scopes: make(map[document.ScopeKey]*sync.Mutex)}
}

var _ document.Repository = (*DocumentRepository)(nil)

// Put stores d as given, keeping its document id. Seeds rows written by
// other parts of the practice application (x-ray uploads, forms).
func (r *DocumentRepository) Put(d *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(d)
}

func (r *DocumentRepository) NextID(_ context.Context, key document.ScopeKey) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxLocked(key) + 1, nil
}

func (r *DocumentRepository) CreateNext(ctx context.Context, d *document.Document) error {
	if d.Type == 0 {
		return errors.New("document type is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := r.scopeLock(d.Scope())
	lock.Lock()
	defer lock.Unlock()

	next, _ := r.NextID(ctx, d.Scope())
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.DocumentID = next

	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(d)
	return nil
}

func (r *DocumentRepository) GetAIReport(_ context.Context, documentID, requestDetailID int64) (*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *document.Document
	for _, d := range r.docs {
		if d.Type != document.TypeAIReport || d.DocumentID != documentID {
			continue
		}
		if requestDetailID > 0 && d.RequestDetailID != requestDetailID {
			continue
		}
		if best == nil || newer(d, best) {
			best = d
		}
	}
	if best == nil {
		return nil, document.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *DocumentRepository) ListByScope(_ context.Context, key document.ScopeKey) ([]*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*document.Document
	for _, d := range r.docs {
		if d.Scope() == key {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (r *DocumentRepository) ListAIReports(_ context.Context, requestDetailID int64) ([]*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*document.Document
	for _, d := range r.docs {
		if d.Type != document.TypeAIReport {
			continue
		}
		if requestDetailID > 0 && d.RequestDetailID != requestDetailID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func (r *DocumentRepository) scopeLock(key document.ScopeKey) *sync.Mutex {
	r.scopeMu.Lock()
	defer r.scopeMu.Unlock()
	m, ok := r.scopes[key]
	if !ok {
		m = &sync.Mutex{}
		r.scopes[key] = m
	}
	return m
}

func (r *DocumentRepository) maxLocked(key document.ScopeKey) int64 {
	var top int64
	for _, d := range r.docs {
		if d.Scope() == key && d.DocumentID > top {
			top = d.DocumentID
		}
	}
	return top
}

func (r *DocumentRepository) insertLocked(d *document.Document) {
	r.lastID++
	d.ID = r.lastID
	cp := *d
	r.docs = append(r.docs, &cp)
}

// newer orders like the SQL stores: created_at desc, then row id desc.
func newer(a, b *document.Document) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
