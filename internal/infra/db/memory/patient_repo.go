package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
)

const searchLimit = 500

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[int64]*patient.Patient
}

func NewPatientRepository(seed ...*patient.Patient) *PatientRepository {
	r := &PatientRepository{patients: make(map[int64]*patient.Patient)}
	for _, p := range seed {
		r.Put(p)
	}
	return r
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Put(p *patient.Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.patients[p.ID] = &cp
}

func (r *PatientRepository) ByID(_ context.Context, id int64) (*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepository) ByCode(_ context.Context, code string) (*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *patient.Patient
	for _, p := range r.patients {
		if p.PatientCode == code && (found == nil || p.ID > found.ID) {
			found = p
		}
	}
	if found == nil {
		return nil, patient.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *PatientRepository) Search(_ context.Context, q patient.SearchQuery) ([]*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	first := strings.ToLower(strings.TrimSpace(q.FirstName))
	last := strings.ToLower(strings.TrimSpace(q.LastName))
	var out []*patient.Patient
	for _, p := range r.patients {
		if q.ID > 0 && p.ID != q.ID {
			continue
		}
		if first != "" && !strings.Contains(strings.ToLower(p.FirstName), first) {
			continue
		}
		if last != "" && !strings.Contains(strings.ToLower(p.LastName), last) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	limit := q.Limit
	if limit <= 0 || limit > searchLimit {
		limit = searchLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
