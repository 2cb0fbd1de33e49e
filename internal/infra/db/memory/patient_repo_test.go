package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
)

func TestPatientRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPatientRepository(
		&patient.Patient{ID: 1, PatientCode: "CI-1", FirstName: "Ana", LastName: "Rojas"},
		&patient.Patient{ID: 2, PatientCode: "CI-2", FirstName: "Mariana", LastName: "Ruiz"},
		&patient.Patient{ID: 3, PatientCode: "CI-3", FirstName: "Luis", LastName: "Pardo"},
	)

	p, err := repo.ByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mariana", p.FirstName)

	p, err = repo.ByCode(ctx, "CI-3")
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.ID)

	_, err = repo.ByID(ctx, 99)
	assert.ErrorIs(t, err, patient.ErrNotFound)
	_, err = repo.ByCode(ctx, "missing")
	assert.ErrorIs(t, err, patient.ErrNotFound)

	got, err := repo.Search(ctx, patient.SearchQuery{FirstName: "ana"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[0].ID)

	got, err = repo.Search(ctx, patient.SearchQuery{FirstName: "ana", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.Search(ctx, patient.SearchQuery{ID: 3, LastName: "Rojas"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
