package solver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/model"
)

func TestEnginePathFindsLibraryPlugin(t *testing.T) {
	lib := t.TempDir()
	t.Setenv("NEXTMV_LIBRARY_PATH", lib)
	want := filepath.Join(lib, engineFile())
	require.NoError(t, os.WriteFile(want, nil, 0o600))

	got, err := EnginePath()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, NewNextmv(Options{}, nil).Available())
}

func TestSolveWithoutEngineReturnsError(t *testing.T) {
	t.Setenv("NEXTMV_LIBRARY_PATH", t.TempDir())
	if _, err := EnginePath(); err == nil {
		t.Skip("engine plugin installed next to the test binary")
	}
	p := model.Problem{
		Locations:    []model.Location{{Name: "Depot"}, {Name: "A", Demand: 1}},
		Matrix:       model.Matrix{{0, 5}, {5, 0}},
		Capacity:     10,
		Penalty:      100,
		MaxRouteCost: 648000,
	}
	_, err := NewNextmv(Options{}, nil).Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}
