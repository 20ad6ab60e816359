package flatfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/integrations"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	a := Adapter{
		LocationsPath: write(t, dir, "locations.txt", "1600 Amphitheatre Pkwy\n37.42,-122.08\n  Pier 39  \n\n"),
		WeightsPath:   write(t, dir, "weights.txt", "0\n120\n 35\n"),
	}
	locs, err := a.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, "1600 Amphitheatre Pkwy", locs[0].Name)
	assert.Nil(t, locs[0].Location)
	assert.Equal(t, 120, locs[1].Demand)
	require.NotNil(t, locs[1].Location)
	assert.InDelta(t, 37.42, locs[1].Location.Lat, 1e-9)
	assert.Equal(t, "Pier 39", locs[2].Name)
	assert.Equal(t, 35, locs[2].Demand)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	locs := write(t, dir, "locations.txt", "a\nb\n")
	cases := map[string]Adapter{
		"count mismatch": {LocationsPath: locs, WeightsPath: write(t, dir, "w1.txt", "1\n")},
		"not integer":    {LocationsPath: locs, WeightsPath: write(t, dir, "w2.txt", "1\nheavy\n")},
		"negative":       {LocationsPath: locs, WeightsPath: write(t, dir, "w3.txt", "1\n-4\n")},
		"missing file":   {LocationsPath: locs, WeightsPath: filepath.Join(dir, "nope.txt")},
		"blank location": {LocationsPath: write(t, dir, "l2.txt", "a\n\nc\n"), WeightsPath: write(t, dir, "w4.txt", "1\n2\n3\n")},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Load(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	a := Adapter{LocationsPath: write(t, dir, "l.txt", "\n"), WeightsPath: write(t, dir, "w.txt", "")}
	_, err := a.Load(context.Background())
	assert.True(t, errors.Is(err, integrations.ErrNoLocations))
}
