package distmatrix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/model"
)

func TestHaversineMatrix(t *testing.T) {
	// One degree of longitude on the equator is about 111.2 km.
	locs := []model.Location{
		{Name: "a", Location: &model.GeoPoint{Lat: 0, Lng: 0}},
		{Name: "b", Location: &model.GeoPoint{Lat: 0, Lng: 1}},
	}
	m, err := Haversine{SpeedKph: 36, Metric: "distance"}.Matrix(context.Background(), locs)
	require.NoError(t, err)
	assert.InDelta(t, 111195, m[0][1], 50)
	assert.Equal(t, m[0][1], m[1][0])
	assert.Zero(t, m[0][0])

	m, err = Haversine{SpeedKph: 36, Metric: "duration"}.Matrix(context.Background(), locs)
	require.NoError(t, err)
	// 36 kph = 10 m/s
	assert.InDelta(t, 11120, m[0][1], 5)
}

func TestHaversineNeedsCoordinates(t *testing.T) {
	_, err := Haversine{SpeedKph: 50}.Matrix(context.Background(), []model.Location{{Name: "Main St"}})
	assert.ErrorIs(t, err, ErrNoCoordinates)
}
