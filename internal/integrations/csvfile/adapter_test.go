package csvfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := "Demand,Name,Lat,Lng\n0,Depot,40.7128,-74.0060\n25,Bakery,,\n40,Market,40.73,-73.99\n"
	locs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, "Depot", locs[0].Name)
	require.NotNil(t, locs[0].Location)
	assert.InDelta(t, -74.0060, locs[0].Location.Lng, 1e-9)
	assert.Nil(t, locs[1].Location)
	assert.Equal(t, 40, locs[2].Demand)
}

func TestParseWithoutCoordinateColumns(t *testing.T) {
	locs, err := Parse(strings.NewReader("name,demand\n\"40.0,-73.0\",0\nShop,5\n"))
	require.NoError(t, err)
	require.NotNil(t, locs[0].Location)
	assert.Nil(t, locs[1].Location)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"no rows":        "name,demand\n",
		"missing demand": "name\nDepot\n",
		"bad demand":     "name,demand\nDepot,x\n",
		"negative":       "name,demand\nDepot,-1\n",
		"half coords":    "name,demand,lat,lng\nDepot,0,40.1,\n",
		"lat only":       "name,demand,lat\nDepot,0,40.1\n",
		"bad coords":     "name,demand,lat,lng\nDepot,0,140,10\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestParseErrorLineAfterMultilineField(t *testing.T) {
	in := "name,demand\nDepot,0\n\"Main St\nSuite 4\",5\nShop,x\n"
	_, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv line 5:")
}
