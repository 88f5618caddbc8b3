package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()

	assert.Equal(t, []string{"coimbatore", "erode", "nilgiris", "palakkad", "tiruppur", "wayanad"}, d.IDs())

	loc, ok := d.Lookup("Coimbatore ")
	require.True(t, ok)
	assert.Equal(t, "coimbatore", loc.DistrictID)
	assert.Equal(t, "Coimbatore", loc.Name)
	assert.Equal(t, "red loam", loc.SoilType)
	assert.Equal(t, 700.0, loc.AvgRainfallMM)
}

func TestLookup_Unknown(t *testing.T) {
	loc, ok := Default().Lookup("madurai")
	assert.False(t, ok)
	assert.Nil(t, loc)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	d := Default()
	loc, _ := d.Lookup("wayanad")
	loc.Name = "changed"

	again, _ := d.Lookup("wayanad")
	assert.Equal(t, "Wayanad", again.Name)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("districts: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("districts:\n  x:\n    soil_type: clay\n"))
	assert.Error(t, err)
}
