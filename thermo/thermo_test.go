package thermo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquPot(Te *testing.T) {
	v, err := EquPot(273, 0, 1000)
	require.NoError(Te, err)
	assert.InDelta(Te, 273.0, v, 1e-6)

	//moisture raises the equivalent potential temperature
	wet, err := EquPot(273, 0.005, 1000)
	require.NoError(Te, err)
	assert.Greater(Te, wet, 273.0)

	//and so does a lower pressure
	high, err := EquPot(273, 0, 500)
	require.NoError(Te, err)
	assert.InDelta(Te, 273*math.Pow(2, 0.2854), high, 1e-5)
}

func TestEquPotError(Te *testing.T) {
	cases := []struct {
		t, q, p  float64
		variable string
	}{
		{273, -1, 1000, "specific humidity"},
		{273, 1, 1000, "specific humidity"},
		{273, 0.018, 0, "pressure"},
		{0, 0.018, 1000, "temperature"},
		{math.NaN(), 0.018, 1000, "temperature"},
	}
	for _, c := range cases {
		_, err := EquPot(c.t, c.q, c.p)
		var de *DomainError
		require.ErrorAs(Te, err, &de)
		assert.Equal(Te, c.variable, de.Variable)
	}
}

func TestColumn(Te *testing.T) {
	c, err := Column([]float64{273, 270}, []float64{0, 0.002}, []float64{1000, 0})
	require.NoError(Te, err)
	assert.InDelta(Te, 273.0, c[0], 1e-6)
	assert.True(Te, math.IsNaN(c[1]))

	_, err = Column([]float64{1}, nil, nil)
	assert.Error(Te, err)
}
