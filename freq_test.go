package rotraj

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferFrequency(Te *testing.T) {
	cases := []struct {
		n     int
		alias string
		step  time.Duration
	}{
		{1440, "1min", time.Minute},
		{1, "D", 24 * time.Hour},
		{24, "1H", time.Hour},
		{2, "12H", 12 * time.Hour},
		{96, "15min", 15 * time.Minute},
		{86400, "1S", time.Second},
		{960, "90S", 90 * time.Second},
	}
	for _, c := range cases {
		f, err := InferFrequency(c.n)
		require.NoError(Te, err)
		assert.Equal(Te, c.alias, f.String(), "n=%d", c.n)
		assert.Equal(Te, c.step, f.Step, "n=%d", c.n)
		assert.Equal(Te, c.n, f.PerDay())
	}
}

func TestInferFrequencyFractional(Te *testing.T) {
	f, err := InferFrequency(7)
	require.NoError(Te, err)
	assert.Equal(Te, "S", f.Unit)
	assert.InDelta(Te, 86400.0/7, f.Count, 1e-9)
	assert.Equal(Te, time.Duration(12342857142857), f.Step)
}

func TestInferFrequencyError(Te *testing.T) {
	for _, n := range []int{0, -1, -1440} {
		_, err := InferFrequency(n)
		var ve *ValidationError
		assert.ErrorAs(Te, err, &ve, "n=%d", n)
	}
}

func TestFrequencyRange(Te *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := InferFrequency(4)
	require.NoError(Te, err)
	r := f.Range(start, 4)
	require.Len(Te, r, 4)
	assert.Equal(Te, start.Add(18*time.Hour), r[3])

	//spans more than one day
	r = f.Range(start, 6)
	assert.Equal(Te, start.Add(30*time.Hour), r[5])

	d, err := InferFrequency(1)
	require.NoError(Te, err)
	r = d.Range(start, 3)
	assert.Equal(Te, time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC), r[2])

	s, err := InferFrequency(7)
	require.NoError(Te, err)
	r = s.Range(start, 8)
	assert.Equal(Te, start.AddDate(0, 0, 1), r[7])
	assert.Nil(Te, s.Range(start, 0))
}
