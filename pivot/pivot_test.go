package pivot

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const temp = "temperature (K)"

func sample(Te *testing.T) *rotraj.Table {
	Te.Helper()
	T, _, err := rotraj.ReadFile("../test/rtraj_sample_2022010100")
	require.NoError(Te, err)
	return T
}

func TestHovmoller(Te *testing.T) {
	T := sample(Te)
	M, err := Hovmoller(T, temp)
	require.NoError(Te, err)
	r, c := M.Dims()
	require.Equal(Te, 2, r)
	require.Equal(Te, 2, c)
	assert.Equal(Te, []float64{985, 975}, M.RowLabels())
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(Te, []time.Time{day, day.Add(12 * time.Hour)}, M.ColLabels())
	assert.InDelta(Te, 267.85, M.View(0, 0).Mean(), 1e-9)
	//the P = 0 row of the second trajectory counts too
	assert.InDelta(Te, 200.6, M.View(0, 1).Mean(), 1e-9)
	assert.Equal(Te, 4, M.View(1, 1).Len())

	O := DefaultOptions()
	O.Step(3)
	M, err = Hovmoller(T, temp, O)
	require.NoError(Te, err)
	means, err := M.Means()
	require.NoError(Te, err)
	assert.InDelta(Te, 267.2, means.At(0, 0), 1e-9)
	assert.InDelta(Te, 266.9, means.At(0, 1), 1e-9)
	assert.InDelta(Te, 261.0, means.At(1, 0), 1e-9)
	assert.InDelta(Te, 261.2, means.At(1, 1), 1e-9)
	assert.Equal(Te, 1, M.View(1, 1).Len())

	O.AllSteps()
	O.Levels([]float64{})
	M, err = Hovmoller(T, temp, O)
	require.NoError(Te, err)
	assert.Equal(Te, []float64{1, 2}, M.RowLabels())
}

func TestHovmollerEmptyCell(Te *testing.T) {
	T := sample(Te)
	part := rotraj.NewTable(T.Columns())
	for i := 0; i < 3; i++ {
		require.NoError(Te, part.Add(T.Traj(i)))
	}
	M, err := Hovmoller(part, temp)
	require.NoError(Te, err)
	assert.True(Te, math.IsNaN(M.View(1, 1).Mean()))
	assert.Equal(Te, 0, M.View(1, 1).Len())

	b, err := json.Marshal(M)
	require.NoError(Te, err)
	var out struct {
		Rows  []float64
		Means [][]*float64
	}
	require.NoError(Te, json.Unmarshal(b, &out))
	assert.Nil(Te, out.Means[1][1])
	require.NotNil(Te, out.Means[1][0])
	assert.InDelta(Te, 261.575, *out.Means[1][0], 1e-9)
}

func TestHovmollerErrors(Te *testing.T) {
	T := sample(Te)
	var ve *rotraj.ValidationError
	_, err := Hovmoller(T, "nope")
	require.ErrorAs(Te, err, &ve)

	O := DefaultOptions()
	O.Levels([]float64{985})
	_, err = Hovmoller(T, temp, O)
	require.ErrorAs(Te, err, &ve)
	assert.Equal(Te, "2", ve.Name())

	all, err := HovmollerAll(T, []string{temp, "height (m)"})
	require.NoError(Te, err)
	require.Len(Te, all, 2)
	assert.InDelta(Te, 1417.5, all[1].View(1, 0).Mean(), 1e-9)
}

func TestHovmollerClusterRank(Te *testing.T) {
	d := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	S := synth.Spec{Base: d, Trajectories: 4, Clusters: 2, Intervals: 1, Attributes: []int{1}, Pointers: []int{3, 7}}
	l, err := rotraj.ReadLines(strings.NewReader(S.Text()))
	require.NoError(Te, err)
	T, _, err := rotraj.Decode("ranked", l)
	require.NoError(Te, err)
	require.Equal(Te, []int{3, 7}, T.Clusters())

	M, err := Hovmoller(T, temp)
	require.NoError(Te, err)
	assert.Equal(Te, []float64{985, 975}, M.RowLabels())
	//cluster 7 holds the trajectories at positions 2 and 3, released at d and d+12h
	assert.InDelta(Te, (272+271.5)/2, M.View(1, 0).Mean(), 1e-9)

	O := DefaultOptions()
	O.Levels([]float64{500})
	_, err = Hovmoller(T, temp, O)
	var ve *rotraj.ValidationError
	require.ErrorAs(Te, err, &ve)
	assert.Equal(Te, "7", ve.Name())
}

func TestData(Te *testing.T) {
	D := NewData([]float64{1, 2, 3, 10}, 7)
	assert.Equal(Te, 7, D.ID())
	D.AddData(math.NaN(), 4)
	assert.Equal(Te, 5, D.Len())
	assert.InDelta(Te, 4.0, D.Mean(), 1e-12)
	assert.Equal(Te, 3.0, D.Median())
	assert.Equal(Te, 20.0, D.Sum())
	assert.InDelta(Te, math.Sqrt(12.5), D.StdDev(), 1e-12)
	assert.Equal(Te, []float64{2, 2}, D.Histogram([]float64{0, 2.5, 5}))

	E := NewData(nil)
	assert.Equal(Te, -1, E.ID())
	assert.True(Te, math.IsNaN(E.Mean()))
	assert.True(Te, math.IsNaN(E.StdDev()))
	assert.True(Te, math.IsNaN(E.Median()))
}

func TestMatrixCheck(Te *testing.T) {
	M := NewMatrix([]float64{1}, []time.Time{time.Unix(0, 0).UTC()})
	assert.Error(Te, M.Check(1, 0))
	assert.NoError(Te, M.Check(0, 0))
	assert.Panics(Te, func() { M.View(0, 3) })
	assert.Equal(Te, -1, M.ColIndex(time.Unix(3600, 0)))
	assert.Equal(Te, 0, M.RowIndex(1))
}
