package rotraj

import (
	"strings"
	"testing"
	"time"

	"github.com/rmera/rotraj/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rootdirtest = "test"

func TestReadSample(Te *testing.T) {
	T, H, err := ReadFile(rootdirtest + "/rtraj_sample_2022010100")
	require.NoError(Te, err)
	assert.Equal(Te, 4, T.NTraj())
	assert.Equal(Te, 16, T.Len())
	assert.Equal(Te, []int{1, 2}, T.Clusters())
	assert.Equal(Te, map[int]int{1: 2, 2: 2}, T.CountByCluster())
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(Te, []time.Time{day, day.Add(12 * time.Hour)}, T.Releases())
	assert.Equal(Te, H.Columns(), T.Columns())

	tr := T.Lookup(2, day.Add(12*time.Hour))
	require.NotNil(Te, tr)
	assert.Equal(Te, 4, tr.Number)
	assert.Equal(Te, 3, tr.Position)
	assert.Equal(Te, 3, tr.Intervals)
	lon, err := T.ColumnIndex(ColLon)
	require.NoError(Te, err)
	assert.Equal(Te, 190.5, tr.Row(3)[lon])
	assert.Equal(Te, Key{Cluster: 2, Release: day.Add(12 * time.Hour), Step: 3}, tr.Key(3))

	//the sentinel pressure is kept
	p, err := T.Column(ColPressure)
	require.NoError(Te, err)
	assert.Equal(Te, 0.0, p[4])
	assert.Nil(Te, T.Lookup(3, day))
}

func TestDecodeCounts(Te *testing.T) {
	base := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	attrs := []int{1, 4}
	cases := []struct {
		name   string
		blocks int
		cut    int
		want   int
		last   int
	}{
		{"complete", 0, 0, 6, 5},
		{"missing blocks", 4, 0, 4, 5},
		{"short last block", 4, 2, 4, 2},
	}
	for _, c := range cases {
		Te.Run(c.name, func(t *testing.T) {
			S := synth.Spec{Base: base, Trajectories: 6, Clusters: 3, Intervals: 4, Attributes: attrs, Blocks: c.blocks, CutLast: c.cut}
			T, H, err := Decode("synth", lines(S.Text()))
			require.NoError(t, err)
			assert.Equal(t, 6, H.TotalTrajectories)
			require.Equal(t, c.want, T.NTraj())
			assert.Equal(t, c.last, T.Traj(T.NTraj()-1).Len())
			for i := 0; i < T.NTraj(); i++ {
				tr := T.Traj(i)
				for s := 0; s < tr.Len(); s++ {
					assert.Equal(t, s, tr.Steps[s])
					assert.InDeltaSlice(t, synth.Values(attrs, i, s), tr.Row(s), 1e-4)
				}
			}
		})
	}
}

func TestClusterPartition(Te *testing.T) {
	base := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	S := synth.Spec{Base: base, Trajectories: 12, Clusters: 4, Intervals: 2, Attributes: []int{10}, Pointers: []int{3, 1, 4, 2}, PointersPerLine: 3}
	T, H, err := Decode("synth", lines(S.Text()))
	require.NoError(Te, err)
	require.Equal(Te, 12, T.NTraj())
	for i := 0; i < T.NTraj(); i++ {
		tr := T.Traj(i)
		assert.Equal(Te, H.ClusterPointers[i/3], tr.Cluster)
		assert.Equal(Te, base.Add(time.Duration(i%3)*8*time.Hour), tr.Release)
	}
	for _, n := range T.CountByCluster() {
		assert.Equal(Te, 3, n)
	}
}

func TestDecodeTimesteps(Te *testing.T) {
	S := synth.Spec{Base: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), Trajectories: 2, Clusters: 1, Intervals: 4, Attributes: []int{1}}
	O := DefaultOptions()
	O.Timesteps(4)
	T, _, err := Decode("synth", lines(S.Text()), O)
	require.NoError(Te, err)
	assert.Equal(Te, 10, T.Len())

	O.Timesteps(88)
	_, _, err = Decode("synth", lines(S.Text()), O)
	var fe *FormatError
	require.ErrorAs(Te, err, &fe)
	assert.Contains(Te, err.Error(), "88")
}

func TestDecodeCorrupt(Te *testing.T) {
	S := synth.Spec{Base: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), Trajectories: 2, Clusters: 1, Intervals: 2, Attributes: []int{1}}
	good := S.Text()
	cases := map[string]string{
		"columns":    strings.Replace(good, "  STEP    HOURS", "  WHAT    HOURS", 1),
		"value":      strings.Replace(good, "270.0000", "27O.0000", 1),
		"row length": strings.Replace(good, "270.0000", "", 1),
		"marker":     strings.Replace(good, "TRAJECTORY NUMBER     2 COMPRISES     2 INTERVALS", "TRAJECTORY NUMBER     2", 1),
	}
	for name, text := range cases {
		Te.Run(name, func(t *testing.T) {
			_, _, err := Decode("corrupt", lines(text))
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.GreaterOrEqual(t, fe.Line(), 0)
		})
	}
}

func TestDecoderLastFrame(Te *testing.T) {
	S := synth.Spec{Base: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), Trajectories: 1, Clusters: 1, Intervals: 1}
	l := lines(S.Text())
	H, offset, err := ParseHeader("synth", l)
	require.NoError(Te, err)
	D := NewDecoder("synth", l, offset, H, 0)
	B, err := D.Next()
	require.NoError(Te, err)
	assert.Equal(Te, 2, B.Len())
	_, err = D.Next()
	assert.True(Te, IsLastFrame(err))
	assert.False(Te, D.Readable())
	assert.Equal(Te, 1, D.Read())
}

func TestReadFileMissing(Te *testing.T) {
	_, _, err := ReadFile(rootdirtest + "/nothing_here")
	var ve *ValidationError
	require.ErrorAs(Te, err, &ve)
}
