package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePath = "../test/rtraj_sample_2022010100"

func openTemp(Te *testing.T) *Store {
	Te.Helper()
	s, err := Open(filepath.Join(Te.TempDir(), "db", "rotraj.db"))
	require.NoError(Te, err)
	Te.Cleanup(func() { s.Close() })
	return s
}

func TestInsertLoad(Te *testing.T) {
	s := openTemp(Te)
	T, H, err := rotraj.ReadFile(samplePath)
	require.NoError(Te, err)
	id, err := s.Insert(samplePath, T, H)
	require.NoError(Te, err)
	assert.Greater(Te, id, int64(0))

	T2, H2, err := s.Load(samplePath)
	require.NoError(Te, err)
	assert.True(Te, H.TrajectoryBaseTime.Equal(H2.TrajectoryBaseTime))
	assert.Equal(Te, H.ClusterPointers, H2.ClusterPointers)
	assert.Equal(Te, T.Columns(), T2.Columns())
	require.Equal(Te, T.NTraj(), T2.NTraj())
	for i := 0; i < T.NTraj(); i++ {
		w, g := T.Traj(i), T2.Traj(i)
		assert.Equal(Te, w.Number, g.Number)
		assert.Equal(Te, w.Intervals, g.Intervals)
		assert.Equal(Te, w.Cluster, g.Cluster)
		assert.True(Te, w.Release.Equal(g.Release))
		assert.Equal(Te, w.Steps, g.Steps)
		assert.Equal(Te, w.Values.RawMatrix().Data, g.Values.RawMatrix().Data)
	}

	//inserting again replaces the file
	id2, err := s.Insert(samplePath, T, H)
	require.NoError(Te, err)
	assert.NotEqual(Te, id, id2)
	files, err := s.Files()
	require.NoError(Te, err)
	require.Len(Te, files, 1)
	assert.Equal(Te, 4, files[0].Trajectories)
	assert.Equal(Te, 16, files[0].Rows)
	assert.Equal(Te, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), files[0].BaseTime)

	_, _, err = s.Load("nothing")
	assert.True(Te, errors.Is(err, ErrFileNotFound))

	_, err = s.Insert("x", T, nil)
	var ve *rotraj.ValidationError
	require.ErrorAs(Te, err, &ve)
}

func TestMeanByRelease(Te *testing.T) {
	s := openTemp(Te)
	T, H, err := rotraj.ReadFile(samplePath)
	require.NoError(Te, err)
	_, err = s.Insert(samplePath, T, H)
	require.NoError(Te, err)

	//a second day, with other attributes
	d := time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)
	S := synth.Spec{Base: d, Trajectories: 2, Clusters: 1, Intervals: 1, Attributes: []int{10}}
	p, err := S.Write(Te.TempDir(), synth.Name("test", d))
	require.NoError(Te, err)
	T2, H2, err := rotraj.ReadFile(p)
	require.NoError(Te, err)
	_, err = s.Insert(p, T2, H2)
	require.NoError(Te, err)

	files, err := s.Files()
	require.NoError(Te, err)
	require.Len(Te, files, 2)
	assert.Equal(Te, p, files[1].Path)

	m, err := s.MeanByRelease("temperature (K)")
	require.NoError(Te, err)
	require.Len(Te, m, 2)
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(Te, day, m[0].Release)
	assert.InDelta(Te, 264.7125, m[0].Mean, 1e-9)
	assert.Equal(Te, 8, m[0].Count)
	assert.InDelta(Te, 231.1375, m[1].Mean, 1e-9)

	//both files have pressures
	m, err = s.MeanByRelease(rotraj.ColPressure)
	require.NoError(Te, err)
	require.Len(Te, m, 4)
	assert.Equal(Te, d.Add(12*time.Hour), m[3].Release)
	//the second trajectory of the synthetic file starts with P = 0
	assert.InDelta(Te, (0+985)/2.0, m[3].Mean, 1e-9)

	_, err = s.MeanByRelease("nope")
	var ve *rotraj.ValidationError
	require.ErrorAs(Te, err, &ve)
}
