package ncdf

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarName(Te *testing.T) {
	assert.Equal(Te, "temperature_k", VarName("temperature (K)"))
	assert.Equal(Te, "p_mb", VarName("P (MB)"))
	assert.Equal(Te, "hours", VarName(rotraj.ColHours))
	assert.Equal(Te, "specific_humidity_kg_kg", VarName("specific humidity (kg/kg)"))
	assert.Equal(Te, "v159", VarName("159"))
}

func TestSeconds(Te *testing.T) {
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	t := time.Date(2022, 1, 1, 12, 15, 0, 0, time.UTC)
	assert.Equal(Te, 44100.0, Seconds(t, epoch))
	assert.Equal(Te, t, FromSeconds(Seconds(t, epoch), epoch))
	//a spacing of one seventh of a day, and 90 days later
	for _, d := range []time.Duration{12342857142857, 90*24*time.Hour + 5*12342857142857} {
		t = epoch.Add(d)
		assert.Equal(Te, t, FromSeconds(Seconds(t, epoch), epoch), d.String())
	}
	e, err := parseUnits(ReleaseUnits + "2022-01-01 00:00:00.5")
	require.NoError(Te, err)
	assert.Equal(Te, epoch.Add(time.Second/2), e)
	_, err = parseUnits("hours since 1970-01-01")
	assert.Error(Te, err)
}

func TestExportFractionalReleases(Te *testing.T) {
	d := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	S := synth.Spec{Base: d, Trajectories: 7, Clusters: 1, Intervals: 1, Attributes: []int{1}}
	l, err := rotraj.ReadLines(strings.NewReader(S.Text()))
	require.NoError(Te, err)
	T, H, err := rotraj.Decode("sevenths", l)
	require.NoError(Te, err)
	want := T.Releases()
	require.Len(Te, want, 7)
	require.NotZero(Te, want[1].Nanosecond())

	name := filepath.Join(Te.TempDir(), "sevenths.nc")
	require.NoError(Te, Export(name, T, H))
	_, releases, err := ReadIndex(name)
	require.NoError(Te, err)
	assert.Equal(Te, want, releases)
}

func TestExport(Te *testing.T) {
	T, H, err := rotraj.ReadFile("../test/rtraj_sample_2022010100")
	require.NoError(Te, err)
	name := filepath.Join(Te.TempDir(), "sample.nc")
	require.NoError(Te, Export(name, T, H))

	clusters, releases, err := ReadIndex(name)
	require.NoError(Te, err)
	assert.Equal(Te, []int{1, 1, 2, 2}, clusters)
	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(Te, []time.Time{day, day.Add(12 * time.Hour), day, day.Add(12 * time.Hour)}, releases)

	temp, err := ReadColumn(name, "temperature (K)")
	require.NoError(Te, err)
	require.Len(Te, temp, 4)
	assert.Equal(Te, []float64{268.4, 268.1, 267.7, 267.2}, temp[0])
	lon, err := ReadColumn(name, rotraj.ColLon)
	require.NoError(Te, err)
	assert.Equal(Te, 190.5, lon[3][3])

	_, err = ReadColumn(name, "nope")
	assert.True(Te, errors.Is(err, ErrNotFound))

	nc, err := netcdf.Open(name)
	require.NoError(Te, err)
	defer nc.Close()
	v, ok := nc.Attributes().Get("trajectory_base_time")
	require.True(Te, ok)
	assert.Equal(Te, "2022010100", v)
	v, ok = nc.Attributes().Get("attribute_types")
	require.True(Te, ok)
	assert.Equal(Te, "1 3 4 10 159", v)
}

func TestExportPadding(Te *testing.T) {
	S := synth.Spec{Base: time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC), Trajectories: 4, Clusters: 2, Intervals: 3, Attributes: []int{10}, CutLast: 2}
	l, err := rotraj.ReadLines(strings.NewReader(S.Text()))
	require.NoError(Te, err)
	T, _, err := rotraj.Decode("synth", l)
	require.NoError(Te, err)
	name := filepath.Join(Te.TempDir(), "padded.nc")
	//no header, no global attributes
	require.NoError(Te, Export(name, T, nil))
	z, err := ReadColumn(name, "height (m)")
	require.NoError(Te, err)
	require.Len(Te, z, 4)
	assert.Equal(Te, []float64{0, 100, 200, 300}, z[0])
	assert.Equal(Te, 100.0, z[3][1])
	assert.True(Te, math.IsNaN(z[3][2]))
	assert.True(Te, math.IsNaN(z[3][3]))

	var ve *rotraj.ValidationError
	err = Export(filepath.Join(Te.TempDir(), "empty.nc"), rotraj.NewTable(T.Columns()), nil)
	require.ErrorAs(Te, err, &ve)
}
