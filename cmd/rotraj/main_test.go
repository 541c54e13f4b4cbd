package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/rotraj"
)

const sample = "../../test/rtraj_sample_2022010100"

// run executes the CLI with the default config and returns what it printed to stdout.
func run(Te *testing.T, args ...string) (string, error) {
	Te.Helper()
	Te.Setenv("ROTRAJ_CONFIG", filepath.Join(Te.TempDir(), "none.toml"))
	cmd := newRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNames(Te *testing.T) {
	one := []string{"20220101"}
	two := []string{"20220101", "20220105"}
	assert.Equal(Te, "20220101_hm.json", hovmollerName(one, "", 0, false, "json"))
	assert.Equal(Te, "20220101-20220105_hm_temperature_k_T-3.txt", hovmollerName(two, "temperature (K)", 3, true, "txt"))
	assert.Equal(Te, "20220101_hm_T-0.yaml", hovmollerName(one, "", 0, true, "yaml"))
	assert.Equal(Te, "20220101_summary.json", summaryName(one, "", "json"))
	assert.Equal(Te, "20220101-20220105_specific_humidity.json", summaryName(two, "specific humidity", "json"))
}

func TestCheckOutDir(Te *testing.T) {
	assert.NoError(Te, checkOutDir(""))
	assert.NoError(Te, checkOutDir(Te.TempDir()))
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, checkOutDir(filepath.Join(Te.TempDir(), "nope")), &ve)
	assert.ErrorAs(Te, checkOutDir(sample), &ve)
	_, err := formatExt("png")
	assert.ErrorAs(Te, err, &ve)
}

func TestRead(Te *testing.T) {
	out, err := run(Te, "read", sample)
	require.NoError(Te, err)
	assert.Contains(Te, out, "4 trajectories  16 rows  every 12H  2 clusters")
	assert.Contains(Te, out, "cluster 2: 2 trajectories")

	out, err = run(Te, "read", sample, "--format", "json")
	require.NoError(Te, err)
	var r fileReport
	require.NoError(Te, json.Unmarshal([]byte(out), &r))
	assert.Equal(Te, 4, r.Trajectories)
	assert.Equal(Te, []int{1, 3, 4, 10, 159}, r.Header.AttributeTypes)

	out, err = run(Te, "read", sample, "--format", "yaml")
	require.NoError(Te, err)
	assert.Contains(Te, out, "trajectories: 4\n")
	assert.Contains(Te, out, "frequency: 12H\n")

	_, err = run(Te, "read", "nothing_here")
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, err, &ve)
}

func TestRange(Te *testing.T) {
	dir := Te.TempDir()
	b, err := os.ReadFile(sample)
	require.NoError(Te, err)
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "rtraj_sample_2022010100"), b, 0o644))

	out, err := run(Te, "range", dir, "--start", "2022-01-01", "--end", "2022-01-03")
	require.NoError(Te, err)
	assert.Equal(Te, 1, strings.Count(out, "\n"))

	_, err = run(Te, "range", dir, "--start", "2022-02-01")
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, err, &ve)

	//a directory needs a start date
	_, err = run(Te, "hovmoller", dir)
	assert.ErrorAs(Te, err, &ve)
}

func TestHovmollerCommand(Te *testing.T) {
	dir := Te.TempDir()
	out, err := run(Te, "hovmoller", sample, "--attr", "temp", "--out", dir)
	require.NoError(Te, err)
	path := filepath.Join(dir, "20220101_hm_temp.json")
	assert.Equal(Te, path+"\n", out)
	b, err := os.ReadFile(path)
	require.NoError(Te, err)
	var res []struct {
		Attr   string
		Matrix struct {
			Rows  []float64
			Means [][]float64
		}
	}
	require.NoError(Te, json.Unmarshal(b, &res))
	require.Len(Te, res, 1)
	assert.Equal(Te, "temperature (K)", res[0].Attr)
	assert.Equal(Te, []float64{985, 975}, res[0].Matrix.Rows)
	assert.InDelta(Te, 267.85, res[0].Matrix.Means[0][0], 1e-9)

	_, err = run(Te, "hovmoller", sample, "--step", "3", "--out", dir, "--format", "text")
	require.NoError(Te, err)
	_, err = os.Stat(filepath.Join(dir, "20220101_hm_T-3.txt"))
	assert.NoError(Te, err)

	_, err = run(Te, "hovmoller", sample, "--out", filepath.Join(dir, "nope"))
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, err, &ve)
	_, err = run(Te, "hovmoller", sample, "--attr", "colour", "--out", dir)
	assert.ErrorAs(Te, err, &ve)
}

func TestSummaryCommand(Te *testing.T) {
	dir := Te.TempDir()
	_, err := run(Te, "summary", sample, "--attr", "temp", "--out", dir, "--acf")
	require.NoError(Te, err)
	b, err := os.ReadFile(filepath.Join(dir, "20220101_temp.json"))
	require.NoError(Te, err)
	var res []struct {
		Series struct {
			Mean []float64
		}
		ACF []float64
	}
	require.NoError(Te, json.Unmarshal(b, &res))
	require.Len(Te, res, 1)
	assert.InDelta(Te, 264.7125, res[0].Series.Mean[0], 1e-9)
	require.Len(Te, res[0].ACF, 2)
	assert.InDelta(Te, 1.0, res[0].ACF[0], 1e-9)

	_, err = run(Te, "summary", sample, "--out", dir, "--format", "yaml")
	require.NoError(Te, err)
	b, err = os.ReadFile(filepath.Join(dir, "20220101_summary.yaml"))
	require.NoError(Te, err)
	assert.Contains(Te, string(b), "attr: temperature (K)")
}

//Two files for the same day are both read, and the output is named by that day only.
func TestSummarySameDay(Te *testing.T) {
	dir := Te.TempDir()
	b, err := os.ReadFile(sample)
	require.NoError(Te, err)
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "rtraj_a_2022010100"), b, 0o644))
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "rtraj_b_2022010100"), b, 0o644))
	out := Te.TempDir()
	_, err = run(Te, "summary", dir, "--start", "2022-01-01", "--attr", "temp", "--out", out)
	require.NoError(Te, err)
	b, err = os.ReadFile(filepath.Join(out, "20220101_temp.json"))
	require.NoError(Te, err)
	var res []struct {
		Series struct {
			Mean []float64
		}
	}
	require.NoError(Te, json.Unmarshal(b, &res))
	require.Len(Te, res, 1)
	assert.InDelta(Te, 264.7125, res[0].Series.Mean[0], 1e-9)

	_, err = run(Te, "hovmoller", dir, "--start", "2022-01-01", "--out", out)
	require.NoError(Te, err)
	_, err = os.Stat(filepath.Join(out, "20220101_hm.json"))
	assert.NoError(Te, err)
}

func TestTracksCommand(Te *testing.T) {
	ship := filepath.Join(Te.TempDir(), "ship.csv")
	require.NoError(Te, os.WriteFile(ship, []byte("Timestamp,Latitude,Longitude\n2022-01-01 00:00,78.2,15.6\n2022-01-01 00:01,78.3,15.7\n"), 0o644))
	out, err := run(Te, "tracks", sample, "--every", "1h", "--ceiling", "0", "--ship", ship)
	require.NoError(Te, err)
	var res tracksOut
	require.NoError(Te, json.Unmarshal([]byte(out), &res))
	assert.Equal(Te, "1h0m0s", res.Every)
	assert.Len(Te, res.Ship, 1)
	//two release times give no whole hour, so no tracks
	assert.Empty(Te, res.Tracks)

	_, err = run(Te, "tracks", sample, "--every", "10s")
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, err, &ve)
}

func TestExportCommand(Te *testing.T) {
	dir := Te.TempDir()
	for _, ext := range []string{".stf", ".stf4", ".nc", ".db"} {
		to := filepath.Join(dir, "sample"+ext)
		out, err := run(Te, "export", sample, "--to", to)
		require.NoError(Te, err, ext)
		assert.Equal(Te, to+"\n", out)
		_, err = os.Stat(to)
		assert.NoError(Te, err, ext)
	}
	out, err := run(Te, "read", filepath.Join(dir, "sample.stf4"))
	require.NoError(Te, err)
	assert.Contains(Te, out, "4 trajectories  16 rows")

	out, err = run(Te, "catalog", filepath.Join(dir, "sample.db"))
	require.NoError(Te, err)
	assert.Contains(Te, out, "rtraj_sample_2022010100  2022010100  4 trajectories  16 rows")
	out, err = run(Te, "catalog", filepath.Join(dir, "sample.db"), "--column", "temperature (K)", "--format", "json")
	require.NoError(Te, err)
	var means []struct{ Mean float64 }
	require.NoError(Te, json.Unmarshal([]byte(out), &means))
	require.Len(Te, means, 2)
	assert.InDelta(Te, 264.7125, means[0].Mean, 1e-9)

	_, err = run(Te, "export", sample, "--to", filepath.Join(dir, "sample.csv"))
	var ve *rotraj.ValidationError
	assert.ErrorAs(Te, err, &ve)
}

func TestEquPotCommand(Te *testing.T) {
	out, err := run(Te, "equpot", "273", "0", "1000")
	require.NoError(Te, err)
	assert.Equal(Te, "273.0000\n", out)
	_, err = run(Te, "equpot", "273", "0", "-5")
	assert.Error(Te, err)
	_, err = run(Te, "equpot", "warm", "0", "1000")
	assert.Error(Te, err)
}
