// Package ncdf exports trajectory tables to NetCDF (classic format) files.
//
// A file has the dimensions "trajectory" and "row". The variables cluster, release,
// number and position have one value per trajectory. The variable step, and one
// variable per value column, have one value per trajectory and row.
// Release times are seconds since the earliest one, which is given in the units attribute.
// They keep the nanoseconds of the table if it spans less than 97 days.
// Trajectories shorter than the longest one are padded with NaN (and with -1 for step).
// The metadata of the ROTRAJ file goes in the global attributes.
package ncdf

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/gosimple/slug"
	"github.com/rmera/rotraj"
)

const (
	DimTrajectory = "trajectory"
	DimStep       = "row"
	// ReleaseUnits is followed by the epoch, in EpochLayout.
	ReleaseUnits = "seconds since "
	EpochLayout  = "2006-01-02 15:04:05.999999999"
)

// VarName returns the name of the variable that holds the value column col.
func VarName(col string) string {
	s := strings.ReplaceAll(slug.Make(col), "-", "_")
	if s == "" {
		return "var"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "v" + s
	}
	return s
}

// Seconds returns the seconds from epoch to t.
func Seconds(t, epoch time.Time) float64 {
	d := t.Sub(epoch)
	return float64(d/time.Second) + float64(d%time.Second)/1e9
}

// FromSeconds is the inverse of Seconds, rounded to the nanosecond.
// The whole seconds and the fraction are converted apart, so the rounding
// only loses the nanoseconds when s is 2^23 or more.
func FromSeconds(s float64, epoch time.Time) time.Time {
	whole := math.Trunc(s)
	ns := math.Round((s - whole) * 1e9)
	return epoch.Add(time.Duration(whole)*time.Second + time.Duration(ns)).UTC()
}

func parseUnits(units string) (time.Time, error) {
	rest, ok := strings.CutPrefix(units, ReleaseUnits)
	if !ok {
		return time.Time{}, fmt.Errorf("release units %q don't start with %q", units, ReleaseUnits)
	}
	return time.ParseInLocation(EpochLayout, rest, time.UTC)
}

func attrs(keys []string, vals map[string]any) (api.AttributeMap, error) {
	m, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, " ")
}

func globalAttrs(H *rotraj.Header) (api.AttributeMap, error) {
	keys := []string{"title", "trajectory_base_time", "data_base_time", "data_interval_hours", "data_interval_timesteps",
		"total_trajectories", "attribute_types", "attribute_names", "number_of_clusters", "cluster_pointers",
		"is_3d", "is_forecast", "is_forward"}
	b := func(v bool) string {
		if v {
			return "T"
		}
		return "F"
	}
	vals := map[string]any{
		"title":                   "ROTRAJ trajectories",
		"trajectory_base_time":    H.TrajectoryBaseTime.Format(rotraj.TimestampLayout),
		"data_base_time":          H.DataBaseTime.Format(rotraj.TimestampLayout),
		"data_interval_hours":     int32(H.DataIntervalHours),
		"data_interval_timesteps": int32(H.DataIntervalTimesteps),
		"total_trajectories":      int32(H.TotalTrajectories),
		"attribute_types":         joinInts(H.AttributeTypes),
		"attribute_names":         strings.Join(H.AttributeNames, "; "),
		"number_of_clusters":      int32(H.NumberOfClusters),
		"cluster_pointers":        joinInts(H.ClusterPointers),
		"is_3d":                   b(H.Is3D),
		"is_forecast":             b(H.IsForecast),
		"is_forward":              b(H.IsForward),
	}
	return attrs(keys, vals)
}

// Export writes T to a new NetCDF file at path. If H is not nil, its fields are written
// as global attributes. T must have at least one trajectory.
func Export(path string, T *rotraj.Table, H *rotraj.Header) (err error) {
	n := T.NTraj()
	if n == 0 {
		return rotraj.NewValidationError(path, "ncdf.Export", "no trajectories to export")
	}
	nsteps := 0
	for i := 0; i < n; i++ {
		nsteps = max(nsteps, T.Traj(i).Len())
	}
	epoch := T.Releases()[0]
	cluster := make([]int32, n)
	number := make([]int32, n)
	position := make([]int32, n)
	release := make([]float64, n)
	steps := make([][]int32, n)
	cols := T.Columns()
	values := make([][][]float64, len(cols))
	for j := range values {
		values[j] = make([][]float64, n)
	}
	for i := 0; i < n; i++ {
		tr := T.Traj(i)
		cluster[i] = int32(tr.Cluster)
		number[i] = int32(tr.Number)
		position[i] = int32(tr.Position)
		release[i] = Seconds(tr.Release, epoch)
		steps[i] = make([]int32, nsteps)
		for s := range steps[i] {
			steps[i][s] = -1
			if s < tr.Len() {
				steps[i][s] = int32(tr.Steps[s])
			}
		}
		for j := range cols {
			v := make([]float64, nsteps)
			for s := range v {
				v[s] = math.NaN()
				if s < tr.Len() {
					v[s] = tr.Row(s)[j]
				}
			}
			values[j][i] = v
		}
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("ncdf.Export: %w", err)
	}
	defer func() {
		if err2 := cw.Close(); err == nil && err2 != nil {
			err = fmt.Errorf("ncdf.Export: %w", err2)
		}
	}()
	ttraj := []string{DimTrajectory}
	tstep := []string{DimTrajectory, DimStep}
	units := ReleaseUnits + epoch.UTC().Format(EpochLayout)
	relattr, err := attrs([]string{"units", "long_name"}, map[string]any{"units": units, "long_name": "release time"})
	if err != nil {
		return fmt.Errorf("ncdf.Export: %w", err)
	}
	vars := []struct {
		name string
		v    api.Variable
	}{
		{"cluster", api.Variable{Values: cluster, Dimensions: ttraj}},
		{"number", api.Variable{Values: number, Dimensions: ttraj}},
		{"position", api.Variable{Values: position, Dimensions: ttraj}},
		{"release", api.Variable{Values: release, Dimensions: ttraj, Attributes: relattr}},
		{"step", api.Variable{Values: steps, Dimensions: tstep}},
	}
	used := map[string]string{"cluster": "", "number": "", "position": "", "release": "", "step": ""}
	for j, c := range cols {
		name := VarName(c)
		if prev, ok := used[name]; ok {
			return rotraj.NewValidationError(c, "ncdf.Export", "variable name %q already used by %q", name, prev)
		}
		used[name] = c
		a, err := attrs([]string{"long_name"}, map[string]any{"long_name": c})
		if err != nil {
			return fmt.Errorf("ncdf.Export: %w", err)
		}
		vars = append(vars, struct {
			name string
			v    api.Variable
		}{name, api.Variable{Values: values[j], Dimensions: tstep, Attributes: a}})
	}
	for _, v := range vars {
		if err := cw.AddVar(v.name, v.v); err != nil {
			return fmt.Errorf("ncdf.Export: variable %s: %w", v.name, err)
		}
	}
	if H != nil {
		g, err := globalAttrs(H)
		if err != nil {
			return fmt.Errorf("ncdf.Export: %w", err)
		}
		if err := cw.AddGlobalAttrs(g); err != nil {
			return fmt.Errorf("ncdf.Export: %w", err)
		}
	}
	return nil
}

// ErrNotFound is returned by ReadColumn when the file has no variable for the column.
var ErrNotFound = errors.New("variable not found")

// ReadColumn returns the values of the value column col from a file written by Export,
// one slice per trajectory, NaN padded.
func ReadColumn(path, col string) ([][]float64, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncdf.ReadColumn: %w", err)
	}
	defer nc.Close()
	vr, err := nc.GetVariable(VarName(col))
	if err != nil {
		return nil, fmt.Errorf("ncdf.ReadColumn: %w: %s (%v)", ErrNotFound, VarName(col), err)
	}
	v, ok := vr.Values.([][]float64)
	if !ok {
		return nil, fmt.Errorf("ncdf.ReadColumn: %s is %T, not [][]float64", VarName(col), vr.Values)
	}
	return v, nil
}

// ReadIndex returns the cluster and release time of each trajectory in a file written by Export.
func ReadIndex(path string) ([]int, []time.Time, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ncdf.ReadIndex: %w", err)
	}
	defer nc.Close()
	cv, err := nc.GetVariable("cluster")
	if err != nil {
		return nil, nil, fmt.Errorf("ncdf.ReadIndex: %w: cluster (%v)", ErrNotFound, err)
	}
	rv, err := nc.GetVariable("release")
	if err != nil {
		return nil, nil, fmt.Errorf("ncdf.ReadIndex: %w: release (%v)", ErrNotFound, err)
	}
	c, ok1 := cv.Values.([]int32)
	r, ok2 := rv.Values.([]float64)
	if !ok1 || !ok2 || len(c) != len(r) {
		return nil, nil, fmt.Errorf("ncdf.ReadIndex: ill-formed cluster or release variables")
	}
	u, _ := rv.Attributes.Get("units")
	us, _ := u.(string)
	epoch, err := parseUnits(us)
	if err != nil {
		return nil, nil, fmt.Errorf("ncdf.ReadIndex: %w", err)
	}
	clusters := make([]int, len(c))
	releases := make([]time.Time, len(r))
	for i := range c {
		clusters[i] = int(c[i])
		releases[i] = FromSeconds(r[i], epoch)
	}
	return clusters, releases, nil
}
