// Package trajstat computes statistics and derived data from trajectory tables:
// time series of attributes by release time, their autocorrelation, and the
// tracks used to draw trajectories on a map.
package trajstat

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"time"

	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/pivot"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Series is the summary of one attribute: its mean, standard deviation and
// number of values for each release time, in ascending order of release time.
type Series struct {
	Attr     string
	Releases []time.Time
	Mean     []float64
	StdDev   []float64 //NaN where Count < 2
	Count    []int
}

// Len returns the number of release times in the series.
func (S *Series) Len() int {
	return len(S.Releases)
}

func nullable(f []float64) []*float64 {
	ret := make([]*float64, len(f))
	for i := range f {
		if !math.IsNaN(f[i]) && !math.IsInf(f[i], 0) {
			v := f[i]
			ret[i] = &v
		}
	}
	return ret
}

// MarshalJSON writes NaNs as null.
func (S *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Attr     string      `json:"attr"`
		Releases []time.Time `json:"releases"`
		Mean     []*float64  `json:"mean"`
		StdDev   []*float64  `json:"std_dev"`
		Count    []int       `json:"count"`
	}{S.Attr, S.Releases, nullable(S.Mean), nullable(S.StdDev), S.Count})
}

// Summarize returns one Series per attribute, in the order given. All the rows
// with the same release time are averaged, regardless of their cluster and step.
// To summarize several files, concatenate their tables first.
func Summarize(T *rotraj.Table, attrs []string) ([]*Series, error) {
	releases := T.Releases()
	col := make(map[int64]int, len(releases))
	for i, r := range releases {
		col[r.UnixNano()] = i
	}
	ret := make([]*Series, 0, len(attrs))
	for _, a := range attrs {
		j, err := T.ColumnIndex(a)
		if err != nil {
			return nil, decorate(err, "Summarize")
		}
		acc := make([]*pivot.Data, len(releases))
		for i := range acc {
			acc[i] = pivot.NewData(nil, i)
		}
		for i := 0; i < T.NTraj(); i++ {
			tr := T.Traj(i)
			d := acc[col[tr.Release.UnixNano()]]
			for s := 0; s < tr.Len(); s++ {
				d.AddData(tr.Row(s)[j])
			}
		}
		S := &Series{
			Attr:     a,
			Releases: releases,
			Mean:     make([]float64, len(acc)),
			StdDev:   make([]float64, len(acc)),
			Count:    make([]int, len(acc)),
		}
		for i, d := range acc {
			S.Mean[i] = d.Mean()
			S.StdDev[i] = d.StdDev()
			S.Count[i] = d.Len()
		}
		ret = append(ret, S)
	}
	return ret, nil
}

// Autocorrelation returns the autocorrelation of the series c for the lags 0 to len(c)-1,
// normalized so the lag 0 value is 1. NaNs are not allowed in c.
func Autocorrelation(c []float64) ([]float64, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("trajstat.Autocorrelation: empty series")
	}
	return CrossCorrelation(c, c)
}

// CrossCorrelation returns the cross-correlation of c1 and c2 for lags 0 to len(c1)-1,
// normalized by the product of their standard deviations (population) and the length.
// The series are zero-padded to twice their length, so the correlation is not circular.
func CrossCorrelation(c1, c2 []float64) ([]float64, error) {
	if len(c1) != len(c2) {
		return nil, fmt.Errorf("trajstat.CrossCorrelation: series of different lengths: %d, %d", len(c1), len(c2))
	}
	n := len(c1)
	if n == 0 {
		return nil, fmt.Errorf("trajstat.CrossCorrelation: empty series")
	}
	m1, s1 := stat.PopMeanStdDev(c1, nil)
	m2, s2 := stat.PopMeanStdDev(c2, nil)
	if math.IsNaN(s1*s2) || s1 == 0 || s2 == 0 {
		return nil, fmt.Errorf("trajstat.CrossCorrelation: series with zero or undefined variance")
	}
	c1pad := make([]complex128, 2*n)
	c2pad := make([]complex128, 2*n)
	for i := range c1 {
		c1pad[i] = complex(c1[i]-m1, 0)
		c2pad[i] = complex(c2[i]-m2, 0)
	}
	f := fourier.NewCmplxFFT(len(c1pad))
	f.Coefficients(c1pad, c1pad)
	f.Coefficients(c2pad, c2pad)
	//the correlation is the inverse transform of F(c1)*conj(F(c2))
	for i, v := range c2pad {
		c1pad[i] *= cmplx.Conj(v)
	}
	f.Sequence(c1pad, c1pad)
	//Sequence doesn't normalize.
	norm := float64(len(c1pad)) * s1 * s2 * float64(n)
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = real(c1pad[i]) / norm
	}
	return ret, nil
}

// ReleaseIndex returns the index of t in the releases of S, or -1.
func (S *Series) ReleaseIndex(t time.Time) int {
	i := sort.Search(len(S.Releases), func(i int) bool { return !S.Releases[i].Before(t) })
	if i < len(S.Releases) && S.Releases[i].Equal(t) {
		return i
	}
	return -1
}

func decorate(err error, caller string) error {
	var e rotraj.Error
	if errors.As(err, &e) {
		e.Decorate("trajstat." + caller)
	}
	return err
}
