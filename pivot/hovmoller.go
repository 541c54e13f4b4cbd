/*
 * hovmoller.go, part of rotraj.
 *
 *
 * Copyright 2022 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package pivot builds two-dimensional summaries of trajectory tables,
// such as Hovmoller diagrams (pressure level vs. release time).
package pivot

import (
	"errors"
	"fmt"

	"github.com/rmera/rotraj"
)

// DefaultLevels are the pressure levels (hPa) of the clusters 1 to 20 of the
// usual release setup: one cluster per level, from the surface upwards.
var DefaultLevels = []float64{985, 975, 950, 925, 900, 875, 850, 825, 800, 775,
	750, 700, 650, 600, 550, 500, 450, 400, 350, 300}

// Options for a Hovmoller pivot.
type Options struct {
	levels []float64
	step   int
	useStp bool
}

// DefaultOptions returns options with the default pressure levels and no step filter.
func DefaultOptions() *Options {
	return &Options{levels: DefaultLevels}
}

// Levels sets the labels of the cluster ids, if given, and returns
// the current ones. The i-th smallest cluster id is labeled levels[i]. An empty, non-nil
// slice means the rows are labeled with the cluster ids themselves.
func (O *Options) Levels(levels ...[]float64) []float64 {
	if len(levels) > 0 {
		O.levels = levels[0]
	}
	return O.levels
}

// Step sets, if given, the only step that will be kept.
// It returns the current step and whether a step filter is set.
func (O *Options) Step(step ...int) (int, bool) {
	if len(step) > 0 {
		O.step = step[0]
		O.useStp = true
	}
	return O.step, O.useStp
}

// AllSteps removes the step filter.
func (O *Options) AllSteps() {
	O.useStp = false
	O.step = 0
}

// Hovmoller returns a matrix with one row per cluster and one column per release time,
// both in ascending order. The i-th smallest cluster id is labeled with the i-th level,
// whatever the ids are, so there can't be more clusters than levels. Each element accumulates
// the values of the attr column of the rows with that cluster and release time.
func Hovmoller(T *rotraj.Table, attr string, options ...*Options) (*Matrix, error) {
	O := DefaultOptions()
	if len(options) > 0 && options[0] != nil {
		O = options[0]
	}
	j, err := T.ColumnIndex(attr)
	if err != nil {
		return nil, decorate(err, "Hovmoller")
	}
	clusters := T.Clusters()
	labels := make([]float64, len(clusters))
	for i, c := range clusters {
		if len(O.levels) == 0 {
			labels[i] = float64(c)
			continue
		}
		if i >= len(O.levels) {
			return nil, rotraj.NewValidationError(fmt.Sprint(c), "pivot.Hovmoller", "cluster has no pressure level, %d levels given for %d clusters", len(O.levels), len(clusters))
		}
		labels[i] = O.levels[i]
	}
	rowOf := make(map[int]int, len(clusters))
	for i, c := range clusters {
		rowOf[c] = i
	}
	M := NewMatrix(labels, T.Releases())
	step, filter := O.Step()
	for i := 0; i < T.NTraj(); i++ {
		tr := T.Traj(i)
		r := rowOf[tr.Cluster]
		c := M.ColIndex(tr.Release)
		for s := 0; s < tr.Len(); s++ {
			if filter && tr.Steps[s] != step {
				continue
			}
			M.AddData(r, c, tr.Row(s)[j])
		}
	}
	return M, nil
}

// HovmollerAll returns one pivot per attribute, in the order given.
func HovmollerAll(T *rotraj.Table, attrs []string, options ...*Options) ([]*Matrix, error) {
	ret := make([]*Matrix, 0, len(attrs))
	for _, a := range attrs {
		M, err := Hovmoller(T, a, options...)
		if err != nil {
			return nil, decorate(err, "HovmollerAll")
		}
		ret = append(ret, M)
	}
	return ret, nil
}

func decorate(err error, caller string) error {
	var e rotraj.Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}
