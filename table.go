/*
 * table.go, part of rotraj.
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

package rotraj

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Key indexes one row of a Table.
type Key struct {
	Cluster int
	Release time.Time
	Step    int
}

func (K Key) String() string {
	return fmt.Sprintf("(%d, %s, %d)", K.Cluster, K.Release.Format(time.DateTime), K.Step)
}

// Trajectory is one trajectory of a Table: a Block plus its place in the index.
type Trajectory struct {
	*Block
	Position int //0-based position of the trajectory in its file
	Cluster  int
	Release  time.Time
}

// Key returns the index of the i-th row of the trajectory.
func (T *Trajectory) Key(i int) Key {
	return Key{Cluster: T.Cluster, Release: T.Release, Step: T.Steps[i]}
}

// Row returns a view of the values of the i-th row. It should not be modified.
func (T *Trajectory) Row(i int) []float64 {
	return T.Values.RawRowView(i)
}

// Col returns a copy of the j-th value column.
func (T *Trajectory) Col(j int) []float64 {
	return mat.Col(nil, j, T.Values)
}

// Table holds all the trajectories of one or more files, indexed by
// (cluster, release time, step). Trajectories keep the order in which they were read,
// and rows keep their order within each trajectory.
type Table struct {
	columns []string
	trajs   []*Trajectory
	byKey   map[trajKey]int
}

type trajKey struct {
	cluster int
	release int64 //UnixNano, as time.Time values with different locations are not comparable.
}

// NewTable returns an empty table with the given value columns.
func NewTable(columns []string) *Table {
	return &Table{columns: append([]string(nil), columns...), byKey: make(map[trajKey]int)}
}

// Add appends a trajectory to the table. The trajectory must have as many value
// columns as the table. The index need not be unique: two files for the same day
// give trajectories with the same cluster and release time. Both are kept, in order,
// and Lookup returns the first one.
func (T *Table) Add(tr *Trajectory) error {
	if _, c := tr.Values.Dims(); c != len(T.columns) {
		return NewValidationError(fmt.Sprint(tr.Number), "Table.Add", "trajectory has %d value columns, table has %d", c, len(T.columns))
	}
	k := trajKey{tr.Cluster, tr.Release.UnixNano()}
	if _, ok := T.byKey[k]; !ok {
		T.byKey[k] = len(T.trajs)
	}
	T.trajs = append(T.trajs, tr)
	return nil
}

// BuildTable assigns each block a cluster and a release time, and puts them all in a Table.
// The blocks must be given in file order. Block i belongs to the cluster
// H.ClusterPointers[i/perCluster] and was released at releases[i%perCluster], where
// perCluster is H.PerCluster(). If releases is nil, it is generated from H with
// InferFrequency, starting at the file's base date.
func BuildTable(blocks []*Block, H *Header, releases []time.Time) (*Table, error) {
	per := H.PerCluster()
	if releases == nil {
		f, err := InferFrequency(per)
		if err != nil {
			return nil, errDecorate(err, "BuildTable")
		}
		releases = f.Range(H.BaseDate(), per)
	}
	if len(releases) != per {
		return nil, newFormatError("", -1, "BuildTable", "%d release times given for %d trajectories per cluster", len(releases), per)
	}
	if len(blocks) > H.TotalTrajectories {
		return nil, newFormatError("", -1, "BuildTable", "%d blocks for %d declared trajectories", len(blocks), H.TotalTrajectories)
	}
	T := NewTable(H.Columns())
	for i, b := range blocks {
		tr := &Trajectory{
			Block:    b,
			Position: i,
			Cluster:  H.ClusterPointers[i/per],
			Release:  releases[i%per],
		}
		if err := T.Add(tr); err != nil {
			return nil, errDecorate(err, "BuildTable")
		}
	}
	return T, nil
}

// Concat returns a table with the trajectories of all the given tables, in order.
// All tables must have the same columns.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, NewValidationError("", "Concat", "no tables given")
	}
	ret := NewTable(tables[0].columns)
	for _, t := range tables {
		if !slices.Equal(t.columns, ret.columns) {
			return nil, NewValidationError(fmt.Sprint(t.columns), "Concat", "columns don't match %v", ret.columns)
		}
		for _, tr := range t.trajs {
			if err := ret.Add(tr); err != nil {
				return nil, errDecorate(err, "Concat")
			}
		}
	}
	return ret, nil
}

// Columns returns the names of the value columns.
func (T *Table) Columns() []string {
	return append([]string(nil), T.columns...)
}

// ColumnIndex returns the index of the value column with the given name, or a *ValidationError.
func (T *Table) ColumnIndex(name string) (int, error) {
	i := slices.Index(T.columns, name)
	if i < 0 {
		return -1, NewValidationError(name, "ColumnIndex", "column not found in %v", T.columns)
	}
	return i, nil
}

// NTraj returns the number of trajectories in the table.
func (T *Table) NTraj() int {
	return len(T.trajs)
}

// Traj returns the i-th trajectory. It panics if i is out of range.
func (T *Table) Traj(i int) *Trajectory {
	return T.trajs[i]
}

// Lookup returns the trajectory of the given cluster released at the given time, or nil.
// If several trajectories share that index, the first one added is returned.
func (T *Table) Lookup(cluster int, release time.Time) *Trajectory {
	i, ok := T.byKey[trajKey{cluster, release.UnixNano()}]
	if !ok {
		return nil
	}
	return T.trajs[i]
}

// Len returns the total number of rows.
func (T *Table) Len() int {
	n := 0
	for _, v := range T.trajs {
		n += v.Len()
	}
	return n
}

// Each calls f for every row, in order, until f returns false. row is a view
// that should not be modified.
func (T *Table) Each(f func(k Key, row []float64) bool) {
	for _, tr := range T.trajs {
		for i := range tr.Steps {
			if !f(tr.Key(i), tr.Row(i)) {
				return
			}
		}
	}
}

// Keys returns the index of every row, in order.
func (T *Table) Keys() []Key {
	ret := make([]Key, 0, T.Len())
	T.Each(func(k Key, _ []float64) bool {
		ret = append(ret, k)
		return true
	})
	return ret
}

// Column returns all the values of the named column, in row order.
func (T *Table) Column(name string) ([]float64, error) {
	j, err := T.ColumnIndex(name)
	if err != nil {
		return nil, errDecorate(err, "Column")
	}
	ret := make([]float64, 0, T.Len())
	T.Each(func(_ Key, row []float64) bool {
		ret = append(ret, row[j])
		return true
	})
	return ret, nil
}

// Clusters returns the distinct cluster ids, in ascending order.
func (T *Table) Clusters() []int {
	seen := make(map[int]bool)
	var ret []int
	for _, v := range T.trajs {
		if !seen[v.Cluster] {
			seen[v.Cluster] = true
			ret = append(ret, v.Cluster)
		}
	}
	sort.Ints(ret)
	return ret
}

// Releases returns the distinct release times, in ascending order.
func (T *Table) Releases() []time.Time {
	seen := make(map[int64]bool)
	var ret []time.Time
	for _, v := range T.trajs {
		if n := v.Release.UnixNano(); !seen[n] {
			seen[n] = true
			ret = append(ret, v.Release)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Before(ret[j]) })
	return ret
}

// CountByCluster returns the number of trajectories in each cluster.
func (T *Table) CountByCluster() map[int]int {
	ret := make(map[int]int)
	for _, v := range T.trajs {
		ret[v.Cluster]++
	}
	return ret
}
