/*
 * header.go, part of rotraj.
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
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout of the 10-digit base times in a ROTRAJ header.
const TimestampLayout = "2006010215"

var (
	timestampRE = regexp.MustCompile(`\d{10}`)
	numericRE   = regexp.MustCompile(`\d+`)
)

//Header field names, as they appear (lowercased) in the file. They are also
//the keys used to report missing fields.
const (
	fTrajBaseTime = "trajectory base time"
	fDataBaseTime = "data base time"
	fInterval     = "data interval"
	fTotal        = "total number of trajectories"
	fNAttr        = "number of attributes"
	fAttrTypes    = "attribute types"
	fNClust       = "number of clusters"
	fPointers     = "cluster pointers"
	f3D           = "3d trajectory"
	fForecast     = "forecast data"
	fForward      = "forward trajectory"
	fTrajNumber   = "trajectory number"
)

// Header contains the metadata found in the leading block of a ROTRAJ file.
type Header struct {
	TrajectoryBaseTime    time.Time `json:"trajectory_base_time" yaml:"trajectory_base_time"`
	DataBaseTime          time.Time `json:"data_base_time" yaml:"data_base_time"`
	DataIntervalHours     int       `json:"data_interval_hours" yaml:"data_interval_hours"`
	DataIntervalTimesteps int       `json:"data_interval_timesteps" yaml:"data_interval_timesteps"`
	TotalTrajectories     int       `json:"total_trajectories" yaml:"total_trajectories"`
	NumberOfAttributes    int       `json:"number_of_attributes" yaml:"number_of_attributes"`
	AttributeTypes        []int     `json:"attribute_types" yaml:"attribute_types"`
	AttributeNames        []string  `json:"attribute_names" yaml:"attribute_names"`
	NumberOfClusters      int       `json:"number_of_clusters" yaml:"number_of_clusters"`
	ClusterPointers       []int     `json:"cluster_pointers" yaml:"cluster_pointers"`
	Is3D                  bool      `json:"is_3d" yaml:"is_3d"`
	IsForecast            bool      `json:"is_forecast" yaml:"is_forecast"`
	IsForward             bool      `json:"is_forward" yaml:"is_forward"`
}

// ParseHeader reads the header of a ROTRAJ file from its lines. It returns the header
// and the index of the line where the header ends (the first "TRAJECTORY NUMBER" line),
// which is len(lines) if the file contains no trajectories. filename is only used in errors.
// The header is validated before returning, so any missing or inconsistent field
// results in a *FormatError.
func ParseHeader(filename string, lines []string) (*Header, int, error) {
	H := new(Header)
	set := make(map[string]bool)
	offset := len(lines)
	fail := func(i int, format string, a ...any) (*Header, int, error) {
		return nil, 0, newFormatError(filename, i, "ParseHeader", format, a...)
	}
	var err error
	var v []int
reading:
	for i := 0; i < len(lines); i++ {
		line := strings.ToLower(strings.TrimRight(lines[i], "\r\n"))
		field := ""
		switch {
		case strings.Contains(line, fTrajNumber):
			offset = i
			break reading
		case strings.Contains(line, fTrajBaseTime):
			field = fTrajBaseTime
			H.TrajectoryBaseTime, err = parseTimestamp(line)
		case strings.Contains(line, fDataBaseTime):
			field = fDataBaseTime
			H.DataBaseTime, err = parseTimestamp(line)
		case strings.Contains(line, fInterval):
			field = fInterval
			v = parseInts(line)
			if len(v) != 2 {
				return fail(i, "unexpected number of values in data interval: %d", len(v))
			}
			H.DataIntervalHours, H.DataIntervalTimesteps = v[0], v[1]
		case strings.Contains(line, fTotal):
			field = fTotal
			H.TotalTrajectories, err = parseScalar(line)
		case strings.Contains(line, fNAttr):
			field = fNAttr
			H.NumberOfAttributes, err = parseScalar(line)
		case strings.Contains(line, fAttrTypes):
			//the values are in the next line
			field = fAttrTypes
			i++
			if i >= len(lines) {
				return fail(i-1, "%s: values line missing", fAttrTypes)
			}
			H.AttributeTypes = parseInts(lines[i])
		case strings.Contains(line, fNClust):
			field = fNClust
			H.NumberOfClusters, err = parseScalar(line)
		case strings.Contains(line, fPointers):
			field = fPointers
			if !set[fNClust] {
				return fail(i, "%s found before %s", fPointers, fNClust)
			}
			//The pointers can span several lines.
			H.ClusterPointers = make([]int, 0, H.NumberOfClusters)
			for len(H.ClusterPointers) < H.NumberOfClusters {
				i++
				if i >= len(lines) {
					return fail(i-1, "%s: expected %d values, found %d", fPointers, H.NumberOfClusters, len(H.ClusterPointers))
				}
				H.ClusterPointers = append(H.ClusterPointers, parseInts(lines[i])...)
			}
			if len(H.ClusterPointers) != H.NumberOfClusters {
				return fail(i, "%s: expected %d values, found %d", fPointers, H.NumberOfClusters, len(H.ClusterPointers))
			}
		case strings.Contains(line, f3D):
			field = f3D
			H.Is3D = parseBool(line)
		case strings.Contains(line, fForecast):
			field = fForecast
			H.IsForecast = parseBool(line)
		case strings.Contains(line, fForward):
			field = fForward
			H.IsForward = parseBool(line)
		default:
			continue
		}
		if err != nil {
			return fail(i, "%s: %v", field, err)
		}
		set[field] = true
	}
	if err := H.validate(set); err != nil {
		err.filename = filename
		err.Decorate("ParseHeader")
		return nil, 0, err
	}
	return H, offset, nil
}

//validate checks that all the required fields are present and that the
//counts agree with each other. It also resolves the attribute names.
func (H *Header) validate(set map[string]bool) *FormatError {
	for _, f := range []string{fTrajBaseTime, fDataBaseTime, fInterval, fTotal, fNAttr, fNClust, fPointers} {
		if !set[f] {
			return newFormatError("", -1, "validate", "required field %q missing", f)
		}
	}
	if H.NumberOfAttributes > 0 && !set[fAttrTypes] {
		return newFormatError("", -1, "validate", "required field %q missing", fAttrTypes)
	}
	return H.checkCounts()
}

// Validate checks that the counts of the header agree with each other and resolves
// the attribute names. It is already called by ParseHeader, and is meant for
// headers built by other means.
func (H *Header) Validate() error {
	if err := H.checkCounts(); err != nil {
		err.Decorate("Validate")
		return err
	}
	return nil
}

func (H *Header) checkCounts() *FormatError {
	if H.TotalTrajectories < 1 {
		return newFormatError("", -1, "validate", "%s must be at least 1", fTotal)
	}
	if H.NumberOfClusters < 1 {
		return newFormatError("", -1, "validate", "%s must be at least 1", fNClust)
	}
	if len(H.AttributeTypes) != H.NumberOfAttributes {
		return newFormatError("", -1, "validate", "%d attribute types given, but %d declared", len(H.AttributeTypes), H.NumberOfAttributes)
	}
	if H.TotalTrajectories%H.NumberOfClusters != 0 {
		return newFormatError("", -1, "validate", "%d trajectories can't be evenly divided among %d clusters", H.TotalTrajectories, H.NumberOfClusters)
	}
	if len(H.ClusterPointers) != H.NumberOfClusters {
		return newFormatError("", -1, "validate", "%d cluster pointers given, but %d declared", len(H.ClusterPointers), H.NumberOfClusters)
	}
	for _, p := range H.ClusterPointers {
		if p < 1 {
			return newFormatError("", -1, "validate", "cluster pointer %d is not a valid cluster id", p)
		}
	}
	H.AttributeNames = make([]string, 0, len(H.AttributeTypes))
	for _, c := range H.AttributeTypes {
		n, ok := AttributeName(c)
		if !ok {
			return newFormatError("", -1, "validate", "unknown attribute code %d", c)
		}
		H.AttributeNames = append(H.AttributeNames, n)
	}
	return nil
}

// PerCluster returns the number of trajectories in each cluster.
func (H *Header) PerCluster() int {
	return H.TotalTrajectories / H.NumberOfClusters
}

// BaseDate returns the midnight of the day of the trajectory base time. The release
// times of a file are counted from it.
func (H *Header) BaseDate() time.Time {
	t := H.TrajectoryBaseTime
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Columns returns the names of the value columns of the trajectories described by H.
func (H *Header) Columns() []string {
	return ValueColumns(H.AttributeNames)
}

// SelectAttributes returns the names of the attributes containing substr, in file order.
// An empty substr selects all the attributes. If no attribute matches, a
// *ValidationError naming substr is returned.
func (H *Header) SelectAttributes(substr string) ([]string, error) {
	if substr == "" {
		return append([]string(nil), H.AttributeNames...), nil
	}
	ret := matchAttributes(H.AttributeNames, substr)
	if len(ret) == 0 {
		return nil, NewValidationError(substr, "SelectAttributes", "attribute not found in %v", H.AttributeNames)
	}
	return ret, nil
}

func parseTimestamp(line string) (time.Time, error) {
	s := timestampRE.FindString(line)
	if s == "" {
		return time.Time{}, fmt.Errorf("no 10-digit timestamp in %q", strings.TrimSpace(line))
	}
	return time.Parse(TimestampLayout, s)
}

//parseInts returns all the unsigned integers in the line, in order.
func parseInts(line string) []int {
	m := numericRE.FindAllString(line, -1)
	ret := make([]int, 0, len(m))
	for _, v := range m {
		n, err := strconv.Atoi(v)
		if err != nil {
			//only possible on overflow, which no valid file has.
			continue
		}
		ret = append(ret, n)
	}
	return ret
}

func parseScalar(line string) (int, error) {
	v := parseInts(line)
	if len(v) != 1 {
		return 0, fmt.Errorf("expected one value, found %d", len(v))
	}
	return v[0], nil
}

//parseBool takes the last colon-separated token of the line. Only "t" is true.
func parseBool(line string) bool {
	f := strings.Split(line, ":")
	return strings.TrimSpace(strings.ToLower(f[len(f)-1])) == "t"
}
