/*
 * files.go, part of rotraj.
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
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DateLayout is the layout of the dates given to ReadRange callers, ISO 8601.
const DateLayout = time.DateOnly

// FilePrefix is the prefix of the ROTRAJ files searched by ReadRange.
const FilePrefix = "rtraj"

// Options contains the options for ReadFile and ReadRange.
type Options struct {
	timesteps int
	logger    *slog.Logger
}

// DefaultOptions returns options that take the number of intervals of each trajectory
// from the file, and discard log messages.
func DefaultOptions() *Options {
	O := new(Options)
	O.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return O
}

// Timesteps returns the fixed number of intervals per trajectory (0 means the
// count declared by each trajectory is used) and sets it to a new value, if given.
func (O *Options) Timesteps(n ...int) int {
	if len(n) > 0 && n[0] >= 0 {
		O.timesteps = n[0]
	}
	return O.timesteps
}

// Logger returns the logger used and sets it to a new one, if given and not nil.
func (O *Options) Logger(l ...*slog.Logger) *slog.Logger {
	if len(l) > 0 && l[0] != nil {
		O.logger = l[0]
	}
	return O.logger
}

func getOptions(o []*Options) *Options {
	if len(o) > 0 && o[0] != nil {
		return o[0]
	}
	return DefaultOptions()
}

// Dataset is the content of one ROTRAJ file.
type Dataset struct {
	Path   string
	Table  *Table
	Header *Header
}

// ReadLines reads all the lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var ret []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		ret = append(ret, s.Text())
	}
	return ret, s.Err()
}

// Decode parses the lines of a whole ROTRAJ file. The header is parsed and validated
// before any block is decoded, so a corrupt header fails the whole read.
func Decode(filename string, lines []string, options ...*Options) (*Table, *Header, error) {
	O := getOptions(options)
	H, offset, err := ParseHeader(filename, lines)
	if err != nil {
		return nil, nil, errDecorate(err, "Decode")
	}
	D := NewDecoder(filename, lines, offset, H, O.timesteps)
	blocks, err := D.DecodeAll()
	if err != nil {
		return nil, nil, errDecorate(err, "Decode")
	}
	if len(blocks) < H.TotalTrajectories {
		O.logger.Debug("fewer blocks than declared trajectories", "file", filename, "blocks", len(blocks), "declared", H.TotalTrajectories)
	}
	T, err := BuildTable(blocks, H, nil)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.filename = filename
		}
		return nil, nil, errDecorate(err, "Decode")
	}
	return T, H, nil
}

// ReadFile reads a ROTRAJ file and returns its indexed table and its header.
// A path that doesn't exist gives a *ValidationError.
func ReadFile(path string, options ...*Options) (*Table, *Header, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, NewValidationError(path, "ReadFile", "file does not exist")
		}
		return nil, nil, err
	}
	defer f.Close()
	lines, err := ReadLines(f)
	if err != nil {
		return nil, nil, &FormatError{message: "can't read file", filename: path, line: -1, deco: []string{"ReadFile"}, err: err}
	}
	T, H, err := Decode(path, lines, options...)
	return T, H, errDecorate(err, "ReadFile")
}

// DateRange returns the days from start to end, both included. A zero end means only start.
// Times of the day are dropped.
func DateRange(start, end time.Time) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if end.IsZero() {
		return []time.Time{start}
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, start.Location())
	var ret []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		ret = append(ret, d)
	}
	return ret
}

// DayPattern returns the pattern matched by the names of the files for day d.
func DayPattern(d time.Time) string {
	return FilePrefix + "*" + d.Format("20060102") + "00"
}

// FindFiles returns the paths of the files in dir whose names match the pattern of each
// day from start to end (see DateRange), in date order, and, for the same day, in
// lexical order. Days without files are skipped.
func FindFiles(dir string, start, end time.Time) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewValidationError(dir, "FindFiles", "directory does not exist")
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, NewValidationError(dir, "FindFiles", "not a directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, day := range DateRange(start, end) {
		pattern := DayPattern(day)
		var matched []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ok, _ := filepath.Match(pattern, e.Name()); ok {
				matched = append(matched, e.Name())
			}
		}
		sort.Strings(matched)
		for _, m := range matched {
			ret = append(ret, filepath.Join(dir, m))
		}
	}
	return ret, nil
}

// ReadRange reads the ROTRAJ files in dir for every day from start to end, both included
// (a zero end means only start). Days without a file are skipped without error.
// The datasets are returned in date order.
func ReadRange(dir string, start, end time.Time, options ...*Options) ([]*Dataset, error) {
	O := getOptions(options)
	if !end.IsZero() && end.Before(start) {
		return nil, NewValidationError(end.Format(DateLayout), "ReadRange", "end date before start date %s", start.Format(DateLayout))
	}
	paths, err := FindFiles(dir, start, end)
	if err != nil {
		return nil, errDecorate(err, "ReadRange")
	}
	O.logger.Debug("files found", "dir", dir, "start", start.Format(DateLayout), "files", len(paths))
	ret := make([]*Dataset, 0, len(paths))
	for _, p := range paths {
		T, H, err := ReadFile(p, O)
		if err != nil {
			return nil, errDecorate(err, "ReadRange")
		}
		ret = append(ret, &Dataset{Path: p, Table: T, Header: H})
	}
	return ret, nil
}

// ParseDate parses an ISO 8601 date (YYYY-MM-DD). An empty string gives the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError(s, "ParseDate", "not a YYYY-MM-DD date")
	}
	return t, nil
}
