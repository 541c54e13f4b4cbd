package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/stf"
)

const nameDateLayout = "20060102"

func (a *app) readOptions() *rotraj.Options {
	O := rotraj.DefaultOptions()
	O.Timesteps(a.cfg.Timesteps)
	O.Logger(a.log)
	return O
}

// readOne reads a ROTRAJ file or, if its extension starts with .stf, an stf export.
func (a *app) readOne(path string) (*rotraj.Dataset, error) {
	var T *rotraj.Table
	var H *rotraj.Header
	var err error
	if strings.HasPrefix(filepath.Ext(path), ".stf") {
		T, H, err = stf.ReadTable(path)
		if err == nil && H == nil {
			err = rotraj.NewValidationError(path, "readOne", "stf file without a ROTRAJ header")
		}
	} else {
		T, H, err = rotraj.ReadFile(path, a.readOptions())
	}
	if err != nil {
		return nil, err
	}
	a.log.Debug("file read", "path", path, "trajectories", T.NTraj(), "rows", T.Len())
	return &rotraj.Dataset{Path: path, Table: T, Header: H}, nil
}

// load reads path alone if it is a file. If it is a directory, the files for
// the days from start to end are read, and start is required.
func (a *app) load(path, start, end string) ([]*rotraj.Dataset, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rotraj.NewValidationError(path, "load", "path does not exist")
		}
		return nil, err
	}
	if !st.IsDir() {
		d, err := a.readOne(path)
		if err != nil {
			return nil, err
		}
		return []*rotraj.Dataset{d}, nil
	}
	if start == "" {
		return nil, rotraj.NewValidationError(path, "load", "a start date is needed to read a directory")
	}
	s, err := rotraj.ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := rotraj.ParseDate(end)
	if err != nil {
		return nil, err
	}
	ds, err := rotraj.ReadRange(path, s, e, a.readOptions())
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, rotraj.NewValidationError(path, "load", "no files from %s to %s", start, end)
	}
	a.log.Info("files read", "dir", path, "files", len(ds))
	return ds, nil
}

func merge(ds []*rotraj.Dataset) (*rotraj.Table, error) {
	tables := make([]*rotraj.Table, len(ds))
	for i, d := range ds {
		tables[i] = d.Table
	}
	return rotraj.Concat(tables...)
}

// dateSpan returns the base date of the first dataset and, if there are more, of the last one.
func dateSpan(ds []*rotraj.Dataset) []string {
	if len(ds) == 0 {
		return nil
	}
	first := ds[0].Header.BaseDate().Format(nameDateLayout)
	last := ds[len(ds)-1].Header.BaseDate().Format(nameDateLayout)
	if first == last {
		return []string{first}
	}
	return []string{first, last}
}

func attrSuffix(attr string) string {
	return strings.ReplaceAll(slug.Make(attr), "-", "_")
}

// hovmollerName returns <date1>[-<date2>]_hm[_<attr>][_T-<step>].<ext>
func hovmollerName(dates []string, attr string, step int, useStep bool, ext string) string {
	name := strings.Join(dates, "-") + "_hm"
	if attr != "" {
		name += "_" + attrSuffix(attr)
	}
	if useStep {
		name += "_T-" + strconv.Itoa(step)
	}
	return name + "." + ext
}

// summaryName returns <date1>[-<date2>]_<summary|attr>.<ext>
func summaryName(dates []string, attr string, ext string) string {
	suffix := "summary"
	if attr != "" {
		suffix = attrSuffix(attr)
	}
	return strings.Join(dates, "-") + "_" + suffix + "." + ext
}

// outDir returns the flag value or, if empty, the configured directory.
// A directory that doesn't exist, or is not a directory, is an error.
func (a *app) outDir(flag string) (string, error) {
	dir := flag
	if dir == "" {
		dir = a.cfg.OutputDir
	}
	return dir, checkOutDir(dir)
}

func checkOutDir(dir string) error {
	if dir == "" {
		return nil
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return rotraj.NewValidationError(dir, "checkOutDir", "path is not a directory")
	}
	return nil
}

func formatExt(format string) (string, error) {
	switch format {
	case "text":
		return "txt", nil
	case "json", "yaml":
		return format, nil
	}
	return "", rotraj.NewValidationError(format, "formatExt", "unknown format, use text, json or yaml")
}

// encode writes v to w in the given format. text is used for the text format.
// The yaml output goes through JSON, so the values keep their JSON form
// (for instance, NaN means are null).
func encode(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "text":
		return text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := formatExt(format)
	return err
}

// writeOutput encodes v into dir/name and returns the path of the file.
func writeOutput(dir, name, format string, v any, text func(io.Writer) error) (path string, err error) {
	path = filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err = encode(f, format, v, text); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
