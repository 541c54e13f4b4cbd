package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmera/rotraj"
	"github.com/rmera/rotraj/ncdf"
	"github.com/rmera/rotraj/pivot"
	"github.com/rmera/rotraj/stf"
	"github.com/rmera/rotraj/store"
	"github.com/rmera/rotraj/thermo"
	"github.com/rmera/rotraj/trajstat"
)

type fileReport struct {
	Path         string         `json:"path"`
	Header       *rotraj.Header `json:"header"`
	Frequency    string         `json:"frequency"`
	Trajectories int            `json:"trajectories"`
	Rows         int            `json:"rows"`
	Columns      []string       `json:"columns"`
	PerCluster   map[int]int    `json:"trajectories_per_cluster"`
}

func report(d *rotraj.Dataset) (*fileReport, error) {
	f, err := rotraj.InferFrequency(d.Header.PerCluster())
	if err != nil {
		return nil, err
	}
	return &fileReport{
		Path:         d.Path,
		Header:       d.Header,
		Frequency:    f.String(),
		Trajectories: d.Table.NTraj(),
		Rows:         d.Table.Len(),
		Columns:      d.Table.Columns(),
		PerCluster:   d.Table.CountByCluster(),
	}, nil
}

func (r *fileReport) line() string {
	return fmt.Sprintf("%s  %s  %d trajectories  %d rows  every %s  %d clusters",
		r.Path, r.Header.TrajectoryBaseTime.Format(rotraj.TimestampLayout), r.Trajectories, r.Rows, r.Frequency, r.Header.NumberOfClusters)
}

func (a *app) readCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Print the header and a summary of a ROTRAJ (or stf) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := formatExt(format); err != nil {
				return err
			}
			d, err := a.readOne(args[0])
			if err != nil {
				return err
			}
			r, err := report(d)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), format, r, func(w io.Writer) error {
				H := r.Header
				fmt.Fprintln(w, r.line())
				fmt.Fprintf(w, "data base time: %s, interval: %d h / %d steps\n",
					H.DataBaseTime.Format(rotraj.TimestampLayout), H.DataIntervalHours, H.DataIntervalTimesteps)
				fmt.Fprintf(w, "3D: %t, forecast: %t, forward: %t\n", H.Is3D, H.IsForecast, H.IsForward)
				fmt.Fprintf(w, "attributes: %s\n", strings.Join(H.AttributeNames, ", "))
				for _, c := range d.Table.Clusters() {
					fmt.Fprintf(w, "cluster %d: %d trajectories\n", c, r.PerCluster[c])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}

func (a *app) rangeCmd() *cobra.Command {
	var start, end, format string
	cmd := &cobra.Command{
		Use:   "range <dir>",
		Short: "Summarize the ROTRAJ files of a range of days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := formatExt(format); err != nil {
				return err
			}
			ds, err := a.load(args[0], start, end)
			if err != nil {
				return err
			}
			reports := make([]*fileReport, len(ds))
			for i, d := range ds {
				if reports[i], err = report(d); err != nil {
					return err
				}
			}
			return encode(cmd.OutOrStdout(), format, reports, func(w io.Writer) error {
				for _, r := range reports {
					fmt.Fprintln(w, r.line())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD (default: only the first day)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.MarkFlagRequired("start")
	return cmd
}

type hovmollerOut struct {
	Attr   string        `json:"attr"`
	Matrix *pivot.Matrix `json:"matrix"`
}

func (a *app) hovmollerCmd() *cobra.Command {
	var start, end, attr, out, format string
	var step int
	cmd := &cobra.Command{
		Use:   "hovmoller <path>",
		Short: "Mean attributes by pressure level and release time",
		Long: `Builds, for each selected attribute, a table with one row per pressure level
(one per cluster) and one column per release time, with the mean of the attribute.
<path> is a file, or a directory if --start is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := formatExt(format)
			if err != nil {
				return err
			}
			dir, err := a.outDir(out)
			if err != nil {
				return err
			}
			ds, err := a.load(args[0], start, end)
			if err != nil {
				return err
			}
			attrs, err := ds[0].Header.SelectAttributes(attr)
			if err != nil {
				return err
			}
			T, err := merge(ds)
			if err != nil {
				return err
			}
			O := pivot.DefaultOptions()
			O.Levels(a.cfg.PressureLevels)
			if cmd.Flags().Changed("step") {
				O.Step(step)
			}
			M, err := pivot.HovmollerAll(T, attrs, O)
			if err != nil {
				return err
			}
			res := make([]hovmollerOut, len(M))
			for i := range M {
				res[i] = hovmollerOut{Attr: attrs[i], Matrix: M[i]}
			}
			s, useStep := O.Step()
			name := hovmollerName(dateSpan(ds), attr, s, useStep, ext)
			path, err := writeOutput(dir, name, format, res, func(w io.Writer) error {
				for _, r := range res {
					fmt.Fprintf(w, "%s\n%s\n\n", r.Attr, r.Matrix)
				}
				return nil
			})
			if err != nil {
				return err
			}
			a.log.Info("hovmoller written", "path", path, "attributes", len(res))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD (needed if <path> is a directory)")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&attr, "attr", "", "Only the attributes whose names contain this")
	cmd.Flags().IntVar(&step, "step", 0, "Only this step")
	cmd.Flags().StringVar(&out, "out", "", "Output directory")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: text, json or yaml")
	return cmd
}

type summaryOut struct {
	Series *trajstat.Series `json:"series"`
	ACF    []float64        `json:"acf,omitempty"`
}

func hasNaN(f []float64) bool {
	for _, v := range f {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func (a *app) summaryCmd() *cobra.Command {
	var start, end, attr, out, format string
	var acf bool
	cmd := &cobra.Command{
		Use:   "summary <path>",
		Short: "Mean attributes by release time",
		Long: `Averages each selected attribute over all the rows with the same release time,
across clusters, steps and files. <path> is a file, or a directory if --start is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := formatExt(format)
			if err != nil {
				return err
			}
			dir, err := a.outDir(out)
			if err != nil {
				return err
			}
			ds, err := a.load(args[0], start, end)
			if err != nil {
				return err
			}
			attrs, err := ds[0].Header.SelectAttributes(attr)
			if err != nil {
				return err
			}
			T, err := merge(ds)
			if err != nil {
				return err
			}
			S, err := trajstat.Summarize(T, attrs)
			if err != nil {
				return err
			}
			res := make([]summaryOut, len(S))
			for i, s := range S {
				res[i].Series = s
				if !acf {
					continue
				}
				if hasNaN(s.Mean) {
					a.log.Warn("no autocorrelation for a series with missing values", "attr", s.Attr)
					continue
				}
				if res[i].ACF, err = trajstat.Autocorrelation(s.Mean); err != nil {
					a.log.Warn("no autocorrelation", "attr", s.Attr, "err", err)
				}
			}
			path, err := writeOutput(dir, summaryName(dateSpan(ds), attr, ext), format, res, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprint(tw, "release")
				for _, s := range S {
					fmt.Fprintf(tw, "\t%s", s.Attr)
				}
				fmt.Fprintln(tw)
				for j, t := range S[0].Releases {
					fmt.Fprint(tw, t.Format(time.DateTime))
					for _, s := range S {
						fmt.Fprintf(tw, "\t%.4f", s.Mean[j])
					}
					fmt.Fprintln(tw)
				}
				return tw.Flush()
			})
			if err != nil {
				return err
			}
			a.log.Info("summary written", "path", path, "attributes", len(S))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD (needed if <path> is a directory)")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&attr, "attr", "", "Only the attributes whose names contain this")
	cmd.Flags().StringVar(&out, "out", "", "Output directory")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&acf, "acf", false, "Add the autocorrelation of each mean series")
	return cmd
}

type tracksOut struct {
	Base    time.Time            `json:"base"`
	Every   string               `json:"every"`
	Ceiling float64              `json:"ceiling"`
	Tracks  []*trajstat.Track    `json:"tracks"`
	Ship    []trajstat.ShipPoint `json:"ship,omitempty"`
}

func (a *app) tracksCmd() *cobra.Command {
	var every, ship string
	var ceiling float64
	var shipEvery int
	cmd := &cobra.Command{
		Use:   "tracks <file>",
		Short: "Print, as JSON, the parts of the trajectories drawn on a map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if every == "" {
				every = a.cfg.TrackInterval
			}
			interval, err := time.ParseDuration(every)
			if err != nil {
				return rotraj.NewValidationError(every, "tracks", "not a duration")
			}
			if !cmd.Flags().Changed("ceiling") {
				ceiling = a.cfg.SegmentCeiling
			}
			d, err := a.readOne(args[0])
			if err != nil {
				return err
			}
			tracks, err := trajstat.Tracks(d.Table, d.Header.BaseDate(), interval, ceiling)
			if err != nil {
				return err
			}
			res := tracksOut{Base: d.Header.BaseDate(), Every: interval.String(), Ceiling: ceiling, Tracks: tracks}
			if ship != "" {
				f, err := os.Open(ship)
				if err != nil {
					return rotraj.NewValidationError(ship, "tracks", "can't open ship track: %v", err)
				}
				defer f.Close()
				if res.Ship, err = trajstat.ReadShipTrack(f, shipEvery); err != nil {
					return err
				}
			}
			a.log.Debug("tracks", "file", args[0], "tracks", len(tracks), "ship points", len(res.Ship))
			return encode(cmd.OutOrStdout(), "json", res, nil)
		},
	}
	cmd.Flags().StringVar(&every, "every", "", "Interval between the release times drawn (default from config, 15m)")
	cmd.Flags().Float64Var(&ceiling, "ceiling", trajstat.DefaultCeiling, "Pressure (hPa) that ends each track")
	cmd.Flags().StringVar(&ship, "ship", "", "CSV file with a ship track")
	cmd.Flags().IntVar(&shipEvery, "ship-every", trajstat.DefaultShipEvery, "Keep one ship track row of each this many")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a ROTRAJ file to stf, NetCDF or SQLite",
		Long: `Writes the decoded table of <file> to the file given with --to. The format is
chosen by its extension: .stf, .stfz, .stfl, .stfr or .stf4 for stf (compressed with
zstd, gzip, lzw, flate and lz4), .nc for NetCDF and .db for a SQLite store, to which
the file is added. Without --to, an stf file is written to the output directory, with
the compression set in the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				dir, err := a.outDir("")
				if err != nil {
					return err
				}
				ext, err := a.cfg.StfExtension()
				if err != nil {
					return err
				}
				to = filepath.Join(dir, filepath.Base(args[0])+"."+ext)
			}
			if err := checkOutDir(filepath.Dir(to)); err != nil {
				return err
			}
			d, err := a.readOne(args[0])
			if err != nil {
				return err
			}
			ext := filepath.Ext(to)
			switch {
			case strings.HasPrefix(ext, ".stf"):
				err = stf.WriteTable(to, d.Table, d.Header)
			case ext == ".nc":
				err = ncdf.Export(to, d.Table, d.Header)
			case ext == ".db":
				err = a.insert(to, d)
			default:
				err = rotraj.NewValidationError(to, "export", "unknown output format %q", ext)
			}
			if err != nil {
				return err
			}
			a.log.Info("exported", "from", args[0], "to", to, "trajectories", d.Table.NTraj())
			fmt.Fprintln(cmd.OutOrStdout(), to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output file")
	return cmd
}

func (a *app) insert(db string, d *rotraj.Dataset) error {
	s, err := store.Open(db)
	if err != nil {
		return err
	}
	defer s.Close()
	abs, err := filepath.Abs(d.Path)
	if err != nil {
		return err
	}
	id, err := s.Insert(abs, d.Table, d.Header)
	if err != nil {
		return err
	}
	a.log.Debug("file stored", "db", db, "id", id)
	return nil
}

func (a *app) catalogCmd() *cobra.Command {
	var column, format string
	cmd := &cobra.Command{
		Use:   "catalog <db>",
		Short: "List the files in a SQLite store, or the mean of a column by release time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := formatExt(format); err != nil {
				return err
			}
			if _, err := os.Stat(args[0]); err != nil {
				return rotraj.NewValidationError(args[0], "catalog", "store does not exist")
			}
			s, err := store.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			w := cmd.OutOrStdout()
			if column == "" {
				files, err := s.Files()
				if err != nil {
					return err
				}
				return encode(w, format, files, func(w io.Writer) error {
					for _, f := range files {
						fmt.Fprintf(w, "%d  %s  %s  %d trajectories  %d rows\n", f.ID, f.Path, f.BaseTime.Format(rotraj.TimestampLayout), f.Trajectories, f.Rows)
					}
					return nil
				})
			}
			means, err := s.MeanByRelease(column)
			if err != nil {
				return err
			}
			return encode(w, format, means, func(w io.Writer) error {
				for _, m := range means {
					fmt.Fprintf(w, "%s  %.4f  %d\n", m.Release.Format(time.DateTime), m.Mean, m.Count)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "Column to average by release time")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}

func (a *app) equpotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equpot <T> <q> <p>",
		Short: "Equivalent potential temperature (K) from T (K), specific humidity (kg/kg) and pressure (hPa)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v [3]float64
			for i, s := range args {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return rotraj.NewValidationError(s, "equpot", "not a number")
				}
				v[i] = f
			}
			theta, err := thermo.EquPot(v[0], v[1], v[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", theta)
			return nil
		},
	}
}
