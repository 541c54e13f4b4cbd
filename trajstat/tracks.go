package trajstat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rmera/rotraj"
)

// DefaultCeiling is the pressure (hPa) below which a parcel is considered to have left the surface.
const DefaultCeiling = 980.0

// DefaultEvery is the default interval between the release times drawn on a map.
const DefaultEvery = 15 * time.Minute

// Track is the part of one trajectory that is drawn on a map.
type Track struct {
	Cluster int       `json:"cluster"`
	Release time.Time `json:"release"`
	Steps   []int     `json:"steps"`
	Lat     []float64 `json:"lat"`
	Lon     []float64 `json:"lon"`
}

// Len returns the number of points in the track.
func (T *Track) Len() int {
	return len(T.Lat)
}

// NormalizeLongitude returns lon in the [-180, 180] range.
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	l := math.Mod(lon+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}

// Segment returns the first and last (inclusive) rows of the part of tr that goes from
// the first row with a positive pressure to the first row with a positive pressure
// lower than ceiling, or to the end of the trajectory if there is no such row.
// ok is false if no row has a positive pressure.
func Segment(tr *rotraj.Trajectory, pcol int, ceiling float64) (first, last int, ok bool) {
	first = -1
	for i := 0; i < tr.Len(); i++ {
		if tr.Row(i)[pcol] > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return -1, -1, false
	}
	last = tr.Len() - 1
	for i := first; i < tr.Len(); i++ {
		if p := tr.Row(i)[pcol]; p > 0 && p < ceiling {
			last = i
			break
		}
	}
	return first, last, true
}

// Tracks returns the map tracks of T for the release times base, base+every, ...
// There are floor(len(T.Releases())/minutes) release times, where minutes is every, in minutes.
// For each release time, every trajectory released then gives one track (see Segment),
// in ascending order of cluster. Release times without trajectories are skipped.
func Tracks(T *rotraj.Table, base time.Time, every time.Duration, ceiling float64) ([]*Track, error) {
	if every < time.Minute {
		return nil, rotraj.NewValidationError(every.String(), "trajstat.Tracks", "interval between release times must be at least one minute")
	}
	pcol, err := T.ColumnIndex(rotraj.ColPressure)
	if err != nil {
		return nil, decorate(err, "Tracks")
	}
	latcol, err := T.ColumnIndex(rotraj.ColLat)
	if err != nil {
		return nil, decorate(err, "Tracks")
	}
	loncol, err := T.ColumnIndex(rotraj.ColLon)
	if err != nil {
		return nil, decorate(err, "Tracks")
	}
	periods := len(T.Releases()) / int(every/time.Minute)
	clusters := T.Clusters()
	var ret []*Track
	for p := 0; p < periods; p++ {
		release := base.Add(time.Duration(p) * every)
		for _, c := range clusters {
			tr := T.Lookup(c, release)
			if tr == nil {
				continue
			}
			first, last, ok := Segment(tr, pcol, ceiling)
			if !ok {
				continue
			}
			t := &Track{Cluster: c, Release: release}
			for i := first; i <= last; i++ {
				row := tr.Row(i)
				t.Steps = append(t.Steps, tr.Steps[i])
				t.Lat = append(t.Lat, row[latcol])
				t.Lon = append(t.Lon, NormalizeLongitude(row[loncol]))
			}
			ret = append(ret, t)
		}
	}
	return ret, nil
}

// ShipPoint is one position of a ship track.
type ShipPoint struct {
	Time string  `json:"time"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// DefaultShipEvery is the default number of ship track rows per point kept.
const DefaultShipEvery = 60

// ReadShipTrack reads a CSV with a header containing the columns timestamp, latitude and longitude
// (in any case, and in any order), and returns one of each every rows, starting with the first.
// The timestamps are kept as strings.
func ReadShipTrack(r io.Reader, every int) ([]ShipPoint, error) {
	if every < 1 {
		every = 1
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("trajstat.ReadShipTrack: can't read header: %w", err)
	}
	idx := map[string]int{"timestamp": -1, "latitude": -1, "longitude": -1}
	for i, h := range head {
		if _, ok := idx[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[strings.ToLower(strings.TrimSpace(h))] = i
		}
	}
	for k, v := range idx {
		if v < 0 {
			return nil, rotraj.NewValidationError(k, "trajstat.ReadShipTrack", "column missing from ship track header %v", head)
		}
	}
	var ret []ShipPoint
	for n := 0; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trajstat.ReadShipTrack: %w", err)
		}
		if n%every != 0 {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["latitude"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("trajstat.ReadShipTrack: row %d: %w", n+1, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["longitude"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("trajstat.ReadShipTrack: row %d: %w", n+1, err)
		}
		ret = append(ret, ShipPoint{Time: rec[idx["timestamp"]], Lat: lat, Lon: NormalizeLongitude(lon)})
	}
	return ret, nil
}
