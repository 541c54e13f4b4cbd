// Package synth writes synthetic ROTRAJ files with predictable values, for tests.
package synth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Spec describes a synthetic file.
type Spec struct {
	Base            time.Time //trajectory base time
	Trajectories    int
	Clusters        int
	Intervals       int
	Attributes      []int
	Pointers        []int //defaults to 1..Clusters
	PointersPerLine int   //defaults to 10
	Blocks          int   //blocks actually written, defaults to Trajectories
	CutLast         int   //if > 0, the last block written has only this many rows
}

// Values returns the row of the trajectory at position pos, step s: HOURS, LAT, LON, P
// and one value per attribute code.
// The first row of odd trajectories has P = 0, like a parcel not yet released.
func Values(attrs []int, pos, s int) []float64 {
	p := 990 - 5*float64(s)
	if s == 0 && pos%2 == 1 {
		p = 0
	}
	ret := []float64{
		-0.5 * float64(s),
		70 + 0.25*float64(pos) - 0.125*float64(s),
		170 + 2.5*float64(s),
		p,
	}
	for _, c := range attrs {
		var v float64
		switch c {
		case 1:
			v = 270 + float64(pos) - 0.5*float64(s)
		case 3:
			v = 0.5 + 0.25*float64(s)
		case 4:
			v = 0.002
		case 10:
			v = 100 * float64(s)
		default:
			v = float64(c)
		}
		ret = append(ret, v)
	}
	return ret
}

func (S Spec) pointers() []int {
	if S.Pointers != nil {
		return S.Pointers
	}
	ret := make([]int, S.Clusters)
	for i := range ret {
		ret[i] = i + 1
	}
	return ret
}

// Text returns the content of the file.
func (S Spec) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, " TRAJECTORY BASE TIME IS %s\n", S.Base.Format("2006010215"))
	fmt.Fprintf(&b, " DATA BASE TIME IS %s\n", S.Base.AddDate(0, 0, -1).Format("2006010215"))
	fmt.Fprintf(&b, " DATA INTERVAL IS    3 HOURS AND CONTAINS    6 TIMESTEPS\n")
	fmt.Fprintf(&b, " TOTAL NUMBER OF TRAJECTORIES IS %8d\n", S.Trajectories)
	fmt.Fprintf(&b, " NUMBER OF ATTRIBUTES IS %4d\n", len(S.Attributes))
	fmt.Fprintf(&b, " ATTRIBUTE TYPES = \n")
	for _, a := range S.Attributes {
		fmt.Fprintf(&b, " %3d", a)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, " NUMBER OF CLUSTERS IS %4d\n", S.Clusters)
	fmt.Fprintf(&b, " CLUSTER POINTERS = \n")
	per := S.PointersPerLine
	if per <= 0 {
		per = 10
	}
	for i, p := range S.pointers() {
		fmt.Fprintf(&b, " %5d", p)
		if (i+1)%per == 0 || i == len(S.pointers())-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString(" 3D TRAJECTORY ? (T OR F): T\n")
	b.WriteString(" FORECAST DATA ? (T OR F): F\n")
	b.WriteString(" FORWARD TRAJECTORY ? (T OR F): F\n")
	b.WriteString("\n")
	blocks := S.Blocks
	if blocks <= 0 {
		blocks = S.Trajectories
	}
	for pos := 0; pos < blocks; pos++ {
		fmt.Fprintf(&b, " TRAJECTORY NUMBER %5d COMPRISES %5d INTERVALS\n", pos+1, S.Intervals)
		b.WriteString("  STEP    HOURS      LAT      LON    P(MB)")
		for _, a := range S.Attributes {
			fmt.Fprintf(&b, "   ATTR%d", a)
		}
		b.WriteString("\n")
		rows := S.Intervals + 1
		if pos == blocks-1 && S.CutLast > 0 {
			rows = S.CutLast
		}
		for s := 0; s < rows; s++ {
			fmt.Fprintf(&b, " %5d", s)
			for _, v := range Values(S.Attributes, pos, s) {
				fmt.Fprintf(&b, " %10.4f", v)
			}
			b.WriteString("\n")
		}
		if pos < blocks-1 || S.CutLast == 0 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// Write writes the file in dir with the given name and returns its path.
func (S Spec) Write(dir, name string) (string, error) {
	p := filepath.Join(dir, name)
	return p, os.WriteFile(p, []byte(S.Text()), 0o644)
}

// Name returns a file name that matches the daily pattern for day d.
func Name(tag string, d time.Time) string {
	return "rtraj_" + tag + "_" + d.Format("20060102") + "00"
}
