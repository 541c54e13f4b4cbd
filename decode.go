/*
 * decode.go, part of rotraj
 *
 * Copyright 2022 Raul Mera Adasme <rmera_changeforat_chem-dot-helsinki-dot-fi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License  as published by
 * the Free Software Foundation; either version 2.1 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 */

package rotraj

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Block is the table of one trajectory, as found in the file.
type Block struct {
	Number    int        //the trajectory number declared in the file
	Intervals int        //the number of intervals declared in the file
	Steps     []int      //the STEP column
	Values    *mat.Dense //one row per step. The columns are HOURS, LAT, LON, P (MB) and the attributes.
}

// Len returns the number of rows in the block.
func (B *Block) Len() int {
	return len(B.Steps)
}

// Decoder segments the data part of a ROTRAJ file into one Block per trajectory.
// Each block is a "TRAJECTORY NUMBER n COMPRISES m INTERVALS" line, a line with the
// column names, and m+1 data rows. Blank lines between blocks are separators.
type Decoder struct {
	filename  string
	lines     []string
	pos       int //next line to read, relative to the whole file
	ncols     int //value columns, i.e. without STEP
	total     int
	read      int
	timesteps int //fixed number of intervals per trajectory, or 0 to use the declared ones.
	readable  bool
}

// NewDecoder returns a decoder for the lines of a file, starting at offset (as returned by
// ParseHeader). If timesteps is greater than zero, every block is assumed to comprise that
// many intervals, and the first block's declared count is checked against it. Otherwise
// the count declared by each block is used.
func NewDecoder(filename string, lines []string, offset int, H *Header, timesteps int) *Decoder {
	D := new(Decoder)
	D.filename = filename
	D.lines = lines
	D.pos = offset
	D.ncols = len(fixedColumns) + H.NumberOfAttributes
	D.total = H.TotalTrajectories
	D.timesteps = timesteps
	D.readable = true
	return D
}

// Readable returns true if the object is ready to be read from,
// false otherwise. It doesnt guarantee that there is something
// to read.
func (D *Decoder) Readable() bool {
	return D.readable
}

// Read returns the number of blocks read so far.
func (D *Decoder) Read() int {
	return D.read
}

//skipBlank advances D.pos past blank lines. Returns false if the input is exhausted.
func (D *Decoder) skipBlank() bool {
	for D.pos < len(D.lines) && strings.TrimSpace(D.lines[D.pos]) == "" {
		D.pos++
	}
	return D.pos < len(D.lines)
}

// Next reads the next trajectory block. When the declared number of trajectories
// has been read, or the input is exhausted, it returns a LastFrameError.
// A final block that is cut short by the end of the input is returned with the rows
// available, and the following call returns a LastFrameError.
func (D *Decoder) Next() (*Block, error) {
	if !D.readable || D.read >= D.total || !D.skipBlank() {
		D.readable = false
		return nil, newlastFrameError(D.filename, "Next")
	}
	marker := D.pos
	fields := strings.Fields(strings.ToLower(D.lines[marker]))
	if !strings.Contains(strings.Join(fields, " "), fTrajNumber) {
		D.readable = false
		return nil, newFormatError(D.filename, marker, "Next", "expected a %q line", fTrajNumber)
	}
	vals := parseInts(D.lines[marker])
	if len(vals) != 2 {
		D.readable = false
		return nil, newFormatError(D.filename, marker, "Next", "expected trajectory number and interval count, found %d values", len(vals))
	}
	B := &Block{Number: vals[0], Intervals: vals[1]}
	nts := B.Intervals
	if D.timesteps > 0 {
		if D.read == 0 && B.Intervals != D.timesteps {
			D.readable = false
			return nil, newFormatError(D.filename, marker, "Next", "trajectory comprises %d intervals, but %d were expected", B.Intervals, D.timesteps)
		}
		nts = D.timesteps
	}
	D.pos++
	if D.pos >= len(D.lines) {
		D.readable = false
		return nil, newlastFrameError(D.filename, "Next")
	}
	colnames := strings.Fields(strings.ToLower(D.lines[D.pos]))
	if len(colnames) == 0 || colnames[0] != "step" {
		D.readable = false
		return nil, newFormatError(D.filename, D.pos, "Next", "expected the column names line")
	}
	D.pos++
	nrows := nts + 1
	B.Steps = make([]int, 0, nrows)
	data := make([]float64, 0, nrows*D.ncols)
	for len(B.Steps) < nrows {
		if D.pos >= len(D.lines) || strings.TrimSpace(D.lines[D.pos]) == "" {
			//short block, which we tolerate, but it ends the reading.
			D.readable = false
			break
		}
		f := strings.Fields(D.lines[D.pos])
		if len(f) != D.ncols+1 {
			D.readable = false
			return nil, newFormatError(D.filename, D.pos, "Next", "%d columns found, but %d expected", len(f), D.ncols+1)
		}
		step, err := strconv.Atoi(f[0])
		if err != nil {
			D.readable = false
			return nil, &FormatError{message: "can't read step", filename: D.filename, line: D.pos, deco: []string{"strconv.Atoi", "Next"}, err: err}
		}
		for _, s := range f[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				D.readable = false
				return nil, &FormatError{message: "can't read value", filename: D.filename, line: D.pos, deco: []string{"strconv.ParseFloat", "Next"}, err: err}
			}
			data = append(data, v)
		}
		B.Steps = append(B.Steps, step)
		D.pos++
	}
	if len(B.Steps) == 0 {
		return nil, newlastFrameError(D.filename, "Next")
	}
	B.Values = mat.NewDense(len(B.Steps), D.ncols, data)
	D.read++
	return B, nil
}

// DecodeAll reads all the blocks available, up to the declared number of trajectories.
func (D *Decoder) DecodeAll() ([]*Block, error) {
	ret := make([]*Block, 0, D.total)
	for {
		B, err := D.Next()
		if err != nil {
			if IsLastFrame(err) {
				break //We processed all blocks, not a real error.
			}
			return nil, errDecorate(err, "DecodeAll")
		}
		ret = append(ret, B)
	}
	return ret, nil
}
