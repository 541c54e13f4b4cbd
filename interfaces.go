/*
 * interfaces.go, part of rotraj.
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
	"errors"
	"fmt"
	"strings"
)

// Error is implemented by the errors of rotraj and its subpackages. Decorate appends
// the name of a function the error went through.
type Error interface {
	Error() string
	//Decorate adds the name of a function (and, optionally, extra info in the form "FunctionName: info") to the
	//error. Each call returns the resulting decoration slice. An empty string just returns the current value.
	Decorate(string) []string
}

// TrajError is the interface for errors in trajectory files.
type TrajError interface {
	Error
	Critical() bool
	FileName() string
	FileFormat() string
}

// LastFrameError has a useless function to distinguish the harmless errors (i.e. no more blocks to read) so they can be
// filtered in a typeswitch that looks for this interface.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination() //does nothing, just to separate this interface from other TrajError's
}

//errDecorate decorates err with the caller's name if err implements Error.
//Other errors are returned untouched.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}

// FormatError signals a structural problem in a ROTRAJ file: a header field that is missing,
// malformed or inconsistent with the rest of the header, or a data block that can't be decoded.
type FormatError struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	line     int    //0-based line index, or -1 if unknown
	deco     []string
	err      error
}

func newFormatError(filename string, line int, caller string, format string, a ...any) *FormatError {
	return &FormatError{message: fmt.Sprintf(format, a...), filename: filename, line: line, deco: []string{caller}}
}

func (E *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("ROTRAJ file")
	if E.filename != "" {
		b.WriteString(" " + E.filename)
	}
	if E.line >= 0 {
		fmt.Fprintf(&b, " line %d", E.line+1)
	}
	b.WriteString(": " + E.message)
	if E.err != nil {
		b.WriteString(": " + E.err.Error())
	}
	return b.String()
}

// Decorate adds new information to the error.
func (E *FormatError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func (E *FormatError) Unwrap() error { return E.err }

// FileName returns the file in which the problem was found.
func (E *FormatError) FileName() string { return E.filename }

// Line returns the 0-based line index where the problem was found, or -1.
func (E *FormatError) Line() int { return E.line }

func (E *FormatError) FileFormat() string { return "ROTRAJ" }

// Critical is always true, a malformed file can't be read.
func (E *FormatError) Critical() bool { return true }

// ValidationError signals a caller-supplied value that can't be used: a path that
// does not exist or is not a directory, a non-positive count, or an attribute name
// not present among the attributes of a file.
type ValidationError struct {
	message string
	name    string //the offending value
	deco    []string
}

// NewValidationError returns a ValidationError for the given offending value.
func NewValidationError(name, caller, format string, a ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, a...), name: name, deco: []string{caller}}
}

func (E *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q: %s", E.name, E.message)
}

// Decorate adds new information to the error.
func (E *ValidationError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// Name returns the value that failed validation.
func (E *ValidationError) Name() string { return E.name }

//lastFrameError implements LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

//lastFrameError does nothing
func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return "EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) FileFormat() string { return "ROTRAJ" }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}

// IsLastFrame returns true if err only signals that there is nothing left to read.
func IsLastFrame(err error) bool {
	var l LastFrameError
	return errors.As(err, &l)
}
