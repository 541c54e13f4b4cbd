package stf

import (
	"bufio"
	"compress/lzw"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/rmera/rotraj"
	"gonum.org/v1/gonum/mat"
)

const (
	lzwLitwidth int = 8
)

// Keys of the header with special meaning.
const (
	KeyColumns = "columns"
	KeyHeader  = "header"
)

//StfW writes trajectories to an stf file.
type StfW struct {
	f         *os.File
	h         io.WriteCloser
	ncols     int
	filename  string
	writeable bool
	buf       []byte
}

//Close flushes and closes the file. The object can't be used after this call.
func (S *StfW) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Close()
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return &Error{err.Error(), S.filename, []string{"Close"}, true}
	}
	return nil
}

//Len returns the number of value columns of each row.
func (S *StfW) Len() int {
	return S.ncols
}

//WNext writes a trajectory to the file.
func (S *StfW) WNext(tr *rotraj.Trajectory) error {
	if !S.writeable {
		return &Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if tr == nil || tr.Block == nil {
		return &Error{NilTrajectory, S.filename, []string{"WNext"}, true}
	}
	rows, c := tr.Values.Dims()
	if c != S.ncols {
		return &Error{fmt.Sprintf("%d value columns given, but %d expected", c, S.ncols), S.filename, []string{"WNext"}, true}
	}
	head := fmt.Sprintf("> %d %d %d %s %d\n", tr.Position, tr.Number, tr.Cluster, tr.Release.Format(time.RFC3339Nano), rows)
	if _, err := io.WriteString(S.h, head); err != nil {
		return &Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	d := xxhash.New()
	for i := 0; i < rows; i++ {
		S.buf = rowEncode(S.buf[:0], tr.Steps[i], tr.Row(i))
		d.Write(S.buf)
		if _, err := S.h.Write(S.buf); err != nil {
			return &Error{err.Error(), S.filename, []string{"WNext"}, true}
		}
	}
	if _, err := fmt.Fprintf(S.h, "* %016x\n", d.Sum64()); err != nil {
		return &Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	return nil
}

//The values are written with the shortest representation that reads back
//to the same float64.
func rowEncode(dst []byte, step int, row []float64) []byte {
	dst = strconv.AppendInt(dst, int64(step), 10)
	for _, v := range row {
		dst = append(dst, ' ')
		dst = strconv.AppendFloat(dst, v, 'g', -1, 64)
	}
	return append(dst, '\n')
}

func rowDecode(str string, row []float64) (int, error) {
	s := strings.Fields(str)
	if len(s) != len(row)+1 {
		return 0, fmt.Errorf("Ill formated row in stf: %d fields, %d expected", len(s), len(row)+1)
	}
	step, err := strconv.Atoi(s[0])
	if err != nil {
		return 0, fmt.Errorf("Can't parse step (%s). Error: %s", s[0], err.Error())
	}
	for i, v := range s[1:] {
		row[i], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("Can't parse value %d (%s). Error: %s", i, v, err.Error())
		}
	}
	return step, nil
}

func compressionWriter(name string, level int) func(io.Writer) (io.WriteCloser, error) {
	zwriter := func(a io.Writer) (io.WriteCloser, error) {
		r, err := flate.NewWriter(a, level)
		return r, err
	}
	gzipwriter := func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, level) }
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		zl := zstd.SpeedBestCompression
		if level > 0 {
			zl = zstd.EncoderLevelFromZstd(level)
		}
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zl))
	}
	lz4writer := func(a io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(a), nil }
	if name == "" {
		return zstdwriter
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return gzipwriter
	case 'r':
		return zwriter
	case '4':
		return lz4writer
	default:
		return zstdwriter
	}
}

//NewWriter creates the file name and writes the header to it. The trajectories written
//must have ncols value columns. The optional compression level applies to the gzip, deflate and
//zstd codecs; the default is the default level of each codec, except for zstd, which uses
//its best compression.
func NewWriter(name string, ncols int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	level := flate.DefaultCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	S := new(StfW)
	S.filename = name
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, &Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.h, err = compressionWriter(name, level)(S.f)
	if err != nil {
		S.f.Close()
		return nil, &Error{"Can't create compressor " + err.Error(), S.filename, []string{"NewWriter"}, true}
	}
	S.ncols = ncols
	S.writeable = true
	//sorted, so the same table always gives the same file.
	keys := make([]string, 0, len(header))
	for k := range header {
		if strings.ContainsAny(k, "=\n") || strings.HasPrefix(k, "**") || strings.Contains(header[k], "\n") {
			S.Close()
			return nil, &Error{fmt.Sprintf("Invalid header entry %q", k), S.filename, []string{"NewWriter"}, true}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, header[k])
	}
	fmt.Fprintf(&b, "** %d\n", S.ncols)
	if _, err := io.WriteString(S.h, b.String()); err != nil {
		S.Close()
		return nil, &Error{err.Error(), S.filename, []string{"NewWriter"}, true}
	}
	return S, nil
}

//StfR reads the trajectories of an stf file, one at a time.
type StfR struct {
	f            *os.File
	lzw          io.ReadCloser
	h            *bufio.Reader
	intermediate *bufio.Reader
	ncols        int
	filename     string
	readable     bool
}

//stdql makes a *zstd.Decoder an io.ReadCloser.
type stdql struct {
	closeql func()
	*zstd.Decoder
}

//Close releases the decoder.
func (s stdql) Close() error {
	s.closeql()
	return nil
}

func compressionReader(name string) func(io.Reader) (io.ReadCloser, error) {
	zreader := func(a io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(a), nil
	}
	zstdreader := func(a io.Reader) (io.ReadCloser, error) {
		r, err := zstd.NewReader(a)
		if err != nil {
			return nil, err
		}
		return stdql{r.Close, r}, nil
	}
	gzreader := func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	lz4reader := func(a io.Reader) (io.ReadCloser, error) { return io.NopCloser(lz4.NewReader(a)), nil }
	if name == "" {
		return zstdreader
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return gzreader
	case 'r':
		return zreader
	case '4':
		return lz4reader
	default:
		return zstdreader
	}
}

//New opens an stf file and reads its header. It returns the reader and the
//header key=value pairs (an empty map if there are none).
func New(name string) (*StfR, map[string]string, error) {
	S := new(StfR)
	S.ncols = -1 //just so we know if things don't work
	m := make(map[string]string)
	var err error
	S.filename = name
	S.f, err = os.Open(S.filename)
	if err != nil {
		return nil, nil, &Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	S.intermediate = bufio.NewReader(S.f)
	S.lzw, err = compressionReader(name)(S.intermediate)
	if err != nil {
		S.f.Close()
		return nil, nil, &Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
	}
	S.h = bufio.NewReader(S.lzw)
	S.readable = true
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.Close()
			return nil, nil, &Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nc := strings.Fields(str)
			if len(nc) < 2 {
				S.Close()
				return nil, nil, &Error{fmt.Sprintf("Can't read column number from '%s'", str), S.filename, []string{"New"}, true}
			}
			S.ncols, err = strconv.Atoi(nc[1])
			if err != nil || S.ncols < 0 {
				S.Close()
				return nil, nil, &Error{fmt.Sprintf("Can't read column number from '%s'", nc[1]), S.filename, []string{"New"}, true}
			}
			break
		}
		kv := strings.SplitN(str, "=", 2)
		if len(kv) != 2 {
			S.Close()
			return nil, nil, &Error{"Malformed header line: " + str, S.filename, []string{"New"}, true}
		}
		m[kv[0]] = kv[1]
	}
	return S, m, nil
}

//Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *StfR) Readable() bool {
	return S.readable
}

//Next reads the next trajectory and returns it. When there are no trajectories left,
//the error returned satisfies rotraj.LastFrameError (see rotraj.IsLastFrame).
//A trajectory whose rows don't match their checksum is an error.
func (S *StfR) Next() (*rotraj.Trajectory, error) {
	if !S.readable {
		return nil, &Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	head, err := S.h.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && head == "" {
			//nothing bad happened here, the trajectory just ended.
			S.Close()
			return nil, newlastFrameError(S.filename, "Next")
		}
		return nil, &Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
	}
	tr, rows, err := parseTrajLine(head)
	if err != nil {
		return nil, &Error{WrongFormat + ": " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if rows == 0 || S.ncols == 0 {
		return nil, &Error{fmt.Sprintf("%s: trajectory %d has no values", WrongFormat, tr.Number), S.filename, []string{"Next"}, true}
	}
	vals := mat.NewDense(rows, S.ncols, nil)
	tr.Steps = make([]int, rows)
	d := xxhash.New()
	for i := 0; i < rows; i++ {
		str, err := S.h.ReadString('\n')
		if err != nil {
			return nil, &Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		d.WriteString(str)
		tr.Steps[i], err = rowDecode(str, vals.RawRowView(i))
		if err != nil {
			return nil, &Error{WrongFormat + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil || !strings.HasPrefix(s, "*") {
		return nil, &Error{"Can't read the trajectory termination mark", S.filename, []string{"Next"}, true}
	}
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil, &Error{"Ill-formed trajectory termination mark: " + strings.TrimSpace(s), S.filename, []string{"Next"}, true}
	}
	sum, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil || sum != d.Sum64() {
		return nil, &Error{fmt.Sprintf("%s for trajectory %d", SecurityCheckFailed, tr.Number), S.filename, []string{"Next"}, true}
	}
	tr.Values = vals
	return tr, nil
}

func parseTrajLine(s string) (*rotraj.Trajectory, int, error) {
	f := strings.Fields(s)
	if len(f) != 6 || f[0] != ">" {
		return nil, 0, fmt.Errorf("Ill-formed trajectory line: %s", strings.TrimSpace(s))
	}
	var ints [4]int
	for i, j := range []int{1, 2, 3, 5} {
		v, err := strconv.Atoi(f[j])
		if err != nil || v < 0 {
			return nil, 0, fmt.Errorf("Can't parse field %d of trajectory line: %s", j, strings.TrimSpace(s))
		}
		ints[i] = v
	}
	release, err := time.Parse(time.RFC3339Nano, f[4])
	if err != nil {
		return nil, 0, fmt.Errorf("Can't parse release time of trajectory line: %w", err)
	}
	tr := &rotraj.Trajectory{
		Block:    &rotraj.Block{Number: ints[1]},
		Position: ints[0],
		Cluster:  ints[2],
		Release:  release,
	}
	tr.Intervals = ints[3] - 1
	return tr, ints[3], nil
}

//Close closes the file. Next can't be called afterwards.
func (S *StfR) Close() {
	if !S.readable {
		return
	}
	S.lzw.Close()
	S.f.Close()
	S.readable = false
}

//Len returns the number of value columns in each row of the trajectories.
func (S *StfR) Len() int {
	return S.ncols
}

//WriteTable writes all the trajectories of T to the file name. If H is not nil, it is stored in the header.
func WriteTable(name string, T *rotraj.Table, H *rotraj.Header, compressionLevel ...int) error {
	cols, err := json.Marshal(T.Columns())
	if err != nil {
		return err
	}
	header := map[string]string{KeyColumns: string(cols)}
	if H != nil {
		h, err := json.Marshal(H)
		if err != nil {
			return err
		}
		header[KeyHeader] = string(h)
	}
	W, err := NewWriter(name, len(T.Columns()), header, compressionLevel...)
	if err != nil {
		return errDecorate(err, "WriteTable")
	}
	for i := 0; i < T.NTraj(); i++ {
		if err := W.WNext(T.Traj(i)); err != nil {
			W.Close()
			return errDecorate(err, "WriteTable")
		}
	}
	return errDecorate(W.Close(), "WriteTable")
}

//ReadTable reads a file written by WriteTable. The header returned is nil if the file has none.
func ReadTable(name string) (*rotraj.Table, *rotraj.Header, error) {
	R, m, err := New(name)
	if err != nil {
		return nil, nil, errDecorate(err, "ReadTable")
	}
	defer R.Close()
	var cols []string
	if err := json.Unmarshal([]byte(m[KeyColumns]), &cols); err != nil {
		return nil, nil, &Error{"Can't read the column names: " + err.Error(), name, []string{"ReadTable"}, true}
	}
	if len(cols) != R.Len() {
		return nil, nil, &Error{fmt.Sprintf("%d column names for %d columns", len(cols), R.Len()), name, []string{"ReadTable"}, true}
	}
	var H *rotraj.Header
	if h, ok := m[KeyHeader]; ok {
		H = new(rotraj.Header)
		if err := json.Unmarshal([]byte(h), H); err != nil {
			return nil, nil, &Error{"Can't read the file metadata: " + err.Error(), name, []string{"ReadTable"}, true}
		}
	}
	T := rotraj.NewTable(cols)
	for {
		tr, err := R.Next()
		if rotraj.IsLastFrame(err) {
			break
		}
		if err != nil {
			return nil, nil, errDecorate(err, "ReadTable")
		}
		if err := T.Add(tr); err != nil {
			return nil, nil, errDecorate(err, "ReadTable")
		}
	}
	return T, H, nil
}

//errDecorate adds caller to err if err is a rotraj.Error.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var err2 rotraj.Error
	if errors.As(err, &err2) {
		err2.Decorate(caller)
	}
	return err
}

//Error is the general structure for STF trajectory errors. It fullfills rotraj.Error and rotraj.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err *Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

//Decorate Adds new information to the error
func (E *Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the stf file being read or written.
func (err *Error) FileName() string { return err.filename }

//FileFormat returns the format of the file (always "stf") associated to the error
func (err *Error) FileFormat() string { return "stf" }

//Critical returns true if the error is critical, false otherwise
func (err *Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead       = "Traj object uninitialized to read"
	TrajUnIniWrite      = "Traj object uninitialized to write"
	ReadError           = "Error reading trajectory"
	UnableToOpen        = "Unable to open file"
	SecurityCheckFailed = "Failed checksum"
	NilTrajectory       = "Given nil trajectory"
	WrongFormat         = "Wrong format in the STF file or trajectory"
)

//lastFrameError implements rotraj.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return "EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) FileFormat() string { return "stf" }

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
