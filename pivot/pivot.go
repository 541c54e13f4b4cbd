package pivot

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//A matrix of accumulators. Rows are labeled by a number (a pressure level, or a cluster id)
//and columns by a time.
type Matrix struct {
	rows, cols int      //total
	d          []*Data  //row-major
	rowLabels  []float64
	colLabels  []time.Time
}

//NewMatrix returns a new matrix with one row per row label and one column per column label.
//All the elements are empty accumulators.
func NewMatrix(rowLabels []float64, colLabels []time.Time) *Matrix {
	ret := new(Matrix)
	ret.rows = len(rowLabels)
	ret.cols = len(colLabels)
	ret.rowLabels = append([]float64(nil), rowLabels...)
	ret.colLabels = append([]time.Time(nil), colLabels...)
	ret.d = make([]*Data, ret.rows*ret.cols)
	for i := range ret.d {
		ret.d[i] = NewData(nil, i)
	}
	return ret
}

func (M *Matrix) Dims() (int, int) {
	return M.rows, M.cols
}

//RowLabels returns a copy of the row labels.
func (M *Matrix) RowLabels() []float64 {
	return append([]float64(nil), M.rowLabels...)
}

//ColLabels returns a copy of the column labels.
func (M *Matrix) ColLabels() []time.Time {
	return append([]time.Time(nil), M.colLabels...)
}

func (M *Matrix) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%10s", ""))
	for _, c := range M.colLabels {
		b.WriteString(fmt.Sprintf(" %16s", c.Format("2006-01-02 15:04")))
	}
	for i := 0; i < M.rows; i++ {
		b.WriteString(fmt.Sprintf("\n%10.2f", M.rowLabels[i]))
		for j := 0; j < M.cols; j++ {
			b.WriteString(fmt.Sprintf(" %16.4f", M.View(i, j).Mean()))
		}
	}
	return b.String()
}

//jsonFloat marshals NaN as null, which JSON can't represent otherwise.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

//MarshalJSON writes the labels and the mean of each element.
func (M *Matrix) MarshalJSON() ([]byte, error) {
	means := make([][]jsonFloat, M.rows)
	counts := make([][]int, M.rows)
	for i := range means {
		means[i] = make([]jsonFloat, M.cols)
		counts[i] = make([]int, M.cols)
		for j := range means[i] {
			means[i][j] = jsonFloat(M.View(i, j).Mean())
			counts[i][j] = M.View(i, j).Len()
		}
	}
	return json.Marshal(struct {
		Rows   []float64     `json:"rows"`
		Cols   []time.Time   `json:"cols"`
		Means  [][]jsonFloat `json:"means"`
		Counts [][]int       `json:"counts"`
	}{
		Rows:   M.rowLabels,
		Cols:   M.colLabels,
		Means:  means,
		Counts: counts,
	})
}

//rc2i maps row r and column c to the index in M.d.
func (M *Matrix) rc2i(r, c int) int {
	M.Check(r, c, true)
	return M.cols*r + c
}

//Check returns an error if r or c is out of range. With pan true, it panics instead.
func (M *Matrix) Check(r, c int, pan ...bool) error {
	var err error
	if r < 0 || r >= M.rows {
		err = fmt.Errorf("rotraj/pivot: Row %d out of range", r)
	}
	if c < 0 || c >= M.cols {
		err = fmt.Errorf("rotraj/pivot: Column %d out of range", c)
	}
	if err != nil && len(pan) > 0 && pan[0] {
		panic(err.Error())
	}
	return err
}

//RowIndex returns the row with the given label, or -1.
func (M *Matrix) RowIndex(label float64) int {
	for i, v := range M.rowLabels {
		if v == label {
			return i
		}
	}
	return -1
}

//ColIndex returns the column with the given label, or -1.
func (M *Matrix) ColIndex(label time.Time) int {
	i := sort.Search(len(M.colLabels), func(i int) bool { return !M.colLabels[i].Before(label) })
	if i < len(M.colLabels) && M.colLabels[i].Equal(label) {
		return i
	}
	return -1
}

//View Returns a view of the accumulator in the r,c position in the matrix
func (M *Matrix) View(r, c int) *Data {
	return M.d[M.rc2i(r, c)]
}

//Adds one or more data points to the accumulator in the r,c position in the matrix
func (M *Matrix) AddData(r, c int, point ...float64) {
	M.d[M.rc2i(r, c)].AddData(point...)
}

//FromAll returns a rows x cols matrix with the result of f on each element.
//The first error returned by f stops the process.
func (M *Matrix) FromAll(f func(D *Data) (float64, error)) (*mat.Dense, error) {
	if M.rows == 0 || M.cols == 0 {
		return nil, fmt.Errorf("rotraj/pivot.Matrix.FromAll: empty matrix")
	}
	r := mat.NewDense(M.rows, M.cols, nil)
	for i := 0; i < M.rows; i++ {
		for j := 0; j < M.cols; j++ {
			v, err := f(M.d[M.rc2i(i, j)])
			if err != nil {
				return nil, fmt.Errorf("rotraj/pivot.Matrix.FromAll: Error at %d, %d: %v", i, j, err)
			}
			r.Set(i, j, v)
		}
	}
	return r, nil
}

//Means returns the mean of each element, NaN for the empty ones.
func (M *Matrix) Means() (*mat.Dense, error) {
	return M.FromAll(func(D *Data) (float64, error) { return D.Mean(), nil })
}

//Data accumulates the values that fall in one cell of a pivot table.
type Data struct {
	id     int
	values []float64
}

//Returns a new accumulator with a copy of rawdata, which can be nil.
//if an ID is given, it will be set. If not, the ID will be set to -1.
func NewData(rawdata []float64, ID ...int) *Data {
	d := new(Data)
	d.values = append([]float64(nil), rawdata...)
	d.id = -1
	if len(ID) > 0 {
		d.id = ID[0]
	}
	return d
}

//ID returns the ID of the accumulator
func (D *Data) ID() int {
	return D.id
}

//Adds the given data point(s). NaNs are omitted.
func (D *Data) AddData(point ...float64) {
	for _, v := range point {
		if !math.IsNaN(v) {
			D.values = append(D.values, v)
		}
	}
}

//Len returns the number of values accumulated.
func (D *Data) Len() int {
	return len(D.values)
}

//Mean returns the mean of the values, or NaN if there are none.
func (D *Data) Mean() float64 {
	if len(D.values) == 0 {
		return math.NaN()
	}
	return stat.Mean(D.values, nil)
}

//StdDev returns the sample standard deviation, or NaN if there are less than 2 values.
func (D *Data) StdDev() float64 {
	if len(D.values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(D.values, nil)
}

//Median returns the median of the values, or NaN if there are none.
func (D *Data) Median() float64 {
	if len(D.values) == 0 {
		return math.NaN()
	}
	s := D.Copy()
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}

func (D *Data) Sum() float64 {
	return floats.Sum(D.values)
}

//Histogram counts the values falling between each pair of consecutive dividers.
//Values outside the dividers are omitted.
func (D *Data) Histogram(dividers []float64) []float64 {
	if len(dividers) < 2 {
		return nil
	}
	rawdata := D.Copy()
	sort.Float64s(rawdata)
	//stat.Histograms just panics instead of omitting the values that are off limits
	//so we remove them here before the call.
	maxi := sort.SearchFloat64s(rawdata, dividers[len(dividers)-1])
	rawdata = rawdata[:maxi]
	mini := sort.SearchFloat64s(rawdata, dividers[0])
	rawdata = rawdata[mini:]
	return stat.Histogram(nil, dividers, rawdata, nil)
}

func (D *Data) Copy(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.values), dest...)
	copy(d, D.values)
	return d
}

func (D *Data) View() []float64 {
	return D.values
}

func (D *Data) String() string {
	return fmt.Sprintf("ID: %d, N: %d, Mean: %.4f", D.id, len(D.values), D.Mean())
}

func getCopySlice(N int, dest ...[]float64) []float64 {
	if len(dest) > 0 && len(dest[0]) >= N {
		return dest[0][:N]
	}
	return make([]float64, N)
}
