// Package similarity computes and stores pairwise cosine similarity between traces.
package similarity

import (
	"math"

	"github.com/zeebo/errs"

	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

// Error is the error class for similarity computation.
var Error = errs.Class("similarity")

// Matrix is a dense square similarity matrix stored row-major.
type Matrix struct {
	n    int
	data []float64
}

// NewMatrix returns an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]float64, n*n)}
}

// FromRows builds a matrix from square row data.
func FromRows(rows [][]float64) (*Matrix, error) {
	m := NewMatrix(len(rows))
	for i, row := range rows {
		if len(row) != m.n {
			return nil, Error.New("row %d has %d columns, want %d", i, len(row), m.n)
		}
		copy(m.data[i*m.n:], row)
	}
	return m, nil
}

// Len returns the matrix dimension.
func (m *Matrix) Len() int { return m.n }

// At returns M[i][j].
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Set assigns v to both M[i][j] and M[j][i].
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// Row returns row i. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.n : (i+1)*m.n] }

// IsSymmetric reports whether M[i][j] == M[j][i] for all i, j.
func (m *Matrix) IsSymmetric() bool {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if m.At(i, j) != m.At(j, i) {
				return false
			}
		}
	}
	return true
}

// Project returns a new matrix holding the rows and columns listed in keep,
// in that order. The same index list drives both axes.
func (m *Matrix) Project(keep []int) *Matrix {
	out := NewMatrix(len(keep))
	for ni, oi := range keep {
		src := m.Row(oi)
		dst := out.Row(ni)
		for nj, oj := range keep {
			dst[nj] = src[oj]
		}
	}
	return out
}

// Compute returns the cosine similarity matrix of traces. A pair involving a
// trace without signal has similarity 0; the diagonal is 1 for every other trace.
// Traces are scaled by their largest magnitude first so large intensities
// cannot overflow the dot products.
func Compute(traces []trace.Trace) (*Matrix, error) {
	n := len(traces)
	m := NewMatrix(n)
	if n == 0 {
		return m, nil
	}

	width := len(traces[0])
	scaled := make([][]float64, n)
	norms := make([]float64, n)
	for i, tr := range traces {
		if len(tr) != width {
			return nil, Error.New("trace %d has %d samples, want %d", i, len(tr), width)
		}
		scaled[i] = normalizeMax(tr)
		if scaled[i] != nil {
			norms[i] = math.Sqrt(dot(scaled[i], scaled[i]))
		}
	}

	for i := 0; i < n; i++ {
		if norms[i] == 0 {
			continue
		}
		m.Set(i, i, 1)
		for j := i + 1; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			m.Set(i, j, clamp(dot(scaled[i], scaled[j])/(norms[i]*norms[j])))
		}
	}

	return m, nil
}

// normalizeMax returns tr divided by its largest absolute value, or nil when
// tr has no finite non-zero sample.
func normalizeMax(tr trace.Trace) []float64 {
	peak := 0.0
	for _, v := range tr {
		if a := math.Abs(v); a > peak && !math.IsInf(a, 0) {
			peak = a
		}
	}
	if peak == 0 {
		return nil
	}
	out := make([]float64, len(tr))
	for k, v := range tr {
		out[k] = v / peak
	}
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for k := range a {
		sum += a[k] * b[k]
	}
	return sum
}

// clamp keeps rounding error inside [-1, 1]. Non-finite values become 0.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
