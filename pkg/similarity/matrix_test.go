package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

func TestComputeCosine(t *testing.T) {
	traces := []trace.Trace{
		{1, 2, 3, 0},
		{2, 4, 6, 0},
		{0, 0, 0, 5},
		{1, 0, 1, 0},
	}

	m, err := Compute(traces)
	require.NoError(t, err)
	require.Equal(t, 4, m.Len())

	require.InDelta(t, 1.0, m.At(0, 1), 1e-12)
	require.Equal(t, 0.0, m.At(0, 2))
	require.InDelta(t, 4/(math.Sqrt(14)*math.Sqrt(2)), m.At(0, 3), 1e-12)
	require.True(t, m.IsSymmetric())

	for i := 0; i < m.Len(); i++ {
		require.Equal(t, 1.0, m.At(i, i), "diagonal %d", i)
	}
}

func TestComputeZeroTraceHasNoSimilarity(t *testing.T) {
	traces := []trace.Trace{
		{0, 0, 0},
		{1, 1, 1},
		{0, 0, 0},
	}

	m, err := Compute(traces)
	require.NoError(t, err)

	for i := 0; i < m.Len(); i++ {
		for j := 0; j < m.Len(); j++ {
			v := m.At(i, j)
			require.False(t, math.IsNaN(v), "M[%d][%d] is NaN", i, j)
			if i == 0 || j == 0 || i == 2 || j == 2 {
				require.Equal(t, 0.0, v, "M[%d][%d]", i, j)
			}
		}
	}
	require.Equal(t, 1.0, m.At(1, 1))
}

func TestComputeLargeIntensities(t *testing.T) {
	traces := []trace.Trace{
		{1e200, 1e200},
		{1e200, 1e200},
		{1e200, 0},
		{1e-300, 0},
	}

	m, err := Compute(traces)
	require.NoError(t, err)

	for i := 0; i < m.Len(); i++ {
		for j := 0; j < m.Len(); j++ {
			v := m.At(i, j)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "M[%d][%d] = %v", i, j, v)
		}
	}
	require.InDelta(t, 1.0, m.At(0, 1), 1e-12)
	require.InDelta(t, 1/math.Sqrt(2), m.At(0, 2), 1e-12)
	require.InDelta(t, 1.0, m.At(2, 3), 1e-12)
	require.Equal(t, 1.0, m.At(3, 3))
}

func TestComputeRejectsRaggedTraces(t *testing.T) {
	_, err := Compute([]trace.Trace{{1, 2}, {1}})
	require.Error(t, err)
	require.True(t, Error.Has(err))
}

func TestComputeEmpty(t *testing.T) {
	m, err := Compute(nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())
}

func TestProject(t *testing.T) {
	m, err := FromRows([][]float64{
		{1, 0.1, 0.2, 0.3},
		{0.1, 1, 0.4, 0.5},
		{0.2, 0.4, 1, 0.6},
		{0.3, 0.5, 0.6, 1},
	})
	require.NoError(t, err)

	p := m.Project([]int{1, 3})
	require.Equal(t, 2, p.Len())
	require.Equal(t, []float64{1, 0.5}, p.Row(0))
	require.Equal(t, []float64{0.5, 1}, p.Row(1))
	require.True(t, p.IsSymmetric())

	// The source matrix is untouched.
	require.Equal(t, 4, m.Len())
	require.Equal(t, 0.6, m.At(2, 3))
}

func TestFromRowsRejectsNonSquare(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	require.Error(t, err)
}
