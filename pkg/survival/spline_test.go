// pkg/survival/spline_test.go
package survival

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splineValues(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 45 + 0.4*float64(i)
	}
	return values
}

func TestSplineBasisShape(t *testing.T) {
	values := splineValues(100)

	for _, k := range []int{3, 4, 5} {
		basis, err := NewSplineBasis("age", values, k)
		require.NoError(t, err)

		assert.Len(t, basis.Knots, k)
		assert.Equal(t, k-1, basis.NumTerms())

		names := basis.TermNames()
		require.Len(t, names, k-1)
		assert.Equal(t, "age", names[0])

		cols := basis.Expand(values)
		require.Len(t, cols, k-1)
		for _, col := range cols {
			assert.Len(t, col, len(values))
		}
	}
}

func TestSplineBasisKnotsAscending(t *testing.T) {
	basis, err := NewSplineBasis("age", splineValues(200), 4)
	require.NoError(t, err)

	for i := 1; i < len(basis.Knots); i++ {
		assert.Greater(t, basis.Knots[i], basis.Knots[i-1])
	}
}

func TestSplineBasisFirstTermIsIdentity(t *testing.T) {
	values := splineValues(80)
	basis, err := NewSplineBasis("age", values, 4)
	require.NoError(t, err)

	cols := basis.Expand(values)
	assert.Equal(t, values, cols[0])
}

func TestSplineBasisZeroBelowFirstKnot(t *testing.T) {
	basis, err := NewSplineBasis("age", splineValues(100), 4)
	require.NoError(t, err)

	// Nonlinear terms vanish at and below the first knot
	probe := []float64{basis.Knots[0] - 10, basis.Knots[0]}
	cols := basis.Expand(probe)
	for j := 1; j < basis.NumTerms(); j++ {
		assert.Equal(t, 0.0, cols[j][0])
		assert.Equal(t, 0.0, cols[j][1])
	}
}

func TestSplineBasisLinearInTails(t *testing.T) {
	basis, err := NewSplineBasis("age", splineValues(200), 4)
	require.NoError(t, err)

	// Beyond the last knot the restricted basis is linear: second differences
	// of equally spaced evaluations are zero
	last := basis.Knots[len(basis.Knots)-1]
	probe := []float64{last + 1, last + 2, last + 3, last + 4}
	cols := basis.Expand(probe)
	for j := 1; j < basis.NumTerms(); j++ {
		d1 := cols[j][1] - cols[j][0]
		d2 := cols[j][2] - cols[j][1]
		d3 := cols[j][3] - cols[j][2]
		assert.InDelta(t, d1, d2, 1e-9)
		assert.InDelta(t, d2, d3, 1e-9)
	}
}

func TestSplineBasisRejectsBadInput(t *testing.T) {
	_, err := NewSplineBasis("age", splineValues(100), 2)
	assert.Error(t, err)

	_, err = NewSplineBasis("age", []float64{1, 2}, 3)
	assert.Error(t, err)

	// Constant values cannot produce distinct knots
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 60
	}
	_, err = NewSplineBasis("age", flat, 3)
	assert.Error(t, err)
}

func TestSplineBasisIgnoresMissing(t *testing.T) {
	values := splineValues(100)
	values[3] = math.NaN()
	values[40] = math.NaN()

	basis, err := NewSplineBasis("age", values, 4)
	require.NoError(t, err)
	assert.Len(t, basis.Knots, 4)
}
