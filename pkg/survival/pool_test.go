// pkg/survival/pool_test.go
package survival

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolIdenticalFitsHasNoBetweenVariance(t *testing.T) {
	fit := &FitResult{
		Names:     []string{"age", "hx"},
		Estimates: []float64{0.03, 0.45},
		StdErrors: []float64{0.01, 0.12},
		Rows:      502,
	}

	pooled, err := Pool([]*FitResult{fit, fit, fit})
	require.NoError(t, err)

	assert.Equal(t, 3, pooled.M)
	assert.Equal(t, 502, pooled.Rows)
	require.Len(t, pooled.Terms, 2)

	for j, term := range pooled.Terms {
		assert.Equal(t, fit.Names[j], term.Name)
		assert.InDelta(t, fit.Estimates[j], term.Estimate, 1e-12)
		assert.InDelta(t, 0, term.Between, 1e-12)
		// With zero between-imputation variance the pooled SE collapses to
		// the single-fit SE
		assert.InDelta(t, fit.StdErrors[j], term.StdErr, 1e-12)
	}
}

func TestPoolAppliesRubinsRules(t *testing.T) {
	fits := []*FitResult{
		{Names: []string{"age"}, Estimates: []float64{0.02}, StdErrors: []float64{0.010}},
		{Names: []string{"age"}, Estimates: []float64{0.03}, StdErrors: []float64{0.012}},
		{Names: []string{"age"}, Estimates: []float64{0.04}, StdErrors: []float64{0.011}},
	}

	pooled, err := Pool(fits)
	require.NoError(t, err)
	require.Len(t, pooled.Terms, 1)
	term := pooled.Terms[0]

	qbar := (0.02 + 0.03 + 0.04) / 3
	within := (0.010*0.010 + 0.012*0.012 + 0.011*0.011) / 3
	between := (math.Pow(0.02-qbar, 2) + math.Pow(0.03-qbar, 2) + math.Pow(0.04-qbar, 2)) / 2
	total := within + (1+1.0/3)*between

	assert.InDelta(t, qbar, term.Estimate, 1e-12)
	assert.InDelta(t, within, term.Within, 1e-12)
	assert.InDelta(t, between, term.Between, 1e-12)
	assert.InDelta(t, total, term.Total, 1e-12)
	assert.InDelta(t, math.Sqrt(total), term.StdErr, 1e-12)

	assert.InDelta(t, math.Exp(qbar), term.HazardRatio, 1e-12)
	assert.Less(t, term.CILower, term.HazardRatio)
	assert.Greater(t, term.CIUpper, term.HazardRatio)
}

func TestPoolRejectsMismatchedDesigns(t *testing.T) {
	a := &FitResult{Names: []string{"age"}, Estimates: []float64{0.1}, StdErrors: []float64{0.1}}
	b := &FitResult{Names: []string{"wt"}, Estimates: []float64{0.1}, StdErrors: []float64{0.1}}
	_, err := Pool([]*FitResult{a, b})
	assert.Error(t, err)

	c := &FitResult{Names: []string{"age", "wt"}, Estimates: []float64{0.1, 0.2}, StdErrors: []float64{0.1, 0.1}}
	_, err = Pool([]*FitResult{a, c})
	assert.Error(t, err)

	_, err = Pool(nil)
	assert.Error(t, err)
}

func TestPoolRejectsTruncatedFits(t *testing.T) {
	// A fit whose estimate or SE vectors fall short of its term list must be
	// rejected up front, never indexed
	full := &FitResult{Names: []string{"age", "hx"}, Estimates: []float64{0.1, 0.2}, StdErrors: []float64{0.1, 0.1}}
	noSE := &FitResult{Names: []string{"age", "hx"}, Estimates: []float64{0.1, 0.2}, StdErrors: nil}

	_, err := Pool([]*FitResult{full, noSE})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "standard errors")

	noEst := &FitResult{Names: []string{"age", "hx"}, Estimates: nil, StdErrors: []float64{0.1, 0.1}}
	_, err = Pool([]*FitResult{noEst})
	assert.Error(t, err)
}
