// pkg/impute/mice_test.go
package impute

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/model"
)

func imputeDataset(t *testing.T, missing int) *model.Dataset {
	t.Helper()

	n := 100
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 2*float64(i) + float64(i%7)
		z[i] = 50 - 0.5*float64(i)
	}
	for i := 0; i < missing; i++ {
		y[i*3] = math.NaN()
	}

	ds, err := model.NewDataset("synthetic", []model.Column{
		{Name: "x", Kind: model.KindNumeric, Values: x},
		{Name: "y", Kind: model.KindNumeric, Values: y},
		{Name: "z", Kind: model.KindNumeric, Values: z},
	})
	require.NoError(t, err)
	return ds
}

func newTestImputer(t *testing.T, m int) *Imputer {
	t.Helper()
	im, err := NewImputer(Config{
		M:          m,
		Iterations: 3,
		Donors:     5,
		Seed:       20030617,
	}, zap.NewNop())
	require.NoError(t, err)
	return im
}

func TestDefaultM(t *testing.T) {
	assert.Equal(t, 5, DefaultM(0))
	assert.Equal(t, 5, DefaultM(0.02))
	// Fractions whose product with 100 lands just above an integer must not
	// round up a copy
	assert.Equal(t, 7, DefaultM(0.07))
	assert.Equal(t, 14, DefaultM(0.14))
	assert.Equal(t, 25, DefaultM(0.25))
	assert.Equal(t, 8, DefaultM(0.071))
}

func TestImputeCompleteDatasetReturnsIdenticalCopies(t *testing.T) {
	ds := imputeDataset(t, 0)
	im := newTestImputer(t, 4)

	copies, err := im.Impute(ds)
	require.NoError(t, err)
	require.Len(t, copies, 4)

	for _, c := range copies {
		assert.Zero(t, c.MissingCells())
		for i := range ds.Columns {
			assert.Equal(t, ds.Columns[i].Values, c.Columns[i].Values)
		}
		// Copies are independent storage
		c.Columns[0].Values[0] = -1
		assert.Equal(t, 0.0, ds.Columns[0].Values[0])
	}
}

func TestImputeFillsEveryMissingCell(t *testing.T) {
	ds := imputeDataset(t, 12)
	before := ds.MissingCells()
	require.Equal(t, 12, before)

	im := newTestImputer(t, 3)
	copies, err := im.Impute(ds)
	require.NoError(t, err)
	require.Len(t, copies, 3)

	// The input is untouched
	assert.Equal(t, before, ds.MissingCells())

	observed := make(map[float64]bool)
	for _, v := range ds.Column("y").Values {
		if !math.IsNaN(v) {
			observed[v] = true
		}
	}

	for _, c := range copies {
		assert.Zero(t, c.MissingCells())
		// PMM draws come from the observed distribution
		for i, v := range c.Column("y").Values {
			if math.IsNaN(ds.Column("y").Values[i]) {
				assert.True(t, observed[v], "imputed value %g not among observed", v)
			} else {
				assert.Equal(t, ds.Column("y").Values[i], v)
			}
		}
	}
}

func TestImputeIsDeterministicForSeed(t *testing.T) {
	ds := imputeDataset(t, 10)

	first, err := newTestImputer(t, 2).Impute(ds)
	require.NoError(t, err)
	second, err := newTestImputer(t, 2).Impute(ds)
	require.NoError(t, err)

	for m := range first {
		for i := range first[m].Columns {
			assert.Equal(t, first[m].Columns[i].Values, second[m].Columns[i].Values)
		}
	}
}

func TestImputeDerivesMFromMissingFraction(t *testing.T) {
	ds := imputeDataset(t, 30) // 30 of 300 cells missing -> M = 10
	im := newTestImputer(t, 0)

	copies, err := im.Impute(ds)
	require.NoError(t, err)
	assert.Len(t, copies, 10)
}

func TestImputeFailsWithoutObservedValues(t *testing.T) {
	nan := math.NaN()
	ds, err := model.NewDataset("degenerate", []model.Column{
		{Name: "x", Kind: model.KindNumeric, Values: []float64{1, 2, 3, 4}},
		{Name: "y", Kind: model.KindNumeric, Values: []float64{nan, nan, nan, nan}},
	})
	require.NoError(t, err)

	im := newTestImputer(t, 2)
	_, err = im.Impute(ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInsufficientPredictors))
}

func TestImputeFailsWithoutPredictorVariation(t *testing.T) {
	nan := math.NaN()
	ds, err := model.NewDataset("flat", []model.Column{
		{Name: "x", Kind: model.KindNumeric, Values: []float64{7, 7, 7, 7, 7, 7}},
		{Name: "y", Kind: model.KindNumeric, Values: []float64{1, 2, 3, 4, nan, nan}},
	})
	require.NoError(t, err)

	im := newTestImputer(t, 1)
	_, err = im.Impute(ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInsufficientPredictors))
}

func TestFactorColumnsDrawObservedCodes(t *testing.T) {
	nan := math.NaN()
	n := 60
	x := make([]float64, n)
	pf := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		pf[i] = float64(i % 3)
	}
	pf[5], pf[20], pf[41] = nan, nan, nan

	ds, err := model.NewDataset("factors", []model.Column{
		{Name: "x", Kind: model.KindNumeric, Values: x},
		{Name: "pf", Kind: model.KindFactor, Values: pf,
			Levels: []string{"normal activity", "in bed < 50% daytime", "in bed > 50% daytime"}},
	})
	require.NoError(t, err)

	im := newTestImputer(t, 2)
	copies, err := im.Impute(ds)
	require.NoError(t, err)

	for _, c := range copies {
		for _, v := range c.Column("pf").Values {
			assert.Contains(t, []float64{0, 1, 2}, v)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"pmm", "norm", "median"} {
		m, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, Method(name), m)
	}
	_, err := ParseMethod("hotdeck")
	assert.Error(t, err)
}
