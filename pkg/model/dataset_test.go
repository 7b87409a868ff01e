// pkg/model/dataset_test.go
package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatasetValidatesLengths(t *testing.T) {
	_, err := NewDataset("bad", []Column{
		{Name: "a", Kind: KindNumeric, Values: []float64{1, 2, 3}},
		{Name: "b", Kind: KindNumeric, Values: []float64{1, 2}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column b")
}

func TestMissingAccounting(t *testing.T) {
	ds, err := NewDataset("demo", []Column{
		{Name: "x", Kind: KindNumeric, Values: []float64{1, math.NaN(), 3, math.NaN()}},
		{Name: "y", Kind: KindNumeric, Values: []float64{1, 2, 3, 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, ds.NumRows())
	assert.Equal(t, 2, ds.MissingCells())
	assert.InDelta(t, 0.25, ds.MissingFraction(), 1e-12)
	assert.Equal(t, 2, ds.Column("x").MissingCount())
	assert.True(t, ds.Column("x").IsMissing(1))
	assert.False(t, ds.Column("x").IsMissing(0))
}

func TestCloneIsDeep(t *testing.T) {
	ds, err := NewDataset("demo", []Column{
		{Name: "rx", Kind: KindFactor, Values: []float64{0, 1}, Levels: []string{"placebo", "active"}},
	})
	require.NoError(t, err)

	clone := ds.Clone()
	clone.Column("rx").Values[0] = 1
	clone.Column("rx").Levels[0] = "changed"

	assert.Equal(t, 0.0, ds.Column("rx").Values[0])
	assert.Equal(t, "placebo", ds.Column("rx").Levels[0])
}

func TestFactorLabels(t *testing.T) {
	col := Column{
		Name:   "status",
		Kind:   KindFactor,
		Values: []float64{0, 1, math.NaN()},
		Levels: []string{"alive", "dead - heart or vascular"},
	}

	assert.Equal(t, "alive", col.Label(0))
	assert.Equal(t, "dead - heart or vascular", col.Label(1))
	assert.Equal(t, "NA", col.Label(2))
	assert.Equal(t, 1, col.LevelCode("Dead - Heart or Vascular"))
	assert.Equal(t, -1, col.LevelCode("missing level"))
}

func TestReplaceColumnPreservesPosition(t *testing.T) {
	ds, err := NewDataset("demo", []Column{
		{Name: "a", Kind: KindNumeric, Values: []float64{1, 2}},
		{Name: "b", Kind: KindNumeric, Values: []float64{3, 4}},
		{Name: "c", Kind: KindNumeric, Values: []float64{5, 6}},
	})
	require.NoError(t, err)

	require.NoError(t, ds.ReplaceColumn(Column{
		Name: "b", Kind: KindNumeric, Values: []float64{7, 8},
	}))

	assert.Equal(t, []string{"a", "b", "c"}, ds.ColumnNames())
	assert.Equal(t, []float64{7, 8}, ds.Column("b").Values)

	err = ds.ReplaceColumn(Column{Name: "b", Kind: KindNumeric, Values: []float64{1}})
	assert.Error(t, err)
}
