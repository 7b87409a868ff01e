// pkg/cleaner/cleaner_test.go
package cleaner

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/model"
)

func outcomeDataset(t *testing.T, statusValues []float64, levels []string) *model.Dataset {
	t.Helper()
	ds, err := model.NewDataset("trial", []model.Column{
		{Name: "dtime", Kind: model.KindNumeric, Values: make([]float64, len(statusValues))},
		{Name: "status", Kind: model.KindFactor, Values: statusValues, Levels: levels},
	})
	require.NoError(t, err)
	return ds
}

func TestCleanOutcomeRecodesBinary(t *testing.T) {
	pinned := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recodeClock = func() time.Time { return pinned }
	defer func() { recodeClock = time.Now }()

	ds := outcomeDataset(t, []float64{0, 1, 2, 0}, []string{
		"alive",
		"dead - prostatic ca",
		"dead - heart or vascular",
	})

	c, err := NewOutcomeCleaner(zap.NewNop())
	require.NoError(t, err)

	operations, err := c.CleanOutcome(ds, "status", "death")
	require.NoError(t, err)
	require.Len(t, operations, 4)

	event := ds.Column("death")
	require.NotNil(t, event)
	assert.Equal(t, model.KindNumeric, event.Kind)
	assert.Equal(t, []float64{0, 1, 1, 0}, event.Values)

	// status is gone, death sits in its position
	assert.Nil(t, ds.Column("status"))
	assert.Equal(t, []string{"dtime", "death"}, ds.ColumnNames())

	op := operations[1]
	assert.Equal(t, "dead - prostatic ca", op.OriginalValue)
	assert.Equal(t, "1", op.NewValue)
	assert.Equal(t, "substring_dead", op.Rule)
	assert.Equal(t, pinned, op.RecodedAt)
}

func TestCleanOutcomeIsIdempotent(t *testing.T) {
	ds := outcomeDataset(t, []float64{0, 1}, []string{"alive", "dead - unknown cause"})

	c, err := NewOutcomeCleaner(zap.NewNop())
	require.NoError(t, err)

	first, err := c.CleanOutcome(ds, "status", "death")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := c.CleanOutcome(ds, "status", "death")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, []float64{0, 1}, ds.Column("death").Values)
}

func TestCleanOutcomeRejectsUnknownCategory(t *testing.T) {
	ds := outcomeDataset(t, []float64{0, 1}, []string{"alive", "lost to follow-up"})

	c, err := NewOutcomeCleaner(zap.NewNop())
	require.NoError(t, err)

	_, err = c.CleanOutcome(ds, "status", "death")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnrecognizedCategory))
	assert.Contains(t, err.Error(), "lost to follow-up")
}

func TestCleanOutcomeRejectsMissingStatus(t *testing.T) {
	ds := outcomeDataset(t, []float64{0, math.NaN()}, []string{"alive", "dead - other ca"})

	c, err := NewOutcomeCleaner(zap.NewNop())
	require.NoError(t, err)

	_, err = c.CleanOutcome(ds, "status", "death")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnrecognizedCategory))
}

func TestClassifyOutcomeRules(t *testing.T) {
	tests := []struct {
		label     string
		indicator float64
		rule      string
		wantErr   bool
	}{
		{"alive", 0, "substring_alive", false},
		{"ALIVE ", 0, "substring_alive", false},
		{"dead - cerebrovascular", 1, "substring_dead", false},
		{"Dead - unknown cause", 1, "substring_dead", false},
		{"unknown", 0, "", true},
		{"", 0, "", true},
	}

	for _, tt := range tests {
		indicator, rule, err := classifyOutcome(tt.label)
		if tt.wantErr {
			assert.Error(t, err, tt.label)
			assert.True(t, errors.Is(err, model.ErrUnrecognizedCategory))
			continue
		}
		require.NoError(t, err, tt.label)
		assert.Equal(t, tt.indicator, indicator, tt.label)
		assert.Equal(t, tt.rule, rule, tt.label)
	}
}
