// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/model"
)

// OutcomeCleaner collapses the multi-category cause-of-death field into the
// binary event indicator required by the hazards model
type OutcomeCleaner struct {
	logger *zap.Logger
}

// NewOutcomeCleaner creates a new OutcomeCleaner instance
func NewOutcomeCleaner(logger *zap.Logger) (*OutcomeCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &OutcomeCleaner{
		logger: logger.Named("cleaner"),
	}, nil
}

// CleanOutcome replaces the statusCol factor with a binary numeric eventCol
// (1 = death, 0 = censored), mutating the dataset in place. It returns the
// audit log of recode operations performed.
//
// Cleaning is idempotent: if the outcome column is already a binary numeric
// column the dataset is left untouched and no operations are recorded.
func (c *OutcomeCleaner) CleanOutcome(ds *model.Dataset, statusCol, eventCol string) ([]model.RecodeOperation, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	// Already cleaned on a previous pass
	if existing := ds.Column(eventCol); existing != nil && isBinaryNumeric(existing) {
		c.logger.Debug("Outcome already binary, skipping recode",
			zap.String("dataset", ds.Name),
			zap.String("column", eventCol))
		return nil, nil
	}

	status := ds.Column(statusCol)
	if status == nil {
		return nil, fmt.Errorf("dataset %s has no column %s", ds.Name, statusCol)
	}
	if status.Kind != model.KindFactor {
		return nil, fmt.Errorf("column %s is %s, expected factor", statusCol, status.Kind)
	}

	event := model.Column{
		Name:   eventCol,
		Kind:   model.KindNumeric,
		Values: make([]float64, ds.NumRows()),
	}
	var operations []model.RecodeOperation

	for i := 0; i < ds.NumRows(); i++ {
		if status.IsMissing(i) {
			// A missing outcome cannot be silently carried forward; the
			// survival model needs every row classified
			return nil, fmt.Errorf("%w: row %d of %s has a missing %s value",
				model.ErrUnrecognizedCategory, i, ds.Name, statusCol)
		}

		label := status.Label(i)
		indicator, rule, err := classifyOutcome(label)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		event.Values[i] = indicator
		operations = append(operations, model.RecodeOperation{
			Dataset:       ds.Name,
			ColumnName:    statusCol,
			Row:           i,
			OriginalValue: label,
			NewValue:      fmt.Sprintf("%g", indicator),
			Rule:          rule,
			Reason:        "collapse_cause_of_death",
			RecodedAt:     recodeClock(),
		})
	}

	// Replace status with the binary event column, preserving position
	event.Name = statusCol
	if err := ds.ReplaceColumn(event); err != nil {
		return nil, fmt.Errorf("failed to install event column: %w", err)
	}
	ds.Column(statusCol).Name = eventCol

	c.logger.Info("Outcome recoded",
		zap.String("dataset", ds.Name),
		zap.String("from", statusCol),
		zap.String("to", eventCol),
		zap.Int("operations", len(operations)))

	return operations, nil
}

// isBinaryNumeric reports whether a column is numeric with every value in
// {0, 1} (missing cells excluded)
func isBinaryNumeric(col *model.Column) bool {
	if col.Kind != model.KindNumeric {
		return false
	}
	for _, v := range col.Values {
		if math.IsNaN(v) {
			continue
		}
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}
