// pkg/pipeline/verify.go
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/model"
)

// OutcomeCheck is the result of verifying the cleaned outcome column
type OutcomeCheck struct {
	Rows     int
	Events   int // Rows with event = 1
	Censored int // Rows with event = 0
}

// Verifier checks pipeline invariants between stages
type Verifier struct {
	logger *zap.Logger
}

// NewVerifier creates a new Verifier instance
func NewVerifier(logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Verifier{logger: logger.Named("verifier")}, nil
}

// VerifyOutcome checks the cleaned dataset: the event column must exist, be
// numeric, contain no missing cells, and hold only 0/1 values. Event and
// censored counts must account for every row.
func (v *Verifier) VerifyOutcome(ds *model.Dataset, eventCol string) (*OutcomeCheck, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	col := ds.Column(eventCol)
	if col == nil {
		return nil, fmt.Errorf("dataset %s has no event column %s", ds.Name, eventCol)
	}
	if col.Kind != model.KindNumeric {
		return nil, fmt.Errorf("event column %s is %s, expected numeric", eventCol, col.Kind)
	}

	check := &OutcomeCheck{Rows: ds.NumRows()}
	for i, val := range col.Values {
		switch {
		case math.IsNaN(val):
			return nil, fmt.Errorf("event column %s has a missing value at row %d", eventCol, i)
		case val == 1:
			check.Events++
		case val == 0:
			check.Censored++
		default:
			return nil, fmt.Errorf("event column %s has non-binary value %g at row %d", eventCol, val, i)
		}
	}

	if check.Events+check.Censored != check.Rows {
		return nil, fmt.Errorf("event counts do not reconcile: %d + %d != %d",
			check.Events, check.Censored, check.Rows)
	}

	v.logger.Info("Outcome verified",
		zap.String("dataset", ds.Name),
		zap.Int("rows", check.Rows),
		zap.Int("events", check.Events),
		zap.Int("censored", check.Censored))

	return check, nil
}

// VerifyComplete checks that every completed copy has the same shape as the
// source dataset and no remaining missing cells
func (v *Verifier) VerifyComplete(src *model.Dataset, copies []*model.Dataset) error {
	if src == nil {
		return errors.New("source dataset cannot be nil")
	}
	for i, c := range copies {
		if c.NumRows() != src.NumRows() || c.NumCols() != src.NumCols() {
			return fmt.Errorf("imputation %d has shape %dx%d, expected %dx%d",
				i+1, c.NumRows(), c.NumCols(), src.NumRows(), src.NumCols())
		}
		if missing := c.MissingCells(); missing > 0 {
			return fmt.Errorf("imputation %d still has %d missing cells", i+1, missing)
		}
	}

	v.logger.Debug("Completed copies verified",
		zap.String("dataset", src.Name),
		zap.Int("copies", len(copies)))

	return nil
}
