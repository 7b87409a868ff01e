// pkg/impute/mice.go
package impute

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/survstats/survpipe/pkg/model"
)

// Config controls the chained-equation imputation
type Config struct {
	M             int               // Completed copies; 0 derives from the missing fraction
	Iterations    int               // Chained-equation sweeps per copy
	DefaultMethod Method            // Method for variables without an override
	Methods       map[string]Method // Per-variable method overrides
	Donors        int               // PMM donor pool size
	Seed          int64             // RNG seed
}

// Imputer produces multiple completed copies of an incomplete dataset using
// multiple imputation by chained equations
type Imputer struct {
	cfg    Config
	logger *zap.Logger
}

// NewImputer creates a new Imputer instance
func NewImputer(cfg Config, logger *zap.Logger) (*Imputer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Iterations <= 0 {
		return nil, errors.New("iteration count must be positive")
	}
	if cfg.Donors <= 0 {
		return nil, errors.New("donor pool size must be positive")
	}
	if cfg.DefaultMethod == "" {
		cfg.DefaultMethod = MethodPMM
	}

	return &Imputer{
		cfg:    cfg,
		logger: logger.Named("imputer"),
	}, nil
}

// DefaultM derives the imputation count from the missing-cell fraction:
// max(5, ceil(100 * fraction))
func DefaultM(missingFraction float64) int {
	// The product picks up float noise (100*0.07 > 7); shave it off before
	// taking the ceiling
	m := int(math.Ceil(100*missingFraction - 1e-9))
	if m < 5 {
		m = 5
	}
	return m
}

// Impute returns M completed copies of the dataset. The input is never
// modified; a dataset with no missing cells yields M identical deep copies.
func (im *Imputer) Impute(ds *model.Dataset) ([]*model.Dataset, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	m := im.cfg.M
	if m <= 0 {
		m = DefaultM(ds.MissingFraction())
	}

	incomplete := incompleteColumns(ds)
	im.logger.Info("Starting imputation",
		zap.String("dataset", ds.Name),
		zap.Int("m", m),
		zap.Int("iterations", im.cfg.Iterations),
		zap.Int("incompleteVariables", len(incomplete)))

	copies := make([]*model.Dataset, m)

	if len(incomplete) == 0 {
		for i := range copies {
			copies[i] = ds.Clone()
		}
		im.logger.Info("No missing cells, returning identical copies",
			zap.String("dataset", ds.Name), zap.Int("m", m))
		return copies, nil
	}

	rng := rand.New(rand.NewSource(im.cfg.Seed))
	for i := range copies {
		completed, err := im.imputeOne(ds, incomplete, rng)
		if err != nil {
			return nil, fmt.Errorf("imputation %d failed: %w", i+1, err)
		}
		copies[i] = completed
	}

	im.logger.Info("Imputation complete",
		zap.String("dataset", ds.Name),
		zap.Int("m", m))

	return copies, nil
}

// incompleteColumn pairs a column index with the rows where it is missing
type incompleteColumn struct {
	index   int
	missing []int
}

// incompleteColumns lists columns with missingness, in ascending
// missing-count order (mice's default visit sequence)
func incompleteColumns(ds *model.Dataset) []incompleteColumn {
	var out []incompleteColumn
	for i := range ds.Columns {
		var missing []int
		for r, v := range ds.Columns[i].Values {
			if math.IsNaN(v) {
				missing = append(missing, r)
			}
		}
		if len(missing) > 0 {
			out = append(out, incompleteColumn{index: i, missing: missing})
		}
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i].missing) < len(out[j].missing) })
	return out
}

// imputeOne produces a single completed copy
func (im *Imputer) imputeOne(ds *model.Dataset, incomplete []incompleteColumn, rng *rand.Rand) (*model.Dataset, error) {
	work := ds.Clone()

	// Initial fill: random draws from each variable's observed values
	for _, ic := range incomplete {
		col := &work.Columns[ic.index]
		observed := observedValues(ds.Columns[ic.index].Values)
		if len(observed) == 0 {
			return nil, fmt.Errorf("%w: variable %s has no observed values",
				model.ErrInsufficientPredictors, col.Name)
		}
		for _, r := range ic.missing {
			col.Values[r] = observed[rng.Intn(len(observed))]
		}
	}

	// Chained-equation sweeps: regress each incomplete variable on all
	// others using the current working values, then redraw its missing cells
	for iter := 0; iter < im.cfg.Iterations; iter++ {
		for _, ic := range incomplete {
			if err := im.updateVariable(work, ic, rng); err != nil {
				return nil, err
			}
		}
	}

	return work, nil
}

// updateVariable redraws the missing cells of one variable
func (im *Imputer) updateVariable(work *model.Dataset, ic incompleteColumn, rng *rand.Rand) error {
	col := &work.Columns[ic.index]
	method := im.methodFor(col)

	missingSet := make(map[int]bool, len(ic.missing))
	for _, r := range ic.missing {
		missingSet[r] = true
	}

	var obsRows []int
	for r := 0; r < work.NumRows(); r++ {
		if !missingSet[r] {
			obsRows = append(obsRows, r)
		}
	}

	observed := make([]float64, len(obsRows))
	for i, r := range obsRows {
		observed[i] = col.Values[r]
	}

	if method == MethodMedian {
		fill, err := drawMedian(observed, len(ic.missing))
		if err != nil {
			return fmt.Errorf("variable %s: %w", col.Name, err)
		}
		for i, r := range ic.missing {
			col.Values[r] = fill[i]
		}
		return nil
	}

	// Usable predictors: every other column with variation across the
	// working values
	predictors := usablePredictors(work, ic.index)
	if len(predictors) == 0 {
		return fmt.Errorf("%w: variable %s has no usable predictor columns",
			model.ErrInsufficientPredictors, col.Name)
	}

	fittedObs, fittedMis, err := fitLinear(work, predictors, col, obsRows, ic.missing)
	if err != nil {
		return fmt.Errorf("variable %s: %w", col.Name, err)
	}

	var fill []float64
	switch method {
	case MethodNorm:
		fill = drawNorm(observed, fittedObs, fittedMis, rng)
	default:
		fill = drawPMM(observed, fittedObs, fittedMis, im.cfg.Donors, rng)
	}

	for i, r := range ic.missing {
		col.Values[r] = fill[i]
	}
	return nil
}

// methodFor resolves the imputation method for a column. Factor columns
// always use PMM so drawn codes stay within the observed levels.
func (im *Imputer) methodFor(col *model.Column) Method {
	if col.Kind == model.KindFactor {
		return MethodPMM
	}
	if m, ok := im.cfg.Methods[col.Name]; ok {
		return m
	}
	return im.cfg.DefaultMethod
}

// usablePredictors returns indices of columns other than target that carry
// variation in their working values
func usablePredictors(work *model.Dataset, target int) []int {
	var out []int
	for i := range work.Columns {
		if i == target {
			continue
		}
		if hasVariation(work.Columns[i].Values) {
			out = append(out, i)
		}
	}
	return out
}

// fitLinear regresses the target on the predictors over the observed rows
// (QR least squares) and returns fitted means for observed and missing rows
func fitLinear(
	work *model.Dataset,
	predictors []int,
	col *model.Column,
	obsRows, misRows []int,
) ([]float64, []float64, error) {
	p := len(predictors) + 1 // intercept

	design := func(rows []int) *mat.Dense {
		x := mat.NewDense(len(rows), p, nil)
		for i, r := range rows {
			x.Set(i, 0, 1)
			for j, pi := range predictors {
				x.Set(i, j+1, work.Columns[pi].Values[r])
			}
		}
		return x
	}

	xObs := design(obsRows)
	y := mat.NewDense(len(obsRows), 1, nil)
	for i, r := range obsRows {
		y.Set(i, 0, col.Values[r])
	}

	var qr mat.QR
	qr.Factorize(xObs)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		// A condition warning still yields a usable solution; anything else
		// means the design is rank deficient beyond repair
		if _, ok := err.(mat.Condition); !ok {
			return nil, nil, fmt.Errorf("%w: least squares failed: %v",
				model.ErrInsufficientPredictors, err)
		}
	}

	predict := func(rows []int) []float64 {
		x := design(rows)
		var yhat mat.Dense
		yhat.Mul(x, &beta)
		out := make([]float64, len(rows))
		for i := range rows {
			out[i] = yhat.At(i, 0)
		}
		return out
	}

	return predict(obsRows), predict(misRows), nil
}

// observedValues returns the non-missing values of a column
func observedValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// hasVariation reports whether values contain at least two distinct
// non-missing entries
func hasVariation(values []float64) bool {
	first := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(first) {
			first = v
		} else if v != first {
			return true
		}
	}
	return false
}
