// pkg/survival/cox.go
package survival

import (
	"errors"
	"fmt"

	"github.com/kshedden/statmodel/duration"
	"github.com/kshedden/statmodel/statmodel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/survstats/survpipe/pkg/model"
)

// Spec describes the proportional hazards model to fit
type Spec struct {
	TimeColumn  string   // Follow-up time variable
	EventColumn string   // Binary event indicator (1 = event)
	Covariates  []string // Model covariates, numeric or factor
	SplineTerms []string // Numeric covariates expanded with restricted cubic splines
	SplineKnots int      // Knots per spline term
}

// Validate checks the model description for basic consistency
func (s *Spec) Validate() error {
	if s.TimeColumn == "" {
		return errors.New("time column is required")
	}
	if s.EventColumn == "" {
		return errors.New("event column is required")
	}
	if len(s.Covariates) == 0 {
		return errors.New("at least one covariate is required")
	}
	for _, name := range s.SplineTerms {
		found := false
		for _, c := range s.Covariates {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("spline term %s is not a covariate", name)
		}
	}
	return nil
}

// FitResult holds one fitted proportional hazards model
type FitResult struct {
	Names     []string  // Design column names, matching Estimates
	Estimates []float64 // Log hazard ratios
	StdErrors []float64 // Standard errors of the estimates
	LogLike   float64   // Maximized partial log likelihood
	Rows      int
	Summary   string // Human-readable fit summary
}

// maxFitIterations bounds the partial-likelihood optimizer
const maxFitIterations = 200

// Fitter fits Cox proportional hazards models to completed datasets
type Fitter struct {
	spec   Spec
	logger *zap.Logger
}

// NewFitter creates a new Fitter instance
func NewFitter(spec Spec, logger *zap.Logger) (*Fitter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model spec: %w", err)
	}
	return &Fitter{
		spec:   spec,
		logger: logger.Named("fitter"),
	}, nil
}

// Fit estimates the proportional hazards model on one completed dataset. The
// dataset must have no missing cells in the modeled columns. A failure to
// maximize the partial likelihood is reported as ErrConvergenceFailure.
func (f *Fitter) Fit(ds *model.Dataset) (*FitResult, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	data, xnames, err := f.buildDesign(ds)
	if err != nil {
		return nil, err
	}

	// Cap the optimizer so non-convergent data terminates with an error
	// instead of iterating forever. A custom OptSettings bypasses statmodel's
	// defaults, so its method and gradient threshold are restated here; the
	// evaluation cap bounds linesearch-internal iterations that
	// MajorIterations does not cover.
	phreg, err := duration.NewPHReg(data, f.spec.TimeColumn, f.spec.EventColumn, xnames, &duration.PHRegConfig{
		OptMethod: &optimize.BFGS{Linesearcher: &optimize.MoreThuente{}},
		OptSettings: &optimize.Settings{
			MajorIterations:   maxFitIterations,
			FuncEvaluations:   10 * maxFitIterations,
			GradientThreshold: 1e-4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("constructing hazards model for %s: %w", ds.Name, err)
	}

	result, err := phreg.Fit()
	if err != nil {
		return nil, fmt.Errorf("%w: fitting %s: %v", model.ErrConvergenceFailure, ds.Name, err)
	}

	// A singular information matrix leaves the fit without standard errors
	// even when the optimizer reports success
	if len(result.Params()) != len(xnames) || len(result.StdErr()) != len(xnames) {
		return nil, fmt.Errorf("%w: fitting %s: information matrix is singular, standard errors unavailable",
			model.ErrConvergenceFailure, ds.Name)
	}

	fit := &FitResult{
		Names:     xnames,
		Estimates: append([]float64(nil), result.Params()...),
		StdErrors: append([]float64(nil), result.StdErr()...),
		LogLike:   result.LogLike(),
		Rows:      ds.NumRows(),
		Summary:   fmt.Sprintf("%v", result.Summary()),
	}

	f.logger.Debug("Fitted hazards model",
		zap.String("dataset", ds.Name),
		zap.Int("rows", fit.Rows),
		zap.Int("terms", len(xnames)),
		zap.Float64("logLike", fit.LogLike))

	return fit, nil
}

// buildDesign assembles the statmodel dataset: time, event, then the design
// columns. Factor covariates are dummy-expanded against their first level;
// spline covariates are expanded into their basis columns.
func (f *Fitter) buildDesign(ds *model.Dataset) (statmodel.Dataset, []string, error) {
	var cols [][]float64
	var names []string

	appendCol := func(name string, values []float64) {
		cols = append(cols, values)
		names = append(names, name)
	}

	timeCol := ds.Column(f.spec.TimeColumn)
	if timeCol == nil {
		return nil, nil, fmt.Errorf("dataset %s has no time column %s", ds.Name, f.spec.TimeColumn)
	}
	eventCol := ds.Column(f.spec.EventColumn)
	if eventCol == nil {
		return nil, nil, fmt.Errorf("dataset %s has no event column %s", ds.Name, f.spec.EventColumn)
	}
	appendCol(f.spec.TimeColumn, timeCol.Values)
	appendCol(f.spec.EventColumn, eventCol.Values)

	splined := make(map[string]bool, len(f.spec.SplineTerms))
	for _, name := range f.spec.SplineTerms {
		splined[name] = true
	}

	var xnames []string
	for _, name := range f.spec.Covariates {
		col := ds.Column(name)
		if col == nil {
			return nil, nil, fmt.Errorf("dataset %s has no covariate column %s", ds.Name, name)
		}
		if col.MissingCount() > 0 {
			return nil, nil, fmt.Errorf("covariate %s still has missing cells; impute before fitting", name)
		}

		switch {
		case col.Kind == model.KindFactor:
			dummyCols, dummyNames := dummyExpand(col)
			for i := range dummyCols {
				appendCol(dummyNames[i], dummyCols[i])
				xnames = append(xnames, dummyNames[i])
			}
		case splined[name]:
			basis, err := NewSplineBasis(name, col.Values, f.spec.SplineKnots)
			if err != nil {
				return nil, nil, err
			}
			termCols := basis.Expand(col.Values)
			termNames := basis.TermNames()
			for i := range termCols {
				appendCol(termNames[i], termCols[i])
				xnames = append(xnames, termNames[i])
			}
		default:
			appendCol(name, col.Values)
			xnames = append(xnames, name)
		}
	}

	return statmodel.NewDataset(cols, names), xnames, nil
}

// dummyExpand produces one indicator column per non-reference level of a
// factor. The first level is the reference and gets no column.
func dummyExpand(col *model.Column) ([][]float64, []string) {
	var cols [][]float64
	var names []string
	for code := 1; code < len(col.Levels); code++ {
		ind := make([]float64, len(col.Values))
		for r, v := range col.Values {
			if int(v) == code {
				ind[r] = 1
			}
		}
		cols = append(cols, ind)
		names = append(names, fmt.Sprintf("%s=%s", col.Name, col.Levels[code]))
	}
	return cols, names
}
