// pkg/survival/pool.go
package survival

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/survstats/survpipe/pkg/model"
)

// PooledTerm is one design column's estimate combined across imputations
// with Rubin's rules
type PooledTerm struct {
	Name        string
	Estimate    float64 // Mean of the per-imputation estimates
	StdErr      float64 // sqrt of the total variance
	Within      float64 // Mean of the per-imputation squared standard errors
	Between     float64 // Sample variance of the per-imputation estimates
	Total       float64 // Within + (1 + 1/M) * Between
	HazardRatio float64
	CILower     float64 // 95% interval on the hazard ratio scale
	CIUpper     float64
}

// PooledModel is the combined proportional hazards fit across M imputations
type PooledModel struct {
	Terms []PooledTerm
	M     int
	Rows  int
	Fits  []*FitResult // Per-imputation fits, kept for diagnostics
}

// Pool combines per-imputation fits with Rubin's rules. All fits must share
// the same design columns; identical fits pool to the single-fit estimates
// with zero between-imputation variance.
func Pool(fits []*FitResult) (*PooledModel, error) {
	if len(fits) == 0 {
		return nil, errors.New("pooling requires at least one fit")
	}

	names := fits[0].Names
	for i, fit := range fits {
		if len(fit.Names) != len(names) {
			return nil, fmt.Errorf("fit %d has %d terms, expected %d", i+1, len(fit.Names), len(names))
		}
		if len(fit.Estimates) != len(names) || len(fit.StdErrors) != len(names) {
			return nil, fmt.Errorf("fit %d carries %d estimates and %d standard errors for %d terms",
				i+1, len(fit.Estimates), len(fit.StdErrors), len(names))
		}
		for j, name := range fit.Names {
			if name != names[j] {
				return nil, fmt.Errorf("fit %d term %d is %s, expected %s", i+1, j, name, names[j])
			}
		}
	}

	m := float64(len(fits))
	pooled := &PooledModel{
		Terms: make([]PooledTerm, len(names)),
		M:     len(fits),
		Rows:  fits[0].Rows,
		Fits:  fits,
	}

	estimates := make([]float64, len(fits))
	sqErrors := make([]float64, len(fits))
	for j, name := range names {
		for i, fit := range fits {
			estimates[i] = fit.Estimates[j]
			sqErrors[i] = fit.StdErrors[j] * fit.StdErrors[j]
		}

		qbar := stat.Mean(estimates, nil)
		within := stat.Mean(sqErrors, nil)
		between := 0.0
		if len(fits) > 1 {
			between = stat.Variance(estimates, nil)
		}
		total := within + (1+1/m)*between
		se := math.Sqrt(total)

		pooled.Terms[j] = PooledTerm{
			Name:        name,
			Estimate:    qbar,
			StdErr:      se,
			Within:      within,
			Between:     between,
			Total:       total,
			HazardRatio: math.Exp(qbar),
			CILower:     math.Exp(qbar - 1.96*se),
			CIUpper:     math.Exp(qbar + 1.96*se),
		}
	}

	return pooled, nil
}

// FitPool fits the model on every completed dataset and pools the results.
// The first fit failure aborts the pool.
func FitPool(fitter *Fitter, copies []*model.Dataset, logger *zap.Logger) (*PooledModel, error) {
	if fitter == nil {
		return nil, errors.New("fitter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(copies) == 0 {
		return nil, errors.New("pooling requires at least one completed dataset")
	}

	log := logger.Named("pool")
	fits := make([]*FitResult, len(copies))
	for i, ds := range copies {
		fit, err := fitter.Fit(ds)
		if err != nil {
			return nil, fmt.Errorf("imputation %d: %w", i+1, err)
		}
		fits[i] = fit
		log.Debug("Pooled fit member complete",
			zap.Int("imputation", i+1),
			zap.Float64("logLike", fit.LogLike))
	}

	pooled, err := Pool(fits)
	if err != nil {
		return nil, err
	}

	log.Info("Pooled hazards model",
		zap.Int("m", pooled.M),
		zap.Int("terms", len(pooled.Terms)),
		zap.Int("rows", pooled.Rows))

	return pooled, nil
}
