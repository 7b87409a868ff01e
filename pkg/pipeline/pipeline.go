// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/cleaner"
	"github.com/survstats/survpipe/pkg/config"
	"github.com/survstats/survpipe/pkg/impute"
	"github.com/survstats/survpipe/pkg/loader"
	"github.com/survstats/survpipe/pkg/model"
	"github.com/survstats/survpipe/pkg/profile"
	"github.com/survstats/survpipe/pkg/report"
	"github.com/survstats/survpipe/pkg/source"
	"github.com/survstats/survpipe/pkg/survival"
)

// Result collects the artifacts of a completed run
type Result struct {
	RunID      string
	Dataset    *model.Dataset // Cleaned dataset
	Summary    *profile.MissingSummary
	Dendrogram *profile.DendrogramNode
	Tree       *profile.TreeNode
	Outcome    *OutcomeCheck
	Pooled     *survival.PooledModel
	Curve      *survival.SurvivalCurve
	Metrics    *RunMetrics
}

// Runner executes the analysis pipeline: load, clean, profile, impute, fit
// and pool, then report. Stages run sequentially and the first error aborts
// the run.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRunner creates a new Runner instance
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.Named("pipeline"),
	}, nil
}

// Run executes one full pipeline pass
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	metrics := NewRunMetrics(runID, r.cfg.Dataset, r.logger)
	result := &Result{RunID: runID, Metrics: metrics}

	r.logger.Info("Starting pipeline run",
		zap.String("runID", runID),
		zap.String("dataset", r.cfg.Dataset),
		zap.String("sourceKind", r.cfg.SourceKind))

	src, err := source.NewSource(ctx, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Load
	stage := metrics.StartStage("load")
	ds, _, err := r.load(ctx, src)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}
	result.Dataset = ds
	metrics.Rows = ds.NumRows()
	metrics.MissingCells = ds.MissingCells()

	// Clean
	stage = metrics.StartStage("clean")
	operations, err := r.clean(ds)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}
	metrics.RecodedValues = len(operations)

	stage = metrics.StartStage("verify")
	result.Outcome, err = r.verify(ds)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}

	// Profile
	stage = metrics.StartStage("profile")
	err = r.profile(ds, result)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}

	// Impute
	stage = metrics.StartStage("impute")
	copies, err := r.impute(ds)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}
	metrics.Imputations = len(copies)

	// Fit and pool
	stage = metrics.StartStage("fit")
	err = r.fit(ds, copies, result)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}
	metrics.PooledTerms = len(result.Pooled.Terms)

	// Report
	stage = metrics.StartStage("report")
	err = r.report(result)
	metrics.EndStage(stage, err)
	if err != nil {
		return nil, err
	}

	metrics.Finish()
	return result, nil
}

func (r *Runner) load(ctx context.Context, src source.Source) (*model.Dataset, *model.DatasetSchema, error) {
	ld, err := loader.NewLoader(src, r.logger)
	if err != nil {
		return nil, nil, err
	}
	return ld.Load(ctx, r.cfg.Dataset)
}

func (r *Runner) clean(ds *model.Dataset) ([]model.RecodeOperation, error) {
	cl, err := cleaner.NewOutcomeCleaner(r.logger)
	if err != nil {
		return nil, err
	}
	return cl.CleanOutcome(ds, r.cfg.StatusColumn, r.cfg.EventColumn)
}

func (r *Runner) verify(ds *model.Dataset) (*OutcomeCheck, error) {
	v, err := NewVerifier(r.logger)
	if err != nil {
		return nil, err
	}
	return v.VerifyOutcome(ds, r.cfg.EventColumn)
}

// profile runs the missingness summary, the variable clustering and the
// missingness tree. The tree predicts the configured target from every other
// variable.
func (r *Runner) profile(ds *model.Dataset, result *Result) error {
	summary, err := profile.Summarize(ds)
	if err != nil {
		return fmt.Errorf("missingness summary failed: %w", err)
	}
	result.Summary = summary

	dendrogram, err := profile.ClusterVariables(ds)
	if err != nil {
		return fmt.Errorf("variable clustering failed: %w", err)
	}
	result.Dendrogram = dendrogram

	var predictors []string
	for _, name := range ds.ColumnNames() {
		if name != r.cfg.TreeTarget {
			predictors = append(predictors, name)
		}
	}
	tree, err := profile.MissingnessTree(ds, profile.TreeConfig{
		Target:     r.cfg.TreeTarget,
		Predictors: predictors,
		MinLeaf:    r.cfg.TreeMinLeaf,
		MaxDepth:   r.cfg.TreeMaxDepth,
	})
	if err != nil {
		return fmt.Errorf("missingness tree failed: %w", err)
	}
	result.Tree = tree
	return nil
}

func (r *Runner) impute(ds *model.Dataset) ([]*model.Dataset, error) {
	method, err := impute.ParseMethod(r.cfg.ImputeMethod)
	if err != nil {
		return nil, err
	}

	var overrides map[string]impute.Method
	if len(r.cfg.ImputeOverrides) > 0 {
		overrides = make(map[string]impute.Method, len(r.cfg.ImputeOverrides))
		for name, raw := range r.cfg.ImputeOverrides {
			m, err := impute.ParseMethod(raw)
			if err != nil {
				return nil, fmt.Errorf("override for %s: %w", name, err)
			}
			overrides[name] = m
		}
	}

	im, err := impute.NewImputer(impute.Config{
		M:             r.cfg.Imputations,
		Iterations:    r.cfg.ImputeIterations,
		DefaultMethod: method,
		Methods:       overrides,
		Donors:        r.cfg.DonorPool,
		Seed:          r.cfg.Seed,
	}, r.logger)
	if err != nil {
		return nil, err
	}

	copies, err := im.Impute(ds)
	if err != nil {
		return nil, err
	}

	v, err := NewVerifier(r.logger)
	if err != nil {
		return nil, err
	}
	if err := v.VerifyComplete(ds, copies); err != nil {
		return nil, err
	}
	return copies, nil
}

// fit estimates the hazards model on every completed copy, pools the results
// with Rubin's rules and computes the marginal survival curve from the
// cleaned dataset (time and event are always complete after verification)
func (r *Runner) fit(ds *model.Dataset, copies []*model.Dataset, result *Result) error {
	fitter, err := survival.NewFitter(survival.Spec{
		TimeColumn:  r.cfg.TimeColumn,
		EventColumn: r.cfg.EventColumn,
		Covariates:  r.cfg.Covariates,
		SplineTerms: r.cfg.SplineTerms,
		SplineKnots: r.cfg.SplineKnots,
	}, r.logger)
	if err != nil {
		return err
	}

	pooled, err := survival.FitPool(fitter, copies, r.logger)
	if err != nil {
		return err
	}
	result.Pooled = pooled

	curve, err := survival.KaplanMeier(ds, r.cfg.TimeColumn, r.cfg.EventColumn)
	if err != nil {
		return err
	}
	result.Curve = curve
	return nil
}

func (r *Runner) report(result *Result) error {
	builder, err := report.NewBuilder(r.cfg.ReportPath, r.logger)
	if err != nil {
		return err
	}
	return builder.Write(result.RunID, result.Summary, result.Dendrogram,
		result.Tree, r.cfg.TreeTarget, result.Pooled, result.Curve)
}
