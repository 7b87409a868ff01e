// pkg/report/report.go
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/profile"
	"github.com/survstats/survpipe/pkg/survival"
)

// Builder renders the analysis report as plain text: tables for the
// missingness profile and the pooled model, ascii plots for the missingness
// proportions and the survival curve
type Builder struct {
	out    io.Writer
	path   string
	logger *zap.Logger
}

// NewBuilder creates a report builder. When path is empty the report is
// written to stdout; otherwise it is written to the file at path.
func NewBuilder(path string, logger *zap.Logger) (*Builder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Builder{
		path:   path,
		logger: logger.Named("report"),
	}, nil
}

// Write renders all report sections. Sections whose inputs are nil are
// skipped, so a partially failed run can still report what it produced.
func (b *Builder) Write(
	runID string,
	summary *profile.MissingSummary,
	dendrogram *profile.DendrogramNode,
	tree *profile.TreeNode,
	treeTarget string,
	pooled *survival.PooledModel,
	curve *survival.SurvivalCurve,
) error {
	out, closeFn, err := b.open()
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(out, "survival analysis report (run %s)\n\n", runID)

	if summary != nil {
		b.writeMissingness(out, summary)
	}
	if dendrogram != nil {
		fmt.Fprintf(out, "variable clustering by missingness pattern:\n%s\n", dendrogram.Render())
	}
	if tree != nil {
		fmt.Fprintf(out, "missingness tree for %s:\n%s\n", treeTarget, tree.Render(treeTarget))
	}
	if pooled != nil {
		b.writePooled(out, pooled)
	}
	if curve != nil {
		b.writeCurve(out, curve)
	}

	if b.path != "" {
		b.logger.Info("Report written", zap.String("path", b.path))
	}
	return nil
}

// open resolves the output writer
func (b *Builder) open() (io.Writer, func(), error) {
	if b.path == "" {
		return os.Stdout, func() {}, nil
	}
	fid, err := os.Create(b.path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating report file %s: %w", b.path, err)
	}
	return fid, func() { fid.Close() }, nil
}

func (b *Builder) writeMissingness(out io.Writer, summary *profile.MissingSummary) {
	fmt.Fprintf(out, "missingness profile for %s (%d rows, %d missing cells):\n",
		summary.Dataset, summary.Rows, summary.TotalMissing)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Variable", "Missing", "Proportion", "Mean", "Median"})
	for _, v := range summary.Variables {
		table.Append([]string{
			v.Name,
			strconv.Itoa(v.Count),
			fmt.Sprintf("%.1f%%", v.Proportion*100),
			formatStat(v.Mean),
			formatStat(v.Median),
		})
	}
	table.Render()

	// Bar-style plot of the per-variable missing proportions, in column order
	props := make([]float64, len(summary.Variables))
	anyMissing := false
	for i, v := range summary.Variables {
		props[i] = v.Proportion * 100
		if v.Count > 0 {
			anyMissing = true
		}
	}
	if anyMissing {
		fmt.Fprintf(out, "\nmissing %% by variable (column order):\n%s\n\n",
			asciigraph.Plot(props, asciigraph.Height(8)))
	} else {
		fmt.Fprintln(out, "\nno missing cells")
	}
}

func (b *Builder) writePooled(out io.Writer, pooled *survival.PooledModel) {
	fmt.Fprintf(out, "pooled proportional hazards model (%d imputations, %d rows):\n",
		pooled.M, pooled.Rows)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Term", "Coef", "SE", "HR", "95% CI", "Between-Var"})
	for _, t := range pooled.Terms {
		table.Append([]string{
			t.Name,
			fmt.Sprintf("%.4f", t.Estimate),
			fmt.Sprintf("%.4f", t.StdErr),
			fmt.Sprintf("%.3f", t.HazardRatio),
			fmt.Sprintf("%.3f-%.3f", t.CILower, t.CIUpper),
			fmt.Sprintf("%.5f", t.Between),
		})
	}
	table.Render()
	fmt.Fprintln(out)
}

func (b *Builder) writeCurve(out io.Writer, curve *survival.SurvivalCurve) {
	if len(curve.Probs) == 0 {
		return
	}
	fmt.Fprintf(out, "Kaplan-Meier survival curve (%d event times, follow-up to %.0f):\n%s\n",
		len(curve.Times), curve.Times[len(curve.Times)-1],
		asciigraph.Plot(curve.Probs, asciigraph.Height(10)))
}

// formatStat renders an observed-value statistic, blank when undefined
func formatStat(v float64) string {
	if v != v {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
