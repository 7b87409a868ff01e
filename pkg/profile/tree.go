// pkg/profile/tree.go
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/survstats/survpipe/pkg/model"
)

// TreeConfig configures the missingness decision tree
type TreeConfig struct {
	Target     string   // Variable whose missingness is predicted
	Predictors []string // Candidate predictor variables
	MinLeaf    int      // No split may produce a leaf smaller than this
	MaxDepth   int      // Depth cap keeping the tree shallow
}

// TreeNode is one node of the missingness tree. Internal nodes split on
// feature <= threshold; leaves carry the missingness rate of their rows.
type TreeNode struct {
	Feature     string
	Threshold   float64
	Left        *TreeNode // Rows with feature <= threshold
	Right       *TreeNode // Rows with feature > threshold
	IsLeaf      bool
	Samples     int
	MissingRate float64
}

// MissingnessTree fits a shallow classification tree predicting whether the
// target variable is missing from the candidate predictors. Gini impurity
// drives split selection; a split is only accepted when both children hold at
// least MinLeaf rows. Predictor cells that are themselves missing are filled
// with the observed median of the predictor before splitting, so every row
// participates. The dataset is not modified.
func MissingnessTree(ds *model.Dataset, cfg TreeConfig) (*TreeNode, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}
	if cfg.MinLeaf <= 0 {
		return nil, errors.New("minimum leaf size must be positive")
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}

	target := ds.Column(cfg.Target)
	if target == nil {
		return nil, fmt.Errorf("dataset %s has no column %s", ds.Name, cfg.Target)
	}

	labels := make([]float64, ds.NumRows())
	for i, v := range target.Values {
		if math.IsNaN(v) {
			labels[i] = 1
		}
	}

	features := make([][]float64, 0, len(cfg.Predictors))
	names := make([]string, 0, len(cfg.Predictors))
	for _, name := range cfg.Predictors {
		if name == cfg.Target {
			continue
		}
		col := ds.Column(name)
		if col == nil {
			return nil, fmt.Errorf("dataset %s has no predictor column %s", ds.Name, name)
		}
		features = append(features, medianFilled(col.Values))
		names = append(names, col.Name)
	}
	if len(features) == 0 {
		return nil, errors.New("missingness tree requires at least one predictor")
	}

	rows := make([]int, ds.NumRows())
	for i := range rows {
		rows[i] = i
	}

	t := &treeBuilder{features: features, names: names, labels: labels, cfg: cfg}
	return t.build(rows, 0), nil
}

type treeBuilder struct {
	features [][]float64
	names    []string
	labels   []float64
	cfg      TreeConfig
}

// build recursively grows the tree over the given row subset
func (t *treeBuilder) build(rows []int, depth int) *TreeNode {
	node := &TreeNode{
		Samples:     len(rows),
		MissingRate: t.missingRate(rows),
	}

	// Stop conditions
	if depth >= t.cfg.MaxDepth || len(rows) < 2*t.cfg.MinLeaf || t.isHomogeneous(rows) {
		node.IsLeaf = true
		return node
	}

	feature, threshold, gain := t.findBestSplit(rows)
	if gain <= 0 {
		node.IsLeaf = true
		return node
	}

	left, right := t.split(rows, feature, threshold)

	node.Feature = t.names[feature]
	node.Threshold = threshold
	node.Left = t.build(left, depth+1)
	node.Right = t.build(right, depth+1)
	return node
}

// findBestSplit tries quartile thresholds of every feature, keeping the
// split with the best gini gain among those that respect MinLeaf
func (t *treeBuilder) findBestSplit(rows []int) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	parent := t.gini(rows)

	for f := range t.features {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = t.features[f][r]
		}
		sort.Float64s(values)

		for _, q := range []float64{0.25, 0.5, 0.75} {
			threshold := stat.Quantile(q, stat.Empirical, values, nil)

			left, right := t.split(rows, f, threshold)
			if len(left) < t.cfg.MinLeaf || len(right) < t.cfg.MinLeaf {
				continue
			}

			lw := float64(len(left)) / float64(len(rows))
			rw := float64(len(right)) / float64(len(rows))
			gain := parent - (lw*t.gini(left) + rw*t.gini(right))

			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func (t *treeBuilder) split(rows []int, feature int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, r := range rows {
		if t.features[feature][r] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

func (t *treeBuilder) gini(rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	p := t.missingRate(rows)
	return 2 * p * (1 - p)
}

func (t *treeBuilder) missingRate(rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += t.labels[r]
	}
	return sum / float64(len(rows))
}

func (t *treeBuilder) isHomogeneous(rows []int) bool {
	rate := t.missingRate(rows)
	return rate == 0 || rate == 1
}

// medianFilled returns a copy of values with missing cells replaced by the
// observed median, so the tree can use every row
func medianFilled(values []float64) []float64 {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}

	fill := 0.0
	if len(observed) > 0 {
		sort.Float64s(observed)
		fill = stat.Quantile(0.5, stat.Empirical, observed, nil)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}

// Render formats the tree as indented text
func (n *TreeNode) Render(target string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "is %s missing?\n", target)
	n.render(&sb, 1)
	return sb.String()
}

func (n *TreeNode) render(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsLeaf {
		fmt.Fprintf(sb, "%sleaf: n=%d missing=%.1f%%\n", indent, n.Samples, n.MissingRate*100)
		return
	}
	fmt.Fprintf(sb, "%s%s <= %.3g (n=%d)\n", indent, n.Feature, n.Threshold, n.Samples)
	n.Left.render(sb, depth+1)
	fmt.Fprintf(sb, "%s%s > %.3g\n", indent, n.Feature, n.Threshold)
	n.Right.render(sb, depth+1)
}
