// pkg/profile/profile_test.go
package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/survstats/survpipe/pkg/model"
)

func profileDataset(t *testing.T) *model.Dataset {
	t.Helper()

	nan := math.NaN()
	n := 120
	age := make([]float64, n)
	wt := make([]float64, n)
	sz := make([]float64, n)
	hg := make([]float64, n)
	for i := 0; i < n; i++ {
		age[i] = 55 + float64(i%25)
		wt[i] = 90 + float64(i%30)
		sz[i] = float64(i % 40)
		hg[i] = 10 + float64(i%8)
	}
	// wt and sz go missing together on early rows; hg independently
	for i := 0; i < 20; i++ {
		wt[i] = nan
		sz[i] = nan
	}
	for i := 50; i < 58; i++ {
		hg[i] = nan
	}

	ds, err := model.NewDataset("trial", []model.Column{
		{Name: "age", Kind: model.KindNumeric, Values: age},
		{Name: "wt", Kind: model.KindNumeric, Values: wt},
		{Name: "sz", Kind: model.KindNumeric, Values: sz},
		{Name: "hg", Kind: model.KindNumeric, Values: hg},
	})
	require.NoError(t, err)
	return ds
}

func TestSummarizeReconcilesWithDataset(t *testing.T) {
	ds := profileDataset(t)

	summary, err := Summarize(ds)
	require.NoError(t, err)

	assert.Equal(t, ds.NumRows(), summary.Rows)
	assert.Len(t, summary.Variables, ds.NumCols())
	assert.Equal(t, ds.MissingCells(), summary.TotalMissing)

	total := 0
	for _, v := range summary.Variables {
		total += v.Count
		assert.InDelta(t, float64(v.Count)/float64(summary.Rows), v.Proportion, 1e-12, v.Name)
	}
	assert.Equal(t, summary.TotalMissing, total)

	assert.ElementsMatch(t, []string{"wt", "sz", "hg"}, summary.IncompleteVariables())

	age := summary.Variables[0]
	assert.Equal(t, "age", age.Name)
	assert.Zero(t, age.Count)
	assert.False(t, math.IsNaN(age.Mean))
	assert.False(t, math.IsNaN(age.Median))
}

func TestClusterVariablesPairsCoMissing(t *testing.T) {
	ds := profileDataset(t)

	root, err := ClusterVariables(ds)
	require.NoError(t, err)

	assert.ElementsMatch(t, ds.ColumnNames(), root.Members())

	// wt and sz share an identical missingness pattern, so some subtree must
	// join exactly those two at dissimilarity zero
	var pair *DendrogramNode
	var find func(n *DendrogramNode)
	find = func(n *DendrogramNode) {
		if n == nil || n.IsLeaf() {
			return
		}
		members := n.Members()
		if len(members) == 2 {
			if (members[0] == "wt" && members[1] == "sz") || (members[0] == "sz" && members[1] == "wt") {
				pair = n
			}
		}
		find(n.Left)
		find(n.Right)
	}
	find(root)
	require.NotNil(t, pair, "wt/sz should merge as a pair")
	assert.InDelta(t, 0, pair.Height, 1e-9)

	rendered := root.Render()
	assert.Contains(t, rendered, "wt")
	assert.Contains(t, rendered, "merged at")
}

func TestClusterVariablesRequiresTwoColumns(t *testing.T) {
	ds, err := model.NewDataset("single", []model.Column{
		{Name: "a", Kind: model.KindNumeric, Values: []float64{1, 2}},
	})
	require.NoError(t, err)

	_, err = ClusterVariables(ds)
	assert.Error(t, err)
}

func TestMissingnessTreeRespectsMinLeaf(t *testing.T) {
	ds := profileDataset(t)

	tree, err := MissingnessTree(ds, TreeConfig{
		Target:     "sz",
		Predictors: []string{"age", "wt", "hg"},
		MinLeaf:    15,
		MaxDepth:   3,
	})
	require.NoError(t, err)

	var walk func(n *TreeNode, depth int)
	walk = func(n *TreeNode, depth int) {
		assert.LessOrEqual(t, depth, 3)
		if n.IsLeaf {
			assert.GreaterOrEqual(t, n.Samples, 15)
			assert.GreaterOrEqual(t, n.MissingRate, 0.0)
			assert.LessOrEqual(t, n.MissingRate, 1.0)
			return
		}
		require.NotNil(t, n.Left)
		require.NotNil(t, n.Right)
		assert.Equal(t, n.Samples, n.Left.Samples+n.Right.Samples)
		walk(n.Left, depth+1)
		walk(n.Right, depth+1)
	}
	walk(tree, 0)

	assert.Equal(t, ds.NumRows(), tree.Samples)
	assert.Contains(t, tree.Render("sz"), "is sz missing?")
}

func TestMissingnessTreeLeafWhenTooSmall(t *testing.T) {
	nan := math.NaN()
	ds, err := model.NewDataset("tiny", []model.Column{
		{Name: "a", Kind: model.KindNumeric, Values: []float64{1, 2, 3, 4}},
		{Name: "b", Kind: model.KindNumeric, Values: []float64{1, nan, 3, nan}},
	})
	require.NoError(t, err)

	tree, err := MissingnessTree(ds, TreeConfig{
		Target:     "b",
		Predictors: []string{"a"},
		MinLeaf:    15,
		MaxDepth:   3,
	})
	require.NoError(t, err)
	assert.True(t, tree.IsLeaf)
	assert.Equal(t, 4, tree.Samples)
	assert.InDelta(t, 0.5, tree.MissingRate, 1e-12)
}

func TestMissingnessTreeUnknownTarget(t *testing.T) {
	ds := profileDataset(t)
	_, err := MissingnessTree(ds, TreeConfig{
		Target:     "nope",
		Predictors: []string{"age"},
		MinLeaf:    15,
	})
	assert.Error(t, err)
}
