// pkg/profile/cluster.go
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/survstats/survpipe/pkg/model"
)

// DendrogramNode is one node of the variable clustering tree. Leaves carry a
// variable name; internal nodes carry the merge height (dissimilarity at
// which the two subtrees were joined).
type DendrogramNode struct {
	Variable string // Leaf only
	Left     *DendrogramNode
	Right    *DendrogramNode
	Height   float64
	size     int
}

// IsLeaf reports whether the node is a single variable
func (n *DendrogramNode) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Members returns the variables under this node in left-to-right order
func (n *DendrogramNode) Members() []string {
	if n.IsLeaf() {
		return []string{n.Variable}
	}
	return append(n.Left.Members(), n.Right.Members()...)
}

// ClusterVariables groups variables by the similarity of their missingness
// patterns: each variable becomes a missing-indicator vector, pairwise
// dissimilarity is 1 - correlation of the indicators, and clusters are merged
// bottom-up with average linkage. The dataset is not modified.
func ClusterVariables(ds *model.Dataset) (*DendrogramNode, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}
	if ds.NumCols() < 2 {
		return nil, errors.New("clustering requires at least two variables")
	}

	// Missing-indicator vector per variable
	indicators := make([][]float64, ds.NumCols())
	for i := range ds.Columns {
		ind := make([]float64, ds.NumRows())
		for r, v := range ds.Columns[i].Values {
			if math.IsNaN(v) {
				ind[r] = 1
			}
		}
		indicators[i] = ind
	}

	// Pairwise dissimilarity matrix. Correlation is undefined for
	// zero-variance indicators (fully observed variables); those pairs are
	// treated as uncorrelated.
	n := len(indicators)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i == j {
				continue
			}
			r := stat.Correlation(indicators[i], indicators[j], nil)
			if math.IsNaN(r) {
				r = 0
			}
			dist[i][j] = 1 - r
		}
	}

	// Average-linkage agglomeration
	active := make([]*DendrogramNode, n)
	for i := range ds.Columns {
		active[i] = &DendrogramNode{Variable: ds.Columns[i].Name, size: 1}
	}

	for len(active) > 1 {
		// Find the closest pair
		bi, bj := 0, 1
		best := dist[0][1]
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}

		merged := &DendrogramNode{
			Left:   active[bi],
			Right:  active[bj],
			Height: best,
			size:   active[bi].size + active[bj].size,
		}

		// Average-linkage update: distance from the merged cluster to every
		// other cluster is the size-weighted mean of the component distances
		newDist := make([][]float64, 0, len(active)-1)
		newActive := make([]*DendrogramNode, 0, len(active)-1)
		for i := 0; i < len(active); i++ {
			if i == bi || i == bj {
				continue
			}
			newActive = append(newActive, active[i])
		}
		newActive = append(newActive, merged)

		for range newActive {
			newDist = append(newDist, make([]float64, len(newActive)))
		}
		oldIdx := make([]int, 0, len(active)-2)
		for i := 0; i < len(active); i++ {
			if i != bi && i != bj {
				oldIdx = append(oldIdx, i)
			}
		}
		for i := range oldIdx {
			for j := range oldIdx {
				newDist[i][j] = dist[oldIdx[i]][oldIdx[j]]
			}
		}
		wi := float64(active[bi].size)
		wj := float64(active[bj].size)
		for i, oi := range oldIdx {
			d := (wi*dist[bi][oi] + wj*dist[bj][oi]) / (wi + wj)
			newDist[i][len(newActive)-1] = d
			newDist[len(newActive)-1][i] = d
		}

		active = newActive
		dist = newDist
	}

	return active[0], nil
}

// Render formats the dendrogram as indented text, deepest merges first
func (n *DendrogramNode) Render() string {
	var sb strings.Builder
	n.render(&sb, 0)
	return sb.String()
}

func (n *DendrogramNode) render(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsLeaf() {
		fmt.Fprintf(sb, "%s- %s\n", indent, n.Variable)
		return
	}
	fmt.Fprintf(sb, "%s+ merged at %.3f\n", indent, n.Height)
	n.Left.render(sb, depth+1)
	n.Right.render(sb, depth+1)
}
