// pkg/survival/spline.go
package survival

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SplineBasis is a restricted cubic spline basis for one variable: k knots
// placed at quantiles of the observed values yield k-1 basis columns, the
// first of which is the identity term.
type SplineBasis struct {
	Variable string
	Knots    []float64
}

// NewSplineBasis places k knots at equally spaced quantiles of the observed
// (non-missing) values. At least three knots are required for the restricted
// form to produce a nonlinear term.
func NewSplineBasis(variable string, values []float64, k int) (*SplineBasis, error) {
	if k < 3 {
		return nil, fmt.Errorf("spline for %s requires at least 3 knots, got %d", variable, k)
	}

	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) < k {
		return nil, fmt.Errorf("spline for %s requires at least %d observed values, got %d",
			variable, k, len(observed))
	}
	sort.Float64s(observed)

	// Harrell's default placement: outer knots near the tails, inner knots
	// equally spaced in probability between them
	lo, hi := outerQuantiles(k)
	knots := make([]float64, k)
	for i := 0; i < k; i++ {
		p := lo + (hi-lo)*float64(i)/float64(k-1)
		knots[i] = stat.Quantile(p, stat.Empirical, observed, nil)
	}

	for i := 1; i < k; i++ {
		if knots[i] <= knots[i-1] {
			return nil, errors.New("spline knots are not strictly increasing; too many ties in " + variable)
		}
	}

	return &SplineBasis{Variable: variable, Knots: knots}, nil
}

// outerQuantiles returns the probability range spanned by the knots,
// following the usual defaults for restricted cubic splines
func outerQuantiles(k int) (float64, float64) {
	switch {
	case k <= 3:
		return 0.10, 0.90
	case k <= 6:
		return 0.05, 0.95
	default:
		return 0.025, 0.975
	}
}

// NumTerms returns the number of basis columns (knots - 1)
func (b *SplineBasis) NumTerms() int {
	return len(b.Knots) - 1
}

// TermNames returns the column names of the basis terms: the variable itself
// for the linear term, then numbered nonlinear terms
func (b *SplineBasis) TermNames() []string {
	names := make([]string, b.NumTerms())
	names[0] = b.Variable
	for i := 1; i < b.NumTerms(); i++ {
		names[i] = fmt.Sprintf("%s'%d", b.Variable, i)
	}
	return names
}

// Expand evaluates the basis at every value, returning one column per term.
// The first column is the value itself; the remaining columns are the
// truncated power terms, normalized by the knot span so coefficients stay on
// comparable scales.
func (b *SplineBasis) Expand(values []float64) [][]float64 {
	k := len(b.Knots)
	cols := make([][]float64, b.NumTerms())
	for i := range cols {
		cols[i] = make([]float64, len(values))
	}

	span := b.Knots[k-1] - b.Knots[0]
	norm := span * span

	for r, x := range values {
		cols[0][r] = x
		for j := 0; j < k-2; j++ {
			cols[j+1][r] = b.term(x, j) / norm
		}
	}
	return cols
}

// term evaluates the j-th restricted truncated power term at x. The
// restriction forces the function to be linear beyond the outer knots.
func (b *SplineBasis) term(x float64, j int) float64 {
	k := len(b.Knots)
	t := b.Knots

	d := func(a float64) float64 {
		if a <= 0 {
			return 0
		}
		return a * a * a
	}

	lastSpan := t[k-1] - t[k-2]
	return d(x-t[j]) -
		d(x-t[k-2])*(t[k-1]-t[j])/lastSpan +
		d(x-t[k-1])*(t[k-2]-t[j])/lastSpan
}
