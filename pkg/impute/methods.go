// pkg/impute/methods.go
package impute

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"
)

// Method identifies a per-variable imputation method
type Method string

const (
	// MethodPMM is predictive mean matching: replacements are drawn from
	// observed values whose predicted means are closest to the missing
	// cell's predicted mean
	MethodPMM Method = "pmm"
	// MethodNorm draws from the normal posterior predictive: fitted mean
	// plus residual-scaled gaussian noise
	MethodNorm Method = "norm"
	// MethodMedian fills with the observed median; deterministic, intended
	// for sensitivity checks rather than inference
	MethodMedian Method = "median"
)

// ParseMethod validates a method name
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodPMM, MethodNorm, MethodMedian:
		return Method(name), nil
	default:
		return "", fmt.Errorf("unknown imputation method %q", name)
	}
}

// drawPMM fills each missing cell by matching on predicted means: the donors
// nearest in fitted value are collected and one observed value is drawn at
// random, so imputed values always come from the observed distribution
func drawPMM(
	observed []float64, // observed y values
	fittedObs []float64, // fitted means on observed rows
	fittedMis []float64, // fitted means on missing rows
	donors int,
	rng *rand.Rand,
) []float64 {
	type donor struct {
		fitted float64
		value  float64
	}
	pool := make([]donor, len(observed))
	for i := range observed {
		pool[i] = donor{fitted: fittedObs[i], value: observed[i]}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].fitted < pool[j].fitted })

	if donors > len(pool) {
		donors = len(pool)
	}

	out := make([]float64, len(fittedMis))
	for i, fm := range fittedMis {
		// Index of the first donor with fitted >= fm
		lo := sort.Search(len(pool), func(j int) bool { return pool[j].fitted >= fm })

		// Walk outward collecting the nearest donors by fitted value
		nearest := make([]int, 0, donors)
		l, r := lo-1, lo
		for len(nearest) < donors {
			switch {
			case l < 0:
				nearest = append(nearest, r)
				r++
			case r >= len(pool):
				nearest = append(nearest, l)
				l--
			case fm-pool[l].fitted <= pool[r].fitted-fm:
				nearest = append(nearest, l)
				l--
			default:
				nearest = append(nearest, r)
				r++
			}
		}

		out[i] = pool[nearest[rng.Intn(len(nearest))]].value
	}
	return out
}

// drawNorm fills each missing cell with its fitted mean plus gaussian noise
// scaled by the residual standard deviation
func drawNorm(
	observed []float64,
	fittedObs []float64,
	fittedMis []float64,
	rng *rand.Rand,
) []float64 {
	// Residual standard deviation from the observed rows
	ss := 0.0
	for i := range observed {
		r := observed[i] - fittedObs[i]
		ss += r * r
	}
	sigma := 0.0
	if len(observed) > 1 {
		sigma = math.Sqrt(ss / float64(len(observed)-1))
	}

	out := make([]float64, len(fittedMis))
	for i, fm := range fittedMis {
		out[i] = fm + sigma*rng.NormFloat64()
	}
	return out
}

// drawMedian fills every missing cell with the observed median
func drawMedian(observed []float64, count int) ([]float64, error) {
	med, err := stats.Median(observed)
	if err != nil {
		return nil, fmt.Errorf("median unavailable: %w", err)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = med
	}
	return out, nil
}
