// pkg/profile/missing.go
package profile

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/survstats/survpipe/pkg/model"
)

// VariableMissing summarizes the missingness of a single variable
type VariableMissing struct {
	Name       string
	Count      int     // Missing cells
	Proportion float64 // Missing cells / rows
	Mean       float64 // Mean of observed values (NaN if none observed)
	Median     float64 // Median of observed values (NaN if none observed)
}

// MissingSummary is the per-variable missingness report for a dataset.
// TotalMissing reconciles exactly with Dataset.MissingCells: every missing
// cell is counted once under its variable.
type MissingSummary struct {
	Dataset      string
	Rows         int
	Variables    []VariableMissing
	TotalMissing int
}

// Summarize computes per-variable missing counts and proportions along with
// observed-value location statistics. The dataset is not modified.
func Summarize(ds *model.Dataset) (*MissingSummary, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	summary := &MissingSummary{
		Dataset:   ds.Name,
		Rows:      ds.NumRows(),
		Variables: make([]VariableMissing, 0, ds.NumCols()),
	}

	for i := range ds.Columns {
		col := &ds.Columns[i]

		observed := make([]float64, 0, len(col.Values))
		missing := 0
		for _, v := range col.Values {
			if math.IsNaN(v) {
				missing++
			} else {
				observed = append(observed, v)
			}
		}

		vm := VariableMissing{
			Name:   col.Name,
			Count:  missing,
			Mean:   math.NaN(),
			Median: math.NaN(),
		}
		if summary.Rows > 0 {
			vm.Proportion = float64(missing) / float64(summary.Rows)
		}
		if len(observed) > 0 {
			if m, err := stats.Mean(observed); err == nil {
				vm.Mean = m
			}
			if m, err := stats.Median(observed); err == nil {
				vm.Median = m
			}
		}

		summary.Variables = append(summary.Variables, vm)
		summary.TotalMissing += missing
	}

	return summary, nil
}

// IncompleteVariables returns the names of variables with at least one
// missing cell
func (s *MissingSummary) IncompleteVariables() []string {
	var names []string
	for _, v := range s.Variables {
		if v.Count > 0 {
			names = append(names, v.Name)
		}
	}
	return names
}
