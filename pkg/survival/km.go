// pkg/survival/km.go
package survival

import (
	"errors"
	"fmt"

	"github.com/kshedden/statmodel/duration"
	"github.com/kshedden/statmodel/statmodel"

	"github.com/survstats/survpipe/pkg/model"
)

// SurvivalCurve is a Kaplan-Meier estimate of the survival function
type SurvivalCurve struct {
	Times []float64 // Distinct event times, ascending
	Probs []float64 // Estimated survival probability at each time
}

// KaplanMeier estimates the marginal survival curve from the time and event
// columns of a dataset. Rows with a missing time or event are excluded.
func KaplanMeier(ds *model.Dataset, timeName, eventName string) (*SurvivalCurve, error) {
	if ds == nil {
		return nil, errors.New("dataset cannot be nil")
	}

	timeCol := ds.Column(timeName)
	if timeCol == nil {
		return nil, fmt.Errorf("dataset %s has no time column %s", ds.Name, timeName)
	}
	eventCol := ds.Column(eventName)
	if eventCol == nil {
		return nil, fmt.Errorf("dataset %s has no event column %s", ds.Name, eventName)
	}

	var times, events []float64
	for r := 0; r < ds.NumRows(); r++ {
		if timeCol.IsMissing(r) || eventCol.IsMissing(r) {
			continue
		}
		times = append(times, timeCol.Values[r])
		events = append(events, eventCol.Values[r])
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("dataset %s has no complete time/event rows", ds.Name)
	}

	data := statmodel.NewDataset([][]float64{times, events}, []string{timeName, eventName})
	sf, err := duration.NewSurvfuncRight(data, timeName, eventName, nil)
	if err != nil {
		return nil, fmt.Errorf("estimating survival function for %s: %w", ds.Name, err)
	}
	sf.Fit()

	return &SurvivalCurve{
		Times: append([]float64(nil), sf.Time()...),
		Probs: append([]float64(nil), sf.SurvProb()...),
	}, nil
}
