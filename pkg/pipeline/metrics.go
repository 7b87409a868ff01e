// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// StageMetrics tracks one pipeline stage
type StageMetrics struct {
	Stage     string
	StartTime time.Time
	EndTime   time.Time
	Error     string `json:",omitempty"`
}

// Duration returns how long the stage ran
func (sm *StageMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// RunMetrics tracks a full pipeline run. The pipeline is sequential, so no
// locking is needed.
type RunMetrics struct {
	RunID         string
	Dataset       string
	StartTime     time.Time
	EndTime       time.Time
	Stages        []*StageMetrics
	Rows          int
	MissingCells  int
	RecodedValues int
	Imputations   int
	PooledTerms   int
	logger        *zap.Logger
}

// NewRunMetrics creates a metrics tracker for one run
func NewRunMetrics(runID, dataset string, logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		RunID:     runID,
		Dataset:   dataset,
		StartTime: time.Now(),
		logger:    logger.Named("metrics"),
	}
}

// StartStage records the start of a stage and returns its tracker
func (rm *RunMetrics) StartStage(name string) *StageMetrics {
	sm := &StageMetrics{Stage: name, StartTime: time.Now()}
	rm.Stages = append(rm.Stages, sm)
	return sm
}

// EndStage closes a stage tracker, recording the error if the stage failed
func (rm *RunMetrics) EndStage(sm *StageMetrics, err error) {
	sm.EndTime = time.Now()
	if err != nil {
		sm.Error = err.Error()
		rm.logger.Warn("Stage failed",
			zap.String("runID", rm.RunID),
			zap.String("stage", sm.Stage),
			zap.Duration("duration", sm.Duration()),
			zap.Error(err))
		return
	}
	rm.logger.Info("Stage complete",
		zap.String("runID", rm.RunID),
		zap.String("stage", sm.Stage),
		zap.Duration("duration", sm.Duration()))
}

// Finish closes the run and logs a summary
func (rm *RunMetrics) Finish() {
	rm.EndTime = time.Now()
	rm.logger.Info("Run complete",
		zap.String("runID", rm.RunID),
		zap.String("dataset", rm.Dataset),
		zap.Duration("duration", rm.EndTime.Sub(rm.StartTime)),
		zap.Int("stages", len(rm.Stages)),
		zap.Int("rows", rm.Rows),
		zap.Int("missingCells", rm.MissingCells),
		zap.Int("recodedValues", rm.RecodedValues),
		zap.Int("imputations", rm.Imputations))
}

// ToJSON serializes the metrics for export
func (rm *RunMetrics) ToJSON() (string, error) {
	data, err := json.MarshalIndent(rm, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
