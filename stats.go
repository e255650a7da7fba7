package raceiq

import (
	"time"

	"github.com/hako/durafmt"
)

type stageTiming struct {
	Stage    string
	Duration time.Duration
}

// runStatistics times the stages of one pipeline run.
type runStatistics struct {
	stages  []stageTiming
	metrics *Metrics
}

func (s *runStatistics) time(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)

	s.stages = append(s.stages, stageTiming{Stage: stage, Duration: d})

	if s.metrics != nil {
		s.metrics.ObserveStage(stage, d)
	}

	return err
}

func printStatistics(logger Logger, stats *runStatistics, summary *RunSummary) {
	for _, stage := range stats.stages {
		logger.Debugf("Statistics: stage %s took %s", stage.Stage, durafmt.Parse(stage.Duration).String())
	}

	logger.Infof("Statistics: %d laps, %d drivers, %d pit stops, %d delta anomalies, %d residual anomalies.", summary.Rows, summary.Drivers, summary.PitStops, summary.DeltaAnomalies, summary.ResidualAnomalies)
	logger.Infof("Statistics: %s model trained on %d laps, tested on %d laps. MAE: %.3fs, R2: %.4f", summary.Model, summary.TrainRows, summary.TestRows, float64(summary.MAE), float64(summary.R2))
}
