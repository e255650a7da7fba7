package raceiq

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"justapengu.in/raceiq/internal/regression"
	"justapengu.in/raceiq/internal/timing"
)

type ResidualStats struct {
	Count     int
	Mean      float64
	StdDev    float64
	Threshold float64
	Anomalies int
}

// ResidualThreshold is mean + sigma*stddev of residuals, using the sample
// standard deviation. It is NaN for fewer than two residuals.
func ResidualThreshold(residuals []float64, sigma float64) (mean, stdDev, threshold float64) {
	if len(residuals) < 2 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	mean, stdDev = stat.MeanStdDev(residuals, nil)

	return mean, stdDev, mean + sigma*stdDev
}

// AnnotateResiduals writes the model's predictions next to the rows they were
// made for, then adds the absolute residual and flags every lap whose residual
// is above a single threshold computed over the whole table.
func AnnotateResiduals(t *timing.Table, predictions *regression.Predictions, lapTimeColumn string, config AnomalyConfig) (*ResidualStats, error) {
	actual, ok := t.NumbersOf(lapTimeColumn)

	if !ok {
		return nil, errors.Wrapf(timing.ErrMissingColumn, "%q", lapTimeColumn)
	}

	predicted := make([]float64, t.Len())

	for i := range predicted {
		predicted[i] = math.NaN()
	}

	for i, row := range predictions.Rows {
		predicted[row] = predictions.Values[i]
	}

	residuals := make([]float64, t.Len())
	present := make([]float64, 0, predictions.Len())

	for i := range residuals {
		residuals[i] = math.Abs(actual[i] - predicted[i])

		if !math.IsNaN(residuals[i]) {
			present = append(present, residuals[i])
		}
	}

	stats := &ResidualStats{Count: len(present)}
	stats.Mean, stats.StdDev, stats.Threshold = ResidualThreshold(present, config.ResidualSigma)

	anomalies := make([]bool, t.Len())

	if !math.IsNaN(stats.Threshold) {
		for i, residual := range residuals {
			if !math.IsNaN(residual) && residual > stats.Threshold {
				anomalies[i] = true
				stats.Anomalies++
			}
		}
	}

	t.SetNumbers(timing.ColumnPredictedLapTime, predicted)
	t.SetNumbers(timing.ColumnResidual, residuals)
	t.SetFlags(timing.ColumnResidualAnomaly, anomalies)

	return stats, nil
}
