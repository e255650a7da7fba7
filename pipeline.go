package raceiq

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/raceiq/internal/regression"
	"justapengu.in/raceiq/internal/timing"
)

type RunOptions struct {
	Input  string
	Output string

	// WriteSummary saves the run summary next to the output file.
	WriteSummary bool
	// PlotPath, when set, is where the predicted vs actual plot is saved.
	PlotPath string
	// MetricsFile, when set, receives the run metrics in textfile format.
	MetricsFile string
}

type Pipeline struct {
	config  Config
	logger  Logger
	metrics *Metrics
}

func NewPipeline(config Config, logger Logger) *Pipeline {
	return &Pipeline{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(),
	}
}

// Run loads the input, preprocesses it, trains and applies the model,
// annotates residuals and writes the output. Nothing is written unless every
// stage succeeds, the metrics textfile included.
func (p *Pipeline) Run(options RunOptions) (*RunSummary, error) {
	summary, err := p.run(options)

	p.metrics.ObserveRun(summary, err)

	if err == nil && options.MetricsFile != "" {
		if metricsErr := p.metrics.WriteTextfile(options.MetricsFile); metricsErr != nil {
			p.logger.WithError(metricsErr).Errorf("Could not write metrics to %s", options.MetricsFile)
		}
	}

	return summary, err
}

func (p *Pipeline) run(options RunOptions) (*RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := p.logger.WithField("run", runID)

	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	if options.Output == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "output path must be set")
	}

	stats := &runStatistics{metrics: p.metrics}

	var (
		table      *timing.Table
		preprocess *timing.PreprocessStats
		dataset    *regression.Dataset
		model      regression.Model
		scores     *regression.Metrics
		preds      *regression.Predictions
		residuals  *ResidualStats
		header     []string
	)

	err := stats.time("load", func() (err error) {
		table, err = timing.Load(options.Input, p.config.Timing.ChunkSize, logger)
		return err
	})

	if err != nil {
		return nil, err
	}

	logger.Infof("Loaded %d rows from %s", table.Len(), options.Input)

	err = stats.time("preprocess", func() (err error) {
		preprocess, err = timing.Preprocess(table, p.config.Timing, logger)
		return err
	})

	if err != nil {
		return nil, err
	}

	// checked before training so that a table with nothing to learn from
	// aborts with a clear reason.
	dataset, err = regression.Select(table, p.config.Model)

	if err != nil {
		return nil, err
	}

	err = stats.time("train", func() (err error) {
		model, scores, err = regression.Train(dataset, p.config.Model)
		return err
	})

	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"model": model.Type(),
		"mae":   scores.MAE,
		"r2":    scores.R2,
	}).Infof("Trained on %d of %d usable laps", scores.TrainRows, dataset.Len())

	err = stats.time("predict", func() (err error) {
		preds, err = regression.Predict(model, table, p.config.Model)

		if err != nil {
			return err
		}

		residuals, err = AnnotateResiduals(table, preds, p.config.Timing.LapTimeColumn, p.config.Anomaly)
		return err
	})

	if err != nil {
		return nil, err
	}

	var written []string

	err = stats.time("write", func() (err error) {
		defer func() {
			if err != nil {
				for _, path := range written {
					_ = os.Remove(path)
				}
			}
		}()

		header, err = timing.WriteCSV(options.Output, table, p.config.Output.Columns)

		if err != nil {
			return err
		}

		written = append(written, options.Output)

		if options.PlotPath != "" {
			if err := SavePredictionPlot(options.PlotPath, table, p.config.Timing.LapTimeColumn); err != nil {
				return err
			}

			written = append(written, options.PlotPath)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	summary := newRunSummary(runID, options.Input, options.Output, model, p.config)
	summary.Duration = time.Since(start)
	summary.Rows = table.Len()
	summary.Drivers = preprocess.Features.Drivers
	summary.Columns = header
	summary.PrunedColumns = preprocess.PrunedColumns
	summary.TrainRows = scores.TrainRows
	summary.TestRows = scores.TestRows
	summary.PredictedRows = preds.Len()
	summary.MAE = Float(scores.MAE)
	summary.R2 = Float(scores.R2)
	summary.PitStops = preprocess.Features.PitStops
	summary.DeltaAnomalies = preprocess.Features.DeltaAnomalies
	summary.DeltaThreshold = Float(preprocess.Features.DeltaThreshold)
	summary.ResidualAnomalies = residuals.Anomalies
	summary.ResidualMean = Float(residuals.Mean)
	summary.ResidualStdDev = Float(residuals.StdDev)
	summary.ResidualThreshold = Float(residuals.Threshold)

	if options.WriteSummary {
		if err := saveSummary(summary); err != nil {
			for _, path := range written {
				_ = os.Remove(path)
			}

			return nil, err
		}
	}

	printStatistics(logger, stats, summary)

	return summary, nil
}
