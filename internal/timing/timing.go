// Package timing holds lap timing data as a column-oriented table and the
// stages that turn a raw timing export into a cleaned, feature-rich table:
// ingestion, time normalisation, driver identity resolution, feature
// engineering, metadata normalisation and column pruning.
package timing

import "github.com/sirupsen/logrus"

type Logger = logrus.FieldLogger

// Columns written by the feature and annotation stages.
const (
	ColumnLapDelta         = "Lap Delta"
	ColumnPitStop          = "Pit Stop"
	ColumnSectorRatio      = "Sector Ratio"
	ColumnSubSectorStdDev  = "Subsector StdDev"
	ColumnDeltaAnomaly     = "Delta Anomaly"
	ColumnPredictedLapTime = "Predicted Lap Time"
	ColumnResidual         = "Residual"
	ColumnResidualAnomaly  = "Residual Anomaly"
)
