package timing

import (
	"github.com/sirupsen/logrus"
)

type PreprocessStats struct {
	UnparsableCells   int
	UnresolvedDrivers int
	PrunedColumns     []string
	Features          *FeatureStats
}

// Preprocess runs the cleaning stages in order: time normalisation, driver
// identity, feature engineering, metadata and column pruning. Names are
// resolved before features are derived since laps are grouped by driver.
func Preprocess(t *Table, config Config, logger Logger) (*PreprocessStats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	stats := &PreprocessStats{}

	stats.UnparsableCells = NormaliseTimes(t, config)

	if stats.UnparsableCells > 0 {
		logger.Warnf("Preprocess: %d time cells could not be parsed and are treated as missing", stats.UnparsableCells)
	}

	stats.UnresolvedDrivers = ResolveDrivers(t, config)

	if stats.UnresolvedDrivers > 0 {
		logger.Warnf("Preprocess: %d rows have no driver name", stats.UnresolvedDrivers)
	}

	features, err := EngineerFeatures(t, config)

	if err != nil {
		return nil, err
	}

	stats.Features = features

	logger.WithFields(logrus.Fields{
		"drivers":         features.Drivers,
		"pit_stops":       features.PitStops,
		"delta_anomalies": features.DeltaAnomalies,
		"delta_threshold": features.DeltaThreshold,
	}).Infof("Preprocess: derived features for %d laps", features.Rows)

	NormaliseMetadata(t, config)

	stats.PrunedColumns, err = PruneColumns(t, config)

	if err != nil {
		return nil, err
	}

	if len(stats.PrunedColumns) > 0 {
		logger.Debugf("Preprocess: pruned columns %v", stats.PrunedColumns)
	}

	return stats, nil
}
