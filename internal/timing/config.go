package timing

import (
	"math"
	"regexp"

	"github.com/pkg/errors"

	"justapengu.in/raceiq/pkg/pitdetection"
)

// Config describes where each piece of lap information lives in the input
// table and how the preprocessing stages behave. Every stage takes the Config
// explicitly so that a different series or circuit can be handled by editing
// a config file rather than code.
type Config struct {
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	TimeColumns      []string `json:"time_columns" yaml:"time_columns"`
	LapColumn        string   `json:"lap_column" yaml:"lap_column"`
	LapTimeColumn    string   `json:"lap_time_column" yaml:"lap_time_column"`
	SectorColumns    []string `json:"sector_columns" yaml:"sector_columns"`
	SubSectorColumns []string `json:"sub_sector_columns" yaml:"sub_sector_columns"`

	DriverColumn    string `json:"driver_column" yaml:"driver_column"`
	IdentityColumn  string `json:"identity_column" yaml:"identity_column"`
	IdentityKey     string `json:"identity_key" yaml:"identity_key"`
	NameColumn      string `json:"name_column" yaml:"name_column"`
	FirstNameColumn string `json:"first_name_column" yaml:"first_name_column"`
	LastNameColumn  string `json:"last_name_column" yaml:"last_name_column"`

	ClassColumn  string `json:"class_column" yaml:"class_column"`
	FlagColumn   string `json:"flag_column" yaml:"flag_column"`
	PrunePattern string `json:"prune_pattern" yaml:"prune_pattern"`

	PitDeltaThreshold      float64 `json:"pit_delta_threshold" yaml:"pit_delta_threshold"`
	PitOnMissingSectors    bool    `json:"pit_on_missing_sectors" yaml:"pit_on_missing_sectors"`
	DeltaAnomalyPercentile float64 `json:"delta_anomaly_percentile" yaml:"delta_anomaly_percentile"`
}

func DefaultConfig() Config {
	return Config{
		ChunkSize: 10000,

		TimeColumns: []string{
			"Lap Time", "Elapsed Time",
			"S1", "S2", "S3",
			"S1a", "S1b", "S2a", "S2b", "S3a", "S3b",
		},
		LapColumn:        "Laps",
		LapTimeColumn:    "Lap Time",
		SectorColumns:    []string{"S1", "S2", "S3"},
		SubSectorColumns: []string{"S1a", "S1b", "S2a", "S2b", "S3a", "S3b"},

		DriverColumn:    "DriverName",
		IdentityColumn:  "drivers",
		IdentityKey:     "driverName",
		NameColumn:      "Name",
		FirstNameColumn: "FirstName",
		LastNameColumn:  "LastName",

		ClassColumn:  "Class",
		FlagColumn:   "Flag",
		PrunePattern: `^Additional\d*$`,

		PitDeltaThreshold:      pitdetection.DefaultDeltaThreshold,
		PitOnMissingSectors:    true,
		DeltaAnomalyPercentile: 0.95,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return errors.Wrapf(ErrInvalidConfig, "chunk_size must be positive, got %d", c.ChunkSize)
	case c.LapTimeColumn == "":
		return errors.Wrap(ErrInvalidConfig, "lap_time_column must be set")
	case c.DriverColumn == "":
		return errors.Wrap(ErrInvalidConfig, "driver_column must be set")
	case c.LapColumn == "":
		return errors.Wrap(ErrInvalidConfig, "lap_column must be set")
	case len(c.SectorColumns) == 0:
		return errors.Wrap(ErrInvalidConfig, "sector_columns must not be empty")
	case math.IsNaN(c.PitDeltaThreshold) || c.PitDeltaThreshold <= 0:
		return errors.Wrapf(ErrInvalidConfig, "pit_delta_threshold must be positive, got %v", c.PitDeltaThreshold)
	case math.IsNaN(c.DeltaAnomalyPercentile) || c.DeltaAnomalyPercentile <= 0 || c.DeltaAnomalyPercentile >= 1:
		return errors.Wrapf(ErrInvalidConfig, "delta_anomaly_percentile must be within (0, 1), got %v", c.DeltaAnomalyPercentile)
	}

	if _, err := regexp.Compile(c.PrunePattern); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "prune_pattern %q: %v", c.PrunePattern, err)
	}

	return nil
}
