package raceiq

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"justapengu.in/raceiq/internal/regression"
	"justapengu.in/raceiq/internal/timing"
)

var ErrInvalidConfig = errors.New("raceiq: invalid configuration")

type Config struct {
	Timing    timing.Config     `json:"timing" yaml:"timing"`
	Model     regression.Config `json:"model" yaml:"model"`
	Anomaly   AnomalyConfig     `json:"anomaly" yaml:"anomaly"`
	Output    OutputConfig      `json:"output" yaml:"output"`
	Dashboard DashboardConfig   `json:"dashboard" yaml:"dashboard"`
}

type AnomalyConfig struct {
	// ResidualSigma is k in the mean + k*stddev residual threshold.
	ResidualSigma float64 `json:"residual_sigma" yaml:"residual_sigma"`
}

type OutputConfig struct {
	// Columns are written in this order when the table has them.
	Columns []string `json:"columns" yaml:"columns"`
}

type DashboardConfig struct {
	Listen string `json:"listen" yaml:"listen"`
	// TrendExcludesPitLaps leaves pit laps out of the pace trend fit.
	TrendExcludesPitLaps bool `json:"trend_excludes_pit_laps" yaml:"trend_excludes_pit_laps"`
}

func DefaultConfig() Config {
	return Config{
		Timing: timing.DefaultConfig(),
		Model:  regression.DefaultConfig(),
		Anomaly: AnomalyConfig{
			ResidualSigma: 2,
		},
		Output: OutputConfig{
			Columns: []string{
				"DriverName", "Laps", "S1", "S2", "S3", "Lap Time",
				timing.ColumnPredictedLapTime, timing.ColumnLapDelta, timing.ColumnPitStop,
				timing.ColumnSectorRatio, timing.ColumnSubSectorStdDev, timing.ColumnResidual,
				timing.ColumnDeltaAnomaly, timing.ColumnResidualAnomaly,
				"Class", "Flag",
			},
		},
		Dashboard: DashboardConfig{
			Listen:               ":8080",
			TrendExcludesPitLaps: true,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults, so a file only
// needs the values it changes.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)

	if err != nil {
		return config, errors.Wrap(err, "raceiq: could not open config")
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return config, errors.Wrapf(err, "raceiq: could not parse config %s", path)
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	if err := c.Timing.Validate(); err != nil {
		return err
	}

	if err := c.Model.Validate(); err != nil {
		return err
	}

	if math.IsNaN(c.Anomaly.ResidualSigma) || c.Anomaly.ResidualSigma <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "anomaly.residual_sigma must be positive, got %v", c.Anomaly.ResidualSigma)
	}

	if len(c.Output.Columns) == 0 {
		return errors.Wrap(ErrInvalidConfig, "output.columns must not be empty")
	}

	return nil
}
