package regression

import (
	"math"

	"github.com/pkg/errors"

	"justapengu.in/raceiq/internal/timing"
)

const (
	TypeLinear       = "linear"
	TypeRandomForest = "random_forest"
)

// Config selects the estimator and the columns it is trained on. The same
// Config must be used for training and prediction.
type Config struct {
	Type     string   `json:"type" yaml:"type"`
	Features []string `json:"features" yaml:"features"`
	Target   string   `json:"target" yaml:"target"`

	TestFraction float64 `json:"test_fraction" yaml:"test_fraction"`
	Seed         uint64  `json:"seed" yaml:"seed"`

	// random forest only
	Trees          int `json:"trees" yaml:"trees"`
	MaxDepth       int `json:"max_depth" yaml:"max_depth"`
	MinSamplesLeaf int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

func DefaultConfig() Config {
	return Config{
		Type: TypeLinear,
		Features: []string{
			"S1", "S2", "S3",
			"S1a", "S1b", "S2a", "S2b", "S3a", "S3b",
			timing.ColumnSectorRatio, timing.ColumnSubSectorStdDev,
		},
		Target:         "Lap Time",
		TestFraction:   0.2,
		Seed:           42,
		Trees:          100,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
	}
}

func (c Config) Validate() error {
	if !SupportedType(c.Type) {
		return errors.Wrapf(ErrUnsupportedModel, "%q (expected %q or %q)", c.Type, TypeLinear, TypeRandomForest)
	}

	switch {
	case len(c.Features) == 0:
		return errors.Wrap(ErrInvalidConfig, "features must not be empty")
	case c.Target == "":
		return errors.Wrap(ErrInvalidConfig, "target must be set")
	case math.IsNaN(c.TestFraction) || c.TestFraction <= 0 || c.TestFraction >= 1:
		return errors.Wrapf(ErrInvalidConfig, "test_fraction must be within (0, 1), got %v", c.TestFraction)
	case c.Trees <= 0:
		return errors.Wrapf(ErrInvalidConfig, "trees must be positive, got %d", c.Trees)
	case c.MaxDepth < 0:
		return errors.Wrapf(ErrInvalidConfig, "max_depth must not be negative, got %d", c.MaxDepth)
	case c.MinSamplesLeaf < 1:
		return errors.Wrapf(ErrInvalidConfig, "min_samples_leaf must be at least 1, got %d", c.MinSamplesLeaf)
	}

	for _, feature := range c.Features {
		if feature == c.Target {
			return errors.Wrapf(ErrInvalidConfig, "target %q is also listed as a feature", c.Target)
		}
	}

	return nil
}

func SupportedType(modelType string) bool {
	return modelType == TypeLinear || modelType == TypeRandomForest
}
