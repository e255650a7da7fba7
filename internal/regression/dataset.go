// Package regression predicts lap time from sector splits. It selects the
// usable rows of a timing table, splits them reproducibly, fits a linear or
// random forest estimator and reports held-out error.
package regression

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"justapengu.in/raceiq/internal/timing"
)

// Dataset is the subset of a table a model sees. Rows holds the index in the
// source table of each sample, so that predictions can be written back next
// to the row they belong to.
type Dataset struct {
	Features []string
	Rows     []int
	X        [][]float64
	// Y is nil when the dataset was selected for prediction only.
	Y []float64
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) subset(indexes []int) *Dataset {
	out := &Dataset{
		Features: d.Features,
		Rows:     make([]int, len(indexes)),
		X:        make([][]float64, len(indexes)),
	}

	if d.Y != nil {
		out.Y = make([]float64, len(indexes))
	}

	for i, idx := range indexes {
		out.Rows[i] = d.Rows[idx]
		out.X[i] = d.X[idx]

		if d.Y != nil {
			out.Y[i] = d.Y[idx]
		}
	}

	return out
}

// Select returns every row that has a value for all features and the target.
// It fails with ErrInsufficientData when fewer than two rows remain, which is
// the least a train/test split can work with.
func Select(t *timing.Table, config Config) (*Dataset, error) {
	dataset, err := selectRows(t, config.Features, config.Target)

	if err != nil {
		return nil, err
	}

	if dataset.Len() < 2 {
		return nil, errors.Wrapf(ErrInsufficientData, "%d of %d rows have %s and all of %s", dataset.Len(), t.Len(), config.Target, strings.Join(config.Features, ", "))
	}

	return dataset, nil
}

// SelectForPrediction is Select without the target requirement.
func SelectForPrediction(t *timing.Table, config Config) (*Dataset, error) {
	return selectRows(t, config.Features, "")
}

func selectRows(t *timing.Table, features []string, target string) (*Dataset, error) {
	var (
		columns [][]float64
		absent  []string
	)

	for _, name := range features {
		values, ok := t.NumbersOf(name)

		if !ok {
			absent = append(absent, name)
			continue
		}

		columns = append(columns, values)
	}

	var targets []float64

	if target != "" {
		values, ok := t.NumbersOf(target)

		if !ok {
			absent = append(absent, target)
		}

		targets = values
	}

	if len(absent) > 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "table has no column %s", strings.Join(absent, ", "))
	}

	dataset := &Dataset{Features: features}

	if target != "" {
		dataset.Y = []float64{}
	}

rows:
	for row := 0; row < t.Len(); row++ {
		if targets != nil && math.IsNaN(targets[row]) {
			continue
		}

		x := make([]float64, len(columns))

		for i, column := range columns {
			if math.IsNaN(column[row]) || math.IsInf(column[row], 0) {
				continue rows
			}

			x[i] = column[row]
		}

		dataset.Rows = append(dataset.Rows, row)
		dataset.X = append(dataset.X, x)

		if targets != nil {
			dataset.Y = append(dataset.Y, targets[row])
		}
	}

	return dataset, nil
}
