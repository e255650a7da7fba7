package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type Metrics struct {
	MAE       float64 `json:"mae"`
	R2        float64 `json:"r2"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

func MeanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}

	sum := 0.0

	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}

	return sum / float64(len(actual))
}

// R2 is the coefficient of determination 1 - SSres/SStot. A constant target
// scores 1 when it is predicted exactly and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}

	if !constant(actual) {
		return stat.RSquaredFrom(predicted, actual, nil)
	}

	for i := range actual {
		if actual[i] != predicted[i] {
			return 0
		}
	}

	return 1
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}

	return true
}
