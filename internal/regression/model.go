package regression

import (
	"github.com/pkg/errors"

	"justapengu.in/raceiq/internal/timing"
)

type Model interface {
	Type() string
	Fit(x [][]float64, y []float64) error
	Predict(x []float64) float64
	Fitted() bool
}

// NewModel returns an unfitted estimator for config.Type. Unknown types fail
// with ErrUnsupportedModel before anything is trained.
func NewModel(config Config) (Model, error) {
	switch config.Type {
	case TypeLinear:
		return &Linear{}, nil
	case TypeRandomForest:
		return NewForest(config), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q (expected %q or %q)", config.Type, TypeLinear, TypeRandomForest)
	}
}

// Train splits the dataset, fits a new model on the training part and scores
// it on the held-out part.
func Train(dataset *Dataset, config Config) (Model, *Metrics, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	model, err := NewModel(config)

	if err != nil {
		return nil, nil, err
	}

	if dataset == nil || dataset.Len() < 2 || dataset.Y == nil {
		n := 0

		if dataset != nil {
			n = dataset.Len()
		}

		return nil, nil, errors.Wrapf(ErrInsufficientData, "%d rows to train on", n)
	}

	trainIdx, testIdx := Split(dataset.Len(), config.TestFraction, config.Seed)
	train, test := dataset.subset(trainIdx), dataset.subset(testIdx)

	if err := model.Fit(train.X, train.Y); err != nil {
		return nil, nil, errors.Wrapf(err, "regression: could not fit %s model", config.Type)
	}

	predicted := make([]float64, test.Len())

	for i, x := range test.X {
		predicted[i] = model.Predict(x)
	}

	metrics := &Metrics{
		MAE:       MeanAbsoluteError(test.Y, predicted),
		R2:        R2(test.Y, predicted),
		TrainRows: train.Len(),
		TestRows:  test.Len(),
	}

	return model, metrics, nil
}

// Predictions are aligned: Values[i] is the prediction for table row Rows[i].
// Rows without every feature are left out.
type Predictions struct {
	Rows   []int
	Values []float64
}

func (p *Predictions) Len() int {
	return len(p.Rows)
}

func Predict(model Model, t *timing.Table, config Config) (*Predictions, error) {
	if model == nil || !model.Fitted() {
		return nil, ErrNotFitted
	}

	dataset, err := SelectForPrediction(t, config)

	if err != nil {
		return nil, err
	}

	predictions := &Predictions{
		Rows:   dataset.Rows,
		Values: make([]float64, dataset.Len()),
	}

	for i, x := range dataset.X {
		predictions.Values[i] = model.Predict(x)
	}

	return predictions, nil
}

// Weights describes what a fitted model learnt, keyed by feature: linear
// coefficients or forest importances.
func Weights(model Model, features []string) map[string]float64 {
	var values []float64

	switch m := model.(type) {
	case *Linear:
		values = m.Coefficients
	case *Forest:
		values = m.Importances()
	}

	if len(values) != len(features) {
		return nil
	}

	out := make(map[string]float64, len(features))

	for i, feature := range features {
		out[feature] = values[i]
	}

	return out
}
