package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justapengu.in/raceiq/internal/timing"
)

func testConfig(modelType string) Config {
	return Config{
		Type:           modelType,
		Features:       []string{"x1", "x2"},
		Target:         "y",
		TestFraction:   0.2,
		Seed:           42,
		Trees:          25,
		MinSamplesLeaf: 1,
	}
}

func linearTable(n int) *timing.Table {
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)

	for i := 0; i < n; i++ {
		x1[i] = float64(i)
		x2[i] = float64((i * 7) % 11)
		y[i] = 3 + 2*x1[i] - x2[i]
	}

	t := timing.NewTable(n)
	t.SetNumbers("x1", x1)
	t.SetNumbers("x2", x2)
	t.SetNumbers("y", y)

	return t
}

func TestNewModelUnsupported(t *testing.T) {
	for _, modelType := range []string{"svm", "", "Linear"} {
		model, err := NewModel(Config{Type: modelType})

		assert.Nil(t, model)
		assert.True(t, errors.Is(err, ErrUnsupportedModel), "type %q", modelType)
	}
}

func TestTrainUnsupportedTrainsNothing(t *testing.T) {
	dataset, err := Select(linearTable(20), testConfig(TypeLinear))
	require.NoError(t, err)

	model, metrics, err := Train(dataset, testConfig("svm"))

	assert.True(t, errors.Is(err, ErrUnsupportedModel))
	assert.Nil(t, model)
	assert.Nil(t, metrics)
}

func TestSelect(t *testing.T) {
	nan := math.NaN()

	table := timing.NewTable(5)
	table.SetNumbers("x1", []float64{1, nan, 3, 4, 5})
	table.SetNumbers("x2", []float64{1, 2, 3, nan, 5})
	table.SetNumbers("y", []float64{1, 2, nan, 4, 5})

	dataset, err := Select(table, testConfig(TypeLinear))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 4}, dataset.Rows)
	assert.Equal(t, [][]float64{{1, 1}, {5, 5}}, dataset.X)
	assert.Equal(t, []float64{1, 5}, dataset.Y)

	forPrediction, err := SelectForPrediction(table, testConfig(TypeLinear))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 4}, forPrediction.Rows, "the target is not needed for prediction")
	assert.Nil(t, forPrediction.Y)
}

func TestSelectInsufficientData(t *testing.T) {
	nan := math.NaN()

	selectTests := []struct {
		name  string
		table func() *timing.Table
	}{
		{
			name: "no usable rows",
			table: func() *timing.Table {
				table := timing.NewTable(2)
				table.SetNumbers("x1", []float64{nan, 1})
				table.SetNumbers("x2", []float64{1, nan})
				table.SetNumbers("y", []float64{1, 2})

				return table
			},
		},
		{
			name: "single usable row",
			table: func() *timing.Table {
				table := timing.NewTable(2)
				table.SetNumbers("x1", []float64{1, 1})
				table.SetNumbers("x2", []float64{1, nan})
				table.SetNumbers("y", []float64{1, 2})

				return table
			},
		},
		{
			name: "missing feature column",
			table: func() *timing.Table {
				table := timing.NewTable(3)
				table.SetNumbers("x1", []float64{1, 2, 3})
				table.SetNumbers("y", []float64{1, 2, 3})

				return table
			},
		},
	}

	for _, test := range selectTests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Select(test.table(), testConfig(TypeLinear))

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientData))
		})
	}

	_, err := Select(timing.NewTable(0), testConfig(TypeLinear))
	assert.Contains(t, err.Error(), "x1, x2, y")
}

func TestSplit(t *testing.T) {
	splitTests := []struct {
		n        int
		expected int
	}{
		{n: 2, expected: 1},
		{n: 5, expected: 1},
		{n: 10, expected: 2},
		{n: 11, expected: 3},
		{n: 100, expected: 20},
	}

	for _, test := range splitTests {
		train, held := Split(test.n, 0.2, 42)

		assert.Len(t, held, test.expected, "n=%d", test.n)
		assert.Len(t, train, test.n-test.expected, "n=%d", test.n)

		seen := make(map[int]bool)

		for _, i := range append(append([]int(nil), train...), held...) {
			assert.False(t, seen[i], "index %d used twice", i)
			seen[i] = true
		}

		againTrain, againHeld := Split(test.n, 0.2, 42)

		if diff := cmp.Diff(train, againTrain); diff != "" {
			t.Errorf("split is not reproducible (-first +second):\n%s", diff)
		}

		assert.Equal(t, held, againHeld)
	}
}

func TestLinearRecoversCoefficients(t *testing.T) {
	config := testConfig(TypeLinear)

	dataset, err := Select(linearTable(50), config)
	require.NoError(t, err)

	model, metrics, err := Train(dataset, config)
	require.NoError(t, err)

	linear, ok := model.(*Linear)
	require.True(t, ok)

	assert.InDelta(t, 3, linear.Intercept, 1e-9)
	assert.InDelta(t, 2, linear.Coefficients[0], 1e-9)
	assert.InDelta(t, -1, linear.Coefficients[1], 1e-9)

	assert.InDelta(t, 0, metrics.MAE, 1e-9)
	assert.InDelta(t, 1, metrics.R2, 1e-9)
	assert.Equal(t, 40, metrics.TrainRows)
	assert.Equal(t, 10, metrics.TestRows)

	weights := Weights(model, config.Features)
	assert.InDelta(t, 2, weights["x1"], 1e-9)
}

func TestLinearCollinearFeatures(t *testing.T) {
	var (
		x [][]float64
		y []float64
	)

	for i := 0; i < 10; i++ {
		x = append(x, []float64{float64(i), 2 * float64(i)})
		y = append(y, 1+4*float64(i))
	}

	var linear Linear
	require.NoError(t, linear.Fit(x, y))

	// minimum norm solution of c1 + 2*c2 = 4
	assert.InDelta(t, 0.8, linear.Coefficients[0], 1e-9)
	assert.InDelta(t, 1.6, linear.Coefficients[1], 1e-9)
	assert.InDelta(t, 1, linear.Intercept, 1e-9)
	assert.InDelta(t, 21, linear.Predict([]float64{5, 10}), 1e-9)
}

func TestLinearConstantFeatures(t *testing.T) {
	var linear Linear

	require.NoError(t, linear.Fit([][]float64{{1}, {1}, {1}}, []float64{2, 4, 6}))

	assert.Equal(t, []float64{0}, linear.Coefficients)
	assert.InDelta(t, 4, linear.Predict([]float64{1}), 1e-12)
}

func stepData() ([][]float64, []float64) {
	var (
		x [][]float64
		y []float64
	)

	for i := 0; i < 40; i++ {
		x = append(x, []float64{float64(i), 7})

		if i >= 20 {
			y = append(y, 10)
		} else {
			y = append(y, 0)
		}
	}

	return x, y
}

func TestForestFitsStep(t *testing.T) {
	x, y := stepData()

	forest := NewForest(testConfig(TypeRandomForest))
	require.NoError(t, forest.Fit(x, y))

	assert.InDelta(t, 0, forest.Predict([]float64{2, 7}), 1e-9)
	assert.InDelta(t, 10, forest.Predict([]float64{37, 7}), 1e-9)

	importances := forest.Importances()
	assert.InDelta(t, 1, importances[0], 1e-9)
	assert.Equal(t, 0.0, importances[1], "a constant feature is never split on")
}

func TestForestIsDeterministic(t *testing.T) {
	x, y := stepData()

	for i := range y {
		y[i] += math.Sin(float64(i))
	}

	predict := func(seed uint64) []float64 {
		config := testConfig(TypeRandomForest)
		config.Seed = seed

		forest := NewForest(config)
		require.NoError(t, forest.Fit(x, y))

		var out []float64

		for _, row := range x {
			out = append(out, forest.Predict(row))
		}

		return out
	}

	assert.Equal(t, predict(42), predict(42))
	assert.NotEqual(t, predict(42), predict(7))
}

func TestForestMaxDepth(t *testing.T) {
	x, y := stepData()

	config := testConfig(TypeRandomForest)
	config.MaxDepth = 1

	forest := NewForest(config)
	require.NoError(t, forest.Fit(x, y))

	for _, tr := range forest.trees {
		assert.LessOrEqual(t, len(tr.nodes), 3)
	}
}

func TestPredictAlignment(t *testing.T) {
	config := testConfig(TypeLinear)

	dataset, err := Select(linearTable(30), config)
	require.NoError(t, err)

	model, _, err := Train(dataset, config)
	require.NoError(t, err)

	nan := math.NaN()

	table := timing.NewTable(5)
	table.SetNumbers("x1", []float64{1, nan, 3, 4, nan})
	table.SetNumbers("x2", []float64{1, 2, nan, 4, 5})

	predictions, err := Predict(model, table, config)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3}, predictions.Rows)
	require.Len(t, predictions.Values, 2)
	assert.InDelta(t, 3+2*1-1, predictions.Values[0], 1e-9)
	assert.InDelta(t, 3+2*4-4, predictions.Values[1], 1e-9)
	assert.LessOrEqual(t, predictions.Len(), table.Len())
}

func TestPredictUnfitted(t *testing.T) {
	_, err := Predict(&Linear{}, linearTable(3), testConfig(TypeLinear))

	assert.True(t, errors.Is(err, ErrNotFitted))
}

func TestMetrics(t *testing.T) {
	assert.InDelta(t, 0.5, MeanAbsoluteError([]float64{1, 2}, []float64{1.5, 1.5}), 1e-12)
	assert.InDelta(t, 0, R2([]float64{1, 2, 3}, []float64{2, 2, 2}), 1e-12)
	assert.Equal(t, 1.0, R2([]float64{4, 4}, []float64{4, 4}))
	assert.Equal(t, 0.0, R2([]float64{4, 4}, []float64{4, 5}))
	// SSres 0.5, SStot 2
	assert.InDelta(t, 0.75, R2([]float64{1, 2, 3}, []float64{1.5, 2, 2.5}), 1e-12)
	assert.Equal(t, 1.0, R2([]float64{7}, []float64{7}))
	assert.True(t, math.IsNaN(MeanAbsoluteError(nil, nil)))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.TestFraction = 1
	assert.True(t, errors.Is(config.Validate(), ErrInvalidConfig))

	config = DefaultConfig()
	config.Type = "svm"
	assert.True(t, errors.Is(config.Validate(), ErrUnsupportedModel))
}
