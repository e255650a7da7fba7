package raceiq

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/raceiq/internal/regression"
	"justapengu.in/raceiq/internal/timing"
)

const CurrentSummaryVersion = 1

// Float is a float64 that encodes NaN as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}

	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}

	var v float64

	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*f = Float(v)

	return nil
}

// RunSummary describes one pipeline run. It is written next to the output
// CSV and shown on the dashboard.
type RunSummary struct {
	Version  int           `json:"Version"`
	RunID    string        `json:"RunID"`
	Input    string        `json:"Input"`
	Output   string        `json:"Output"`
	Date     time.Time     `json:"Date"`
	Duration time.Duration `json:"Duration"`

	Rows          int      `json:"Rows"`
	Drivers       int      `json:"Drivers"`
	Columns       []string `json:"Columns"`
	PrunedColumns []string `json:"PrunedColumns"`

	Model         string `json:"Model"`
	TrainRows     int    `json:"TrainRows"`
	TestRows      int    `json:"TestRows"`
	PredictedRows int    `json:"PredictedRows"`
	MAE           Float  `json:"MAE"`
	R2            Float  `json:"R2"`

	// Weights are linear coefficients or random forest importances.
	Weights   []FeatureWeight `json:"Weights"`
	Intercept *Float          `json:"Intercept,omitempty"`

	PitStops          int   `json:"PitStops"`
	DeltaAnomalies    int   `json:"DeltaAnomalies"`
	DeltaThreshold    Float `json:"DeltaThreshold"`
	ResidualAnomalies int   `json:"ResidualAnomalies"`
	ResidualMean      Float `json:"ResidualMean"`
	ResidualStdDev    Float `json:"ResidualStdDev"`
	ResidualThreshold Float `json:"ResidualThreshold"`
}

type FeatureWeight struct {
	Feature string `json:"Feature"`
	Weight  Float  `json:"Weight"`
}

func newRunSummary(runID, input, output string, model regression.Model, config Config) *RunSummary {
	summary := &RunSummary{
		Version: CurrentSummaryVersion,
		RunID:   runID,
		Input:   input,
		Output:  output,
		Date:    time.Now(),
		Model:   model.Type(),
	}

	for feature, weight := range regression.Weights(model, config.Model.Features) {
		summary.Weights = append(summary.Weights, FeatureWeight{Feature: feature, Weight: Float(weight)})
	}

	sort.Slice(summary.Weights, func(i, j int) bool {
		return summary.Weights[i].Feature < summary.Weights[j].Feature
	})

	if linear, ok := model.(*regression.Linear); ok {
		intercept := Float(linear.Intercept)
		summary.Intercept = &intercept
	}

	return summary
}

// SummaryPath is where the summary of the run that wrote output is stored.
func SummaryPath(output string) string {
	return output + ".summary.json"
}

// saveSummary saves the summary next to the output file.
func saveSummary(summary *RunSummary) error {
	path := SummaryPath(summary.Output)

	logrus.Infof("Saving run summary for '%s' to: %s", summary.RunID, path)

	return timing.WriteFileAtomic(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "\t")

		return encoder.Encode(summary)
	})
}

func LoadSummary(path string) (*RunSummary, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	var summary *RunSummary

	if err := json.NewDecoder(f).Decode(&summary); err != nil {
		return nil, errors.Wrapf(err, "raceiq: could not decode summary %s", path)
	}

	return summary, nil
}
