package raceiq

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justapengu.in/raceiq/internal/regression"
	"justapengu.in/raceiq/internal/timing"
	"justapengu.in/raceiq/pkg/laptime"
)

func testLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

var raceDrivers = []string{"Max Verstappen", "Lewis Hamilton", "Charles Leclerc"}

// raceCSV builds a three driver, twelve lap session. Lewis pits on lap 6.
func raceCSV() string {
	var b strings.Builder

	b.WriteString("Name,Laps,Lap Time,S1,S2,S3,S1a,S1b,S2a,S2b,S3a,S3b,Additional1\n")

	for d, driver := range raceDrivers {
		for lap := 1; lap <= 12; lap++ {
			s1 := 30 + float64(d)*0.3 + 0.05*float64((lap*7)%5)
			s2 := 31 + 0.04*float64((lap*3)%4)
			s3 := 29 + 0.03*float64((lap*5)%6)

			if d == 1 && lap == 6 {
				s3 += 22
			}

			lapTime := s1 + s2 + s3 + 0.02*float64((lap*11)%3)

			fmt.Fprintf(&b, "%s,%d,%s,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,\n",
				driver, lap, laptime.Format(lapTime),
				s1, s2, s3,
				s1*0.48, s1*0.52, s2*0.5, s2*0.5, s3*0.45, s3*0.55,
			)
		}
	}

	return b.String()
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func readHeader(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	require.NoError(t, err)

	return header
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "race.csv")
	output := filepath.Join(dir, "out", "processed.csv")
	plot := filepath.Join(dir, "out", "predicted.png")
	metrics := filepath.Join(dir, "out", "raceiq.prom")

	writeFile(t, input, raceCSV())

	summary, err := NewPipeline(DefaultConfig(), testLogger()).Run(RunOptions{
		Input:        input,
		Output:       output,
		WriteSummary: true,
		PlotPath:     plot,
		MetricsFile:  metrics,
	})
	require.NoError(t, err)

	t.Run("summary", func(t *testing.T) {
		assert.NotEmpty(t, summary.RunID)
		assert.Equal(t, regression.TypeLinear, summary.Model)
		assert.Equal(t, 36, summary.Rows)
		assert.Equal(t, 3, summary.Drivers)
		assert.Equal(t, 28, summary.TrainRows)
		assert.Equal(t, 8, summary.TestRows)
		assert.Equal(t, 36, summary.PredictedRows)
		assert.Equal(t, []string{"Additional1"}, summary.PrunedColumns)
		assert.GreaterOrEqual(t, summary.PitStops, 1)
		assert.Less(t, float64(summary.MAE), 0.1)
		assert.NotNil(t, summary.Intercept)
		assert.Len(t, summary.Weights, len(DefaultConfig().Model.Features))
	})

	t.Run("output columns", func(t *testing.T) {
		assert.Equal(t, []string{
			"DriverName", "Laps", "S1", "S2", "S3", "Lap Time",
			timing.ColumnPredictedLapTime, timing.ColumnLapDelta, timing.ColumnPitStop,
			timing.ColumnSectorRatio, timing.ColumnSubSectorStdDev, timing.ColumnResidual,
			timing.ColumnDeltaAnomaly, timing.ColumnResidualAnomaly,
		}, readHeader(t, output))
	})

	t.Run("laps", func(t *testing.T) {
		laps, err := timing.ReadLaps(output, DefaultConfig().Timing)
		require.NoError(t, err)
		require.Len(t, laps, 36)

		for _, lap := range laps {
			assert.False(t, math.IsNaN(lap.Predicted), lap.String())
		}

		pitLaps := 0

		for _, lap := range GroupLaps(laps)["Lewis Hamilton"] {
			if lap.PitStop {
				pitLaps++
				assert.Equal(t, 6, lap.Number)
			}
		}

		assert.Equal(t, 1, pitLaps)
	})

	t.Run("sidecars", func(t *testing.T) {
		saved, err := LoadSummary(SummaryPath(output))
		require.NoError(t, err)
		assert.Equal(t, summary.RunID, saved.RunID)
		assert.Equal(t, summary.Rows, saved.Rows)

		info, err := os.Stat(plot)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())

		prom, err := os.ReadFile(metrics)
		require.NoError(t, err)
		assert.Contains(t, string(prom), "raceiq_laps 36")
		assert.Contains(t, string(prom), `raceiq_runs_total{result="success"} 1`)
	})
}

func TestPipelineRandomForestIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "race.csv")
	writeFile(t, input, raceCSV())

	config := DefaultConfig()
	config.Model.Type = regression.TypeRandomForest
	config.Model.Trees = 20

	var outputs [][]byte

	for i := 0; i < 2; i++ {
		output := filepath.Join(dir, fmt.Sprintf("out%d.csv", i))

		summary, err := NewPipeline(config, testLogger()).Run(RunOptions{Input: input, Output: output})
		require.NoError(t, err)
		assert.Equal(t, regression.TypeRandomForest, summary.Model)
		assert.Nil(t, summary.Intercept)

		b, err := os.ReadFile(output)
		require.NoError(t, err)

		outputs = append(outputs, b)
	}

	assert.Equal(t, string(outputs[0]), string(outputs[1]))
}

func TestPipelineFailuresLeaveNoOutput(t *testing.T) {
	dir := t.TempDir()

	race := filepath.Join(dir, "race.csv")
	writeFile(t, race, raceCSV())

	single := filepath.Join(dir, "single.csv")
	writeFile(t, single, "Name,Laps,Lap Time,S1,S2,S3,S1a,S1b,S2a,S2b,S3a,S3b\nMax,1,1:30.000,30,30,30,15,15,15,15,15,15\n")

	unsupported := DefaultConfig()
	unsupported.Model.Type = "svm"

	for _, tc := range []struct {
		name   string
		input  string
		config Config
		err    error
	}{
		{name: "missing input", input: filepath.Join(dir, "nope.csv"), config: DefaultConfig(), err: os.ErrNotExist},
		{name: "unsupported model", input: race, config: unsupported, err: regression.ErrUnsupportedModel},
		{name: "insufficient data", input: single, config: DefaultConfig(), err: regression.ErrInsufficientData},
	} {
		t.Run(tc.name, func(t *testing.T) {
			output := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_"), "out.csv")
			metrics := filepath.Join(filepath.Dir(output), "raceiq.prom")

			_, err := NewPipeline(tc.config, testLogger()).Run(RunOptions{
				Input:        tc.input,
				Output:       output,
				WriteSummary: true,
				MetricsFile:  metrics,
			})

			assert.True(t, errors.Is(err, tc.err), "got %v", err)

			_, statErr := os.Stat(output)
			assert.True(t, os.IsNotExist(statErr))

			_, statErr = os.Stat(SummaryPath(output))
			assert.True(t, os.IsNotExist(statErr))

			_, statErr = os.Stat(metrics)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}
