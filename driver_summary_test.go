package raceiq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justapengu.in/raceiq/internal/timing"
)

func lap(driver string, number int, lapTime float64) timing.Lap {
	return timing.Lap{
		DriverName:      driver,
		Number:          number,
		LapTime:         lapTime,
		Predicted:       math.NaN(),
		Delta:           math.NaN(),
		Residual:        math.NaN(),
		SectorRatio:     math.NaN(),
		SubSectorStdDev: math.NaN(),
	}
}

func TestPaceTrend(t *testing.T) {
	var laps []timing.Lap

	for n := 1; n <= 8; n++ {
		laps = append(laps, lap("Max", n, 90+0.1*float64(n)))
	}

	pit := lap("Max", 9, 125)
	pit.PitStop = true
	laps = append(laps, pit)

	assert.InDelta(t, 0.1, PaceTrend(laps, true), 1e-9)
	assert.Greater(t, PaceTrend(laps, false), 0.1, "the pit lap pulls the trend up")

	assert.True(t, math.IsNaN(PaceTrend(laps[:2], true)), "too few laps")
	assert.True(t, math.IsNaN(PaceTrend([]timing.Lap{lap("Max", 1, 90), lap("Max", 1, 91), lap("Max", 1, 92)}, true)), "no spread in lap number")
}

func TestLeaderboard(t *testing.T) {
	laps := []timing.Lap{
		lap("Lewis", 1, 91.0),
		lap("Max", 1, 90.5),
		lap("Lewis", 2, 90.2),
		lap("Max", 2, 90.4),
		lap("Charles", 1, math.NaN()),
		lap("", 1, 80),
	}

	laps[2].ResidualAnomaly = true
	laps[3].PitStop = true

	leaderboard := Leaderboard(laps, true)
	require.Len(t, leaderboard, 3)

	assert.Equal(t, "Lewis", leaderboard[0].DriverName)
	assert.Equal(t, 1, leaderboard[0].Position)
	assert.Equal(t, 2, leaderboard[0].BestLapNo)
	assert.InDelta(t, 90.6, leaderboard[0].Average, 1e-9)
	assert.Equal(t, 1, leaderboard[0].ResidualAnomalies)
	assert.Zero(t, leaderboard[0].GapToLeader)

	assert.Equal(t, "Max", leaderboard[1].DriverName)
	assert.InDelta(t, 0.2, leaderboard[1].GapToLeader, 1e-9)
	assert.Equal(t, 1, leaderboard[1].PitStops)

	assert.Equal(t, "Charles", leaderboard[2].DriverName, "drivers without a timed lap go last")
	assert.True(t, math.IsNaN(leaderboard[2].BestLap))
	assert.Equal(t, 3, leaderboard[2].Position)
}

func TestLapRange(t *testing.T) {
	var laps []timing.Lap

	for n := 1; n <= 5; n++ {
		laps = append(laps, lap("Max", n, 90))
	}

	numbers := func(laps []timing.Lap) []int {
		var out []int

		for _, l := range laps {
			out = append(out, l.Number)
		}

		return out
	}

	assert.Equal(t, []int{2, 3, 4}, numbers(LapRange(laps, 2, 4)))
	assert.Equal(t, []int{4, 5}, numbers(LapRange(laps, 4, 0)))
	assert.Equal(t, []int{1, 2}, numbers(LapRange(laps, 0, 2)))
	assert.Len(t, LapRange(laps, 0, 0), 5)
}
