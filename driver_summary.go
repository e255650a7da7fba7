package raceiq

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/sajari/regression"

	"justapengu.in/raceiq/internal/timing"
	"justapengu.in/raceiq/pkg/laptime"
)

var ErrUnknownDriver = errors.New("raceiq: unknown driver")

// DriverSummary holds the KPIs of one driver over a finished lap table.
type DriverSummary struct {
	Position   int
	DriverName string

	NumLaps   int
	BestLap   float64
	BestLapNo int
	Average   float64

	PitStops          int
	DeltaAnomalies    int
	ResidualAnomalies int

	// PaceTrend is the least squares slope of lap time over lap number in
	// seconds per lap. Negative means the driver got faster. NaN when there
	// are too few laps to fit.
	PaceTrend float64

	GapToLeader float64
}

func (d *DriverSummary) String() string {
	return fmt.Sprintf("P%d %s, best: %s, laps: %d", d.Position, d.DriverName, laptime.Format(d.BestLap), d.NumLaps)
}

// GroupLaps splits laps by driver, keeping the order they were read in.
func GroupLaps(laps []timing.Lap) map[string][]timing.Lap {
	out := make(map[string][]timing.Lap)

	for _, lap := range laps {
		if lap.DriverName == "" {
			continue
		}

		out[lap.DriverName] = append(out[lap.DriverName], lap)
	}

	return out
}

func SummariseDriver(name string, laps []timing.Lap, trendExcludesPitLaps bool) *DriverSummary {
	summary := &DriverSummary{
		DriverName:  name,
		NumLaps:     len(laps),
		BestLap:     math.NaN(),
		Average:     math.NaN(),
		GapToLeader: math.NaN(),
	}

	var total float64
	var timed int

	for _, lap := range laps {
		if lap.PitStop {
			summary.PitStops++
		}

		if lap.DeltaAnomaly {
			summary.DeltaAnomalies++
		}

		if lap.ResidualAnomaly {
			summary.ResidualAnomalies++
		}

		if math.IsNaN(lap.LapTime) {
			continue
		}

		total += lap.LapTime
		timed++

		if math.IsNaN(summary.BestLap) || lap.LapTime < summary.BestLap {
			summary.BestLap = lap.LapTime
			summary.BestLapNo = lap.Number
		}
	}

	if timed > 0 {
		summary.Average = total / float64(timed)
	}

	summary.PaceTrend = PaceTrend(laps, trendExcludesPitLaps)

	return summary
}

// PaceTrend fits lap time against lap number and returns the slope.
func PaceTrend(laps []timing.Lap, excludePitLaps bool) float64 {
	r := new(regression.Regression)
	r.SetObserved("lap time")
	r.SetVar(0, "lap")

	var points int

	first, last := math.MaxInt, math.MinInt

	for _, lap := range laps {
		if math.IsNaN(lap.LapTime) || (excludePitLaps && lap.PitStop) {
			continue
		}

		r.Train(regression.DataPoint(lap.LapTime, []float64{float64(lap.Number)}))
		points++

		first = min(first, lap.Number)
		last = max(last, lap.Number)
	}

	// a single lap number leaves the slope undefined
	if points < 3 || first == last {
		return math.NaN()
	}

	if err := r.Run(); err != nil {
		return math.NaN()
	}

	slope := r.Coeff(1)

	if math.IsInf(slope, 0) {
		return math.NaN()
	}

	return slope
}

// Leaderboard orders drivers by best lap. Drivers without a timed lap go last
// in name order.
func Leaderboard(laps []timing.Lap, trendExcludesPitLaps bool) []*DriverSummary {
	var leaderboard []*DriverSummary

	for name, driverLaps := range GroupLaps(laps) {
		leaderboard = append(leaderboard, SummariseDriver(name, driverLaps, trendExcludesPitLaps))
	}

	sort.SliceStable(leaderboard, func(i, j int) bool {
		driverI, driverJ := leaderboard[i], leaderboard[j]

		if math.IsNaN(driverI.BestLap) != math.IsNaN(driverJ.BestLap) {
			return !math.IsNaN(driverI.BestLap)
		}

		if driverI.BestLap == driverJ.BestLap || math.IsNaN(driverI.BestLap) {
			return driverI.DriverName < driverJ.DriverName
		}

		return driverI.BestLap < driverJ.BestLap
	})

	if len(leaderboard) > 0 {
		leader := leaderboard[0]

		for i, line := range leaderboard {
			line.Position = i + 1
			line.GapToLeader = line.BestLap - leader.BestLap
		}
	}

	return leaderboard
}

// LapRange keeps the laps numbered from..to inclusive. Zero bounds are open.
func LapRange(laps []timing.Lap, from, to int) []timing.Lap {
	var out []timing.Lap

	for _, lap := range laps {
		if from > 0 && lap.Number < from {
			continue
		}

		if to > 0 && lap.Number > to {
			continue
		}

		out = append(out, lap)
	}

	return out
}
