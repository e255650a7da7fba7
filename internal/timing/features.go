package timing

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"justapengu.in/raceiq/pkg/pitdetection"
)

type FeatureStats struct {
	Rows           int
	Drivers        int
	LapsGenerated  bool
	PitStops       int
	DeltaAnomalies int
	// DeltaThreshold is the |lap delta| quantile above which a lap is flagged.
	// NaN when no lap has a delta.
	DeltaThreshold float64
}

// EngineerFeatures sorts the table by driver and lap, then adds the lap delta,
// pit stop, sector ratio, sub-sector spread and delta anomaly columns. The
// sort is part of the stage; deltas are only ever taken between consecutive
// laps of the same driver.
func EngineerFeatures(t *Table, config Config) (*FeatureStats, error) {
	if err := requireColumns(t, config.DriverColumn, config.LapTimeColumn); err != nil {
		return nil, err
	}

	detector, err := pitdetection.NewDetector(config.PitDeltaThreshold, config.PitOnMissingSectors)

	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	stats := &FeatureStats{Rows: t.Len()}

	lapTimes, ok := t.NumbersOf(config.LapTimeColumn)

	if !ok {
		return nil, errors.Wrapf(ErrMissingColumn, "%q is not a time column", config.LapTimeColumn)
	}

	t.SetNumbers(config.LapTimeColumn, lapTimes)

	drivers, ok := t.Text(config.DriverColumn)

	if !ok {
		return nil, errors.Wrapf(ErrMissingColumn, "%q is not a text column", config.DriverColumn)
	}

	if laps, ok := t.NumbersOf(config.LapColumn); ok {
		t.SetNumbers(config.LapColumn, laps)
	} else {
		t.SetNumbers(config.LapColumn, runningLapCount(drivers))
		stats.LapsGenerated = true
	}

	sortByDriverAndLap(t, config)

	drivers, _ = t.Text(config.DriverColumn)
	laps, _ := t.Numbers(config.LapColumn)
	lapTimes, _ = t.Numbers(config.LapTimeColumn)

	stats.Drivers = countDrivers(drivers)

	deltas := lapDeltas(drivers, laps, lapTimes)
	t.SetNumbers(ColumnLapDelta, deltas)

	sectors := presentNumbers(t, config.SectorColumns)
	pitStops := make([]bool, t.Len())
	rowSectors := make([]float64, len(sectors))

	for i := range pitStops {
		for j, sector := range sectors {
			rowSectors[j] = sector[i]
		}

		pitStops[i], _ = detector.IsPitLap(pitdetection.LapTiming{
			LapTime: lapTimes[i],
			Delta:   deltas[i],
			Sectors: rowSectors,
		})

		if pitStops[i] {
			stats.PitStops++
		}
	}

	t.SetFlags(ColumnPitStop, pitStops)

	ratios := make([]float64, t.Len())

	for i := range ratios {
		ratios[i] = math.NaN()

		if len(sectors) != len(config.SectorColumns) || lapTimes[i] == 0 {
			continue
		}

		sum := 0.0

		for _, sector := range sectors {
			sum += sector[i]
		}

		// NaN in any sector or in the lap time propagates.
		ratios[i] = sum / lapTimes[i]
	}

	t.SetNumbers(ColumnSectorRatio, ratios)

	subSectors := presentNumbers(t, config.SubSectorColumns)
	spreads := make([]float64, t.Len())
	values := make([]float64, 0, len(subSectors))

	for i := range spreads {
		values = values[:0]

		for _, sub := range subSectors {
			if !math.IsNaN(sub[i]) {
				values = append(values, sub[i])
			}
		}

		if len(values) < 2 {
			spreads[i] = math.NaN()
			continue
		}

		spreads[i] = stat.StdDev(values, nil)
	}

	t.SetNumbers(ColumnSubSectorStdDev, spreads)

	anomalies, threshold := deltaAnomalies(deltas, config.DeltaAnomalyPercentile)
	t.SetFlags(ColumnDeltaAnomaly, anomalies)

	stats.DeltaThreshold = threshold

	for _, anomaly := range anomalies {
		if anomaly {
			stats.DeltaAnomalies++
		}
	}

	return stats, nil
}

// runningLapCount numbers each driver's rows 1, 2, 3... in source order.
func runningLapCount(drivers []string) []float64 {
	seen := make(map[string]int)
	laps := make([]float64, len(drivers))

	for i, driver := range drivers {
		seen[driver]++
		laps[i] = float64(seen[driver])
	}

	return laps
}

// sortByDriverAndLap stable-sorts rows by driver name then lap number. Rows
// without a driver or lap number sort last within their group.
func sortByDriverAndLap(t *Table, config Config) {
	drivers, _ := t.Text(config.DriverColumn)
	laps, _ := t.Numbers(config.LapColumn)

	perm := make([]int, t.Len())

	for i := range perm {
		perm[i] = i
	}

	sort.SliceStable(perm, func(a, b int) bool {
		da, db := drivers[perm[a]], drivers[perm[b]]

		if da != db {
			if da == "" || db == "" {
				return db == ""
			}

			return da < db
		}

		la, lb := laps[perm[a]], laps[perm[b]]

		if math.IsNaN(la) || math.IsNaN(lb) {
			return !math.IsNaN(la) && math.IsNaN(lb)
		}

		return la < lb
	})

	t.Reorder(perm)
}

func countDrivers(drivers []string) int {
	seen := make(map[string]bool)

	for _, driver := range drivers {
		if driver != "" {
			seen[driver] = true
		}
	}

	return len(seen)
}

// lapDeltas expects rows sorted by driver and lap. The first lap of every
// driver, and every row without a driver, has no delta.
func lapDeltas(drivers []string, laps, lapTimes []float64) []float64 {
	deltas := make([]float64, len(drivers))

	for i := range deltas {
		if i == 0 || drivers[i] == "" || drivers[i] != drivers[i-1] || math.IsNaN(laps[i]) {
			deltas[i] = math.NaN()
			continue
		}

		deltas[i] = lapTimes[i] - lapTimes[i-1]
	}

	return deltas
}

func presentNumbers(t *Table, names []string) [][]float64 {
	var out [][]float64

	for _, name := range names {
		if values, ok := t.NumbersOf(name); ok {
			out = append(out, values)
		}
	}

	return out
}

func deltaAnomalies(deltas []float64, percentile float64) ([]bool, float64) {
	flags := make([]bool, len(deltas))
	magnitudes := make([]float64, 0, len(deltas))

	for _, delta := range deltas {
		if !math.IsNaN(delta) {
			magnitudes = append(magnitudes, math.Abs(delta))
		}
	}

	if len(magnitudes) == 0 {
		return flags, math.NaN()
	}

	sort.Float64s(magnitudes)

	threshold := interpolatedQuantile(percentile, magnitudes)

	for i, delta := range deltas {
		flags[i] = !math.IsNaN(delta) && math.Abs(delta) > threshold
	}

	return flags, threshold
}

// interpolatedQuantile interpolates linearly between the sorted values either
// side of position (n-1)*p, so the top value is only reached at p = 1.
func interpolatedQuantile(p float64, sorted []float64) float64 {
	pos := float64(len(sorted)-1) * p
	lower := int(math.Floor(pos))

	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := pos - float64(lower)

	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
