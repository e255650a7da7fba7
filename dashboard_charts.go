package raceiq

import (
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"justapengu.in/raceiq/internal/timing"
)

// echarts draws "-" as a gap
const missingChartValue = "-"

func chartValue(v float64) interface{} {
	if math.IsNaN(v) {
		return missingChartValue
	}

	return math.Round(v*1000) / 1000
}

func lapNumbers(laps []timing.Lap) []string {
	out := make([]string, len(laps))

	for i, lap := range laps {
		out[i] = strconv.Itoa(lap.Number)
	}

	return out
}

func lapTimeChart(name string, laps []timing.Lap) *charts.Line {
	actual := make([]opts.LineData, len(laps))
	predicted := make([]opts.LineData, len(laps))

	for i, lap := range laps {
		actual[i] = opts.LineData{Value: chartValue(lap.LapTime)}
		predicted[i] = opts.LineData{Value: chartValue(lap.Predicted)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lap time", Subtitle: name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Seconds", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(lapNumbers(laps)).
		AddSeries("actual", actual).
		AddSeries("predicted", predicted, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line
}

func sectorChart(name string, laps []timing.Lap, sectorColumns []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Sector times", Subtitle: name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Seconds"}),
	)
	bar.SetXAxis(lapNumbers(laps))

	for s, sector := range sectorColumns {
		data := make([]opts.BarData, len(laps))

		for i, lap := range laps {
			v := math.NaN()

			if s < len(lap.Sectors) {
				v = lap.Sectors[s]
			}

			data[i] = opts.BarData{Value: chartValue(v)}
		}

		bar.AddSeries(sector, data, charts.WithBarChartOpts(opts.BarChart{Stack: "sectors"}))
	}

	return bar
}

func predictionChart(name string, laps []timing.Lap) *charts.Scatter {
	var normal, flagged []opts.ScatterData

	for _, lap := range laps {
		if math.IsNaN(lap.LapTime) || math.IsNaN(lap.Predicted) {
			continue
		}

		point := opts.ScatterData{Value: []interface{}{chartValue(lap.LapTime), chartValue(lap.Predicted)}, Name: "Lap " + strconv.Itoa(lap.Number)}

		if lap.ResidualAnomaly {
			flagged = append(flagged, point)
		} else {
			normal = append(normal, point)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Predicted vs actual", Subtitle: name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Actual (s)", Type: "value", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Predicted (s)", Type: "value", Scale: opts.Bool(true)}),
	)
	scatter.AddSeries("lap", normal, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("residual anomaly", flagged, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}))

	return scatter
}

// renderDriverCharts writes a standalone page with the lap time trend, the
// stacked sectors and predicted against actual lap time.
func renderDriverCharts(w io.Writer, name string, laps []timing.Lap, sectorColumns []string) error {
	page := components.NewPage()
	page.SetPageTitle(name)
	page.AddCharts(
		lapTimeChart(name, laps),
		sectorChart(name, laps, sectorColumns),
		predictionChart(name, laps),
	)

	return page.Render(w)
}

// renderComparisonChart draws one lap time line per driver over the union of
// their lap numbers.
func renderComparisonChart(w io.Writer, drivers []string, laps map[string][]timing.Lap) error {
	numbers := make(map[int]bool)

	for _, driver := range drivers {
		for _, lap := range laps[driver] {
			numbers[lap.Number] = true
		}
	}

	var axis []int

	for n := range numbers {
		axis = append(axis, n)
	}

	sort.Ints(axis)

	labels := make([]string, len(axis))
	index := make(map[int]int, len(axis))

	for i, n := range axis {
		labels[i] = strconv.Itoa(n)
		index[n] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Driver comparison", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lap time comparison"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Seconds", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(labels)

	for _, driver := range drivers {
		data := make([]opts.LineData, len(axis))

		for i := range data {
			data[i] = opts.LineData{Value: missingChartValue}
		}

		for _, lap := range laps[driver] {
			data[index[lap.Number]] = opts.LineData{Value: chartValue(lap.LapTime)}
		}

		line.AddSeries(driver, data)
	}

	return line.Render(w)
}
