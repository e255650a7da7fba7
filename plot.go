package raceiq

import (
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"justapengu.in/raceiq/internal/timing"
)

var (
	lapColour     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	anomalyColour = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	perfectColour = color.RGBA{A: 160}
)

// SavePredictionPlot draws predicted against actual lap time for every lap
// that has both, with residual anomalies highlighted and the y = x line for
// reference. The image format follows the file extension.
func SavePredictionPlot(path string, t *timing.Table, lapTimeColumn string) error {
	actual, ok := t.NumbersOf(lapTimeColumn)

	if !ok {
		return errors.Wrapf(timing.ErrMissingColumn, "%q", lapTimeColumn)
	}

	predicted, ok := t.Numbers(timing.ColumnPredictedLapTime)

	if !ok {
		return errors.Wrapf(timing.ErrMissingColumn, "%q", timing.ColumnPredictedLapTime)
	}

	anomalies, _ := t.Flags(timing.ColumnResidualAnomaly)

	var laps, flagged plotter.XYs

	lo, hi := math.Inf(1), math.Inf(-1)

	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}

		xy := plotter.XY{X: actual[i], Y: predicted[i]}

		if anomalies != nil && anomalies[i] {
			flagged = append(flagged, xy)
		} else {
			laps = append(laps, xy)
		}

		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}

	if len(laps)+len(flagged) == 0 {
		return errors.New("raceiq: no predicted laps to plot")
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual lap time"
	p.X.Label.Text = "Actual (s)"
	p.Y.Label.Text = "Predicted (s)"
	p.Add(plotter.NewGrid())

	perfect, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})

	if err != nil {
		return errors.Wrap(err, "raceiq: could not draw reference line")
	}

	perfect.Color = perfectColour
	perfect.Width = vg.Points(1)
	perfect.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(perfect)
	p.Legend.Add("predicted = actual", perfect)

	for _, series := range []struct {
		name   string
		points plotter.XYs
		colour color.Color
	}{
		{name: "lap", points: laps, colour: lapColour},
		{name: "residual anomaly", points: flagged, colour: anomalyColour},
	} {
		if len(series.points) == 0 {
			continue
		}

		scatter, err := plotter.NewScatter(series.points)

		if err != nil {
			return errors.Wrapf(err, "raceiq: could not plot %s points", series.name)
		}

		scatter.GlyphStyle.Color = series.colour
		scatter.GlyphStyle.Radius = vg.Points(2.5)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}

		p.Add(scatter)
		p.Legend.Add(series.name, scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	if format == "" {
		format = "png"
	}

	writer, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)

	if err != nil {
		return errors.Wrapf(err, "raceiq: could not render plot as %s", format)
	}

	return timing.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := writer.WriteTo(w)
		return err
	})
}
