package timing

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"

	"justapengu.in/raceiq/pkg/laptime"
)

// Lap is one row of a finished, annotated timing table. Missing numbers are
// NaN.
type Lap struct {
	DriverName string
	Number     int
	LapTime    float64
	Sectors    []float64
	Predicted  float64
	Delta      float64
	Residual   float64

	SectorRatio     float64
	SubSectorStdDev float64

	PitStop         bool
	DeltaAnomaly    bool
	ResidualAnomaly bool

	Class string
	Flag  string
}

func (l Lap) Anomalous() bool {
	return l.DeltaAnomaly || l.ResidualAnomaly
}

type jsonLap struct {
	DriverName      string     `json:"DriverName"`
	Number          int        `json:"Lap"`
	LapTime         *float64   `json:"LapTime"`
	Sectors         []*float64 `json:"Sectors"`
	Predicted       *float64   `json:"PredictedLapTime"`
	Delta           *float64   `json:"LapDelta"`
	Residual        *float64   `json:"Residual"`
	SectorRatio     *float64   `json:"SectorRatio"`
	SubSectorStdDev *float64   `json:"SubsectorStdDev"`
	PitStop         bool       `json:"PitStop"`
	DeltaAnomaly    bool       `json:"DeltaAnomaly"`
	ResidualAnomaly bool       `json:"ResidualAnomaly"`
	Class           string     `json:"Class,omitempty"`
	Flag            string     `json:"Flag,omitempty"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}

func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}

	return *v
}

// MarshalJSON writes missing values as null, which encoding/json cannot do
// for a NaN float64.
func (l Lap) MarshalJSON() ([]byte, error) {
	out := jsonLap{
		DriverName:      l.DriverName,
		Number:          l.Number,
		LapTime:         nullable(l.LapTime),
		Predicted:       nullable(l.Predicted),
		Delta:           nullable(l.Delta),
		Residual:        nullable(l.Residual),
		SectorRatio:     nullable(l.SectorRatio),
		SubSectorStdDev: nullable(l.SubSectorStdDev),
		PitStop:         l.PitStop,
		DeltaAnomaly:    l.DeltaAnomaly,
		ResidualAnomaly: l.ResidualAnomaly,
		Class:           l.Class,
		Flag:            l.Flag,
	}

	for _, sector := range l.Sectors {
		out.Sectors = append(out.Sectors, nullable(sector))
	}

	return json.Marshal(out)
}

func (l *Lap) UnmarshalJSON(data []byte) error {
	var in jsonLap

	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*l = Lap{
		DriverName:      in.DriverName,
		Number:          in.Number,
		LapTime:         fromNullable(in.LapTime),
		Predicted:       fromNullable(in.Predicted),
		Delta:           fromNullable(in.Delta),
		Residual:        fromNullable(in.Residual),
		SectorRatio:     fromNullable(in.SectorRatio),
		SubSectorStdDev: fromNullable(in.SubSectorStdDev),
		PitStop:         in.PitStop,
		DeltaAnomaly:    in.DeltaAnomaly,
		ResidualAnomaly: in.ResidualAnomaly,
		Class:           in.Class,
		Flag:            in.Flag,
	}

	for _, sector := range in.Sectors {
		l.Sectors = append(l.Sectors, fromNullable(sector))
	}

	return nil
}

// ReadLaps reads a file written by WriteCSV back into Laps, in file order.
// Columns the file does not have leave the matching fields missing.
func ReadLaps(path string, config Config) ([]Lap, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrap(err, "timing: could not open laps")
	}

	defer f.Close()

	return DecodeLaps(f, config)
}

func DecodeLaps(r io.Reader, config Config) ([]Lap, error) {
	reader := csv.NewReader(utfbom.SkipOnly(bufio.NewReader(r)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()

	if err != nil {
		return nil, errors.Wrap(err, "timing: could not read laps")
	}

	if len(records) == 0 {
		return nil, nil
	}

	t := NewTextTable(records[0], records[1:])

	text := func(name string) []string {
		values, _ := t.Text(name)
		return values
	}

	number := func(name string) []float64 {
		if values, ok := t.NumbersOf(name); ok {
			return values
		}

		return nil
	}

	flag := func(name string) []bool {
		values, ok := t.Text(name)

		if !ok {
			return nil
		}

		out := make([]bool, len(values))

		for i, v := range values {
			out[i], _ = strconv.ParseBool(strings.TrimSpace(v))
		}

		return out
	}

	var (
		drivers         = text(config.DriverColumn)
		classes         = text(config.ClassColumn)
		flags           = text(config.FlagColumn)
		numbers         = number(config.LapColumn)
		lapTimes        = number(config.LapTimeColumn)
		predicted       = number(ColumnPredictedLapTime)
		deltas          = number(ColumnLapDelta)
		residuals       = number(ColumnResidual)
		ratios          = number(ColumnSectorRatio)
		spreads         = number(ColumnSubSectorStdDev)
		pitStops        = flag(ColumnPitStop)
		deltaAnomalies  = flag(ColumnDeltaAnomaly)
		residualAnomaly = flag(ColumnResidualAnomaly)
		sectors         [][]float64
	)

	for _, name := range config.SectorColumns {
		sectors = append(sectors, number(name))
	}

	laps := make([]Lap, t.Len())

	for i := range laps {
		lap := Lap{
			DriverName:      cell(drivers, i),
			Class:           cell(classes, i),
			Flag:            cell(flags, i),
			LapTime:         numberAt(lapTimes, i),
			Predicted:       numberAt(predicted, i),
			Delta:           numberAt(deltas, i),
			Residual:        numberAt(residuals, i),
			SectorRatio:     numberAt(ratios, i),
			SubSectorStdDev: numberAt(spreads, i),
			PitStop:         flagAt(pitStops, i),
			DeltaAnomaly:    flagAt(deltaAnomalies, i),
			ResidualAnomaly: flagAt(residualAnomaly, i),
		}

		if n := numberAt(numbers, i); !math.IsNaN(n) {
			lap.Number = int(n)
		}

		for _, sector := range sectors {
			lap.Sectors = append(lap.Sectors, numberAt(sector, i))
		}

		laps[i] = lap
	}

	return laps, nil
}

func numberAt(values []float64, i int) float64 {
	if values == nil {
		return math.NaN()
	}

	return values[i]
}

func flagAt(values []bool, i int) bool {
	return values != nil && values[i]
}

// LapRecords renders laps as CSV records with the same column names WriteCSV
// uses, header first.
func LapRecords(laps []Lap, config Config) [][]string {
	header := []string{config.DriverColumn, config.LapColumn}
	header = append(header, config.SectorColumns...)
	header = append(header,
		config.LapTimeColumn, ColumnPredictedLapTime, ColumnLapDelta, ColumnPitStop,
		ColumnSectorRatio, ColumnSubSectorStdDev, ColumnResidual,
		ColumnDeltaAnomaly, ColumnResidualAnomaly, config.ClassColumn, config.FlagColumn,
	)

	records := [][]string{header}

	format := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	for _, lap := range laps {
		record := []string{lap.DriverName, strconv.Itoa(lap.Number)}

		for i := range config.SectorColumns {
			if i < len(lap.Sectors) {
				record = append(record, format(lap.Sectors[i]))
			} else {
				record = append(record, "")
			}
		}

		record = append(record,
			format(lap.LapTime), format(lap.Predicted), format(lap.Delta),
			strconv.FormatBool(lap.PitStop), format(lap.SectorRatio), format(lap.SubSectorStdDev),
			format(lap.Residual), strconv.FormatBool(lap.DeltaAnomaly),
			strconv.FormatBool(lap.ResidualAnomaly), lap.Class, lap.Flag,
		)

		records = append(records, record)
	}

	return records
}

// String renders a lap the way a timing screen would.
func (l Lap) String() string {
	return l.DriverName + " lap " + strconv.Itoa(l.Number) + ": " + laptime.Format(l.LapTime)
}
