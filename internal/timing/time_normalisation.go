package timing

import (
	"justapengu.in/raceiq/pkg/laptime"
)

// NormaliseTimes converts every configured time column that exists in the
// table from text to seconds. Placeholders and unparsable cells become NaN.
// Columns that are already numeric are left untouched. It returns the number
// of cells that could not be parsed, placeholders excluded.
func NormaliseTimes(t *Table, config Config) int {
	unparsable := 0

	for _, name := range config.TimeColumns {
		text, ok := t.Text(name)

		if !ok {
			continue
		}

		seconds := make([]float64, len(text))

		for i, s := range text {
			v, ok := laptime.Parse(s)

			if !ok && !missingText(s) {
				unparsable++
			}

			seconds[i] = v
		}

		t.SetNumbers(name, seconds)
	}

	return unparsable
}
