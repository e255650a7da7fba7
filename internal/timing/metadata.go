package timing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormaliseMetadata trims the class and flag columns and puts them in their
// canonical case: class codes upper case ("GT3"), flag words title case
// ("Finished"). Absent columns are skipped. Running it twice is the same as
// running it once.
func NormaliseMetadata(t *Table, config Config) {
	normaliseText(t, config.ClassColumn, strings.ToUpper)

	title := cases.Title(language.Und)

	normaliseText(t, config.FlagColumn, func(s string) string {
		return title.String(s)
	})
}

func normaliseText(t *Table, name string, canonical func(string) string) {
	values, ok := t.Text(name)

	if !ok {
		return
	}

	out := make([]string, len(values))

	for i, s := range values {
		s = strings.TrimSpace(s)

		if s == "" || missingText(s) {
			out[i] = s
			continue
		}

		out[i] = canonical(s)
	}

	t.SetText(name, out)
}
