package timing

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidConfig = errors.New("timing: invalid configuration")
	ErrMissingColumn = errors.New("timing: required column is missing")
	ErrMalformedRow  = errors.New("timing: row has more fields than the header")
)

// requireColumns reports every absent column in a single ErrMissingColumn.
func requireColumns(t *Table, names ...string) error {
	var missing []string

	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, strconv.Quote(name))
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return errors.Wrap(ErrMissingColumn, strings.Join(missing, ", "))
}
