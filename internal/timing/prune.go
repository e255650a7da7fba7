package timing

import (
	"regexp"

	"github.com/pkg/errors"
)

// PruneColumns drops every column whose name matches the configured pattern
// and returns the names it removed. An empty pattern prunes nothing.
func PruneColumns(t *Table, config Config) ([]string, error) {
	if config.PrunePattern == "" {
		return nil, nil
	}

	pattern, err := regexp.Compile(config.PrunePattern)

	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "prune_pattern %q: %v", config.PrunePattern, err)
	}

	var names []string

	for _, name := range t.Names() {
		if pattern.MatchString(name) {
			names = append(names, name)
		}
	}

	t.Drop(names...)

	return names, nil
}
