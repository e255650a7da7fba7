package timing

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laps.csv")
	writeFile(t, path, sampleLaps)

	table, err := Load(path, 2, testLogger())
	require.NoError(t, err)

	stats, err := Preprocess(table, DefaultConfig(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"Additional1"}, stats.PrunedColumns)
	assert.Equal(t, 0, stats.UnresolvedDrivers)
	assert.Equal(t, 3, stats.Features.Drivers)
	assert.False(t, table.Has("Additional1"))

	drivers, _ := table.Text("DriverName")
	assert.Equal(t, []string{"Charles", "Lewis", "Lewis", "Max", "Max"}, drivers)

	// Lewis' first lap has no S1 split.
	pitStops, _ := table.Flags(ColumnPitStop)
	assert.Equal(t, []bool{false, true, false, false, false}, pitStops)
}

func TestPreprocessRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.PitDeltaThreshold = -1

	_, err := Preprocess(NewTable(0), config, testLogger())

	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
