package timing

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	table := NewTextTable([]string{"DriverName", "Extra"}, [][]string{{"Max", "x"}, {"Lewis", "y"}})
	table.SetNumbers("Lap Time", []float64{90.25, math.NaN()})
	table.SetFlags("Pit Stop", []bool{false, true})

	path := filepath.Join(t.TempDir(), "out", "laps.csv")

	header, err := WriteCSV(path, table, []string{"DriverName", "Laps", "Lap Time", "Pit Stop"})
	require.NoError(t, err)

	assert.Equal(t, []string{"DriverName", "Lap Time", "Pit Stop"}, header)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "DriverName,Lap Time,Pit Stop\nMax,90.25,false\nLewis,,true\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFileAtomicLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "laps.csv")
	failure := errors.New("disk on fire")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, strings.Repeat("partial,", 10))
		return failure
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, failure))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
