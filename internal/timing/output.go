package timing

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteCSV writes the requested columns of t to path. Columns the table does
// not have are left out rather than written empty. The file is written to a
// temporary name in the same directory and renamed into place, so a failed
// write never leaves a partial file behind. It returns the header written.
func WriteCSV(path string, t *Table, columns []string) ([]string, error) {
	records := t.Records(columns)

	err := WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)

		if err := cw.WriteAll(records); err != nil {
			return err
		}

		return cw.Error()
	})

	if err != nil {
		return nil, err
	}

	return records[0], nil
}

// WriteFileAtomic calls write with a buffered temporary file and renames it
// to path once everything has been written and synced.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "timing: could not create output directory %s", dir)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")

	if err != nil {
		return errors.Wrap(err, "timing: could not create temporary output file")
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	buf := bufio.NewWriter(f)

	if err := write(buf); err != nil {
		return errors.Wrapf(err, "timing: could not write %s", path)
	}

	if err := buf.Flush(); err != nil {
		return errors.Wrapf(err, "timing: could not write %s", path)
	}

	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "timing: could not sync %s", path)
	}

	if err := f.Chmod(0644); err != nil {
		return errors.Wrapf(err, "timing: could not set permissions on %s", path)
	}

	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "timing: could not close %s", path)
	}

	if err := os.Rename(f.Name(), path); err != nil {
		return errors.Wrapf(err, "timing: could not move output into place at %s", path)
	}

	return nil
}
