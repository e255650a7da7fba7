package timing

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
)

// Load reads a timing export into a Table of raw text columns. path may be a
// single CSV file, a directory (every *.csv below it, in lexical order) or a
// glob pattern. When several files are read their rows are concatenated in
// file order and the column set is the union of their headers.
//
// A path that does not resolve to at least one file returns an error for
// which errors.Is(err, os.ErrNotExist) holds.
func Load(path string, chunkSize int, logger Logger) (*Table, error) {
	if chunkSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "chunk size must be positive, got %d", chunkSize)
	}

	files, err := resolveInputs(path)

	if err != nil {
		return nil, err
	}

	table := NewTable(0)

	for _, file := range files {
		t, err := loadFile(file, chunkSize, logger)

		if err != nil {
			return nil, err
		}

		logger.WithField("file", file).Debugf("Loaded %d rows, %d columns", t.Len(), len(t.Names()))

		table.Append(t)
	}

	return table, nil
}

func resolveInputs(path string) ([]string, error) {
	if strings.ContainsAny(path, "*?[") {
		matches, err := zglob.Glob(path)

		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "timing: bad input pattern %q", path)
		}

		return nonEmpty(path, matches)
	}

	info, err := os.Stat(path)

	if err != nil {
		return nil, errors.Wrap(err, "timing: could not open input")
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string

	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			files = append(files, p)
		}

		return nil
	})

	if err != nil {
		return nil, errors.Wrapf(err, "timing: could not list %s", path)
	}

	return nonEmpty(path, files)
}

func nonEmpty(path string, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, errors.Wrap(&os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}, "timing: no csv files found")
	}

	sort.Strings(files)

	return files, nil
}

// loadFile reads one CSV file chunkSize rows at a time. Each chunk becomes a
// string-typed DataFrame and the chunks are bound together in order, so the
// result is identical to a single read of the whole file. Column names are
// taken from the file header, not from the DataFrame.
func loadFile(path string, chunkSize int, logger Logger) (*Table, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrap(err, "timing: could not open input")
	}

	defer f.Close()

	reader := csv.NewReader(utfbom.SkipOnly(bufio.NewReader(f)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()

	if err == io.EOF {
		logger.WithField("file", path).Warn("Input file is empty")
		return NewTable(0), nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "timing: could not read header of %s", path)
	}

	columns := uniqueColumnNames(header)

	var (
		df     dataframe.DataFrame
		loaded bool
		chunks int
		chunk  = make([][]string, 0, chunkSize)
	)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}

		records := make([][]string, 0, len(chunk)+1)
		records = append(records, header)
		records = append(records, chunk...)

		part := dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
		)

		if part.Err != nil {
			return errors.Wrapf(part.Err, "timing: could not load chunk %d of %s", chunks, path)
		}

		if loaded {
			df = df.RBind(part)
		} else {
			df = part
			loaded = true
		}

		if df.Err != nil {
			return errors.Wrapf(df.Err, "timing: could not append chunk %d of %s", chunks, path)
		}

		chunks++
		chunk = make([][]string, 0, chunkSize)

		return nil
	}

	for {
		record, err := reader.Read()

		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "timing: could not read %s", path)
		}

		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, errors.Wrapf(ErrMalformedRow, "%s line %d", path, line)
		}

		for len(record) < len(header) {
			record = append(record, "")
		}

		chunk = append(chunk, record)

		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	logger.WithField("file", path).Debugf("Read %d chunks of up to %d rows", chunks, chunkSize)

	if !loaded {
		return NewTextTable(columns, nil), nil
	}

	// the DataFrame renames empty and repeated headers, columns keep their order
	return NewTextTable(columns, df.Records()[1:]), nil
}

// uniqueColumnNames keeps the first occurrence of each header as it is and
// suffixes repeats with .1, .2 and so on.
func uniqueColumnNames(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, name := range header {
		column := name

		for n := 1; seen[column]; n++ {
			column = name + "." + strconv.Itoa(n)
		}

		seen[column] = true
		columns[i] = column
	}

	return columns
}
