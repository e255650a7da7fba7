package raceiq

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"justapengu.in/raceiq/internal/timing"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// driverFilename turns a driver name into a name usable inside a zip file.
func driverFilename(name string) string {
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "_"), "_")

	if name == "" {
		name = "driver"
	}

	return name
}

// BuildBundle writes a zip containing the run summary, if there is one, and
// one CSV per driver.
func BuildBundle(w io.Writer, laps []timing.Lap, summary *RunSummary, config timing.Config) (err error) {
	z := zip.NewWriter(w)
	defer func() {
		closeErr := z.Close()

		if err == nil {
			err = closeErr
		}
	}()

	if summary != nil {
		if err := addJSONFileToZip(z, "summary.json", summary); err != nil {
			return err
		}
	}

	drivers := GroupLaps(laps)

	names := make([]string, 0, len(drivers))

	for name := range drivers {
		names = append(names, name)
	}

	sort.Strings(names)

	used := make(map[string]int)

	for _, name := range names {
		filename := driverFilename(name)

		// two names can clean up to the same file name
		used[filename]++

		if n := used[filename]; n > 1 {
			filename += "_" + strconv.Itoa(n)
		}

		if err := addCSVFileToZip(z, "drivers/"+filename+".csv", timing.LapRecords(drivers[name], config)); err != nil {
			return err
		}
	}

	return nil
}

func addJSONFileToZip(z *zip.Writer, filename string, data interface{}) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(data)
}

func addCSVFileToZip(z *zip.Writer, filename string, records [][]string) error {
	f, err := z.Create(filename)

	if err != nil {
		return err
	}

	writer := csv.NewWriter(f)

	if err := writer.WriteAll(records); err != nil {
		return err
	}

	return writer.Error()
}
