package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/mitchellh/go-wordwrap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/raceiq"
)

const defaultOutput = "output_data/processed_race_data.csv"

var (
	inputPath   string
	outputPath  string
	configPath  string
	modelType   string
	summary     bool
	plotPath    string
	metricsFile string
	verbose     bool
)

func init() {
	flag.StringVar(&inputPath, "i", "", "input CSV file, directory or glob")
	flag.StringVar(&outputPath, "o", defaultOutput, "output CSV path")
	flag.StringVar(&configPath, "c", "", "config path (optional)")
	flag.StringVar(&modelType, "model", "", "regression model: linear or random_forest (overrides config)")
	flag.BoolVar(&summary, "summary", false, "write a run summary next to the output")
	flag.StringVar(&plotPath, "plot", "", "save a predicted vs actual plot to this path")
	flag.StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format to this path")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(wordwrap.WrapString("raceiq: "+err.Error(), 100)))
		os.Exit(1)
	}
}

func run(logger *logrus.Logger) error {
	if inputPath == "" {
		return errors.New("an input file or directory must be given with -i")
	}

	config := raceiq.DefaultConfig()

	if configPath != "" {
		var err error

		config, err = raceiq.LoadConfig(configPath)

		if err != nil {
			return err
		}
	}

	if modelType != "" {
		config.Model.Type = modelType
	}

	if verbose {
		logger.Debugf("Using config: %s", spew.Sdump(config))
	}

	pipeline := raceiq.NewPipeline(config, logger)

	result, err := pipeline.Run(raceiq.RunOptions{
		Input:        inputPath,
		Output:       outputPath,
		WriteSummary: summary,
		PlotPath:     plotPath,
		MetricsFile:  metricsFile,
	})

	if err != nil {
		return err
	}

	size := "unknown size"

	if info, err := os.Stat(result.Output); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}

	color.Green("Processed %s laps from %d drivers in %s", humanize.Comma(int64(result.Rows)), result.Drivers, durafmt.Parse(result.Duration).LimitFirstN(2).String())
	fmt.Printf("%s (%s)\n", result.Output, size)

	if summary {
		fmt.Println(raceiq.SummaryPath(result.Output))
	}

	if plotPath != "" {
		fmt.Println(plotPath)
	}

	return nil
}
