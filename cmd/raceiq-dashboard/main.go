package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"justapengu.in/raceiq"
)

var (
	dataPath   string
	configPath string
	listen     string
	watch      bool
	open       bool
	verbose    bool
)

func init() {
	flag.StringVar(&dataPath, "data", "output_data/processed_race_data.csv", "processed lap CSV to serve")
	flag.StringVar(&configPath, "c", "", "config path (optional)")
	flag.StringVar(&listen, "listen", "", "address to listen on (overrides config)")
	flag.BoolVar(&watch, "watch", false, "reload the data when it changes on disk")
	flag.BoolVar(&open, "open", false, "open the dashboard in a browser")
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

	config := raceiq.DefaultConfig()

	if configPath != "" {
		var err error

		config, err = raceiq.LoadConfig(configPath)

		if err != nil {
			logger.WithError(err).Fatalf("Could not read config at %s", configPath)
		}
	}

	if listen != "" {
		config.Dashboard.Listen = listen
	}

	dashboard, err := raceiq.NewDashboard(dataPath, config, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise dashboard")
	}

	if err := dashboard.Reload(); err != nil {
		logger.WithError(err).Fatalf("Could not load %s", dataPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:    config.Dashboard.Listen,
		Handler: dashboard.Router(),
	}

	g.Go(func() error {
		logger.Infof("Dashboard listening on %s", config.Dashboard.Listen)

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if watch {
		g.Go(func() error {
			return dashboard.Watch(ctx)
		})
	}

	if open {
		url := "http://" + config.Dashboard.Listen

		if strings.HasPrefix(config.Dashboard.Listen, ":") {
			url = "http://localhost" + config.Dashboard.Listen
		}

		if err := browser.OpenURL(url); err != nil {
			logger.WithError(err).Warnf("Could not open %s", url)
		}
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Dashboard stopped")
	}

	logger.Infof("Dashboard stopped. Exiting")
}
