package raceiq

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"justapengu.in/raceiq/internal/timing"
)

const metricsNamespace = "raceiq"

// Metrics holds the gauges describing the most recent run, or the data set a
// dashboard is serving. Each Metrics has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	laps              prometheus.Gauge
	drivers           prometheus.Gauge
	pitStops          prometheus.Gauge
	deltaAnomalies    prometheus.Gauge
	residualAnomalies prometheus.Gauge
	modelMAE          prometheus.Gauge
	modelR2           prometheus.Gauge
	stageSeconds      *prometheus.GaugeVec
	runs              *prometheus.CounterVec
	reloads           *prometheus.CounterVec
	requests          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		laps:              gauge("laps", "Number of laps in the data set."),
		drivers:           gauge("drivers", "Number of distinct drivers in the data set."),
		pitStops:          gauge("pit_stops", "Number of laps inferred to contain a pit stop."),
		deltaAnomalies:    gauge("delta_anomalies", "Number of laps flagged by the lap delta percentile."),
		residualAnomalies: gauge("residual_anomalies", "Number of laps flagged by the model residual threshold."),
		modelMAE:          gauge("model_mae_seconds", "Mean absolute error of the model on the test split."),
		modelR2:           gauge("model_r2", "Coefficient of determination of the model on the test split."),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage during the last run.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by result.",
		}, []string{"result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dashboard_reloads_total",
			Help:      "Dashboard data reloads by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dashboard_requests_total",
			Help:      "Dashboard HTTP requests by route.",
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.laps, m.drivers, m.pitStops, m.deltaAnomalies, m.residualAnomalies,
		m.modelMAE, m.modelR2, m.stageSeconds, m.runs, m.reloads, m.requests,
	)

	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

func (m *Metrics) ObserveRun(summary *RunSummary, err error) {
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}

	m.runs.WithLabelValues("success").Inc()

	m.laps.Set(float64(summary.Rows))
	m.drivers.Set(float64(summary.Drivers))
	m.pitStops.Set(float64(summary.PitStops))
	m.deltaAnomalies.Set(float64(summary.DeltaAnomalies))
	m.residualAnomalies.Set(float64(summary.ResidualAnomalies))
	m.modelMAE.Set(float64(summary.MAE))
	m.modelR2.Set(float64(summary.R2))
}

// ObserveLaps sets the data set gauges from laps read back from an output
// file.
func (m *Metrics) ObserveLaps(laps []timing.Lap, summary *RunSummary) {
	drivers := make(map[string]bool)

	var pitStops, deltaAnomalies, residualAnomalies int

	for _, lap := range laps {
		drivers[lap.DriverName] = true

		if lap.PitStop {
			pitStops++
		}

		if lap.DeltaAnomaly {
			deltaAnomalies++
		}

		if lap.ResidualAnomaly {
			residualAnomalies++
		}
	}

	m.laps.Set(float64(len(laps)))
	m.drivers.Set(float64(len(drivers)))
	m.pitStops.Set(float64(pitStops))
	m.deltaAnomalies.Set(float64(deltaAnomalies))
	m.residualAnomalies.Set(float64(residualAnomalies))

	if summary != nil {
		m.modelMAE.Set(float64(summary.MAE))
		m.modelR2.Set(float64(summary.R2))
	}
}

func (m *Metrics) ObserveReload(err error) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
	} else {
		m.reloads.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) countRequest(route string) {
	m.requests.WithLabelValues(route).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
