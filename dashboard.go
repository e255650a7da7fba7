package raceiq

import (
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi"
	"github.com/go-http-utils/etag"
	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/html"

	"justapengu.in/raceiq/internal/timing"
	"justapengu.in/raceiq/pkg/laptime"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardPages = []string{"index", "driver", "compare"}

// Dashboard serves a read-only view over a finished lap table. The data is
// only ever replaced as a whole, by Reload.
type Dashboard struct {
	dataPath string
	config   Config
	logger   Logger
	metrics  *Metrics

	templates map[string]*template.Template

	mutex    sync.RWMutex
	laps     []timing.Lap
	summary  *RunSummary
	loadedAt time.Time
}

func NewDashboard(dataPath string, config Config, logger Logger) (*Dashboard, error) {
	d := &Dashboard{
		dataPath:  dataPath,
		config:    config,
		logger:    logger,
		metrics:   NewMetrics(),
		templates: make(map[string]*template.Template),
	}

	for _, page := range dashboardPages {
		t, err := template.New(page).Funcs(d.funcs()).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")

		if err != nil {
			return nil, errors.Wrapf(err, "raceiq: could not parse %s template", page)
		}

		d.templates[page] = t
	}

	return d, nil
}

func (d *Dashboard) funcs() template.FuncMap {
	funcs := sprig.FuncMap()

	funcs["lapTime"] = laptime.Format
	funcs["lapDelta"] = laptime.FormatDelta
	funcs["seconds"] = func(v interface{}) string {
		return formatNumber(v, 3)
	}
	funcs["number"] = func(v interface{}) string {
		return formatNumber(v, 4)
	}
	funcs["isNaN"] = math.IsNaN
	funcs["comma"] = func(n int) string {
		return humanize.Comma(int64(n))
	}
	funcs["since"] = humanize.Time
	funcs["duration"] = func(d time.Duration) string {
		return durafmt.Parse(d).LimitFirstN(2).String()
	}
	funcs["driverURL"] = func(name string) string {
		return "/drivers/" + url.PathEscape(name)
	}

	return funcs
}

// formatNumber renders float64 and Float values, with "--" for missing ones.
func formatNumber(v interface{}, precision int) string {
	var f float64

	switch n := v.(type) {
	case float64:
		f = n
	case Float:
		f = float64(n)
	case *Float:
		if n == nil {
			return "--"
		}

		f = float64(*n)
	default:
		return fmt.Sprint(v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "--"
	}

	return strconv.FormatFloat(f, 'f', precision, 64)
}

// Reload re-reads the lap table and its run summary. On failure the data
// already loaded stays in place.
func (d *Dashboard) Reload() (err error) {
	defer func() {
		d.metrics.ObserveReload(err)
	}()

	laps, err := timing.ReadLaps(d.dataPath, d.config.Timing)

	if err != nil {
		return err
	}

	summary, summaryErr := LoadSummary(SummaryPath(d.dataPath))

	if summaryErr != nil && !os.IsNotExist(summaryErr) {
		d.logger.WithError(summaryErr).Warnf("Could not load run summary for %s", d.dataPath)
	}

	d.mutex.Lock()
	d.laps = laps
	d.summary = summary
	d.loadedAt = time.Now()
	d.mutex.Unlock()

	d.metrics.ObserveLaps(laps, summary)

	d.logger.Infof("Loaded %d laps from %s", len(laps), d.dataPath)

	return nil
}

func (d *Dashboard) data() ([]timing.Lap, *RunSummary, time.Time) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return d.laps, d.summary, d.loadedAt
}

func (d *Dashboard) Router() http.Handler {
	router := chi.NewRouter()

	router.With(d.count("index")).Get("/", d.index)
	router.With(d.count("driver")).Get("/drivers/{driver}", d.driver)
	router.With(d.count("driver_charts")).Get("/drivers/{driver}/charts", d.driverCharts)
	router.With(d.count("driver_export")).Method(http.MethodGet, "/drivers/{driver}/export.csv", etag.Handler(http.HandlerFunc(d.driverExport), false))
	router.With(d.count("compare")).Get("/compare", d.compare)
	router.With(d.count("compare_chart")).Get("/compare/chart", d.compareChart)
	router.With(d.count("compare_export")).Method(http.MethodGet, "/compare/export.csv", etag.Handler(http.HandlerFunc(d.compareExport), false))
	router.With(d.count("export")).Method(http.MethodGet, "/export.zip", etag.Handler(http.HandlerFunc(d.export), false))
	router.With(d.count("api_laps")).Get("/api/laps", d.apiLaps)
	router.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		d.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

func (d *Dashboard) count(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d.metrics.countRequest(route)
			next.ServeHTTP(w, r)
		})
	}
}

func (d *Dashboard) render(w http.ResponseWriter, page string, data interface{}) {
	buf := new(bytes.Buffer)

	if err := d.templates[page].ExecuteTemplate(buf, "layout", data); err != nil {
		d.logger.WithError(err).Errorf("Could not render %s template", page)
		http.Error(w, "Could not render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	minifier := &html.Minifier{KeepEndTags: true}
	_ = minifier.Minify(minify.New(), w, buf, nil)
}

type indexPage struct {
	DataPath    string
	LoadedAt    time.Time
	NumLaps     int
	Leaderboard []*DriverSummary
	Summary     *RunSummary
}

func (d *Dashboard) index(w http.ResponseWriter, r *http.Request) {
	laps, summary, loadedAt := d.data()

	d.render(w, "index", indexPage{
		DataPath:    d.dataPath,
		LoadedAt:    loadedAt,
		NumLaps:     len(laps),
		Leaderboard: Leaderboard(laps, d.config.Dashboard.TrendExcludesPitLaps),
		Summary:     summary,
	})
}

// driverLaps returns the laps of the driver named in the URL, writing a 404
// when there are none.
func (d *Dashboard) driverLaps(w http.ResponseWriter, r *http.Request) (string, []timing.Lap, bool) {
	name := chi.URLParam(r, "driver")

	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	laps, _, _ := d.data()
	driverLaps := GroupLaps(laps)[name]

	if len(driverLaps) == 0 {
		http.Error(w, errors.Wrapf(ErrUnknownDriver, "%q", name).Error(), http.StatusNotFound)
		return name, nil, false
	}

	return name, driverLaps, true
}

type driverPage struct {
	Driver            *DriverSummary
	SectorColumns     []string
	Laps              []timing.Lap
	PitLaps           []timing.Lap
	DeltaAnomalies    []timing.Lap
	ResidualAnomalies []timing.Lap
}

func (d *Dashboard) driver(w http.ResponseWriter, r *http.Request) {
	name, laps, ok := d.driverLaps(w, r)

	if !ok {
		return
	}

	page := driverPage{
		Driver:        SummariseDriver(name, laps, d.config.Dashboard.TrendExcludesPitLaps),
		SectorColumns: d.config.Timing.SectorColumns,
		Laps:          laps,
	}

	for _, lap := range laps {
		if lap.PitStop {
			page.PitLaps = append(page.PitLaps, lap)
		}

		if lap.DeltaAnomaly {
			page.DeltaAnomalies = append(page.DeltaAnomalies, lap)
		}

		if lap.ResidualAnomaly {
			page.ResidualAnomalies = append(page.ResidualAnomalies, lap)
		}
	}

	d.render(w, "driver", page)
}

func (d *Dashboard) driverCharts(w http.ResponseWriter, r *http.Request) {
	name, laps, ok := d.driverLaps(w, r)

	if !ok {
		return
	}

	buf := new(bytes.Buffer)

	if err := renderDriverCharts(buf, name, laps, d.config.Timing.SectorColumns); err != nil {
		d.logger.WithError(err).Errorf("Could not render charts for %s", name)
		http.Error(w, "Could not render charts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (d *Dashboard) driverExport(w http.ResponseWriter, r *http.Request) {
	name, laps, ok := d.driverLaps(w, r)

	if !ok {
		return
	}

	d.writeCSV(w, driverFilename(name)+".csv", timing.LapRecords(laps, d.config.Timing))
}

func (d *Dashboard) writeCSV(w http.ResponseWriter, filename string, records [][]string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment;filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)

	if err := writer.WriteAll(records); err != nil {
		d.logger.WithError(err).Errorf("Could not write %s", filename)
	}
}

// comparison is the set of drivers and lap range a compare request asks for.
type comparison struct {
	Drivers []string
	From    int
	To      int
}

func (c comparison) Query() template.URL {
	q := url.Values{}

	for _, driver := range c.Drivers {
		q.Add("driver", driver)
	}

	if c.From > 0 {
		q.Set("from", strconv.Itoa(c.From))
	}

	if c.To > 0 {
		q.Set("to", strconv.Itoa(c.To))
	}

	return template.URL(q.Encode())
}

func parseComparison(r *http.Request) (comparison, error) {
	q := r.URL.Query()

	c := comparison{}

	seen := make(map[string]bool)

	for _, driver := range q["driver"] {
		if driver == "" || seen[driver] {
			continue
		}

		seen[driver] = true
		c.Drivers = append(c.Drivers, driver)
	}

	for _, bound := range []struct {
		name string
		dst  *int
	}{
		{"from", &c.From},
		{"to", &c.To},
	} {
		v := q.Get(bound.name)

		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)

		if err != nil || n < 0 {
			return c, errors.Errorf("raceiq: invalid %s lap %q", bound.name, v)
		}

		*bound.dst = n
	}

	if c.From > 0 && c.To > 0 && c.From > c.To {
		return c, errors.Errorf("raceiq: lap range %d-%d is empty", c.From, c.To)
	}

	return c, nil
}

// compareLaps returns the laps of every requested driver within the lap
// range, in the order the drivers were asked for.
func compareLaps(laps []timing.Lap, c comparison) (map[string][]timing.Lap, error) {
	byDriver := GroupLaps(laps)
	out := make(map[string][]timing.Lap, len(c.Drivers))

	for _, driver := range c.Drivers {
		driverLaps, ok := byDriver[driver]

		if !ok {
			return nil, errors.Wrapf(ErrUnknownDriver, "%q", driver)
		}

		out[driver] = LapRange(driverLaps, c.From, c.To)
	}

	return out, nil
}

type comparePage struct {
	AllDrivers []string
	Selected   map[string]bool
	Comparison comparison
	Drivers    []*DriverSummary
}

func (d *Dashboard) compare(w http.ResponseWriter, r *http.Request) {
	c, err := parseComparison(r)

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	laps, _, _ := d.data()

	selected, err := compareLaps(laps, c)

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	page := comparePage{
		Selected:   make(map[string]bool),
		Comparison: c,
	}

	for name := range GroupLaps(laps) {
		page.AllDrivers = append(page.AllDrivers, name)
	}

	sort.Strings(page.AllDrivers)

	for _, driver := range c.Drivers {
		page.Selected[driver] = true
		page.Drivers = append(page.Drivers, SummariseDriver(driver, selected[driver], d.config.Dashboard.TrendExcludesPitLaps))
	}

	d.render(w, "compare", page)
}

func (d *Dashboard) compareChart(w http.ResponseWriter, r *http.Request) {
	c, err := parseComparison(r)

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	laps, _, _ := d.data()

	selected, err := compareLaps(laps, c)

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	buf := new(bytes.Buffer)

	if err := renderComparisonChart(buf, c.Drivers, selected); err != nil {
		d.logger.WithError(err).Error("Could not render comparison chart")
		http.Error(w, "Could not render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (d *Dashboard) compareExport(w http.ResponseWriter, r *http.Request) {
	c, err := parseComparison(r)

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(c.Drivers) < 2 {
		http.Error(w, "Select at least two drivers to export a comparison", http.StatusBadRequest)
		return
	}

	laps, _, _ := d.data()

	selected, err := compareLaps(laps, c)

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var combined []timing.Lap

	for _, driver := range c.Drivers {
		combined = append(combined, selected[driver]...)
	}

	d.writeCSV(w, "comparison.csv", timing.LapRecords(combined, d.config.Timing))
}

func (d *Dashboard) export(w http.ResponseWriter, r *http.Request) {
	laps, summary, _ := d.data()

	buf := new(bytes.Buffer)

	if err := BuildBundle(buf, laps, summary, d.config.Timing); err != nil {
		d.logger.WithError(err).Error("Could not build export bundle")
		http.Error(w, "Could not build export bundle", http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment;filename="raceiq_export_%s.zip"`, time.Now().Format("2006-01-02_15_04")))
	w.Header().Add("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(buf.Bytes())
}

func (d *Dashboard) apiLaps(w http.ResponseWriter, r *http.Request) {
	laps, _, _ := d.data()

	if driver := r.URL.Query().Get("driver"); driver != "" {
		driverLaps, ok := GroupLaps(laps)[driver]

		if !ok {
			http.Error(w, errors.Wrapf(ErrUnknownDriver, "%q", driver).Error(), http.StatusNotFound)
			return
		}

		laps = driverLaps
	}

	if laps == nil {
		laps = []timing.Lap{}
	}

	w.Header().Add("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(laps)
}
