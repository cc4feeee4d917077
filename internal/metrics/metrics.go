package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the editor's counters. Each instance owns its own registry.
type Metrics struct {
	// Edit operations
	PointsAdded     atomic.Uint64
	PointsMoved     atomic.Uint64
	PointsRemoved   atomic.Uint64
	EntitiesCreated atomic.Uint64
	EntitiesRemoved atomic.Uint64
	RejectedEdits   atomic.Uint64 // add-point attempts with nothing selected

	// Load
	LoadWarnings atomic.Uint64

	// Persistence
	SavesStarted   atomic.Uint64
	SavesSucceeded atomic.Uint64
	SavesFailed    atomic.Uint64
	SaveLatencyMs  atomic.Uint64 // Latency of the most recent save

	// Clipboard export
	ClipboardCopies   atomic.Uint64
	ClipboardFallback atomic.Uint64
	ClipboardFailures atomic.Uint64

	// Event stream clients
	ActiveClients atomic.Int64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its Prometheus collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

type gauge struct {
	name  string
	help  string
	value func() float64
}

func (m *Metrics) registerPrometheusMetrics() {
	u := func(v *atomic.Uint64) func() float64 {
		return func() float64 { return float64(v.Load()) }
	}

	gauges := []gauge{
		{"mask_editor_points_added_total", "Points inserted into the active polygon", u(&m.PointsAdded)},
		{"mask_editor_points_moved_total", "Point moves applied", u(&m.PointsMoved)},
		{"mask_editor_points_removed_total", "Points removed from the active polygon", u(&m.PointsRemoved)},
		{"mask_editor_entities_created_total", "Masks, zones and object masks created", u(&m.EntitiesCreated)},
		{"mask_editor_entities_removed_total", "Masks, zones and object masks removed", u(&m.EntitiesRemoved)},
		{"mask_editor_rejected_edits_total", "Point additions rejected because nothing was selected", u(&m.RejectedEdits)},
		{"mask_editor_load_warnings_total", "Configured polygons that failed to parse at load", u(&m.LoadWarnings)},
		{"mask_editor_saves_started_total", "Config set requests issued", u(&m.SavesStarted)},
		{"mask_editor_saves_succeeded_total", "Config set requests answered with 200", u(&m.SavesSucceeded)},
		{"mask_editor_saves_failed_total", "Config set requests that failed", u(&m.SavesFailed)},
		{"mask_editor_save_latency_ms", "Latency of the most recent config set request in milliseconds", u(&m.SaveLatencyMs)},
		{"mask_editor_clipboard_copies_total", "Fragments copied to the clipboard", u(&m.ClipboardCopies)},
		{"mask_editor_clipboard_fallback_total", "Copies that needed the fallback copy command", u(&m.ClipboardFallback)},
		{"mask_editor_clipboard_failures_total", "Copies where every clipboard path failed", u(&m.ClipboardFailures)},
		{"mask_editor_event_clients", "Connected event stream clients", func() float64 { return float64(m.ActiveClients.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.value,
		))
	}
}

// ObserveSave records the outcome and latency of one save.
func (m *Metrics) ObserveSave(duration time.Duration, ok bool) {
	m.SaveLatencyMs.Store(uint64(duration.Milliseconds()))
	if ok {
		m.SavesSucceeded.Add(1)
	} else {
		m.SavesFailed.Add(1)
	}
}

// Gather returns the current metric families, mainly for tests.
func (m *Metrics) Gather() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			out[f.GetName()] = metric.GetGauge().GetValue()
		}
	}
	return out, nil
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
