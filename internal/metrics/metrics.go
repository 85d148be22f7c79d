// Package metrics exposes topgrep run statistics as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reugn/topgrep/query"
	"github.com/reugn/topgrep/top"
)

const namespace = "topgrep"

// Metrics holds the collectors updated by a topgrep pipeline.
// It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	snapshots   prometheus.Counter
	rows        prometheus.Counter
	droppedRows prometheus.Counter
	results     *prometheus.CounterVec
	cpu         *prometheus.GaugeVec

	mu   sync.Mutex
	last top.Stats
}

// New returns a new Metrics with its collectors registered on a dedicated
// registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Number of top snapshots read.",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Number of process rows read.",
		}),
		droppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Number of process rows dropped for not matching the column header.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Number of results emitted per query.",
		}, []string{"kind", "query"}),
		cpu: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_percent",
			Help:      "Last emitted %CPU value per query.",
		}, []string{"kind", "query"}),
	}
	m.registry.MustRegister(
		m.snapshots,
		m.rows,
		m.droppedRows,
		m.results,
		m.cpu,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReader records the reader counters. stats holds running totals;
// only the increase since the previous call is added.
func (m *Metrics) ObserveReader(stats top.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stats.Snapshots > m.last.Snapshots {
		m.snapshots.Add(float64(stats.Snapshots - m.last.Snapshots))
	}
	if stats.Rows > m.last.Rows {
		m.rows.Add(float64(stats.Rows - m.last.Rows))
	}
	if stats.DroppedRows > m.last.DroppedRows {
		m.droppedRows.Add(float64(stats.DroppedRows - m.last.DroppedRows))
	}
	m.last = stats
}

// ObserveResult records an emitted result.
func (m *Metrics) ObserveResult(result query.Result) {
	kind, label := result.Query.Kind().String(), result.Query.String()
	m.results.WithLabelValues(kind, label).Inc()
	m.cpu.WithLabelValues(kind, label).Set(result.Value)
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve serves the metrics on addr under /metrics until the context is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down metrics server", slog.Any("error", err))
		}
	}()

	logger.Info("Serving metrics", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
