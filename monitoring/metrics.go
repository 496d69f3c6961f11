// Package monitoring provides Prometheus metrics for the tabular codecs and
// the remote connector.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for codecs and connectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Codec metrics, labelled by format ("ipc", "parquet")
	ChunksRead    *prometheus.CounterVec
	RowsRead      *prometheus.CounterVec
	ChunksWritten *prometheus.CounterVec
	RowsWritten   *prometheus.CounterVec
	BytesWritten  *prometheus.CounterVec
	Finalizations *prometheus.CounterVec

	// Remote connector metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveConns     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with the given namespace and
// registers it with reg. A nil reg registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChunksRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_read_total",
			Help:      "Total number of chunks decoded",
		}, []string{"format"}),
		RowsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total number of rows decoded",
		}, []string{"format"}),
		ChunksWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Total number of chunks encoded",
		}, []string{"format"}),
		RowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total number of rows encoded",
		}, []string{"format"}),
		BytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total number of bytes written by finalized writers",
		}, []string{"format"}),
		Finalizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_finalizations_total",
			Help:      "Writer finalizations by format and status",
		}, []string{"format", "status"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total remote connector requests by operation and status",
		}, []string{"op", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote connector request duration by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ActiveConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_active_connections",
			Help:      "Number of open remote connector connections",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRead records one decoded chunk.
func (m *Metrics) RecordRead(format string, rows int) {
	if m == nil {
		return
	}
	m.ChunksRead.WithLabelValues(format).Inc()
	m.RowsRead.WithLabelValues(format).Add(float64(rows))
}

// RecordWrite records one encoded chunk.
func (m *Metrics) RecordWrite(format string, rows int) {
	if m == nil {
		return
	}
	m.ChunksWritten.WithLabelValues(format).Inc()
	m.RowsWritten.WithLabelValues(format).Add(float64(rows))
}

// RecordFinalize records a writer finalization and the bytes it produced.
func (m *Metrics) RecordFinalize(format string, bytes int64, err error) {
	if m == nil {
		return
	}
	m.Finalizations.WithLabelValues(format, status(err)).Inc()
	if err == nil {
		m.BytesWritten.WithLabelValues(format).Add(float64(bytes))
	}
}

// RecordRequest records a remote connector request.
func (m *Metrics) RecordRequest(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(op, status(err)).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// UpdateConnections adjusts the open connection gauge by delta.
func (m *Metrics) UpdateConnections(delta int) {
	if m == nil {
		return
	}
	m.ActiveConns.Add(float64(delta))
}

// MetricsServer runs an HTTP server exposing /metrics and /health endpoints.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address serving
// the metrics gathered by g. A nil g serves the default registry.
func NewMetricsServer(addr string, g prometheus.Gatherer) *MetricsServer {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the HTTP handler serving both endpoints.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
