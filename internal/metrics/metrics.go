// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gdps-dev/gdps/internal/model"
)

// Metrics holds all collectors. Each instance owns its registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BrowseTotal     *prometheus.CounterVec
	SongMissesTotal prometheus.Counter

	DownloadFlushesTotal  *prometheus.CounterVec
	DownloadLevelsFlushed prometheus.Counter
	PurgedLevelsTotal     prometheus.Counter

	SnapshotsTotal    *prometheus.CounterVec
	SnapshotSizeBytes prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdps_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gdps_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
		BrowseTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdps_browse_requests_total",
				Help: "Browse requests by effective query type",
			},
			[]string{"query_type"},
		),
		SongMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gdps_song_lookup_misses_total",
				Help: "Song lookups that found nothing or failed",
			},
		),
		DownloadFlushesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdps_download_flushes_total",
				Help: "Download counter flushes by outcome",
			},
			[]string{"status"},
		),
		DownloadLevelsFlushed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gdps_download_levels_flushed_total",
				Help: "Levels whose download counters were written",
			},
		),
		PurgedLevelsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "gdps_purged_levels_total",
				Help: "Soft-deleted levels removed by the purger",
			},
		),
		SnapshotsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gdps_snapshots_total",
				Help: "Database snapshots by outcome",
			},
			[]string{"status"},
		),
		SnapshotSizeBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "gdps_snapshot_size_bytes",
				Help: "Size of the last successful database snapshot",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBrowse counts a browse request by strategy.
func (m *Metrics) RecordBrowse(qt model.QueryType) {
	m.BrowseTotal.WithLabelValues(qt.String()).Inc()
}

// RecordSongMiss counts one skipped song lookup.
func (m *Metrics) RecordSongMiss() {
	m.SongMissesTotal.Inc()
}

// RecordDownloadFlush matches store.DownloadCounterConfig.OnFlush.
func (m *Metrics) RecordDownloadFlush(levels int, err error) {
	if err != nil {
		m.DownloadFlushesTotal.WithLabelValues("error").Inc()
		return
	}
	m.DownloadFlushesTotal.WithLabelValues("ok").Inc()
	m.DownloadLevelsFlushed.Add(float64(levels))
}

// RecordPurged counts hard-deleted levels.
func (m *Metrics) RecordPurged(n int) {
	m.PurgedLevelsTotal.Add(float64(n))
}

// RecordSnapshot matches backup.Config.OnSnapshot.
func (m *Metrics) RecordSnapshot(size int64, err error) {
	if err != nil {
		m.SnapshotsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SnapshotsTotal.WithLabelValues("ok").Inc()
	m.SnapshotSizeBytes.Set(float64(size))
}
