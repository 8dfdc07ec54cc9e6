package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the instruments the refresh pipeline reports into.
// Everything hangs off a private registry so tests can build isolated
// instances.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal    *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	Stations        *prometheus.GaugeVec
	LastRefresh     *prometheus.GaugeVec
}

// New builds a registry with the refresh instruments plus the standard Go
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cygaz_refresh_total",
			Help: "Refresh attempts per petroleum type and outcome.",
		}, []string{"petroleum_type", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cygaz_refresh_duration_seconds",
			Help:    "Upstream fetch duration per petroleum type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"petroleum_type"}),
		Stations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cygaz_stations",
			Help: "Stations in the current snapshot per petroleum type.",
		}, []string{"petroleum_type"}),
		LastRefresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cygaz_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh per petroleum type.",
		}, []string{"petroleum_type"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RefreshTotal,
		m.RefreshDuration,
		m.Stations,
		m.LastRefresh,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
