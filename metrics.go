// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for sessions and recordings. Each
// instance owns a private registry.
type Metrics struct {
	Updates        prometheus.Counter
	UpdateRequests *prometheus.CounterVec
	ConnectionLost prometheus.Counter
	ActiveSessions prometheus.Gauge
	FBSFrames      prometheus.Counter
	FBSPacingDelay prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vncview",
			Name:      "updates_total",
			Help:      "Framebuffer updates drawn.",
		}),
		UpdateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vncview",
			Name:      "update_requests_total",
			Help:      "Framebuffer update requests sent, by kind.",
		}, []string{"kind"}),
		ConnectionLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vncview",
			Name:      "connection_lost_total",
			Help:      "Sessions that ended, locally or remotely.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vncview",
			Name:      "active_sessions",
			Help:      "Sessions currently connected.",
		}),
		FBSFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vncview",
			Name:      "fbs_frames_total",
			Help:      "Records read from FBS recordings.",
		}),
		FBSPacingDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vncview",
			Name:      "fbs_pacing_delay_seconds",
			Help:      "Time replay waited before releasing a record.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Updates, m.UpdateRequests, m.ConnectionLost,
		m.ActiveSessions, m.FBSFrames, m.FBSPacingDelay)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) updateRequested(full bool) {
	if m == nil {
		return
	}
	kind := "incremental"
	if full {
		kind = "full"
	}
	m.UpdateRequests.WithLabelValues(kind).Inc()
}
