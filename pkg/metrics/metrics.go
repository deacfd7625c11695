// Package metrics mendaftarkan counter Prometheus untuk alur pasien dan monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Registrations *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Calls         *prometheus.CounterVec
	DisplayCues   prometheus.Counter
	StaleServed   *prometheus.CounterVec
}

// New membuat registry sendiri supaya test bisa membuat instance baru tanpa
// bentrok dengan default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bematende",
			Name:      "patient_registrations_total",
			Help:      "Patients registered, by classification.",
		}, []string{"classification"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bematende",
			Name:      "stage_transitions_total",
			Help:      "Stage transition attempts, by action and outcome.",
		}, []string{"action", "outcome"}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bematende",
			Name:      "patient_calls_total",
			Help:      "Calls published to the public display, by queue label.",
		}, []string{"queue"}),
		DisplayCues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bematende",
			Name:      "display_cues_total",
			Help:      "Audible cues fired by the public display.",
		}),
		StaleServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bematende",
			Name:      "queue_stale_snapshots_total",
			Help:      "Queue snapshots served from the fallback copy, by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(
		m.Registrations,
		m.Transitions,
		m.Calls,
		m.DisplayCues,
		m.StaleServed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
