package main

import (
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts game activity on a private registry so tests can build
// as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	gamesCreated prometheus.Counter
	gamesActive  prometheus.Gauge
	commands     *prometheus.CounterVec
	clients      prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buzzboard",
			Name:      "games_created_total",
			Help:      "Trivia games started.",
		}),
		gamesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buzzboard",
			Name:      "games_active",
			Help:      "Trivia games currently held in memory.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buzzboard",
			Name:      "commands_total",
			Help:      "Game commands processed, by command and outcome.",
		}, []string{"command", "result"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buzzboard",
			Name:      "clients_connected",
			Help:      "Open websocket connections across all games.",
		}),
	}

	m.registry.MustRegister(
		m.gamesCreated,
		m.gamesActive,
		m.commands,
		m.clients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// observeCommand records one command; result is "accepted" or the
// rejection reason.
func (m *Metrics) observeCommand(command string, err error) {
	result := "accepted"
	if err != nil {
		result = rejectionReason(err)
	}

	m.commands.WithLabelValues(command, result).Inc()
}

func registerMetricsHandler(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
