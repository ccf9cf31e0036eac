package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusFeeder struct {
	environment     string
	ticker          *time.Ticker
	controller      controller
	registry        *prometheus.Registry
	workloadStatus  *prometheus.GaugeVec
	refreshDuration *prometheus.GaugeVec
	workloadCount   *prometheus.GaugeVec
}

func newPrometheusFeeder(environment string, controller controller) *prometheusFeeder {
	registry := prometheus.NewRegistry()
	feeder := &prometheusFeeder{
		environment:     environment,
		controller:      controller,
		registry:        registry,
		workloadStatus:  initWorkloadStatusMetrics(registry),
		refreshDuration: initRefreshDurationMetrics(registry),
		workloadCount:   initWorkloadCountMetrics(registry),
	}
	ignitePilotLight(registry, environment)
	return feeder
}

func (g *prometheusFeeder) feed(period time.Duration) {
	g.ticker = time.NewTicker(period)
	g.update()
	for range g.ticker.C {
		g.update()
	}
}

func (g *prometheusFeeder) stop() {
	if g.ticker != nil {
		g.ticker.Stop()
	}
}

// update replaces every per-workload series with the current snapshot so
// workloads that disappeared stop being reported.
func (g *prometheusFeeder) update() {
	snapshot := g.controller.currentSnapshot()
	record := g.controller.lastRefresh()

	g.workloadStatus.Reset()
	for _, w := range snapshot.Workloads {
		g.workloadStatus.With(prometheus.Labels{
			"environment": g.environment,
			"workload":    w.Name,
		}).Set(statusToFloat64(w.Health))
	}

	g.workloadCount.With(prometheus.Labels{"environment": g.environment}).Set(float64(snapshot.Count))
	if record.DurationMs != nil {
		g.refreshDuration.With(prometheus.Labels{"environment": g.environment}).Set(float64(*record.DurationMs) / 1000)
	}
}

func (g *prometheusFeeder) handler() http.Handler {
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}

func initWorkloadStatusMetrics(registerer prometheus.Registerer) *prometheus.GaugeVec {
	workloadStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "health",
			Name:      "workloadstatus",
			Help:      "Status of the workload: 0 - up; 1 - degraded; 2 - down",
		},
		[]string{
			"environment",
			"workload",
		})
	registerer.MustRegister(workloadStatus)
	return workloadStatus
}

func initRefreshDurationMetrics(registerer prometheus.Registerer) *prometheus.GaugeVec {
	refreshDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of the last catalog refresh cycle",
		},
		[]string{
			"environment",
		})
	registerer.MustRegister(refreshDuration)
	return refreshDuration
}

func initWorkloadCountMetrics(registerer prometheus.Registerer) *prometheus.GaugeVec {
	workloadCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "refresh",
			Name:      "workloads",
			Help:      "Number of workloads in the published snapshot",
		},
		[]string{
			"environment",
		})
	registerer.MustRegister(workloadCount)
	return workloadCount
}

func ignitePilotLight(registerer prometheus.Registerer, environment string) {
	pilotLight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "health",
			Name:      "pilotlight",
			Help:      "Pilot light for the service cataloging workload health",
		},
		[]string{
			"environment",
		})
	registerer.MustRegister(pilotLight)
	pilotLight.With(prometheus.Labels{"environment": environment}).Set(1)
}

func statusToFloat64(status healthStatus) float64 {
	switch status {
	case statusUp:
		return 0
	case statusDegraded:
		return 1
	default:
		return 2
	}
}
