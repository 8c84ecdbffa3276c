package exporter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
)

// Metrics tracks the agent's convergence behavior for scraping by the
// observability stack.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal       *prometheus.CounterVec
	DeferredTotal     *prometheus.CounterVec
	ReconfigureTotal  prometheus.Counter
	ReconfigureErrors prometheus.Counter
	Ready             prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slurm_agent_events_total",
		Help: "Lifecycle events dispatched, by event kind.",
	}, []string{"kind"})
	m.DeferredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slurm_agent_events_deferred_total",
		Help: "Lifecycle events deferred for redelivery, by event kind.",
	}, []string{"kind"})
	m.ReconfigureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slurm_agent_reconfigure_passes_total",
		Help: "Completed cluster reconfiguration passes.",
	})
	m.ReconfigureErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slurm_agent_reconfigure_errors_total",
		Help: "Failed cluster reconfiguration passes.",
	})
	m.Ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slurm_agent_ready",
		Help: "Whether the unit currently satisfies all readiness preconditions.",
	})

	m.registry.MustRegister(
		m.EventsTotal, m.DeferredTotal, m.ReconfigureTotal, m.ReconfigureErrors, m.Ready,
	)
	return m
}

// Serve exposes the metrics endpoint until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", consts.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
