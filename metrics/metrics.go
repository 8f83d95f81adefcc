// Package metrics exposes Prometheus instrumentation for tracker runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by the runner.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec
	EventsTotal *prometheus.CounterVec
	RunDuration prometheus.Summary

	registry *prometheus.Registry
}

// New creates and registers the propwatch collectors on a fresh
// registry.
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propwatch",
			Name:      "tracker_runs_total",
			Help:      "Tracker check runs by outcome",
		}, []string{"tracker", "status"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propwatch",
			Name:      "events_total",
			Help:      "Proposal events detected by kind",
		}, []string{"tracker", "kind"}),
		RunDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "propwatch",
			Name:      "run_duration_seconds",
			Help:      "Duration of full check passes",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.RunsTotal, m.EventsTotal, m.RunDuration)
	return m
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
