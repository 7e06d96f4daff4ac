package onion

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is an attached prometheus registry for the engine.
// Everything the sweep and the serving surface count lives here.
type StatsInternal struct {
	Registry *prometheus.Registry

	FitAttempts  prometheus.Counter
	FitFailures  prometheus.Counter
	RunsDone     prometheus.Counter
	StatesFound  prometheus.Counter
	Unclassified prometheus.Gauge
	WWWRequests  *prometheus.CounterVec
}

// NewStatsInternal creates the registry and registers all collectors.
func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Registry: reg,
		FitAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onion_fit_attempts_total",
			Help: "Gaussian fit attempts across all configurations.",
		}),
		FitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onion_fit_failures_total",
			Help: "Fit attempts where both candidate intervals failed.",
		}),
		RunsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onion_runs_total",
			Help: "Clustering configurations completed.",
		}),
		StatesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onion_states_found_total",
			Help: "States identified, summed over completed runs.",
		}),
		Unclassified: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onion_unclassified_fraction",
			Help: "Unclassified window fraction of the most recent run.",
		}),
		WWWRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onion_http_requests_total",
			Help: "API requests by status code and method.",
		}, []string{"code", "method"}),
	}

	reg.MustRegister(
		s.FitAttempts,
		s.FitFailures,
		s.RunsDone,
		s.StatesFound,
		s.Unclassified,
		s.WWWRequests,
	)
	return s
}

// RecFits counts one search pass worth of fit attempts.
func (s *StatsInternal) RecFits(attempts int, failed bool) {
	s.FitAttempts.Add(float64(attempts))
	if failed {
		s.FitFailures.Inc()
	}
}

// RecRun records the outcome of one finished configuration.
func (s *StatsInternal) RecRun(numStates int, unclassified float64) {
	s.RunsDone.Inc()
	s.StatesFound.Add(float64(numStates))
	s.Unclassified.Set(unclassified)
}

// RecWWW counts an API request, used by the stats middleware.
func (s *StatsInternal) RecWWW(code, method string) {
	s.WWWRequests.WithLabelValues(code, method).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
