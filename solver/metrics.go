package solver

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects solve-run metrics for production monitoring.
//
// Metrics exposed (all namespaced with "stp_"):
//
//  1. solves_total (counter): solve runs, labelled by solver and status
//     (success, no_solution, error).
//  2. solve_duration_seconds (histogram): wall-clock duration of a solve,
//     labelled by solver.
//  3. lp_runs_total (counter): linear programs executed, labelled by
//     solver and status (feasible, infeasible, error). SREA increments
//     this once per probed confidence level, DSC once per solve.
//  4. risk_metric (gauge): the risk metric of the most recent successful
//     solve, labelled by solver.
//
// Create with a custom registry and expose via promhttp:
//
//	registry := prometheus.NewRegistry()
//	metrics := solver.NewPrometheusMetrics(registry)
//	stp, _ := solver.New("srea", solver.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	solves   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lpRuns   *prometheus.CounterVec
	risk     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates and registers the solver metrics with the
// provided registry (the default registerer when nil).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stp",
			Name:      "solves_total",
			Help:      "Solve runs by solver and outcome",
		}, []string{"solver", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stp",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock duration of a solve run",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"solver"}),
		lpRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stp",
			Name:      "lp_runs_total",
			Help:      "Linear programs executed by solver and outcome",
		}, []string{"solver", "status"}),
		risk: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stp",
			Name:      "risk_metric",
			Help:      "Risk metric of the most recent successful solve",
		}, []string{"solver"}),
	}
}

// RecordSolve records one solve run with its outcome and duration.
func (pm *PrometheusMetrics) RecordSolve(solverName, status string, elapsed time.Duration) {
	if pm == nil {
		return
	}
	pm.solves.WithLabelValues(solverName, status).Inc()
	pm.duration.WithLabelValues(solverName).Observe(elapsed.Seconds())
}

// RecordLPRun records one linear-program execution.
func (pm *PrometheusMetrics) RecordLPRun(solverName, status string) {
	if pm == nil {
		return
	}
	pm.lpRuns.WithLabelValues(solverName, status).Inc()
}

// lpRunStatus maps an LP outcome to its lp_runs_total status label.
func lpRunStatus(err error) string {
	switch {
	case err == nil:
		return "feasible"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	default:
		return "error"
	}
}

// RecordRiskMetric records the risk metric of a successful solve.
func (pm *PrometheusMetrics) RecordRiskMetric(solverName string, risk float64) {
	if pm == nil {
		return
	}
	pm.risk.WithLabelValues(solverName).Set(risk)
}
