// Package metrics exposes Prometheus collectors for attendance transitions,
// the reconciliation job and RPC latency.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service records to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	scans           *prometheus.CounterVec
	forceCloses     *prometheus.CounterVec
	reconcileRuns   prometheus.Counter
	reconcileClosed *prometheus.CounterVec
	reconcileErrors prometheus.Counter
	activeSessions  prometheus.Gauge
	rpcDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_scans_total",
			Help: "Scan, sign-in and sign-out attempts by result.",
		}, []string{"result"}),
		forceCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_force_closes_total",
			Help: "Sessions closed by a mentor or the reconciler.",
		}, []string{"credit"}),
		reconcileRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signin_reconcile_runs_total",
			Help: "Completed reconciliation runs.",
		}),
		reconcileClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signin_reconcile_closed_total",
			Help: "Stale sessions closed by the reconciler by policy.",
		}, []string{"policy"}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signin_reconcile_errors_total",
			Help: "Records or runs the reconciler failed to process.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signin_active_sessions",
			Help: "Open sessions seen by the latest reconciliation run.",
		}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signin_rpc_duration_seconds",
			Help:    "Connect RPC latency by procedure and code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
	reg.MustRegister(
		m.scans,
		m.forceCloses,
		m.reconcileRuns,
		m.reconcileClosed,
		m.reconcileErrors,
		m.activeSessions,
		m.rpcDuration,
	)
	return m
}

// ScanResult labels for ObserveScan.
const (
	ResultSignedIn       = "signed_in"
	ResultSignedOut      = "signed_out"
	ResultNoop           = "noop"
	ResultNotFound       = "not_found"
	ResultEventNotActive = "event_not_active"
	ResultError          = "error"
)

func (m *Metrics) ObserveScan(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveForceClose(credit bool) {
	if m == nil {
		return
	}
	m.forceCloses.WithLabelValues(strconv.FormatBool(credit)).Inc()
}

// ObserveReconcile records one finished run.
func (m *Metrics) ObserveReconcile(policy string, open, closed, failed int) {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
	m.activeSessions.Set(float64(open - closed))
	if closed > 0 {
		m.reconcileClosed.WithLabelValues(policy).Add(float64(closed))
	}
	if failed > 0 {
		m.reconcileErrors.Add(float64(failed))
	}
}

// ObserveReconcileFailure records a run that could not load its input.
func (m *Metrics) ObserveReconcileFailure() {
	if m == nil {
		return
	}
	m.reconcileErrors.Inc()
}

// Interceptor returns a Connect interceptor that records RPC latency.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if m != nil {
				m.rpcDuration.
					WithLabelValues(req.Spec().Procedure, codeOf(err)).
					Observe(time.Since(start).Seconds())
			}
			return resp, err
		}
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
