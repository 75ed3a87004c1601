// Package metrics holds the Prometheus collectors of the RPC worker. All
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "orchestrator"
	subsystem = "rpc"
)

// Call outcomes
const (
	OutcomeOK        = "ok"
	OutcomeRPCError  = "rpc_error"
	OutcomeDiscarded = "discarded"
	OutcomeCancelled = "cancelled"
)

// Reconnect results
const (
	ReconnectSuccess   = "success"
	ReconnectExhausted = "exhausted"
)

// Metrics is the set of collectors of one client
type Metrics struct {
	CallsDispatched prometheus.Counter
	CallsCompleted  *prometheus.CounterVec
	CallsRetried    prometheus.Counter
	CallDuration    prometheus.Histogram
	InFlight        prometheus.Gauge
	Reconnects      *prometheus.CounterVec
	DialAttempts    *prometheus.CounterVec
	ActiveEndpoint  prometheus.Gauge
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CallsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls_dispatched_total",
			Help:      "Total number of calls sent to a connection, retries included",
		}),
		CallsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls_completed_total",
			Help:      "Total number of calls resolved, by outcome",
		}, []string{"outcome"}),
		CallsRetried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls_retried_total",
			Help:      "Total number of calls re-dispatched after a transport failure",
		}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "call_duration_seconds",
			Help:      "Time from submission to resolution of a call",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calls_in_flight",
			Help:      "Number of calls currently dispatched on the active connection",
		}),
		Reconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconnects_total",
			Help:      "Total number of reconnections, by result",
		}, []string{"result"}),
		DialAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dial_attempts_total",
			Help:      "Total number of endpoint dials, by endpoint and result",
		}, []string{"endpoint", "result"}),
		ActiveEndpoint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_endpoint_index",
			Help:      "Index of the endpoint the worker is connected to, -1 when stopped",
		}),
	}
}

// Handler serves the collectors registered on g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) CallDispatched(retry bool) {
	if m == nil {
		return
	}
	m.CallsDispatched.Inc()
	m.InFlight.Inc()
	if retry {
		m.CallsRetried.Inc()
	}
}

// CallReturned marks the end of one dispatch, whatever its result
func (m *Metrics) CallReturned() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}

func (m *Metrics) CallCompleted(outcome string, submitted time.Time) {
	if m == nil {
		return
	}
	m.CallsCompleted.WithLabelValues(outcome).Inc()
	if !submitted.IsZero() {
		m.CallDuration.Observe(time.Since(submitted).Seconds())
	}
}

func (m *Metrics) Reconnected(result string) {
	if m == nil {
		return
	}
	m.Reconnects.WithLabelValues(result).Inc()
}

// Dialed records one dial attempt. It matches rpcpool.DialObserver.
func (m *Metrics) Dialed(index int, _ string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.DialAttempts.WithLabelValues(strconv.Itoa(index), result).Inc()
}

func (m *Metrics) SetActiveEndpoint(index int) {
	if m == nil {
		return
	}
	m.ActiveEndpoint.Set(float64(index))
}
