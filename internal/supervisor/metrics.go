package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a cycle ends, used as the cycles_total label.
const (
	reasonReset        = "reset"
	reasonClosed       = "closed"
	reasonStartFailed  = "start_failed"
	reasonFault        = "fault"
	reasonUnresponsive = "unresponsive"
	reasonWorkerExit   = "worker_exit"
)

// Call outcomes, used as the calls_total label.
const (
	resultOK        = "ok"
	resultRejected  = "rejected"
	resultResetting = "resetting"
	resultFault     = "fault"
	resultTimeout   = "timeout"
	resultClosed    = "closed"
)

type metrics struct {
	cycles       *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callDuration prometheus.Histogram
	workerUp     prometheus.Gauge
}

// newMetrics creates the supervisor's collectors. With a nil registerer the
// collectors still work but are not exported.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cgrelay",
			Name:      "cycles_total",
			Help:      "Worker cycles completed, by the reason the cycle ended.",
		}, []string{"reason"}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cgrelay",
			Name:      "calls_total",
			Help:      "Relayed calls, by outcome.",
		}, []string{"result"}),
		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cgrelay",
			Name:      "call_duration_seconds",
			Help:      "Time from handing a request to the worker until its response.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		workerUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cgrelay",
			Name:      "worker_up",
			Help:      "1 while a connected worker is serving calls.",
		}),
	}
}
