package enclave

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/enclave-math/errors"
	"github.com/wippyai/enclave-math/staging"
)

const (
	metricsNamespace = "enclavemath"

	opLabel      = "op"
	outcomeLabel = "outcome"
	eventLabel   = "event"

	outcomeOK = "ok"
)

var _ staging.Observer = (*Metrics)(nil)

// Metrics holds the enclave's prometheus collectors. It observes staging
// events to track pending result bytes.
type Metrics struct {
	calls       *prometheus.CounterVec
	callDur     *prometheus.HistogramVec
	slotEvents  *prometheus.CounterVec
	stagedBytes prometheus.Gauge
	heapBytes   prometheus.GaugeFunc
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil. inUse, if set, reports protected heap bytes in use.
func NewMetrics(reg prometheus.Registerer, inUse func() uint64) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "calls_total",
			Help:      "Boundary calls by operation and outcome",
		}, []string{opLabel, outcomeLabel}),
		callDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "call_duration_seconds",
			Help:      "Boundary call latency",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{opLabel}),
		slotEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "slot_events_total",
			Help:      "Result slot transitions",
		}, []string{eventLabel}),
		stagedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "staged_bytes",
			Help:      "Bytes of results waiting to be fetched",
		}),
	}
	if inUse != nil {
		m.heapBytes = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "protected_heap_bytes",
			Help:      "Protected heap bytes in use",
		}, func() float64 { return float64(inUse()) })
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	cs := []prometheus.Collector{m.calls, m.callDur, m.slotEvents, m.stagedBytes}
	if m.heapBytes != nil {
		cs = append(cs, m.heapBytes)
	}
	return cs
}

// Calls returns the call counter for op and outcome, where outcome is "ok"
// or an error kind.
func (m *Metrics) Calls(op, outcome string) prometheus.Counter {
	return m.calls.WithLabelValues(op, outcome)
}

// SlotEvents returns the counter for one slot event type.
func (m *Metrics) SlotEvents(t staging.EventType) prometheus.Counter {
	return m.slotEvents.WithLabelValues(t.String())
}

// StagedBytes returns the pending result bytes gauge.
func (m *Metrics) StagedBytes() prometheus.Gauge {
	return m.stagedBytes
}

func (m *Metrics) observeCall(op string, d time.Duration, err error) {
	m.calls.WithLabelValues(op, outcome(err)).Inc()
	m.callDur.WithLabelValues(op).Observe(d.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}

// OnSlotEvent implements staging.Observer.
func (m *Metrics) OnSlotEvent(e staging.Event) {
	m.slotEvents.WithLabelValues(e.Type.String()).Inc()
	switch e.Type {
	case staging.EventStaged:
		m.stagedBytes.Add(float64(e.Size))
	case staging.EventSuperseded, staging.EventFetched, staging.EventDiscarded:
		m.stagedBytes.Sub(float64(e.Size))
	}
}
