package observers

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anggasct/rowfsm"
)

const metricsSubsystem = "statemachine"

// MetricsObserver collects Prometheus metrics about machine execution. It
// implements prometheus.Collector, so it can be registered as is.
type MetricsObserver struct {
	stateVisits   *prometheus.CounterVec
	stateTime     *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	guards        *prometheus.CounterVec
	actions       *prometheus.CounterVec
	noTransitions *prometheus.CounterVec
	failures      *prometheus.CounterVec
	dropped       *prometheus.CounterVec

	// entered holds the committed state of each machine and when it was
	// entered; pending holds an entry not yet confirmed by OnTransition.
	// Machines are keyed by name, so machines sharing a name share timings.
	entered map[string]stateEntry
	pending map[string]time.Time
	mutex   sync.Mutex
	now     func() time.Time
}

type stateEntry struct {
	state rowfsm.StateID
	at    time.Time
}

var (
	_ rowfsm.Observer      = (*MetricsObserver)(nil)
	_ prometheus.Collector = (*MetricsObserver)(nil)
)

// NewMetricsObserver creates a metrics observer. Metric names are prefixed
// with namespace when it is not empty.
func NewMetricsObserver(namespace string) *MetricsObserver {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &MetricsObserver{
		stateVisits: counter("state_visits_total", "Number of times a state was entered.", "state"),
		stateTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "state_duration_seconds",
			Help:      "Time spent in a state between entry and exit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 7),
		}, []string{"state"}),
		transitions:    counter("transitions_total", "Number of committed transitions.", "from", "to", "event"),
		guards:         counter("guard_evaluations_total", "Number of guard evaluations by result.", "guard", "result"),
		actions:        counter("actions_total", "Number of executed transition actions.", "action"),
		noTransitions:  counter("no_transitions_total", "Number of events that matched no row.", "state", "event"),
		failures:       counter("transition_failures_total", "Number of rolled back firings and failed guards by step.", "step"),
		dropped:        counter("dropped_events_total", "Number of events dropped by terminated machines.", "state"),
		entered:        make(map[string]stateEntry),
		pending:        make(map[string]time.Time),
		now:            time.Now,
	}
}

func (o *MetricsObserver) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.stateVisits,
		o.stateTime,
		o.transitions,
		o.guards,
		o.actions,
		o.noTransitions,
		o.failures,
		o.dropped,
	}
}

// Describe implements prometheus.Collector
func (o *MetricsObserver) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range o.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (o *MetricsObserver) Collect(ch chan<- prometheus.Metric) {
	for _, c := range o.collectors() {
		c.Collect(ch)
	}
}

// OnStateEnter records state entry metrics
func (o *MetricsObserver) OnStateEnter(machine string, state rowfsm.StateID, _ rowfsm.Event) {
	o.stateVisits.WithLabelValues(string(state)).Inc()

	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.pending[machine] = o.now()
}

// OnStateExit does nothing: an exit may still be rolled back, so the time
// spent in a state is recorded by OnTransition once the firing commits. The
// state a machine is stopped in is not observed.
func (o *MetricsObserver) OnStateExit(string, rowfsm.StateID, rowfsm.Event) {}

// OnGuardEvaluation records guard results
func (o *MetricsObserver) OnGuardEvaluation(_ string, _, _ rowfsm.StateID, _ rowfsm.Event, guard string, result bool) {
	o.guards.WithLabelValues(guard, strconv.FormatBool(result)).Inc()
}

// OnActionExecution records executed actions
func (o *MetricsObserver) OnActionExecution(_ string, _, _ rowfsm.StateID, _ rowfsm.Event, action string) {
	o.actions.WithLabelValues(action).Inc()
}

// OnTransition records committed transitions and the time spent in the state
// that was left
func (o *MetricsObserver) OnTransition(machine string, from, to rowfsm.StateID, ev rowfsm.Event) {
	o.transitions.WithLabelValues(string(from), string(to), ev.Tag.String()).Inc()

	now := o.now()
	o.mutex.Lock()
	prev, ok := o.entered[machine]
	at, pending := o.pending[machine]
	if !pending {
		at = now
	}
	delete(o.pending, machine)
	o.entered[machine] = stateEntry{state: to, at: at}
	o.mutex.Unlock()

	if ok && prev.state == from {
		o.stateTime.WithLabelValues(string(from)).Observe(at.Sub(prev.at).Seconds())
	}
}

// Report records diagnostics
func (o *MetricsObserver) Report(d rowfsm.Diagnostic) {
	switch d := d.(type) {
	case rowfsm.NoTransition:
		o.noTransitions.WithLabelValues(string(d.State), d.Event.Tag.String()).Inc()
	case rowfsm.TransitionFailed:
		o.failures.WithLabelValues(d.Step.String()).Inc()
	case rowfsm.EventDropped:
		o.dropped.WithLabelValues(string(d.State)).Inc()
	}
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.stateVisits.Reset()
	o.stateTime.Reset()
	o.transitions.Reset()
	o.guards.Reset()
	o.actions.Reset()
	o.noTransitions.Reset()
	o.failures.Reset()
	o.dropped.Reset()

	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.entered = make(map[string]stateEntry)
	o.pending = make(map[string]time.Time)
}
