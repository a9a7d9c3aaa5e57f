package rowfsm

import (
	"fmt"
	"reflect"
)

// Diagnostic is a report the machine hands to its sinks. It is one of
// NoTransition, TransitionFailed or EventDropped.
type Diagnostic interface {
	fmt.Stringer
	diagnostic()
}

// NoTransition reports an event for which no row of the current state matched
// or every matching row's guard rejected
type NoTransition struct {
	State StateID
	Event Event
}

func (NoTransition) diagnostic() {}

func (d NoTransition) String() string {
	return fmt.Sprintf("no transition from state '%s' for event '%s'", d.State, d.Event.Tag)
}

// TransitionFailed reports a hook failure. The firing was rolled back, or for
// a guard failure the row was skipped.
type TransitionFailed struct {
	Step    Step
	From    StateID
	To      StateID
	Trigger EventTag
	Hook    string
	Event   Event
	Cause   error
}

func (TransitionFailed) diagnostic() {}

func (d TransitionFailed) String() string {
	return fmt.Sprintf("%s hook %s failed [%s->%s on %s]: %v", d.Step, d.Hook, d.From, d.To, d.Trigger, d.Cause)
}

// Err returns the failure as a HookError
func (d TransitionFailed) Err() *HookError {
	return &HookError{
		Step:    d.Step,
		Hook:    d.Hook,
		From:    d.From,
		To:      d.To,
		Trigger: d.Trigger,
		Cause:   d.Cause,
	}
}

// EventDropped reports an event delivered to a terminated machine
type EventDropped struct {
	State  StateID
	Event  Event
	Reason string
}

func (EventDropped) diagnostic() {}

func (d EventDropped) String() string {
	return fmt.Sprintf("event '%s' dropped in state '%s': %s", d.Event.Tag, d.State, d.Reason)
}

// Sink receives diagnostics synchronously, before the triggering call returns
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(d Diagnostic)

// Report implements Sink
func (f SinkFunc) Report(d Diagnostic) {
	f(d)
}

// Observer is a Sink that also traces the machine's progress. The machine
// argument is the machine's name, its ID unless WithName was given.
type Observer interface {
	Sink

	// OnStateEnter is called after an entry hook succeeded
	OnStateEnter(machine string, state StateID, ev Event)

	// OnStateExit is called after an exit hook succeeded
	OnStateExit(machine string, state StateID, ev Event)

	// OnGuardEvaluation is called after a guard returned without failing
	OnGuardEvaluation(machine string, from, to StateID, ev Event, guard string, result bool)

	// OnActionExecution is called after an action succeeded
	OnActionExecution(machine string, from, to StateID, ev Event, action string)

	// OnTransition is called once a firing is committed
	OnTransition(machine string, from, to StateID, ev Event)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// Report implements Sink
func (BaseObserver) Report(Diagnostic) {}

// OnStateEnter implements Observer
func (BaseObserver) OnStateEnter(string, StateID, Event) {}

// OnStateExit implements Observer
func (BaseObserver) OnStateExit(string, StateID, Event) {}

// OnGuardEvaluation implements Observer
func (BaseObserver) OnGuardEvaluation(string, StateID, StateID, Event, string, bool) {}

// OnActionExecution implements Observer
func (BaseObserver) OnActionExecution(string, StateID, StateID, Event, string) {}

// OnTransition implements Observer
func (BaseObserver) OnTransition(string, StateID, StateID, Event) {}

// ObserverManager fans out to a collection of sinks and observers. A panic
// raised by one sink is discarded and the remaining sinks still run.
type ObserverManager struct {
	sinks []Sink
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		sinks: make([]Sink, 0),
	}
}

// Add adds a sink or observer to the manager
func (om *ObserverManager) Add(sink Sink) {
	if sink == nil {
		return
	}
	om.sinks = append(om.sinks, sink)
}

// Remove removes a sink from the manager. Sinks that are not comparable, such
// as a SinkFunc or a struct holding a slice in an interface field, cannot be
// removed.
func (om *ObserverManager) Remove(sink Sink) {
	if sink == nil || !reflect.ValueOf(sink).Comparable() {
		return
	}
	for i, s := range om.sinks {
		if reflect.ValueOf(s).Comparable() && s == sink {
			om.sinks = append(om.sinks[:i], om.sinks[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered sinks
func (om *ObserverManager) Len() int {
	return len(om.sinks)
}

// Report delivers a diagnostic to every sink
func (om *ObserverManager) Report(d Diagnostic) {
	for _, s := range om.sinks {
		guarded(func() { s.Report(d) })
	}
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(machine string, state StateID, ev Event) {
	om.each(func(o Observer) { o.OnStateEnter(machine, state, ev) })
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(machine string, state StateID, ev Event) {
	om.each(func(o Observer) { o.OnStateExit(machine, state, ev) })
}

// NotifyGuardEvaluation notifies all observers of guard evaluation
func (om *ObserverManager) NotifyGuardEvaluation(machine string, from, to StateID, ev Event, guard string, result bool) {
	om.each(func(o Observer) { o.OnGuardEvaluation(machine, from, to, ev, guard, result) })
}

// NotifyActionExecution notifies all observers of action execution
func (om *ObserverManager) NotifyActionExecution(machine string, from, to StateID, ev Event, action string) {
	om.each(func(o Observer) { o.OnActionExecution(machine, from, to, ev, action) })
}

// NotifyTransition notifies all observers of a committed transition
func (om *ObserverManager) NotifyTransition(machine string, from, to StateID, ev Event) {
	om.each(func(o Observer) { o.OnTransition(machine, from, to, ev) })
}

func (om *ObserverManager) each(fn func(o Observer)) {
	for _, s := range om.sinks {
		if o, ok := s.(Observer); ok {
			guarded(func() { fn(o) })
		}
	}
}

// guarded runs fn, discarding any panic it raises
func guarded(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
