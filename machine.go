package rowfsm

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MachineState represents the lifecycle phase of a machine
type MachineState int

const (
	// Machine was created and Start has not succeeded yet
	MachineStateUnstarted MachineState = iota
	// Machine is running and processing events
	MachineStateRunning
	// Machine reached a terminal state; events are dropped
	MachineStateTerminated
	// Machine was stopped by Stop
	MachineStateStopped
	// Machine exceeded its automatic chain bound and refuses further work
	MachineStateFaulted
)

func (s MachineState) String() string {
	switch s {
	case MachineStateUnstarted:
		return "unstarted"
	case MachineStateRunning:
		return "running"
	case MachineStateTerminated:
		return "terminated"
	case MachineStateStopped:
		return "stopped"
	case MachineStateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Machine runs a transition table against user data of type C.
//
// A machine is single-threaded and non-reentrant: Start, ProcessEvent and Stop
// run to completion, and a call made while another one is in progress
// (from a hook, or from another goroutine) is rejected with ErrCodeReentrant.
// Callers that drive one machine from several goroutines must serialize the
// calls themselves. The read-only accessors are safe at any time, including
// from hooks.
type Machine[C any] struct {
	id        string
	name      string
	table     *Table[C]
	data      *C
	observers *ObserverManager
	logger    *slog.Logger

	busy atomic.Bool

	mutex   sync.RWMutex
	current StateID
	state   MachineState
	fault   error
}

// MachineOption is a functional option for configuring a Machine
type MachineOption[C any] func(*Machine[C])

// WithSink adds a diagnostic sink
func WithSink[C any](sink Sink) MachineOption[C] {
	return func(m *Machine[C]) {
		m.observers.Add(sink)
	}
}

// WithObserver adds an observer that receives diagnostics and trace callbacks
func WithObserver[C any](observer Observer) MachineOption[C] {
	return func(m *Machine[C]) {
		m.observers.Add(observer)
	}
}

// WithLogger sets the logger for the machine
func WithLogger[C any](logger *slog.Logger) MachineOption[C] {
	return func(m *Machine[C]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithName sets a human readable name used in log records
func WithName[C any](name string) MachineOption[C] {
	return func(m *Machine[C]) {
		m.name = name
	}
}

// NewMachine creates an unstarted machine over table, owning data
func NewMachine[C any](table *Table[C], data *C, opts ...MachineOption[C]) (*Machine[C], error) {
	if table == nil {
		return nil, ErrNilTable
	}
	if data == nil {
		return nil, ErrNilData
	}

	m := &Machine[C]{
		id:        uuid.New().String(),
		table:     table,
		data:      data,
		observers: NewObserverManager(),
		logger:    slog.Default(),
		state:     MachineStateUnstarted,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name == "" {
		m.name = m.id
	}
	m.logger = m.logger.With(slog.String("machine", m.name))

	return m, nil
}

// ID returns the unique identifier of the machine
func (m *Machine[C]) ID() string {
	return m.id
}

// Name returns the machine name, its ID unless WithName was given
func (m *Machine[C]) Name() string {
	return m.name
}

// Table returns the machine's transition table
func (m *Machine[C]) Table() *Table[C] {
	return m.table
}

// Data returns the user data shared by the hooks
func (m *Machine[C]) Data() *C {
	return m.data
}

// CurrentState returns the current state, NoState before Start
func (m *Machine[C]) CurrentState() StateID {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// State returns the lifecycle phase of the machine
func (m *Machine[C]) State() MachineState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state
}

// IsStarted reports whether Start has succeeded
func (m *Machine[C]) IsStarted() bool {
	return m.State() != MachineStateUnstarted
}

// IsTerminated reports whether the machine reached a terminal state
func (m *Machine[C]) IsTerminated() bool {
	return m.State() == MachineStateTerminated
}

// AddObserver adds a sink or observer. It must not be called while the
// machine is processing.
func (m *Machine[C]) AddObserver(sink Sink) {
	m.observers.Add(sink)
}

// RemoveObserver removes a previously added sink or observer
func (m *Machine[C]) RemoveObserver(sink Sink) {
	m.observers.Remove(sink)
}

// Start commits the initial state, running its entry hook, and resolves the
// automatic transitions leaving it.
//
// When the initial entry hook fails the failure is reported to the sinks, the
// machine stays unstarted and an ErrCodeStartFailed MachineError wrapping the
// HookError is returned, so Start may be retried. A ConfigurationError is
// returned when the automatic chain exceeds the table's bound.
func (m *Machine[C]) Start() error {
	if !m.busy.CompareAndSwap(false, true) {
		return NewReentrantError("Start")
	}
	defer m.busy.Store(false)

	if m.State() != MachineStateUnstarted {
		return NewMachineError(ErrCodeAlreadyStarted, "Start", "machine is already started")
	}

	initial := m.table.Initial()
	ev := automaticEvent()
	ctx := newContext(m, ev, NoState, initial)

	hook := m.table.hook(initial)
	if err := safeEnter(hook, ctx); err != nil {
		failed := TransitionFailed{
			Step:    StepEntry,
			From:    NoState,
			To:      initial,
			Trigger: Epsilon,
			Hook:    stateHookName(initial, hook, StepEntry),
			Event:   ev,
			Cause:   err,
		}
		m.report(failed)
		return &MachineError{
			Code:      ErrCodeStartFailed,
			Operation: "Start",
			Message:   "initial entry hook failed",
			Cause:     failed.Err(),
		}
	}
	m.observers.NotifyStateEnter(m.name, initial, ev)

	m.commit(initial)
	m.observers.NotifyTransition(m.name, NoState, initial, ev)
	m.logger.Debug("machine started", slog.String("state", string(initial)))

	_, err := m.resolveAutomatic()
	return err
}

// ProcessEvent dispatches ev against the table.
//
// A nil error covers both a committed transition and an event that matched no
// row; the returned EventResult tells them apart. Hook failures are reported
// to the sinks and rolled back, never returned. Errors are reserved for usage
// errors (MachineError) and for an automatic chain that exceeds its bound
// (ConfigurationError). A terminated machine reports EventDropped and returns
// an ErrCodeMachineTerminated error together with an OutcomeDropped result.
func (m *Machine[C]) ProcessEvent(ev Event) (*EventResult, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, NewReentrantError("ProcessEvent")
	}
	defer m.busy.Store(false)

	m.mutex.RLock()
	state, current, fault := m.state, m.current, m.fault
	m.mutex.RUnlock()

	switch state {
	case MachineStateUnstarted:
		return nil, NewMachineNotStartedError("ProcessEvent")
	case MachineStateStopped:
		return nil, NewMachineError(ErrCodeMachineStopped, "ProcessEvent", "machine is stopped")
	case MachineStateFaulted:
		return nil, &MachineError{
			Code:      ErrCodeMachineFaulted,
			Operation: "ProcessEvent",
			Message:   "machine is faulted",
			Cause:     fault,
		}
	}

	if ev.Tag == Epsilon {
		return nil, NewMachineError(ErrCodeInvalidEvent, "ProcessEvent", "event tag cannot be empty")
	}

	result := &EventResult{
		Event:         ev,
		PreviousState: current,
		CurrentState:  current,
	}

	if state == MachineStateTerminated {
		m.report(EventDropped{State: current, Event: ev, Reason: "machine terminated"})
		result.Outcome = OutcomeDropped
		return result, NewMachineError(ErrCodeMachineTerminated, "ProcessEvent", "machine is terminated")
	}

	row := m.selectRow(current, ev)
	if row == nil {
		m.report(NoTransition{State: current, Event: ev})
		result.Outcome = OutcomeNoTransition
		return result, nil
	}

	if !m.fire(row, ev) {
		result.Outcome = OutcomeRolledBack
		return result, nil
	}
	result.Outcome = OutcomeTransitioned

	n, err := m.resolveAutomatic()
	result.Automatic = n
	result.CurrentState = m.CurrentState()
	return result, err
}

// Stop runs the current state's exit hook and stops the machine. An exit hook
// failure is reported to the sinks; the machine is stopped regardless. A
// terminated machine stays terminated and Stop returns ErrCodeMachineTerminated.
func (m *Machine[C]) Stop() error {
	if !m.busy.CompareAndSwap(false, true) {
		return NewReentrantError("Stop")
	}
	defer m.busy.Store(false)

	m.mutex.RLock()
	state, current := m.state, m.current
	m.mutex.RUnlock()

	switch state {
	case MachineStateUnstarted:
		return NewMachineNotStartedError("Stop")
	case MachineStateStopped:
		return NewMachineError(ErrCodeMachineStopped, "Stop", "machine is already stopped")
	case MachineStateTerminated:
		return NewMachineError(ErrCodeMachineTerminated, "Stop", "machine is terminated")
	}

	ev := automaticEvent()
	hook := m.table.hook(current)
	if err := safeExit(hook, newContext(m, ev, current, NoState)); err != nil {
		m.report(TransitionFailed{
			Step:    StepExit,
			From:    current,
			To:      NoState,
			Trigger: Epsilon,
			Hook:    stateHookName(current, hook, StepExit),
			Event:   ev,
			Cause:   err,
		})
	} else {
		m.observers.NotifyStateExit(m.name, current, ev)
	}

	m.mutex.Lock()
	m.state = MachineStateStopped
	m.mutex.Unlock()

	m.logger.Debug("machine stopped", slog.String("state", string(current)))
	return nil
}

// selectRow returns the first candidate of (state, ev.Tag) whose guard passes.
// A failing guard is reported and counts as a rejection.
func (m *Machine[C]) selectRow(state StateID, ev Event) *Row[C] {
	for _, r := range m.table.Candidates(state, ev.Tag) {
		if r.Guard == nil {
			return r
		}

		name := HookName(r.Guard)
		ok, err := safeEvaluateGuard(r.Guard, newContext(m, ev, r.Source, r.Target))
		if err != nil {
			m.report(TransitionFailed{
				Step:    StepGuard,
				From:    r.Source,
				To:      r.Target,
				Trigger: r.Trigger,
				Hook:    name,
				Event:   ev,
				Cause:   err,
			})
			continue
		}
		m.observers.NotifyGuardEvaluation(m.name, r.Source, r.Target, ev, name, ok)
		if ok {
			return r
		}
	}
	return nil
}

// fire runs exit, action and entry for row and commits its target. On any
// failure the current state is left untouched and false is returned.
func (m *Machine[C]) fire(row *Row[C], ev Event) bool {
	source, target := row.Source, row.Target
	ctx := newContext(m, ev, source, target)

	exitHook := m.table.hook(source)
	if err := safeExit(exitHook, ctx); err != nil {
		m.rollback(row, ev, StepExit, stateHookName(source, exitHook, StepExit), err)
		return false
	}
	m.observers.NotifyStateExit(m.name, source, ev)

	if row.Action != nil {
		name := HookName(row.Action)
		if err := safeExecuteAction(row.Action, ctx); err != nil {
			m.rollback(row, ev, StepAction, name, err)
			return false
		}
		m.observers.NotifyActionExecution(m.name, source, target, ev, name)
	}

	entryHook := m.table.hook(target)
	if err := safeEnter(entryHook, ctx); err != nil {
		m.rollback(row, ev, StepEntry, stateHookName(target, entryHook, StepEntry), err)
		return false
	}
	m.observers.NotifyStateEnter(m.name, target, ev)

	m.commit(target)
	m.observers.NotifyTransition(m.name, source, target, ev)
	m.logger.Debug("transition committed",
		slog.String("from", string(source)),
		slog.String("to", string(target)),
		slog.String("event", ev.Tag.String()),
		slog.String("event_id", ev.ID),
	)
	return true
}

func (m *Machine[C]) rollback(row *Row[C], ev Event, step Step, hook string, cause error) {
	m.logger.Debug("transition rolled back",
		slog.String("from", string(row.Source)),
		slog.String("to", string(row.Target)),
		slog.String("event", ev.Tag.String()),
		slog.String("step", step.String()),
		slog.Any("error", cause),
	)
	m.report(TransitionFailed{
		Step:    step,
		From:    row.Source,
		To:      row.Target,
		Trigger: row.Trigger,
		Hook:    hook,
		Event:   ev,
		Cause:   cause,
	})
}

// resolveAutomatic fires automatic rows from the current state until none is
// selected, the machine terminates, or a firing is rolled back. It returns the
// number of rows fired.
func (m *Machine[C]) resolveAutomatic() (int, error) {
	limit := m.table.ChainLimit()
	start := m.CurrentState()
	fired := 0

	for {
		m.mutex.RLock()
		state, current := m.state, m.current
		m.mutex.RUnlock()

		if state != MachineStateRunning {
			return fired, nil
		}

		ev := automaticEvent()
		row := m.selectRow(current, ev)
		if row == nil {
			return fired, nil
		}

		if fired == limit {
			err := NewConfigurationError("Machine",
				fmt.Sprintf("automatic transition chain from '%s' exceeded bound %d at '%s'", start, limit, current))
			m.mutex.Lock()
			m.state = MachineStateFaulted
			m.fault = err
			m.mutex.Unlock()
			m.logger.Error("automatic chain bound exceeded", slog.Any("error", err))
			return fired, err
		}

		if !m.fire(row, ev) {
			return fired, nil
		}
		fired++
	}
}

func (m *Machine[C]) commit(target StateID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.current = target
	if m.table.IsTerminal(target) {
		m.state = MachineStateTerminated
	} else {
		m.state = MachineStateRunning
	}
}

func (m *Machine[C]) report(d Diagnostic) {
	m.observers.Report(d)
}

func stateHookName[C any](state StateID, hook StateHook[C], step Step) string {
	if n, ok := hook.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%s.%s", state, step)
}
