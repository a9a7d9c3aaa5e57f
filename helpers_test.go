package rowfsm

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	Val int
	Log []string
}

var errBoom = errors.New("boom")

// recorder is a test observer that captures every diagnostic and trace call
type recorder struct {
	mutex       sync.Mutex
	Diagnostics []Diagnostic
	Trace       []string
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) add(format string, args ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

func (r *recorder) Report(d Diagnostic) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Diagnostics = append(r.Diagnostics, d)
}

func (r *recorder) OnStateEnter(_ string, state StateID, _ Event) {
	r.add("enter %s", state)
}

func (r *recorder) OnStateExit(_ string, state StateID, _ Event) {
	r.add("exit %s", state)
}

func (r *recorder) OnGuardEvaluation(_ string, from, to StateID, _ Event, guard string, result bool) {
	r.add("guard %s %s->%s %t", guard, from, to, result)
}

func (r *recorder) OnActionExecution(_ string, from, to StateID, _ Event, action string) {
	r.add("action %s %s->%s", action, from, to)
}

func (r *recorder) OnTransition(_ string, from, to StateID, ev Event) {
	r.add("transition %s->%s on %s", from, to, ev.Tag)
}

func (r *recorder) noTransitions() []NoTransition {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []NoTransition
	for _, d := range r.Diagnostics {
		if nt, ok := d.(NoTransition); ok {
			out = append(out, nt)
		}
	}
	return out
}

func (r *recorder) failures() []TransitionFailed {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []TransitionFailed
	for _, d := range r.Diagnostics {
		if tf, ok := d.(TransitionFailed); ok {
			out = append(out, tf)
		}
	}
	return out
}

func (r *recorder) dropped() []EventDropped {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []EventDropped
	for _, d := range r.Diagnostics {
		if ed, ok := d.(EventDropped); ok {
			out = append(out, ed)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Diagnostics = nil
	r.Trace = nil
}

// failingState is a state hook that fails on entry and/or exit
type failingState struct {
	onEntry bool
	onExit  bool
}

func (s failingState) OnEntry(*Context[testData]) error {
	if s.onEntry {
		return errBoom
	}
	return nil
}

func (s failingState) OnExit(*Context[testData]) error {
	if s.onExit {
		return errBoom
	}
	return nil
}

func setVal(v int) ActionFunc[testData] {
	return func(ctx *Context[testData]) error {
		ctx.Data.Val = v
		return nil
	}
}

func failAction(*Context[testData]) error {
	return errBoom
}

// newFullTable builds Init --ε--> State1 --Event1 [true] / val=1--> State2 --Event2--> Terminal
func newFullTable(t *testing.T) *Table[testData] {
	t.Helper()

	table, err := NewBuilder[testData]().
		State("Init").Initial().Auto("State1").
		State("State1").To("State2").On("Event1").
		Guard(NamedGuard("GTrue", func(*Context[testData]) bool { return true })).
		Action(NamedAction("SetVal1", setVal(1))).
		State("State2").To("Terminal").On("Event2").
		State("Terminal").Terminal().
		Build()
	require.NoError(t, err)
	return table
}

// startMachine creates and starts a machine wired to a fresh recorder
func startMachine(t *testing.T, table *Table[testData]) (*Machine[testData], *recorder, *testData) {
	t.Helper()

	data := &testData{}
	rec := newRecorder()
	m, err := NewMachine(table, data, WithObserver[testData](rec), WithName[testData]("test"))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	return m, rec, data
}

// send processes an event and requires the call itself to succeed
func send(t *testing.T, m *Machine[testData], tag EventTag) *EventResult {
	t.Helper()

	result, err := m.ProcessEvent(NewEvent(tag))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// AssertState checks the machine's current state
func AssertState(t *testing.T, m *Machine[testData], expected StateID) {
	t.Helper()
	assert.Equal(t, expected, m.CurrentState(), "unexpected current state")
}
