package observers

import (
	"fmt"
	"sync"

	"github.com/anggasct/rowfsm"
)

// ValidationObserver checks committed transitions against a set of allowed
// edges and tracks which expected states were visited
type ValidationObserver struct {
	rowfsm.BaseObserver

	expectedStates     []rowfsm.StateID
	visitedStates      map[rowfsm.StateID]bool
	allowedTransitions map[rowfsm.StateID]map[rowfsm.StateID]bool
	violations         []string
	mutex              sync.RWMutex
}

// NewValidationObserver creates a new validation observer
func NewValidationObserver() *ValidationObserver {
	return &ValidationObserver{
		visitedStates:      make(map[rowfsm.StateID]bool),
		allowedTransitions: make(map[rowfsm.StateID]map[rowfsm.StateID]bool),
		violations:         make([]string, 0),
	}
}

// NewTableValidationObserver expects every state of table and allows the
// edges of its rows plus the initial entry
func NewTableValidationObserver[C any](table *rowfsm.Table[C]) *ValidationObserver {
	o := NewValidationObserver()
	for _, s := range table.States() {
		o.AddExpectedState(s)
	}
	o.AddAllowedTransition(rowfsm.NoState, table.Initial())
	for _, r := range table.Rows() {
		o.AddAllowedTransition(r.Source, r.Target)
	}
	return o
}

// AddExpectedState adds an expected state
func (o *ValidationObserver) AddExpectedState(state rowfsm.StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.expectedStates = append(o.expectedStates, state)
}

// AddAllowedTransition adds an allowed transition
func (o *ValidationObserver) AddAllowedTransition(from, to rowfsm.StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[rowfsm.StateID]bool)
	}
	o.allowedTransitions[from][to] = true
}

// OnStateEnter marks the state as visited
func (o *ValidationObserver) OnStateEnter(_ string, state rowfsm.StateID, _ rowfsm.Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.visitedStates[state] = true
}

// OnTransition flags transitions that were not allowed. Sources without any
// allowed edge are not checked.
func (o *ValidationObserver) OnTransition(_ string, from, to rowfsm.StateID, ev rowfsm.Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if allowed, exists := o.allowedTransitions[from]; exists && !allowed[to] {
		o.violations = append(o.violations, fmt.Sprintf(
			"invalid transition from '%s' to '%s' on event '%s'", from, to, ev.Tag))
	}
}

// Report records hook failures as violations
func (o *ValidationObserver) Report(d rowfsm.Diagnostic) {
	if f, ok := d.(rowfsm.TransitionFailed); ok {
		o.mutex.Lock()
		defer o.mutex.Unlock()
		o.violations = append(o.violations, f.String())
	}
}

// Violations returns all recorded violations
func (o *ValidationObserver) Violations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// UnvisitedStates returns the expected states that were never entered, in
// the order they were added
func (o *ValidationObserver) UnvisitedStates() []rowfsm.StateID {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	var unvisited []rowfsm.StateID
	for _, state := range o.expectedStates {
		if !o.visitedStates[state] {
			unvisited = append(unvisited, state)
		}
	}
	return unvisited
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset clears visits and violations, keeping expectations
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.visitedStates = make(map[rowfsm.StateID]bool)
	o.violations = make([]string, 0)
}
