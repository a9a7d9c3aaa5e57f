package rowfsm

import (
	"fmt"
	"strings"
)

// DefaultChainFactor multiplied by the number of declared states gives the
// default bound on consecutive automatic transitions
const DefaultChainFactor = 4

// Definition is the declarative input of BuildTable
type Definition[C any] struct {
	States    []State[C]
	Rows      []Row[C]
	Initial   StateID
	Terminals []StateID
	// MaxChain bounds consecutive automatic transitions. Zero selects
	// DefaultChainFactor times the number of states.
	MaxChain int
}

// Table is a validated, immutable transition table
type Table[C any] struct {
	initial    StateID
	states     []StateID
	hooks      map[StateID]StateHook[C]
	terminals  map[StateID]bool
	rows       []Row[C]
	index      map[StateID]map[EventTag][]*Row[C]
	chainLimit int
}

// BuildTable validates a definition and returns the table it describes
func BuildTable[C any](def Definition[C]) (*Table[C], error) {
	t := &Table[C]{
		initial:   def.Initial,
		states:    make([]StateID, 0, len(def.States)),
		hooks:     make(map[StateID]StateHook[C], len(def.States)),
		terminals: make(map[StateID]bool, len(def.Terminals)),
		rows:      make([]Row[C], len(def.Rows)),
		index:     make(map[StateID]map[EventTag][]*Row[C]),
	}

	for _, s := range def.States {
		if s.ID == NoState {
			return nil, NewConfigurationError("Table", "state with empty id")
		}
		if _, dup := t.hooks[s.ID]; dup {
			return nil, NewConfigurationError("Table", fmt.Sprintf("state '%s' declared twice", s.ID))
		}
		hook := s.Hook
		if hook == nil {
			hook = BaseState[C]{}
		}
		t.hooks[s.ID] = hook
		t.states = append(t.states, s.ID)
	}

	if def.Initial == NoState {
		return nil, NewConfigurationError("Table", "no initial state defined")
	}
	if !t.HasState(def.Initial) {
		return nil, NewConfigurationError("Table", fmt.Sprintf("initial state '%s' is not declared", def.Initial))
	}

	for _, id := range def.Terminals {
		if !t.HasState(id) {
			return nil, NewConfigurationError("Table", fmt.Sprintf("terminal state '%s' is not declared", id))
		}
		t.terminals[id] = true
	}

	copy(t.rows, def.Rows)
	for i := range t.rows {
		r := &t.rows[i]
		if !t.HasState(r.Source) {
			return nil, NewConfigurationError("Table", fmt.Sprintf("row %d: source state '%s' is not declared", i, r.Source))
		}
		if !t.HasState(r.Target) {
			return nil, NewConfigurationError("Table", fmt.Sprintf("row %d: target state '%s' is not declared", i, r.Target))
		}
		if r.IsAutomatic() && r.Source == r.Target {
			return nil, NewConfigurationError("Table", fmt.Sprintf("row %d: automatic transition from '%s' to itself", i, r.Source))
		}
		if t.terminals[r.Source] {
			return nil, NewConfigurationError("Table", fmt.Sprintf("row %d: terminal state '%s' has an outgoing transition", i, r.Source))
		}

		byTrigger, ok := t.index[r.Source]
		if !ok {
			byTrigger = make(map[EventTag][]*Row[C])
			t.index[r.Source] = byTrigger
		}
		byTrigger[r.Trigger] = append(byTrigger[r.Trigger], r)
	}

	switch {
	case def.MaxChain < 0:
		return nil, NewConfigurationError("Table", fmt.Sprintf("negative automatic chain bound %d", def.MaxChain))
	case def.MaxChain > 0:
		t.chainLimit = def.MaxChain
	default:
		t.chainLimit = DefaultChainFactor * len(t.states)
	}

	if cycle := t.forcedAutomaticCycle(); cycle != nil {
		return nil, NewConfigurationError("Table", fmt.Sprintf("unconditional automatic cycle %s", formatCycle(cycle)))
	}

	return t, nil
}

// MustBuildTable is like BuildTable but panics on error
func MustBuildTable[C any](def Definition[C]) *Table[C] {
	t, err := BuildTable(def)
	if err != nil {
		panic(fmt.Sprintf("failed to build transition table: %v", err))
	}
	return t
}

// forcedAutomaticCycle follows, from every state, the first automatic row
// when it is unguarded. Such a row is always selected, so revisiting a state
// on that path is a chain that can never end.
func (t *Table[C]) forcedAutomaticCycle() []StateID {
	forced := func(s StateID) (StateID, bool) {
		rows := t.Candidates(s, Epsilon)
		if len(rows) == 0 || rows[0].Guard != nil {
			return NoState, false
		}
		return rows[0].Target, true
	}

	cleared := make(map[StateID]bool, len(t.states))
	for _, start := range t.states {
		onPath := make(map[StateID]int)
		path := []StateID{}
		cur := start
		for !cleared[cur] {
			if at, seen := onPath[cur]; seen {
				return append(path[at:], cur)
			}
			onPath[cur] = len(path)
			path = append(path, cur)

			next, ok := forced(cur)
			if !ok {
				break
			}
			cur = next
		}
		for _, s := range path {
			cleared[s] = true
		}
	}
	return nil
}

func formatCycle(cycle []StateID) string {
	parts := make([]string, len(cycle))
	for i, s := range cycle {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

// Candidates returns the rows of source triggered by trigger, in declaration
// order. The returned slice is owned by the table and must not be modified.
func (t *Table[C]) Candidates(source StateID, trigger EventTag) []*Row[C] {
	return t.index[source][trigger]
}

// Initial returns the declared initial state
func (t *Table[C]) Initial() StateID {
	return t.initial
}

// States returns the declared states in declaration order
func (t *Table[C]) States() []StateID {
	out := make([]StateID, len(t.states))
	copy(out, t.states)
	return out
}

// Rows returns a copy of the rows in declaration order
func (t *Table[C]) Rows() []Row[C] {
	out := make([]Row[C], len(t.rows))
	copy(out, t.rows)
	return out
}

// HasState reports whether id is a declared state
func (t *Table[C]) HasState(id StateID) bool {
	_, ok := t.hooks[id]
	return ok
}

// IsTerminal reports whether id is a declared terminal state
func (t *Table[C]) IsTerminal(id StateID) bool {
	return t.terminals[id]
}

// ChainLimit returns the maximum number of consecutive automatic transitions
func (t *Table[C]) ChainLimit() int {
	return t.chainLimit
}

func (t *Table[C]) hook(id StateID) StateHook[C] {
	return t.hooks[id]
}
