package rowfsm

// TableBuilder provides the entry point for building tables fluently. Rows
// are recorded in the order To/Auto are called, which is the order the
// machine evaluates them in.
type TableBuilder[C any] interface {
	State(id StateID) StateBuilder[C]
	MaxChain(n int) TableBuilder[C]

	Definition() Definition[C]
	Build() (*Table[C], error)
	MustBuild() *Table[C]
}

// StateBuilder handles state configuration
type StateBuilder[C any] interface {
	OnEntry(action ActionFunc[C]) StateBuilder[C]
	OnExit(action ActionFunc[C]) StateBuilder[C]
	Hook(hook StateHook[C]) StateBuilder[C]
	Initial() StateBuilder[C]
	Terminal() StateBuilder[C]

	To(target StateID) TransitionBuilder[C]
	ToSelf() TransitionBuilder[C]
	Auto(target StateID) TransitionBuilder[C]

	State(id StateID) StateBuilder[C]
	MaxChain(n int) TableBuilder[C]
	Definition() Definition[C]
	Build() (*Table[C], error)
	MustBuild() *Table[C]
}

// TransitionBuilder handles row configuration
type TransitionBuilder[C any] interface {
	// Event binding. A row without On is an automatic row.
	On(tag EventTag) TransitionBuilder[C]

	// Conditions
	When(guard GuardFunc[C]) TransitionBuilder[C]
	Unless(guard GuardFunc[C]) TransitionBuilder[C]
	Guard(guard GuardHook[C]) TransitionBuilder[C]

	// Actions
	Do(action ActionFunc[C]) TransitionBuilder[C]
	Action(action ActionHook[C]) TransitionBuilder[C]

	// More rows from the same source
	To(target StateID) TransitionBuilder[C]
	ToSelf() TransitionBuilder[C]
	Auto(target StateID) TransitionBuilder[C]

	State(id StateID) StateBuilder[C]
	MaxChain(n int) TableBuilder[C]
	Definition() Definition[C]
	Build() (*Table[C], error)
	MustBuild() *Table[C]
}

type stateDecl[C any] struct {
	id       StateID
	entry    ActionFunc[C]
	exit     ActionFunc[C]
	hook     StateHook[C]
	terminal bool
}

type tableBuilderImpl[C any] struct {
	states   []*stateDecl[C]
	byID     map[StateID]*stateDecl[C]
	rows     []Row[C]
	initial  StateID
	maxChain int
}

// NewBuilder creates a new table builder
func NewBuilder[C any]() TableBuilder[C] {
	return &tableBuilderImpl[C]{
		states: make([]*stateDecl[C], 0),
		byID:   make(map[StateID]*stateDecl[C]),
		rows:   make([]Row[C], 0),
	}
}

// State declares a state, or resumes the configuration of a declared one
func (tb *tableBuilderImpl[C]) State(id StateID) StateBuilder[C] {
	decl, ok := tb.byID[id]
	if !ok {
		decl = &stateDecl[C]{id: id}
		tb.byID[id] = decl
		tb.states = append(tb.states, decl)
	}
	return &stateBuilderImpl[C]{table: tb, decl: decl}
}

// MaxChain bounds consecutive automatic transitions
func (tb *tableBuilderImpl[C]) MaxChain(n int) TableBuilder[C] {
	tb.maxChain = n
	return tb
}

// Definition returns the definition collected so far
func (tb *tableBuilderImpl[C]) Definition() Definition[C] {
	def := Definition[C]{
		States:   make([]State[C], 0, len(tb.states)),
		Rows:     make([]Row[C], len(tb.rows)),
		Initial:  tb.initial,
		MaxChain: tb.maxChain,
	}
	for _, decl := range tb.states {
		def.States = append(def.States, State[C]{ID: decl.id, Hook: decl.stateHook()})
		if decl.terminal {
			def.Terminals = append(def.Terminals, decl.id)
		}
	}
	copy(def.Rows, tb.rows)
	return def
}

// Build validates the collected definition
func (tb *tableBuilderImpl[C]) Build() (*Table[C], error) {
	return BuildTable(tb.Definition())
}

// MustBuild is like Build but panics on error
func (tb *tableBuilderImpl[C]) MustBuild() *Table[C] {
	return MustBuildTable(tb.Definition())
}

func (tb *tableBuilderImpl[C]) addRow(source StateID, trigger EventTag, target StateID) *transitionBuilderImpl[C] {
	tb.rows = append(tb.rows, Row[C]{Source: source, Trigger: trigger, Target: target})
	return &transitionBuilderImpl[C]{table: tb, index: len(tb.rows) - 1}
}

func (d *stateDecl[C]) stateHook() StateHook[C] {
	if d.hook != nil {
		return d.hook
	}
	if d.entry == nil && d.exit == nil {
		return nil
	}
	return StateHooks[C]{Entry: d.entry, Exit: d.exit}
}

// StateBuilder implementation

type stateBuilderImpl[C any] struct {
	table *tableBuilderImpl[C]
	decl  *stateDecl[C]
}

// OnEntry sets the entry action of the state
func (sb *stateBuilderImpl[C]) OnEntry(action ActionFunc[C]) StateBuilder[C] {
	sb.decl.entry = action
	return sb
}

// OnExit sets the exit action of the state
func (sb *stateBuilderImpl[C]) OnExit(action ActionFunc[C]) StateBuilder[C] {
	sb.decl.exit = action
	return sb
}

// Hook sets a StateHook, taking precedence over OnEntry and OnExit
func (sb *stateBuilderImpl[C]) Hook(hook StateHook[C]) StateBuilder[C] {
	sb.decl.hook = hook
	return sb
}

// Initial marks the state as the initial state
func (sb *stateBuilderImpl[C]) Initial() StateBuilder[C] {
	sb.table.initial = sb.decl.id
	return sb
}

// Terminal marks the state as terminal
func (sb *stateBuilderImpl[C]) Terminal() StateBuilder[C] {
	sb.decl.terminal = true
	return sb
}

// To creates a row to another state; bind its event with On
func (sb *stateBuilderImpl[C]) To(target StateID) TransitionBuilder[C] {
	return sb.table.addRow(sb.decl.id, Epsilon, target)
}

// ToSelf creates a self-transition row
func (sb *stateBuilderImpl[C]) ToSelf() TransitionBuilder[C] {
	return sb.To(sb.decl.id)
}

// Auto creates an automatic row
func (sb *stateBuilderImpl[C]) Auto(target StateID) TransitionBuilder[C] {
	return sb.table.addRow(sb.decl.id, Epsilon, target)
}

func (sb *stateBuilderImpl[C]) State(id StateID) StateBuilder[C] {
	return sb.table.State(id)
}

func (sb *stateBuilderImpl[C]) MaxChain(n int) TableBuilder[C] {
	return sb.table.MaxChain(n)
}

func (sb *stateBuilderImpl[C]) Definition() Definition[C] {
	return sb.table.Definition()
}

func (sb *stateBuilderImpl[C]) Build() (*Table[C], error) {
	return sb.table.Build()
}

func (sb *stateBuilderImpl[C]) MustBuild() *Table[C] {
	return sb.table.MustBuild()
}

// TransitionBuilder implementation

type transitionBuilderImpl[C any] struct {
	table *tableBuilderImpl[C]
	index int
}

func (tb *transitionBuilderImpl[C]) row() *Row[C] {
	return &tb.table.rows[tb.index]
}

// On sets the event for this row
func (tb *transitionBuilderImpl[C]) On(tag EventTag) TransitionBuilder[C] {
	tb.row().Trigger = tag
	return tb
}

// When adds a guard condition
func (tb *transitionBuilderImpl[C]) When(guard GuardFunc[C]) TransitionBuilder[C] {
	if guard != nil {
		tb.row().Guard = guard
	}
	return tb
}

// Unless adds a negated guard condition
func (tb *transitionBuilderImpl[C]) Unless(guard GuardFunc[C]) TransitionBuilder[C] {
	if guard != nil {
		tb.row().Guard = GuardFunc[C](func(ctx *Context[C]) bool {
			return !guard(ctx)
		})
	}
	return tb
}

// Guard sets a guard hook
func (tb *transitionBuilderImpl[C]) Guard(guard GuardHook[C]) TransitionBuilder[C] {
	tb.row().Guard = guard
	return tb
}

// Do adds an action to this row
func (tb *transitionBuilderImpl[C]) Do(action ActionFunc[C]) TransitionBuilder[C] {
	if action != nil {
		tb.row().Action = action
	}
	return tb
}

// Action sets an action hook
func (tb *transitionBuilderImpl[C]) Action(action ActionHook[C]) TransitionBuilder[C] {
	tb.row().Action = action
	return tb
}

// To creates another row from the same source state
func (tb *transitionBuilderImpl[C]) To(target StateID) TransitionBuilder[C] {
	return tb.table.addRow(tb.row().Source, Epsilon, target)
}

// ToSelf creates a self-transition from the same source state
func (tb *transitionBuilderImpl[C]) ToSelf() TransitionBuilder[C] {
	source := tb.row().Source
	return tb.table.addRow(source, Epsilon, source)
}

// Auto creates another automatic row from the same source state
func (tb *transitionBuilderImpl[C]) Auto(target StateID) TransitionBuilder[C] {
	return tb.table.addRow(tb.row().Source, Epsilon, target)
}

func (tb *transitionBuilderImpl[C]) State(id StateID) StateBuilder[C] {
	return tb.table.State(id)
}

func (tb *transitionBuilderImpl[C]) MaxChain(n int) TableBuilder[C] {
	return tb.table.MaxChain(n)
}

func (tb *transitionBuilderImpl[C]) Definition() Definition[C] {
	return tb.table.Definition()
}

func (tb *transitionBuilderImpl[C]) Build() (*Table[C], error) {
	return tb.table.Build()
}

func (tb *transitionBuilderImpl[C]) MustBuild() *Table[C] {
	return tb.table.MustBuild()
}
