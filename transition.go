package rowfsm

import "fmt"

// Row is one entry of a transition table
type Row[C any] struct {
	Source  StateID
	Trigger EventTag
	Target  StateID
	Action  ActionHook[C]
	Guard   GuardHook[C]
}

// RowOption is a functional option for configuring a Row
type RowOption[C any] func(*Row[C])

// NewRow creates a row fired by the given trigger
func NewRow[C any](source StateID, trigger EventTag, target StateID, opts ...RowOption[C]) Row[C] {
	r := Row[C]{
		Source:  source,
		Trigger: trigger,
		Target:  target,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Auto creates an automatic (Epsilon) row
func Auto[C any](source, target StateID, opts ...RowOption[C]) Row[C] {
	return NewRow(source, Epsilon, target, opts...)
}

// WithAction sets the action executed when the row fires
func WithAction[C any](action ActionHook[C]) RowOption[C] {
	return func(r *Row[C]) {
		r.Action = action
	}
}

// WithActionFunc is WithAction for a plain function
func WithActionFunc[C any](fn ActionFunc[C]) RowOption[C] {
	if fn == nil {
		return func(*Row[C]) {}
	}
	return WithAction[C](fn)
}

// WithGuard sets the guard that must pass for the row to fire
func WithGuard[C any](guard GuardHook[C]) RowOption[C] {
	return func(r *Row[C]) {
		r.Guard = guard
	}
}

// WithGuardFunc is WithGuard for a plain predicate
func WithGuardFunc[C any](fn GuardFunc[C]) RowOption[C] {
	if fn == nil {
		return func(*Row[C]) {}
	}
	return WithGuard[C](fn)
}

// IsAutomatic reports whether the row is an Epsilon row
func (r *Row[C]) IsAutomatic() bool {
	return r.Trigger == Epsilon
}

func (r *Row[C]) String() string {
	s := fmt.Sprintf("%s --%s--> %s", r.Source, r.Trigger, r.Target)
	if r.Guard != nil {
		s += fmt.Sprintf(" [%s]", HookName(r.Guard))
	}
	if r.Action != nil {
		s += fmt.Sprintf(" / %s", HookName(r.Action))
	}
	return s
}
