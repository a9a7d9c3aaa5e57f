package rowfsm

import "fmt"

// StateID identifies a declared state
type StateID string

// NoState is the source reported to the entry hook run by Start
const NoState StateID = ""

// State declares a state of a table together with its entry/exit hooks
type State[C any] struct {
	ID   StateID
	Hook StateHook[C]
}

// NewState creates a state declaration. A nil hook behaves as BaseState.
func NewState[C any](id StateID, hook StateHook[C]) State[C] {
	return State[C]{ID: id, Hook: hook}
}

// StateHook runs when a state is entered or left
type StateHook[C any] interface {
	OnEntry(ctx *Context[C]) error
	OnExit(ctx *Context[C]) error
}

// ActionHook executes on a firing transition, between exit and entry
type ActionHook[C any] interface {
	Execute(ctx *Context[C]) error
}

// GuardHook decides whether a candidate row may fire. Returning an error is a
// guard failure, which is reported and treated as a rejection.
type GuardHook[C any] interface {
	Evaluate(ctx *Context[C]) (bool, error)
}

// BaseState provides no-op entry and exit hooks. Embed it to override only one.
type BaseState[C any] struct{}

// OnEntry implements StateHook
func (BaseState[C]) OnEntry(*Context[C]) error { return nil }

// OnExit implements StateHook
func (BaseState[C]) OnExit(*Context[C]) error { return nil }

// StateHooks adapts plain functions to StateHook. Nil functions are no-ops.
type StateHooks[C any] struct {
	Entry ActionFunc[C]
	Exit  ActionFunc[C]
}

// OnEntry implements StateHook
func (h StateHooks[C]) OnEntry(ctx *Context[C]) error {
	if h.Entry == nil {
		return nil
	}
	return h.Entry(ctx)
}

// OnExit implements StateHook
func (h StateHooks[C]) OnExit(ctx *Context[C]) error {
	if h.Exit == nil {
		return nil
	}
	return h.Exit(ctx)
}

// ActionFunc represents an action function with error support
type ActionFunc[C any] func(ctx *Context[C]) error

// Execute implements ActionHook
func (f ActionFunc[C]) Execute(ctx *Context[C]) error {
	return f(ctx)
}

// GuardFunc represents a guard condition function
type GuardFunc[C any] func(ctx *Context[C]) bool

// Evaluate implements GuardHook
func (f GuardFunc[C]) Evaluate(ctx *Context[C]) (bool, error) {
	return f(ctx), nil
}

// CheckedGuard is a guard function that can fail
type CheckedGuard[C any] func(ctx *Context[C]) (bool, error)

// Evaluate implements GuardHook
func (f CheckedGuard[C]) Evaluate(ctx *Context[C]) (bool, error) {
	return f(ctx)
}

type constGuard[C any] struct {
	name   string
	result bool
}

func (g constGuard[C]) Evaluate(*Context[C]) (bool, error) { return g.result, nil }

func (g constGuard[C]) Name() string { return g.name }

// Always returns a guard that always passes
func Always[C any]() GuardHook[C] {
	return constGuard[C]{name: "always", result: true}
}

// Never returns a guard that always rejects
func Never[C any]() GuardHook[C] {
	return constGuard[C]{name: "never", result: false}
}

type namedAction[C any] struct {
	ActionHook[C]
	name string
}

func (a namedAction[C]) Name() string { return a.name }

// NamedAction attaches a diagnostic name to an action function
func NamedAction[C any](name string, fn ActionFunc[C]) ActionHook[C] {
	return namedAction[C]{ActionHook: fn, name: name}
}

type namedGuard[C any] struct {
	GuardHook[C]
	name string
}

func (g namedGuard[C]) Name() string { return g.name }

// NamedGuard attaches a diagnostic name to a guard function
func NamedGuard[C any](name string, fn GuardFunc[C]) GuardHook[C] {
	return namedGuard[C]{GuardHook: fn, name: name}
}

// NamedCheckedGuard attaches a diagnostic name to a guard that can fail
func NamedCheckedGuard[C any](name string, fn CheckedGuard[C]) GuardHook[C] {
	return namedGuard[C]{GuardHook: fn, name: name}
}

// HookName returns the diagnostic name of a hook: its Name method when it has
// one, its dynamic type otherwise.
func HookName(hook any) string {
	if n, ok := hook.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", hook)
}

// safeEvaluateGuard evaluates a guard with panic recovery
func safeEvaluateGuard[C any](guard GuardHook[C], ctx *Context[C]) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	return guard.Evaluate(ctx)
}

// safeExecuteAction executes an action with panic recovery
func safeExecuteAction[C any](action ActionHook[C], ctx *Context[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	return action.Execute(ctx)
}

// safeEnter runs an entry hook with panic recovery
func safeEnter[C any](hook StateHook[C], ctx *Context[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry panic: %v", r)
		}
	}()

	return hook.OnEntry(ctx)
}

// safeExit runs an exit hook with panic recovery
func safeExit[C any](hook StateHook[C], ctx *Context[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exit panic: %v", r)
		}
	}()

	return hook.OnExit(ctx)
}
