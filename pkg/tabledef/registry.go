package tabledef

import (
	"fmt"

	"github.com/anggasct/rowfsm"
)

// Registry resolves the hook names used in a table document. The guards
// "always" and "never" are predefined.
type Registry[C any] struct {
	actions map[string]rowfsm.ActionHook[C]
	guards  map[string]rowfsm.GuardHook[C]
	err     error
}

// NewRegistry creates an empty registry
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		actions: make(map[string]rowfsm.ActionHook[C]),
		guards: map[string]rowfsm.GuardHook[C]{
			"always": rowfsm.Always[C](),
			"never":  rowfsm.Never[C](),
		},
	}
}

// Action registers an action. Actions also serve as state entry and exit
// hooks.
func (r *Registry[C]) Action(name string, fn rowfsm.ActionFunc[C]) *Registry[C] {
	if _, dup := r.actions[name]; dup {
		r.fail(fmt.Errorf("%w: action %q", ErrDuplicateHook, name))
		return r
	}
	r.actions[name] = rowfsm.NamedAction(name, fn)
	return r
}

// Guard registers a guard
func (r *Registry[C]) Guard(name string, fn rowfsm.GuardFunc[C]) *Registry[C] {
	return r.GuardHook(name, rowfsm.NamedGuard(name, fn))
}

// CheckedGuard registers a guard that can fail
func (r *Registry[C]) CheckedGuard(name string, fn rowfsm.CheckedGuard[C]) *Registry[C] {
	return r.GuardHook(name, rowfsm.NamedCheckedGuard(name, fn))
}

// GuardHook registers a guard hook under name
func (r *Registry[C]) GuardHook(name string, hook rowfsm.GuardHook[C]) *Registry[C] {
	if _, dup := r.guards[name]; dup {
		r.fail(fmt.Errorf("%w: guard %q", ErrDuplicateHook, name))
		return r
	}
	r.guards[name] = hook
	return r
}

// Err returns the first registration error
func (r *Registry[C]) Err() error {
	return r.err
}

func (r *Registry[C]) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Registry[C]) action(name string) (rowfsm.ActionHook[C], error) {
	if name == "" {
		return nil, nil
	}
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

func (r *Registry[C]) guard(name string) (rowfsm.GuardHook[C], error) {
	if name == "" {
		return nil, nil
	}
	g, ok := r.guards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGuard, name)
	}
	return g, nil
}

func (r *Registry[C]) stateHook(entry, exit string) (rowfsm.StateHook[C], error) {
	if entry == "" && exit == "" {
		return nil, nil
	}

	var hooks rowfsm.StateHooks[C]
	for _, h := range []struct {
		name string
		dst  *rowfsm.ActionFunc[C]
	}{{entry, &hooks.Entry}, {exit, &hooks.Exit}} {
		a, err := r.action(h.name)
		if err != nil {
			return nil, err
		}
		if a != nil {
			*h.dst = a.Execute
		}
	}
	return hooks, nil
}
