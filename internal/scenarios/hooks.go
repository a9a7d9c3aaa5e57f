package scenarios

import (
	"github.com/anggasct/rowfsm"
	"github.com/anggasct/rowfsm/pkg/tabledef"
)

// Data is the user data shared by the scenario hooks
type Data struct {
	Val int
}

type action = rowfsm.ActionHook[Data]

type guard = rowfsm.GuardHook[Data]

func setVal(name string, v int) action {
	return rowfsm.NamedAction(name, func(ctx *rowfsm.Context[Data]) error {
		ctx.Data.Val = v
		return nil
	})
}

func noop(name string) action {
	return rowfsm.NamedAction(name, func(*rowfsm.Context[Data]) error { return nil })
}

func constant(name string, result bool) guard {
	return rowfsm.NamedGuard(name, func(*rowfsm.Context[Data]) bool { return result })
}

var (
	action1 = setVal("Action1", 1)
	action2 = noop("Action2")
	setVal1 = setVal("SetVal1", 1)
	setVal2 = setVal("SetVal2", 2)

	guard1 = constant("Guard1", true)
	gTrue  = constant("GTrue", true)
	gFalse = constant("GFalse", false)

	ifGuard = rowfsm.NamedGuard("IfGuard", func(ctx *rowfsm.Context[Data]) bool {
		return ctx.Data.Val == 1
	})

	exceptionAction = rowfsm.NamedAction("ExceptionAction", func(*rowfsm.Context[Data]) error {
		outOfRange()
		return nil
	})

	exceptionGuard = rowfsm.NamedGuard("ExceptionGuard", func(*rowfsm.Context[Data]) bool {
		outOfRange()
		return true
	})
)

var outOfRangeIndex = 2

// outOfRange indexes past the end of a slice, raising a runtime panic
func outOfRange() {
	a := make([]int, 1)
	_ = a[outOfRangeIndex]
}

// failOnEntry panics from its entry hook
type failOnEntry struct {
	rowfsm.BaseState[Data]
}

func (failOnEntry) OnEntry(*rowfsm.Context[Data]) error {
	outOfRange()
	return nil
}

// failOnExit panics from its exit hook
type failOnExit struct {
	rowfsm.BaseState[Data]
}

func (failOnExit) OnExit(*rowfsm.Context[Data]) error {
	outOfRange()
	return nil
}

// Registry exposes the scenario hooks by name for YAML tables
func Registry() *tabledef.Registry[Data] {
	reg := tabledef.NewRegistry[Data]()
	for _, a := range []action{action1, action2, setVal1, setVal2, exceptionAction} {
		reg.Action(rowfsm.HookName(a), a.Execute)
	}
	for _, g := range []guard{guard1, gTrue, gFalse, ifGuard, exceptionGuard} {
		reg.GuardHook(rowfsm.HookName(g), g)
	}
	return reg
}
