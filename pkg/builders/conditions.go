// Package builders provides reusable guard and action helpers for rowfsm tables
package builders

import (
	"log/slog"

	"github.com/anggasct/rowfsm"
)

// IfEventDataEquals creates a guard that checks the event payload against value
func IfEventDataEquals[C any](value any) rowfsm.GuardFunc[C] {
	return func(ctx *rowfsm.Context[C]) bool {
		return ctx.EventData() == value
	}
}

// IfData creates a guard over the machine's user data
func IfData[C any](pred func(*C) bool) rowfsm.GuardFunc[C] {
	return func(ctx *rowfsm.Context[C]) bool {
		return pred(ctx.Data)
	}
}

// Not negates a guard
func Not[C any](g rowfsm.GuardFunc[C]) rowfsm.GuardFunc[C] {
	return func(ctx *rowfsm.Context[C]) bool {
		return !g(ctx)
	}
}

// All passes when every guard passes. Evaluation stops at the first rejection.
func All[C any](guards ...rowfsm.GuardFunc[C]) rowfsm.GuardFunc[C] {
	return func(ctx *rowfsm.Context[C]) bool {
		for _, g := range guards {
			if !g(ctx) {
				return false
			}
		}
		return true
	}
}

// Any passes when at least one guard passes
func Any[C any](guards ...rowfsm.GuardFunc[C]) rowfsm.GuardFunc[C] {
	return func(ctx *rowfsm.Context[C]) bool {
		for _, g := range guards {
			if g(ctx) {
				return true
			}
		}
		return false
	}
}

// Sequence runs actions in order and returns the first error
func Sequence[C any](actions ...rowfsm.ActionFunc[C]) rowfsm.ActionFunc[C] {
	return func(ctx *rowfsm.Context[C]) error {
		for _, a := range actions {
			if err := a(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Update creates an action that mutates the user data
func Update[C any](fn func(*C)) rowfsm.ActionFunc[C] {
	return func(ctx *rowfsm.Context[C]) error {
		fn(ctx.Data)
		return nil
	}
}

// LogMessage creates an action that logs message with the firing row
func LogMessage[C any](logger *slog.Logger, message string) rowfsm.ActionFunc[C] {
	return func(ctx *rowfsm.Context[C]) error {
		logger.Info(message,
			slog.String("machine", ctx.Machine),
			slog.String("from", string(ctx.Source)),
			slog.String("to", string(ctx.Target)),
			slog.String("event", ctx.EventTag().String()))
		return nil
	}
}
