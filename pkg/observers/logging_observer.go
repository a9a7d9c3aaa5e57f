// Package observers provides observers for monitoring state machine events
package observers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/anggasct/rowfsm"
)

// LoggingObserver writes the trace and the diagnostics of a machine to a
// slog.Logger. Trace records are emitted at the configured level; guard
// evaluations one level below it. No-transition and dropped-event reports
// are warnings and hook failures are errors.
type LoggingObserver struct {
	logger *slog.Logger
	level  slog.Level
	mutex  sync.RWMutex
}

var _ rowfsm.Observer = (*LoggingObserver)(nil)

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *slog.Logger, level slog.Level) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{
		logger: logger.With(slog.String("component", "rowfsm")),
		level:  level,
	}
}

// SetLevel changes the level trace records are emitted at
func (o *LoggingObserver) SetLevel(level slog.Level) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.level = level
}

func (o *LoggingObserver) traceLevel() slog.Level {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.level
}

func (o *LoggingObserver) log(level slog.Level, msg string, attrs ...slog.Attr) {
	o.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func eventAttrs(machine string, ev rowfsm.Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("machine", machine),
		slog.String("event", ev.Tag.String()),
	}
	if ev.ID != "" {
		attrs = append(attrs, slog.String("event_id", ev.ID))
	}
	return attrs
}

// OnStateEnter logs state entry
func (o *LoggingObserver) OnStateEnter(machine string, state rowfsm.StateID, ev rowfsm.Event) {
	o.log(o.traceLevel(), "entering state",
		append(eventAttrs(machine, ev), slog.String("state", string(state)))...)
}

// OnStateExit logs state exit
func (o *LoggingObserver) OnStateExit(machine string, state rowfsm.StateID, ev rowfsm.Event) {
	o.log(o.traceLevel(), "leaving state",
		append(eventAttrs(machine, ev), slog.String("state", string(state)))...)
}

// OnGuardEvaluation logs guard results
func (o *LoggingObserver) OnGuardEvaluation(machine string, from, to rowfsm.StateID, ev rowfsm.Event, guard string, result bool) {
	o.log(o.traceLevel()-4, "guard evaluated",
		append(eventAttrs(machine, ev),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("guard", guard),
			slog.Bool("result", result),
		)...)
}

// OnActionExecution logs executed actions
func (o *LoggingObserver) OnActionExecution(machine string, from, to rowfsm.StateID, ev rowfsm.Event, action string) {
	o.log(o.traceLevel(), "action executed",
		append(eventAttrs(machine, ev),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("action", action),
		)...)
}

// OnTransition logs committed transitions
func (o *LoggingObserver) OnTransition(machine string, from, to rowfsm.StateID, ev rowfsm.Event) {
	o.log(o.traceLevel(), "transition",
		append(eventAttrs(machine, ev),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)...)
}

// Report logs a diagnostic
func (o *LoggingObserver) Report(d rowfsm.Diagnostic) {
	switch d := d.(type) {
	case rowfsm.NoTransition:
		o.log(slog.LevelWarn, "no transition",
			slog.String("state", string(d.State)),
			slog.String("event", d.Event.Tag.String()),
		)
	case rowfsm.TransitionFailed:
		o.log(slog.LevelError, "transition failed",
			slog.String("step", d.Step.String()),
			slog.String("hook", d.Hook),
			slog.String("from", string(d.From)),
			slog.String("to", string(d.To)),
			slog.String("event", d.Trigger.String()),
			slog.Any("error", d.Cause),
		)
	case rowfsm.EventDropped:
		o.log(slog.LevelWarn, "event dropped",
			slog.String("state", string(d.State)),
			slog.String("event", d.Event.Tag.String()),
			slog.String("reason", d.Reason),
		)
	}
}
