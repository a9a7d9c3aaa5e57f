// Package scenarios holds the demonstration tables run by rowfsm-demo
package scenarios

import (
	"fmt"
	"sort"

	"github.com/anggasct/rowfsm"
)

// Scenario is a table together with the events replayed against it and the
// state the machine is expected to end in
type Scenario struct {
	Name       string
	Table      *rowfsm.Table[Data]
	Events     []rowfsm.EventTag
	Final      rowfsm.StateID
	Terminated bool
}

var constructors = map[string]func() Scenario{
	"simple":    Simple,
	"general":   General,
	"full":      Full,
	"ifelse":    IfElse,
	"exception": Exception,
}

// Names returns the scenario names in sorted order
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the named scenario
func ByName(name string) (Scenario, error) {
	ctor, ok := constructors[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (available: %v)", name, Names())
	}
	return ctor(), nil
}

// Simple is a single transition into a terminal state
func Simple() Scenario {
	return Scenario{
		Name: "simple",
		Table: rowfsm.MustBuildTable(rowfsm.Definition[Data]{
			States: []rowfsm.State[Data]{
				rowfsm.NewState[Data]("State1", nil),
				rowfsm.NewState[Data]("End", nil),
			},
			Rows: []rowfsm.Row[Data]{
				rowfsm.NewRow[Data]("State1", "Event1", "End"),
			},
			Initial:   "State1",
			Terminals: []rowfsm.StateID{"End"},
		}),
		Events:     []rowfsm.EventTag{"Event1"},
		Final:      "End",
		Terminated: true,
	}
}

// General is Simple with entry and exit hooks on every state
func General() Scenario {
	return Scenario{
		Name: "general",
		Table: rowfsm.NewBuilder[Data]().
			State("State1").Initial().
			OnEntry(prepare).OnExit(clean).
			To("End").On("Event1").
			State("End").Terminal().
			OnEntry(prepare).OnExit(clean).
			MustBuild(),
		Events:     []rowfsm.EventTag{"Event1"},
		Final:      "End",
		Terminated: true,
	}
}

// Full chains from Init automatically and takes a guarded row with an action
func Full() Scenario {
	return Scenario{
		Name: "full",
		Table: rowfsm.NewBuilder[Data]().
			State("Init").Initial().Auto("State1").
			State("State1").To("State2").On("Event1").Guard(guard1).Action(action1).
			State("State2").To("End").On("Event2").Action(action2).
			State("End").Terminal().
			MustBuild(),
		Events:     []rowfsm.EventTag{"Event1", "Event2"},
		Final:      "End",
		Terminated: true,
	}
}

// IfElse branches through automatic rows. The unguarded else branch is
// declared first and therefore always wins.
func IfElse() Scenario {
	return Scenario{
		Name: "ifelse",
		Table: rowfsm.NewBuilder[Data]().
			State("Init").Initial().
			To("State1").On("Event1").Action(setVal1).
			To("State1").On("Event2").Action(setVal2).
			State("State1").
			Auto("ElseState").
			Auto("IfState").Guard(ifGuard).
			State("State2").
			State("IfState").Auto("Init").
			State("ElseState").Auto("Init").
			MustBuild(),
		Events: []rowfsm.EventTag{"Event1", "Event2"},
		Final:  "Init",
	}
}

// Exception fires rows whose hooks panic at every step of a firing
func Exception() Scenario {
	return Scenario{
		Name: "exception",
		Table: rowfsm.MustBuildTable(rowfsm.Definition[Data]{
			States: []rowfsm.State[Data]{
				rowfsm.NewState[Data]("State1", nil),
				rowfsm.NewState[Data]("State2", nil),
				rowfsm.NewState[Data]("Init", nil),
				rowfsm.NewState[Data]("End", nil),
				rowfsm.NewState[Data]("ExceptionOnEntry", failOnEntry{}),
				rowfsm.NewState[Data]("ExceptionOnExit", failOnExit{}),
			},
			Rows: []rowfsm.Row[Data]{
				rowfsm.Auto[Data]("Init", "State1"),
				rowfsm.NewRow("State1", "Event1", "ExceptionOnEntry", rowfsm.WithAction(action1), rowfsm.WithGuard(gTrue)),
				rowfsm.NewRow("State1", "Event2", "State2", rowfsm.WithAction(exceptionAction), rowfsm.WithGuard(gTrue)),
				rowfsm.NewRow("State1", "Event3", "State2", rowfsm.WithAction(action1), rowfsm.WithGuard(exceptionGuard)),
				rowfsm.NewRow("State1", "Event4", "ExceptionOnExit", rowfsm.WithAction(action1), rowfsm.WithGuard(gTrue)),
				rowfsm.NewRow("ExceptionOnExit", "Event5", "State1", rowfsm.WithAction(action1), rowfsm.WithGuard(gTrue)),
			},
			Initial:   "Init",
			Terminals: []rowfsm.StateID{"End"},
		}),
		Events: []rowfsm.EventTag{"Event1", "Event2", "Event3", "Event4", "Event5", "Event1"},
		Final:  "ExceptionOnExit",
	}
}

func prepare(*rowfsm.Context[Data]) error { return nil }

func clean(*rowfsm.Context[Data]) error { return nil }

// Run starts a machine over the scenario's table and replays its events. The
// results of every ProcessEvent call are returned; errors returned by a
// terminated machine are expected and not reported.
func Run(s Scenario, opts ...rowfsm.MachineOption[Data]) (*rowfsm.Machine[Data], []*rowfsm.EventResult, error) {
	m, err := rowfsm.NewMachine(s.Table, &Data{}, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Start(); err != nil {
		return m, nil, fmt.Errorf("starting scenario %s: %w", s.Name, err)
	}

	results := make([]*rowfsm.EventResult, 0, len(s.Events))
	for _, tag := range s.Events {
		result, err := m.ProcessEvent(rowfsm.NewEvent(tag))
		if err != nil && rowfsm.GetErrorCode(err) != rowfsm.ErrCodeMachineTerminated {
			return m, results, fmt.Errorf("scenario %s, event %s: %w", s.Name, tag, err)
		}
		results = append(results, result)
	}
	return m, results, nil
}
