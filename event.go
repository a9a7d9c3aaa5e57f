package rowfsm

import (
	"time"

	"github.com/google/uuid"
)

// EventTag identifies an external event kind, or the Epsilon trigger
type EventTag string

// Epsilon is the trigger of automatic transitions. It never matches an
// external event and external events may not carry it.
const Epsilon EventTag = ""

// String returns the tag, rendering Epsilon as "ε"
func (t EventTag) String() string {
	if t == Epsilon {
		return "ε"
	}
	return string(t)
}

// Event is a single occurrence of an EventTag delivered to a machine
type Event struct {
	Tag       EventTag
	Data      any
	ID        string
	Timestamp time.Time
}

// NewEvent creates a new event with the given tag
func NewEvent(tag EventTag) Event {
	return Event{
		Tag:       tag,
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}
}

// NewEventWithData creates a new event carrying a payload
func NewEventWithData(tag EventTag, data any) Event {
	ev := NewEvent(tag)
	ev.Data = data
	return ev
}

// IsAutomatic reports whether the event is the synthetic Epsilon event used
// for the initial entry and for automatic transitions
func (e Event) IsAutomatic() bool {
	return e.Tag == Epsilon
}

// automaticEvent is handed to hooks run by Start and by epsilon chaining
func automaticEvent() Event {
	return Event{Tag: Epsilon, Timestamp: time.Now()}
}

// Outcome classifies what ProcessEvent did with an event
type Outcome int

const (
	// OutcomeTransitioned means a row fired and its target was committed
	OutcomeTransitioned Outcome = iota
	// OutcomeNoTransition means no row matched, or every guard rejected
	OutcomeNoTransition
	// OutcomeRolledBack means a hook failed and the firing was undone
	OutcomeRolledBack
	// OutcomeDropped means the machine was terminated and ignored the event
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTransitioned:
		return "transitioned"
	case OutcomeNoTransition:
		return "no-transition"
	case OutcomeRolledBack:
		return "rolled-back"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// EventResult represents the result of processing an event
type EventResult struct {
	Event         Event
	Outcome       Outcome
	PreviousState StateID
	CurrentState  StateID
	// Automatic counts the epsilon transitions fired after the event's own row
	Automatic int
}

// StateChanged returns true if a transition was committed. Self-transitions
// count since their exit and entry hooks ran.
func (r *EventResult) StateChanged() bool {
	return r.Outcome == OutcomeTransitioned
}
