package rowfsm

// Context is handed to every hook invocation. Data is the user-owned state
// shared by all hooks of a machine; the remaining fields describe the
// transition being attempted. Machine is the machine's name, its ID unless
// WithName was given.
type Context[C any] struct {
	Data    *C
	Event   Event
	Source  StateID
	Target  StateID
	Machine string
}

func newContext[C any](m *Machine[C], ev Event, source, target StateID) *Context[C] {
	return &Context[C]{
		Data:    m.data,
		Event:   ev,
		Source:  source,
		Target:  target,
		Machine: m.name,
	}
}

// EventTag returns the tag of the event being processed
func (ctx *Context[C]) EventTag() EventTag {
	return ctx.Event.Tag
}

// EventData returns the payload of the event being processed
func (ctx *Context[C]) EventData() any {
	return ctx.Event.Data
}

// IsAutomatic reports whether the hook runs for an automatic transition or
// for the initial entry
func (ctx *Context[C]) IsAutomatic() bool {
	return ctx.Event.IsAutomatic()
}
