package rowfsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Creation(t *testing.T) {
	ev := NewEvent("start")

	assert.Equal(t, EventTag("start"), ev.Tag)
	assert.Nil(t, ev.Data)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.False(t, ev.IsAutomatic())

	other := NewEvent("start")
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestEvent_WithData(t *testing.T) {
	payload := map[string]int{"retries": 3}
	ev := NewEventWithData("retry", payload)

	assert.Equal(t, EventTag("retry"), ev.Tag)
	assert.Equal(t, payload, ev.Data)
}

func TestEvent_Automatic(t *testing.T) {
	ev := automaticEvent()

	assert.True(t, ev.IsAutomatic())
	assert.Empty(t, ev.ID)
	assert.Equal(t, "ε", ev.Tag.String())
	assert.Equal(t, "tick", EventTag("tick").String())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "transitioned", OutcomeTransitioned.String())
	assert.Equal(t, "no-transition", OutcomeNoTransition.String())
	assert.Equal(t, "rolled-back", OutcomeRolledBack.String())
	assert.Equal(t, "dropped", OutcomeDropped.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestEventResult_StateChanged(t *testing.T) {
	for outcome, want := range map[Outcome]bool{
		OutcomeTransitioned: true,
		OutcomeNoTransition: false,
		OutcomeRolledBack:   false,
		OutcomeDropped:      false,
	} {
		r := &EventResult{Outcome: outcome}
		assert.Equal(t, want, r.StateChanged(), outcome.String())
	}
}
