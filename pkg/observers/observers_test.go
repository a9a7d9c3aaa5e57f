package observers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anggasct/rowfsm"
)

type counter struct {
	N int
}

var errBroken = errors.New("broken")

// newTurnstile builds Locked <-> Unlocked with a failing "kick" action and a
// Broken terminal state
func newTurnstile(t *testing.T) *rowfsm.Table[counter] {
	t.Helper()

	table, err := rowfsm.NewBuilder[counter]().
		State("Locked").Initial().
		To("Unlocked").On("coin").Guard(rowfsm.NamedGuard("HasCoin", func(*rowfsm.Context[counter]) bool { return true })).
		Action(rowfsm.NamedAction("Count", func(ctx *rowfsm.Context[counter]) error {
			ctx.Data.N++
			return nil
		})).
		To("Unlocked").On("kick").Action(rowfsm.NamedAction("Kick", func(*rowfsm.Context[counter]) error { return errBroken })).
		To("Broken").On("smash").
		State("Unlocked").
		To("Locked").On("push").
		State("Broken").Terminal().
		Build()
	require.NoError(t, err)
	return table
}

func run(t *testing.T, table *rowfsm.Table[counter], obs rowfsm.Observer, tags ...rowfsm.EventTag) *rowfsm.Machine[counter] {
	t.Helper()

	m, err := rowfsm.NewMachine(table, &counter{}, rowfsm.WithObserver[counter](obs), rowfsm.WithName[counter]("turnstile"))
	require.NoError(t, err)
	require.NoError(t, m.Start())
	for _, tag := range tags {
		_, _ = m.ProcessEvent(rowfsm.NewEvent(tag))
	}
	return m
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		rec := map[string]any{}
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	return records
}

func TestLoggingObserver_Trace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	run(t, newTurnstile(t), NewLoggingObserver(logger, slog.LevelInfo), "coin")

	var msgs []string
	records := decodeRecords(t, &buf)
	for _, rec := range records {
		msgs = append(msgs, rec["msg"].(string))
	}
	assert.Equal(t, []string{
		"entering state",
		"transition",
		"guard evaluated",
		"leaving state",
		"action executed",
		"entering state",
		"transition",
	}, msgs)

	guard := records[2]
	assert.Equal(t, "DEBUG", guard["level"])
	assert.Equal(t, "HasCoin", guard["guard"])
	assert.Equal(t, true, guard["result"])
	assert.Equal(t, "coin", guard["event"])
	assert.Equal(t, "turnstile", guard["machine"])
	assert.NotEmpty(t, guard["event_id"])

	last := records[len(records)-1]
	assert.Equal(t, "INFO", last["level"])
	assert.Equal(t, "Locked", last["from"])
	assert.Equal(t, "Unlocked", last["to"])
	assert.Equal(t, "rowfsm", last["component"])
}

func TestLoggingObserver_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	run(t, newTurnstile(t), NewLoggingObserver(logger, slog.LevelInfo), "push", "kick", "smash", "coin")

	records := decodeRecords(t, &buf)
	require.Len(t, records, 3)

	assert.Equal(t, "no transition", records[0]["msg"])
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, "Locked", records[0]["state"])
	assert.Equal(t, "push", records[0]["event"])

	assert.Equal(t, "transition failed", records[1]["msg"])
	assert.Equal(t, "ERROR", records[1]["level"])
	assert.Equal(t, "action", records[1]["step"])
	assert.Equal(t, "Kick", records[1]["hook"])
	assert.Equal(t, "broken", records[1]["error"])

	assert.Equal(t, "event dropped", records[2]["msg"])
	assert.Equal(t, "Broken", records[2]["state"])
	assert.Equal(t, "machine terminated", records[2]["reason"])
}

func TestLoggingObserver_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	obs := NewLoggingObserver(logger, slog.LevelInfo)
	obs.SetLevel(slog.LevelDebug)
	run(t, newTurnstile(t), obs, "coin")

	assert.Empty(t, decodeRecords(t, &buf))
}

func TestDefaultLoggingObserver(t *testing.T) {
	obs := NewDefaultLoggingObserver()
	assert.Equal(t, slog.LevelInfo, obs.traceLevel())
}

func TestMetricsObserver_Counts(t *testing.T) {
	obs := NewMetricsObserver("test")
	m := run(t, newTurnstile(t), obs, "coin", "push", "coin", "coin", "push", "kick", "smash", "coin")

	assert.True(t, m.IsTerminated())
	assert.Equal(t, 2, m.Data().N)

	assert.Equal(t, float64(1), testutil.ToFloat64(obs.transitions.WithLabelValues("", "Locked", "ε")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.transitions.WithLabelValues("Locked", "Unlocked", "coin")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.transitions.WithLabelValues("Unlocked", "Locked", "push")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.transitions.WithLabelValues("Locked", "Broken", "smash")))

	assert.Equal(t, float64(3), testutil.ToFloat64(obs.stateVisits.WithLabelValues("Locked")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.guards.WithLabelValues("HasCoin", "true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.actions.WithLabelValues("Count")))

	assert.Equal(t, float64(1), testutil.ToFloat64(obs.noTransitions.WithLabelValues("Unlocked", "coin")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.failures.WithLabelValues("action")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.dropped.WithLabelValues("Broken")))
}

func TestMetricsObserver_StateDuration(t *testing.T) {
	obs := NewMetricsObserver("")
	clock := time.Unix(0, 0)
	obs.now = func() time.Time { return clock }

	m, err := rowfsm.NewMachine(newTurnstile(t), &counter{}, rowfsm.WithObserver[counter](obs))
	require.NoError(t, err)
	require.NoError(t, m.Start())

	// the rolled back kick leaves Locked only on paper
	clock = clock.Add(2 * time.Second)
	result, err := m.ProcessEvent(rowfsm.NewEvent("kick"))
	require.NoError(t, err)
	require.Equal(t, rowfsm.OutcomeRolledBack, result.Outcome)

	clock = clock.Add(3 * time.Second)
	_, err = m.ProcessEvent(rowfsm.NewEvent("coin"))
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(obs.stateTime))

	var metric dto.Metric
	require.NoError(t, obs.stateTime.WithLabelValues("Locked").(prometheus.Metric).Write(&metric))
	assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
	assert.Equal(t, 5.0, metric.GetHistogram().GetSampleSum())
}

func TestMetricsObserver_StateDurationPerMachine(t *testing.T) {
	obs := NewMetricsObserver("")
	clock := time.Unix(0, 0)
	obs.now = func() time.Time { return clock }

	obs.OnStateEnter("m1", "A", rowfsm.Event{})
	obs.OnTransition("m1", rowfsm.NoState, "A", rowfsm.Event{})
	clock = clock.Add(2 * time.Second)

	// m2 never entered A, so its transition observes nothing
	obs.OnTransition("m2", "A", "B", rowfsm.Event{})
	assert.Equal(t, 0, testutil.CollectAndCount(obs.stateTime))

	obs.OnStateExit("m1", "A", rowfsm.Event{})
	obs.OnStateEnter("m1", "B", rowfsm.Event{})
	obs.OnTransition("m1", "A", "B", rowfsm.Event{})
	assert.Equal(t, 1, testutil.CollectAndCount(obs.stateTime))
}

func TestMetricsObserver_Registry(t *testing.T) {
	obs := NewMetricsObserver("rowfsm")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(obs))

	run(t, newTurnstile(t), obs, "coin")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["rowfsm_statemachine_transitions_total"])
	assert.True(t, names["rowfsm_statemachine_state_visits_total"])

	obs.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(obs.transitions))
}

func TestValidationObserver_Table(t *testing.T) {
	table := newTurnstile(t)
	obs := NewTableValidationObserver(table)

	run(t, table, obs, "coin", "push")

	assert.False(t, obs.HasViolations())
	assert.Equal(t, []rowfsm.StateID{"Broken"}, obs.UnvisitedStates())

	obs.Reset()
	run(t, table, obs, "kick")
	require.True(t, obs.HasViolations())
	assert.Contains(t, obs.Violations()[0], "action hook Kick failed")
}

func TestValidationObserver_DisallowedTransition(t *testing.T) {
	obs := NewValidationObserver()
	obs.AddAllowedTransition("A", "B")
	obs.AddExpectedState("A")

	obs.OnStateEnter("m", "A", rowfsm.Event{})
	obs.OnTransition("m", "A", "C", rowfsm.NewEvent("go"))
	obs.OnTransition("m", "X", "Y", rowfsm.NewEvent("go"))

	assert.Equal(t, []string{"invalid transition from 'A' to 'C' on event 'go'"}, obs.Violations())
	assert.Empty(t, obs.UnvisitedStates())
}
