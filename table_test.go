package rowfsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func states(ids ...StateID) []State[testData] {
	out := make([]State[testData], len(ids))
	for i, id := range ids {
		out[i] = NewState[testData](id, nil)
	}
	return out
}

func TestBuildTable_Validation(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition[testData]
		issue string
	}{
		{
			name:  "empty state id",
			def:   Definition[testData]{States: states("A", ""), Initial: "A"},
			issue: "state with empty id",
		},
		{
			name:  "duplicate state",
			def:   Definition[testData]{States: states("A", "A"), Initial: "A"},
			issue: "state 'A' declared twice",
		},
		{
			name:  "no initial state",
			def:   Definition[testData]{States: states("A")},
			issue: "no initial state defined",
		},
		{
			name:  "undeclared initial state",
			def:   Definition[testData]{States: states("A"), Initial: "B"},
			issue: "initial state 'B' is not declared",
		},
		{
			name:  "undeclared terminal",
			def:   Definition[testData]{States: states("A"), Initial: "A", Terminals: []StateID{"Z"}},
			issue: "terminal state 'Z' is not declared",
		},
		{
			name: "undeclared source",
			def: Definition[testData]{
				States:  states("A"),
				Initial: "A",
				Rows:    []Row[testData]{NewRow[testData]("X", "go", "A")},
			},
			issue: "row 0: source state 'X' is not declared",
		},
		{
			name: "undeclared target",
			def: Definition[testData]{
				States:  states("A"),
				Initial: "A",
				Rows: []Row[testData]{
					NewRow[testData]("A", "go", "A"),
					NewRow[testData]("A", "go", "Y"),
				},
			},
			issue: "row 1: target state 'Y' is not declared",
		},
		{
			name: "automatic self loop",
			def: Definition[testData]{
				States:  states("A"),
				Initial: "A",
				Rows:    []Row[testData]{Auto("A", "A", WithGuard(Always[testData]()))},
			},
			issue: "row 0: automatic transition from 'A' to itself",
		},
		{
			name: "row leaving a terminal",
			def: Definition[testData]{
				States:    states("A", "End"),
				Initial:   "A",
				Terminals: []StateID{"End"},
				Rows:      []Row[testData]{NewRow[testData]("End", "go", "A")},
			},
			issue: "row 0: terminal state 'End' has an outgoing transition",
		},
		{
			name:  "negative chain bound",
			def:   Definition[testData]{States: states("A"), Initial: "A", MaxChain: -1},
			issue: "negative automatic chain bound -1",
		},
		{
			name: "unconditional automatic cycle",
			def: Definition[testData]{
				States:  states("A", "B", "C"),
				Initial: "A",
				Rows: []Row[testData]{
					Auto[testData]("A", "B"),
					Auto[testData]("B", "C"),
					Auto[testData]("C", "B"),
				},
			},
			issue: "unconditional automatic cycle B -> C -> B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := BuildTable(tt.def)

			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, IsConfigurationError(err))
			assert.Equal(t, ErrCodeInvalidConfiguration, GetErrorCode(err))

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "Table", cfgErr.Component)
			assert.Equal(t, tt.issue, cfgErr.Issue)
		})
	}
}

func TestBuildTable_GuardedCyclesAreAccepted(t *testing.T) {
	table, err := BuildTable(Definition[testData]{
		States:  states("A", "B"),
		Initial: "A",
		Rows: []Row[testData]{
			Auto("A", "B", WithGuard(Always[testData]())),
			Auto[testData]("B", "A"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2*DefaultChainFactor, table.ChainLimit())
}

func TestBuildTable_UnguardedRowBehindGuardedOne(t *testing.T) {
	// only the first automatic row of a state is forced
	_, err := BuildTable(Definition[testData]{
		States:  states("A", "B"),
		Initial: "A",
		Rows: []Row[testData]{
			Auto("A", "B", WithGuard(Never[testData]())),
			Auto[testData]("A", "B"),
			Auto[testData]("B", "A"),
		},
	})
	assert.NoError(t, err)
}

func TestTable_Candidates(t *testing.T) {
	table := NewBuilder[testData]().
		State("A").Initial().
		To("B").On("go").When(func(*Context[testData]) bool { return false }).
		To("C").On("go").
		To("B").On("other").
		Auto("C").When(func(*Context[testData]) bool { return false }).
		State("B").
		State("C").
		MustBuild()

	goRows := table.Candidates("A", "go")
	require.Len(t, goRows, 2)
	assert.Equal(t, StateID("B"), goRows[0].Target)
	assert.Equal(t, StateID("C"), goRows[1].Target)

	autoRows := table.Candidates("A", Epsilon)
	require.Len(t, autoRows, 1)
	assert.True(t, autoRows[0].IsAutomatic())

	assert.Empty(t, table.Candidates("A", "missing"))
	assert.Empty(t, table.Candidates("B", "go"))
	assert.Empty(t, table.Candidates("Nope", "go"))
}

func TestTable_CandidatesDoNotAllocate(t *testing.T) {
	table := newFullTable(t)

	allocs := testing.AllocsPerRun(100, func() {
		_ = table.Candidates("State1", "Event1")
		_ = table.Candidates("State1", "Unknown")
	})
	assert.Zero(t, allocs)
}

func TestTable_Accessors(t *testing.T) {
	table := newFullTable(t)

	assert.Equal(t, StateID("Init"), table.Initial())
	assert.Equal(t, []StateID{"Init", "State1", "State2", "Terminal"}, table.States())
	assert.True(t, table.HasState("State2"))
	assert.False(t, table.HasState("State9"))
	assert.True(t, table.IsTerminal("Terminal"))
	assert.False(t, table.IsTerminal("State1"))
	assert.Equal(t, 4*DefaultChainFactor, table.ChainLimit())

	rows := table.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Init --ε--> State1", rows[0].String())

	// the returned slices are copies
	rows[0].Target = "State2"
	ids := table.States()
	ids[0] = "Mutated"
	assert.Equal(t, StateID("State1"), table.Rows()[0].Target)
	assert.Equal(t, StateID("Init"), table.States()[0])
}

func TestTable_ExplicitChainBound(t *testing.T) {
	table := NewBuilder[testData]().
		State("A").Initial().
		MaxChain(7).
		MustBuild()

	assert.Equal(t, 7, table.ChainLimit())
}

func TestTable_DefinitionIsCopied(t *testing.T) {
	def := Definition[testData]{
		States:  states("A", "B"),
		Initial: "A",
		Rows:    []Row[testData]{NewRow[testData]("A", "go", "B")},
	}
	table, err := BuildTable(def)
	require.NoError(t, err)

	def.Rows[0].Target = "A"
	assert.Equal(t, StateID("B"), table.Candidates("A", "go")[0].Target)
}

func TestMustBuildTable_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustBuildTable(Definition[testData]{})
	})
}
