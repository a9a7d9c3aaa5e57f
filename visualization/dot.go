package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/rowfsm"
)

// DOTGenerator generates Graphviz DOT format representations of transition tables
type DOTGenerator[C any] struct {
	table   *rowfsm.Table[C]
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowGuardConditions bool
	ShowActions         bool
	// ShowPriorities numbers rows sharing a source and trigger in the order
	// they are evaluated
	ShowPriorities    bool
	RankDirection     string // "TB", "LR", "BT", "RL"
	NodeShape         string
	TransitionStyle   string
	AutomaticStyle    string
	TerminalShape     string
	InitialFillColor  string
	TerminalFillColor string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowGuardConditions: true,
		ShowActions:         true,
		ShowPriorities:      true,
		RankDirection:       "TB",
		NodeShape:           "box",
		TransitionStyle:     "solid",
		AutomaticStyle:      "dashed",
		TerminalShape:       "doublecircle",
		InitialFillColor:    "lightgreen",
		TerminalFillColor:   "lightcoral",
	}
}

// NewDOTGenerator creates a new DOT generator for the given table
func NewDOTGenerator[C any](table *rowfsm.Table[C], options ...DOTOptions) *DOTGenerator[C] {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator[C]{
		table:   table,
		options: opts,
	}
}

// Generate creates a DOT representation of the table
func (g *DOTGenerator[C]) Generate() (string, error) {
	if g.table == nil {
		return "", rowfsm.ErrNilTable
	}

	var dot strings.Builder

	dot.WriteString("digraph StateMachine {\n")
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generateStates(&dot)
	dot.WriteString("\n")
	g.generateTransitions(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generateStates generates DOT nodes for all states in declaration order
func (g *DOTGenerator[C]) generateStates(dot *strings.Builder) {
	initial := g.table.Initial()

	dot.WriteString("  // States\n")
	for _, id := range g.table.States() {
		shape := g.options.NodeShape
		fillColor := "lightblue"
		label := dotEscaper.Replace(string(id))

		if id == initial {
			fillColor = g.options.InitialFillColor
			label += "\\n(initial)"
		}
		if g.table.IsTerminal(id) {
			shape = g.options.TerminalShape
			fillColor = g.options.TerminalFillColor
		}

		fmt.Fprintf(dot, "  %s [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			quote(string(id)), shape, fillColor, label)
	}
}

// generateTransitions generates DOT edges for all rows in declaration order
func (g *DOTGenerator[C]) generateTransitions(dot *strings.Builder) {
	type key struct {
		source  rowfsm.StateID
		trigger rowfsm.EventTag
	}
	seen := make(map[key]int)

	dot.WriteString("  // Transitions\n")
	for _, r := range g.table.Rows() {
		k := key{r.Source, r.Trigger}
		seen[k]++

		priority := 0
		if len(g.table.Candidates(r.Source, r.Trigger)) > 1 {
			priority = seen[k]
		}

		style := g.options.TransitionStyle
		if r.IsAutomatic() {
			style = g.options.AutomaticStyle
		}
		fmt.Fprintf(dot, "  %s -> %s [style=%s label=%s];\n",
			quote(string(r.Source)), quote(string(r.Target)), style, quote(g.edgeLabel(r, priority)))
	}
}

// edgeLabel renders "trigger #priority [guard] / action"; priority 0 is omitted
func (g *DOTGenerator[C]) edgeLabel(r rowfsm.Row[C], priority int) string {
	var label strings.Builder
	label.WriteString(r.Trigger.String())

	if g.options.ShowPriorities && priority > 0 {
		fmt.Fprintf(&label, " #%d", priority)
	}
	if g.options.ShowGuardConditions && r.Guard != nil {
		fmt.Fprintf(&label, " [%s]", rowfsm.HookName(r.Guard))
	}
	if g.options.ShowActions && r.Action != nil {
		fmt.Fprintf(&label, " / %s", rowfsm.HookName(r.Action))
	}
	return label.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote renders s as a DOT string literal
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator[C]) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// GenerateSVG creates an SVG representation by piping the DOT output through
// the Graphviz dot command
func (g *DOTGenerator[C]) GenerateSVG() (string, error) {
	dotContent, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}
