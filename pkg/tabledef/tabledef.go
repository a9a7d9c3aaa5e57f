// Package tabledef reads and writes transition tables as YAML documents.
//
// A document names states, rows and hooks; hooks are resolved against a
// Registry when the table is built:
//
//	name: turnstile
//	initial: Locked
//	states:
//	  - name: Locked
//	    entry: Lock
//	  - name: Unlocked
//	rows:
//	  - {from: Locked, on: coin, to: Unlocked, guard: Paid}
//	  - {from: Unlocked, on: push, to: Locked}
//
// A row without "on" is an automatic row.
package tabledef

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anggasct/rowfsm"
)

// Document is the YAML form of a transition table
type Document struct {
	Name      string     `yaml:"name,omitempty"`
	Initial   string     `yaml:"initial"`
	Terminals []string   `yaml:"terminals,omitempty"`
	MaxChain  int        `yaml:"maxChain,omitempty"`
	States    []StateDef `yaml:"states"`
	Rows      []RowDef   `yaml:"rows"`
	// Events is an optional script of event tags to replay against the table
	Events []string `yaml:"events,omitempty"`
}

// StateDef declares a state and the names of its entry and exit actions
type StateDef struct {
	Name  string `yaml:"name"`
	Entry string `yaml:"entry,omitempty"`
	Exit  string `yaml:"exit,omitempty"`
}

// RowDef declares one row
type RowDef struct {
	From   string `yaml:"from"`
	On     string `yaml:"on,omitempty"`
	To     string `yaml:"to"`
	Guard  string `yaml:"guard,omitempty"`
	Action string `yaml:"action,omitempty"`
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}
	return &doc, nil
}

// Load reads and decodes the YAML document at path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToReadFile, err)
	}
	return Parse(data)
}

// Marshal encodes the document as YAML
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, errors.Join(ErrFailedToEncodeYAML, err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Join(ErrFailedToEncodeYAML, err)
	}
	return buf.Bytes(), nil
}

// EventTags returns the document's event script
func (d *Document) EventTags() []rowfsm.EventTag {
	tags := make([]rowfsm.EventTag, len(d.Events))
	for i, e := range d.Events {
		tags[i] = rowfsm.EventTag(e)
	}
	return tags
}

// Definition resolves the document's hook names against reg
func Definition[C any](doc *Document, reg *Registry[C]) (rowfsm.Definition[C], error) {
	def := rowfsm.Definition[C]{
		Initial:  rowfsm.StateID(doc.Initial),
		MaxChain: doc.MaxChain,
		States:   make([]rowfsm.State[C], 0, len(doc.States)),
		Rows:     make([]rowfsm.Row[C], 0, len(doc.Rows)),
	}
	if err := reg.Err(); err != nil {
		return def, err
	}

	for _, s := range doc.States {
		hook, err := reg.stateHook(s.Entry, s.Exit)
		if err != nil {
			return def, fmt.Errorf("state %q: %w", s.Name, err)
		}
		def.States = append(def.States, rowfsm.NewState(rowfsm.StateID(s.Name), hook))
	}

	for _, id := range doc.Terminals {
		def.Terminals = append(def.Terminals, rowfsm.StateID(id))
	}

	for i, r := range doc.Rows {
		action, err := reg.action(r.Action)
		if err != nil {
			return def, fmt.Errorf("row %d: %w", i, err)
		}
		guard, err := reg.guard(r.Guard)
		if err != nil {
			return def, fmt.Errorf("row %d: %w", i, err)
		}
		def.Rows = append(def.Rows, rowfsm.Row[C]{
			Source:  rowfsm.StateID(r.From),
			Trigger: rowfsm.EventTag(r.On),
			Target:  rowfsm.StateID(r.To),
			Action:  action,
			Guard:   guard,
		})
	}

	return def, nil
}

// Build resolves the document against reg and validates the resulting table
func Build[C any](doc *Document, reg *Registry[C]) (*rowfsm.Table[C], error) {
	def, err := Definition(doc, reg)
	if err != nil {
		return nil, err
	}
	return rowfsm.BuildTable(def)
}

// FromTable describes a table as a document. Rows carry the diagnostic
// names of their hooks; state hooks are not part of a table's public
// surface and are left out.
func FromTable[C any](name string, t *rowfsm.Table[C]) *Document {
	doc := &Document{
		Name:     name,
		Initial:  string(t.Initial()),
		MaxChain: t.ChainLimit(),
	}
	for _, s := range t.States() {
		doc.States = append(doc.States, StateDef{Name: string(s)})
		if t.IsTerminal(s) {
			doc.Terminals = append(doc.Terminals, string(s))
		}
	}
	for _, r := range t.Rows() {
		rd := RowDef{
			From: string(r.Source),
			On:   string(r.Trigger),
			To:   string(r.Target),
		}
		if r.Guard != nil {
			rd.Guard = rowfsm.HookName(r.Guard)
		}
		if r.Action != nil {
			rd.Action = rowfsm.HookName(r.Action)
		}
		doc.Rows = append(doc.Rows, rd)
	}
	return doc
}
