// Package rowfsm provides a table-driven state machine engine.
//
// A Table is an ordered list of rows (source, trigger, target, action, guard)
// over declared states, validated once by BuildTable or the fluent builder.
// A Machine owns the table and user data of type C and dispatches events
// against it:
//
//   - candidate rows for (current state, event) are evaluated in declaration
//     order and the first one whose guard passes fires;
//   - firing runs the source exit hook, the row action and the target entry
//     hook, then commits the target. When any of them fails the firing is
//     rolled back as a unit, the current state is unchanged and the failure is
//     reported to the machine's sinks;
//   - after every committed state, rows triggered by Epsilon are resolved the
//     same way until none is selected, bounded by Table.ChainLimit.
//
// Declaration order is the only precedence rule. An unguarded automatic row
// declared before a guarded one from the same state always wins, so a guarded
// branch meant to take priority must be declared first.
package rowfsm
