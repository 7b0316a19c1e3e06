package ast

import "github.com/tsvm-lang/teascript/internal/value"
import "github.com/tsvm-lang/teascript/internal/context"

// Assignable is implemented by the node kinds legal on the left of a plain
// assign ("Assign ... LHS may be an identifier, a dot-op, or a
// subscript (plain assign only)"). Identifier's assignment goes through
// Context directly (DefineVar/DefineConst/Set/SetShared); Dot and
// Subscript implement this interface so Assign can dispatch uniformly.
type Assignable interface {
	Node
	AssignTo(ctx *context.Context, v value.Value) error
}
