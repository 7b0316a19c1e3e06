// Package ast implements TeaScript's tagged tree of node variants:
// each node carries children, a source location, and an Evaluate(Context)
// contract, shared between AST-eval and the bytecode compiler's lowering
// pass (internal/compiler walks the same tree read-only).
//
// The node-per-file layout follows internal/evaluator's ast.go/*_eval.go,
// and the node catalogue and AddChild rebuild rule follow
// original_source/include/teascript/ASTNode*.hpp, generalized from a
// pure-evaluator tree (no incremental construction) to also support
// precedence-aware incremental append (precedence.go).
package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Node is the contract every AST node satisfies.
type Node interface {
	KindName() string
	Detail() string
	Location() teaerr.SourceLocation
	IsComplete() bool
	AddChild(child Node) error
	Precedence() int
	NeedsLHS() bool
	Evaluate(ctx *context.Context) (value.Value, error)
	Check() error
}

// Base is embedded by every concrete node to carry its source location and
// supply sane zero-value defaults for the parts of Node most nodes don't
// need to override (Precedence/NeedsLHS default to "not an operator").
type Base struct {
	Loc teaerr.SourceLocation
}

func (b Base) Location() teaerr.SourceLocation { return b.Loc }
func (b Base) Precedence() int                 { return 0 }
func (b Base) NeedsLHS() bool                  { return false }
func (b Base) Check() error                    { return nil }

// errAlreadyComplete is returned by AddChild on nodes that accept exactly
// one child slot once it is filled.
func errAlreadyComplete(kind string) error {
	return teaerr.Newf(teaerr.KindCompile, teaerr.SourceLocation{}, "%s node is already complete", kind)
}
