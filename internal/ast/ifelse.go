package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// If implements "If / Else": Else may itself be another If node for
// `else if` chains. Condition and Then/Else share one scope bracket
// ("every if (around both condition and body, collectively)").
type If struct {
	Base
	Condition Node
	Then      Node
	Else      Node // nil, *If (else-if), or any Node (else block)
}

func NewIf(loc teaerr.SourceLocation) *If {
	return &If{Base: Base{Loc: loc}}
}

func (n *If) KindName() string { return "If" }
func (n *If) Detail() string   { return "" }
func (n *If) IsComplete() bool { return n.Condition != nil && n.Then != nil }

func (n *If) AddChild(child Node) error {
	if n.Condition == nil {
		n.Condition = child
		return nil
	}
	if n.Then == nil {
		n.Then = child
		return nil
	}
	if n.Else == nil {
		n.Else = child
		return nil
	}
	return errAlreadyComplete("If")
}

func (n *If) Evaluate(ctx *context.Context) (value.Value, error) {
	ctx.EnterScope()
	defer ctx.ExitScope()

	cv, err := n.Condition.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	cond, ok := cv.Bool()
	if !ok {
		return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "if condition must be Bool")
	}
	if cond {
		return n.Then.Evaluate(ctx)
	}
	if n.Else != nil {
		return n.Else.Evaluate(ctx)
	}
	return value.NaV(), nil
}
