package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Constant holds a Value verbatim ("Constant").
type Constant struct {
	Base
	Val value.Value
}

func NewConstant(loc teaerr.SourceLocation, v value.Value) *Constant {
	return &Constant{Base: Base{Loc: loc}, Val: v}
}

func (c *Constant) KindName() string { return "Constant" }
func (c *Constant) Detail() string   { return c.Val.String() }
func (c *Constant) IsComplete() bool { return true }

func (c *Constant) AddChild(Node) error { return errAlreadyComplete("Constant") }

func (c *Constant) Evaluate(ctx *context.Context) (value.Value, error) {
	return c.Val, nil
}
