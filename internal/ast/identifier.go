package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Identifier resolves a name in the Context ("Identifier").
type Identifier struct {
	Base
	Name string
}

func NewIdentifier(loc teaerr.SourceLocation, name string) *Identifier {
	return &Identifier{Base: Base{Loc: loc}, Name: name}
}

func (n *Identifier) KindName() string { return "Identifier" }
func (n *Identifier) Detail() string   { return n.Name }
func (n *Identifier) IsComplete() bool { return true }

func (n *Identifier) AddChild(Node) error { return errAlreadyComplete("Identifier") }

func (n *Identifier) Evaluate(ctx *context.Context) (value.Value, error) {
	return ctx.Get(n.Name)
}
