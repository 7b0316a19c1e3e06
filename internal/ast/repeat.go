package ast

import (
	"errors"

	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Repeat is an unbounded loop whose body establishes a new scope per
// iteration, terminated by a matching `stop` or an escaping exception
// ("Repeat").
type Repeat struct {
	Base
	Label string
	Body  Node
}

func NewRepeat(loc teaerr.SourceLocation, label string) *Repeat {
	return &Repeat{Base: Base{Loc: loc}, Label: label}
}

func (n *Repeat) KindName() string { return "Repeat" }
func (n *Repeat) Detail() string   { return n.Label }
func (n *Repeat) IsComplete() bool { return n.Body != nil }

func (n *Repeat) AddChild(child Node) error {
	if n.Body != nil {
		return errAlreadyComplete("Repeat")
	}
	n.Body = child
	return nil
}

func (n *Repeat) Evaluate(ctx *context.Context) (value.Value, error) {
	for {
		ctx.EnterScope()
		_, err := n.Body.Evaluate(ctx)
		ctx.ExitScope()

		if err == nil {
			continue
		}

		var stop *StopLoop
		if errors.As(err, &stop) {
			if matchesLoop(stop.Label, n.Label) {
				return stop.Result, nil
			}
			return value.Value{}, err
		}

		var loop *LoopToHead
		if errors.As(err, &loop) {
			if matchesLoop(loop.Label, n.Label) {
				continue
			}
			return value.Value{}, err
		}

		return value.Value{}, err
	}
}
