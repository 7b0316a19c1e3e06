package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Loop raises LoopToHead, restarting the nearest matching Repeat/Forall.
type Loop struct {
	Base
	Label string
}

func NewLoop(loc teaerr.SourceLocation, label string) *Loop {
	return &Loop{Base: Base{Loc: loc}, Label: label}
}

func (n *Loop) KindName() string         { return "Loop" }
func (n *Loop) Detail() string           { return n.Label }
func (n *Loop) IsComplete() bool         { return true }
func (n *Loop) AddChild(Node) error      { return errAlreadyComplete("Loop") }
func (n *Loop) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.Value{}, &LoopToHead{Label: n.Label}
}

// Stop raises StopLoop, carrying an optional result expression's value.
type Stop struct {
	Base
	Label  string
	Result Node
}

func NewStop(loc teaerr.SourceLocation, label string) *Stop {
	return &Stop{Base: Base{Loc: loc}, Label: label}
}

func (n *Stop) KindName() string { return "Stop" }
func (n *Stop) Detail() string   { return n.Label }
func (n *Stop) IsComplete() bool { return true }

func (n *Stop) AddChild(child Node) error {
	if n.Result != nil {
		return errAlreadyComplete("Stop")
	}
	n.Result = child
	return nil
}

func (n *Stop) Evaluate(ctx *context.Context) (value.Value, error) {
	result := value.NaV()
	if n.Result != nil {
		v, err := n.Result.Evaluate(ctx)
		if err != nil {
			return value.Value{}, err
		}
		result = v
	}
	return value.Value{}, &StopLoop{Result: result, Label: n.Label}
}

// Return raises ReturnFromFunction, unwinding to the nearest Function call
//.
type Return struct {
	Base
	Result Node
}

func NewReturn(loc teaerr.SourceLocation) *Return {
	return &Return{Base: Base{Loc: loc}}
}

func (n *Return) KindName() string { return "Return" }
func (n *Return) Detail() string   { return "" }
func (n *Return) IsComplete() bool { return true }

func (n *Return) AddChild(child Node) error {
	if n.Result != nil {
		return errAlreadyComplete("Return")
	}
	n.Result = child
	return nil
}

func (n *Return) Evaluate(ctx *context.Context) (value.Value, error) {
	result := value.NaV()
	if n.Result != nil {
		v, err := n.Result.Evaluate(ctx)
		if err != nil {
			return value.Value{}, err
		}
		result = v
	}
	return value.Value{}, &ReturnFromFunction{Result: result}
}

// Exit raises ExitScript, unwinding all the way to the top-level evaluate
// (: a normal termination, not an error).
type Exit struct {
	Base
	Result Node
}

func NewExit(loc teaerr.SourceLocation) *Exit {
	return &Exit{Base: Base{Loc: loc}}
}

func (n *Exit) KindName() string { return "Exit" }
func (n *Exit) Detail() string   { return "" }
func (n *Exit) IsComplete() bool { return true }

func (n *Exit) AddChild(child Node) error {
	if n.Result != nil {
		return errAlreadyComplete("Exit")
	}
	n.Result = child
	return nil
}

func (n *Exit) Evaluate(ctx *context.Context) (value.Value, error) {
	result := value.NaV()
	if n.Result != nil {
		v, err := n.Result.Evaluate(ctx)
		if err != nil {
			return value.Value{}, err
		}
		result = v
	}
	return value.Value{}, &ExitScript{Result: result}
}

// Yield and Suspend are defined only under VM execution;
// reaching them in AST-eval mode is itself the reported error.
type Yield struct {
	Base
	Result Node
}

func NewYield(loc teaerr.SourceLocation) *Yield { return &Yield{Base: Base{Loc: loc}} }

func (n *Yield) KindName() string    { return "Yield" }
func (n *Yield) Detail() string      { return "" }
func (n *Yield) IsComplete() bool    { return true }
func (n *Yield) AddChild(child Node) error {
	if n.Result != nil {
		return errAlreadyComplete("Yield")
	}
	n.Result = child
	return nil
}

func (n *Yield) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.Value{}, teaerr.New(teaerr.KindSuspendStatementInEvalMode, n.Loc, "yield is only valid under VM execution")
}

type Suspend struct {
	Base
}

func NewSuspend(loc teaerr.SourceLocation) *Suspend { return &Suspend{Base: Base{Loc: loc}} }

func (n *Suspend) KindName() string    { return "Suspend" }
func (n *Suspend) Detail() string      { return "" }
func (n *Suspend) IsComplete() bool    { return true }
func (n *Suspend) AddChild(Node) error { return errAlreadyComplete("Suspend") }

func (n *Suspend) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.Value{}, teaerr.New(teaerr.KindSuspendStatementInEvalMode, n.Loc, "suspend is only valid under VM execution")
}
