package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Param is one formal parameter: either a plain FromParam (required) or a
// FromParam_Or carrying a default expression ("ParamSpec / ParamList
// / FromParam / FromParam_Or").
type Param struct {
	Base
	Name    string
	Const   bool
	Shared  bool
	Default Node // nil for a required FromParam; set for FromParam_Or
}

func NewFromParam(loc teaerr.SourceLocation, name string, const_, shared bool) *Param {
	return &Param{Base: Base{Loc: loc}, Name: name, Const: const_, Shared: shared}
}

func NewFromParamOr(loc teaerr.SourceLocation, name string, const_, shared bool, def Node) *Param {
	return &Param{Base: Base{Loc: loc}, Name: name, Const: const_, Shared: shared, Default: def}
}

func (n *Param) KindName() string {
	if n.Default != nil {
		return "FromParam_Or"
	}
	return "FromParam"
}

func (n *Param) Detail() string   { return n.Name }
func (n *Param) IsComplete() bool { return true }

func (n *Param) AddChild(child Node) error {
	if n.Default != nil {
		return errAlreadyComplete(n.KindName())
	}
	n.Default = child
	return nil
}

// Evaluate is unused directly (Params bind via ParamSpec.Bind); it exists
// to satisfy Node.
func (n *Param) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.NaV(), nil
}

func (n *Param) bind(ctx *context.Context) error {
	v, ok := ctx.ConsumeParam()
	if !ok {
		if n.Default == nil {
			return teaerr.Newf(teaerr.KindOutOfRange, n.Loc, "missing required argument %q", n.Name)
		}
		dv, err := n.Default.Evaluate(ctx)
		if err != nil {
			return err
		}
		return n.define(ctx, dv, false)
	}
	return n.define(ctx, v, true)
}

func (n *Param) define(ctx *context.Context, v value.Value, fromArgument bool) error {
	bv := v
	shared := fromArgument && n.Shared
	if shared {
		bv = v.Share()
	} else {
		bv = v.Detach()
	}
	wantConst := n.Const || (ctx.Dialect.ParametersAreDefaultConst && !shared)
	if wantConst {
		return ctx.DefineConst(n.Name, bv)
	}
	return ctx.DefineVar(n.Name, bv)
}

// ParamSpec is the parameter-spec subtree of a Function definition (// ): an ordered list of Params, bound front-to-back against the
// current-call parameter queue.
type ParamSpec struct {
	Base
	Params []*Param
}

func NewParamSpec(loc teaerr.SourceLocation) *ParamSpec {
	return &ParamSpec{Base: Base{Loc: loc}}
}

func (n *ParamSpec) KindName() string { return "ParamSpec" }
func (n *ParamSpec) Detail() string   { return "" }
func (n *ParamSpec) IsComplete() bool { return true }

func (n *ParamSpec) AddChild(child Node) error {
	p, ok := child.(*Param)
	if !ok {
		return teaerr.New(teaerr.KindCompile, n.Loc, "ParamSpec only accepts FromParam/FromParam_Or children")
	}
	n.Params = append(n.Params, p)
	return nil
}

func (n *ParamSpec) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.NaV(), nil
}

// Arity is the number of required (non-default) parameters, used as
// value.Function.Arity for the "Arity" testable property.
func (n *ParamSpec) Arity() int {
	count := 0
	for _, p := range n.Params {
		if p.Default == nil {
			count++
		}
	}
	return count
}

// Bind consumes the current-call parameter queue against each Param in
// order, then verifies the queue is exactly empty.
func (n *ParamSpec) Bind(ctx *context.Context) error {
	for _, p := range n.Params {
		if err := p.bind(ctx); err != nil {
			return err
		}
	}
	if remaining := ctx.RemainingParams(); remaining != 0 {
		return teaerr.Newf(teaerr.KindOutOfRange, n.Loc, "%d unconsumed argument(s)", remaining)
	}
	return nil
}

// ParamList is the call-site argument list (distinct from ParamSpec, the
// callee-side formal list): an ordered sequence of argument expressions
// ("ParamList").
type ParamList struct {
	Base
	Args []Node
}

func NewParamList(loc teaerr.SourceLocation) *ParamList {
	return &ParamList{Base: Base{Loc: loc}}
}

func (n *ParamList) KindName() string { return "ParamList" }
func (n *ParamList) Detail() string   { return "" }
func (n *ParamList) IsComplete() bool { return true }

func (n *ParamList) AddChild(child Node) error {
	n.Args = append(n.Args, child)
	return nil
}

func (n *ParamList) Evaluate(ctx *context.Context) (value.Value, error) {
	return value.NaV(), nil
}

// EvaluateArgs evaluates each argument expression left-to-right into the
// parameter queue.
func (n *ParamList) EvaluateArgs(ctx *context.Context) ([]value.Value, error) {
	args := make([]value.Value, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := a.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
