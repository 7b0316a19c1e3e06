package ast

import (
	"errors"

	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// LambdaName is the literal name lowered lambdas and AST-eval anonymous
// functions carry.
const LambdaName = "<lambda>"

// Function is a first-class Value definition: a parameter-spec subtree
// plus a body block. Evaluating a named Function node also defines it in
// the current scope, mirroring the bytecode lowering's `FuncDef name`.
type Function struct {
	Base
	Name   string
	Params *ParamSpec
	Body   Node
}

func NewFunction(loc teaerr.SourceLocation, name string) *Function {
	return &Function{Base: Base{Loc: loc}, Name: name}
}

func (n *Function) KindName() string { return "Function" }
func (n *Function) Detail() string   { return n.Name }
func (n *Function) IsComplete() bool { return n.Params != nil && n.Body != nil }

func (n *Function) AddChild(child Node) error {
	if n.Params == nil {
		spec, ok := child.(*ParamSpec)
		if !ok {
			return teaerr.New(teaerr.KindCompile, n.Loc, "Function's first child must be a ParamSpec")
		}
		n.Params = spec
		return nil
	}
	if n.Body == nil {
		n.Body = child
		return nil
	}
	return errAlreadyComplete("Function")
}

func (n *Function) Evaluate(ctx *context.Context) (value.Value, error) {
	fn := &value.Function{Name: n.Name, Origin: value.OriginAST, Arity: n.Params.Arity()}
	fn.Callable = &astCallable{node: n, ctx: ctx}
	fv := value.FunctionVal(fn)
	if n.Name != "" && n.Name != LambdaName {
		if err := ctx.DefineConst(n.Name, fv.Share()); err != nil {
			return value.Value{}, err
		}
	}
	return fv, nil
}

// astCallable adapts a Function AST node into value.Callable, closing
// over the Context the function was defined against.
//
// Grounded on internal/vm/vm.go's frame-push/Ret call discipline in the
// teacher, generalized from an explicit bytecode frame to a direct
// recursive Evaluate call since AST-eval has no instruction pointer to
// save/restore.
type astCallable struct {
	node *Function
	ctx  *context.Context
}

func (c *astCallable) CallValue(args []value.Value) (value.Value, error) {
	c.ctx.EnterScope()
	defer c.ctx.ExitScope()

	c.ctx.PushParams(args)
	if err := c.node.Params.Bind(c.ctx); err != nil {
		return value.Value{}, err
	}

	v, err := c.node.Body.Evaluate(c.ctx)
	if err == nil {
		return v, nil
	}

	var ret *ReturnFromFunction
	if errors.As(err, &ret) {
		return ret.Result, nil
	}
	return value.Value{}, err
}

// CallFunc is the call-expression node: a callee evaluated to a Function
// Value plus an argument list ("CallFunc").
type CallFunc struct {
	Base
	Callee Node
	Args   *ParamList
}

func NewCallFunc(loc teaerr.SourceLocation) *CallFunc {
	return &CallFunc{Base: Base{Loc: loc}}
}

func (n *CallFunc) KindName() string { return "CallFunc" }
func (n *CallFunc) Detail() string   { return "" }
func (n *CallFunc) IsComplete() bool { return n.Callee != nil && n.Args != nil }

func (n *CallFunc) AddChild(child Node) error {
	if n.Callee == nil {
		n.Callee = child
		return nil
	}
	if n.Args == nil {
		list, ok := child.(*ParamList)
		if !ok {
			return teaerr.New(teaerr.KindCompile, n.Loc, "CallFunc's second child must be a ParamList")
		}
		n.Args = list
		return nil
	}
	return errAlreadyComplete("CallFunc")
}

func (n *CallFunc) Evaluate(ctx *context.Context) (value.Value, error) {
	cv, err := n.Callee.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	fn, ok := cv.Function()
	if !ok {
		return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "call target is not a Function")
	}
	args, err := n.Args.EvaluateArgs(ctx)
	if err != nil {
		return value.Value{}, err
	}
	v, err := fn.Call(args)
	return v, wrapLoc(err, n.Loc)
}
