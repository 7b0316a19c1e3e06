// Package embed is the embedding API: the surface a host program
// consumes to drive a Context, compile and run Programs, and drive
// Coroutines.
//
// Its method set (New, BindFunc, SetVar, Parse, Compile, Run, Eval,
// LoadFile) targets this core's Context/Program/tsvm.VM/
// coroutine.Coroutine types directly, since values here are already
// Values rather than arbitrary Go interface{} needing conversion.
package embed

import (
	"os"

	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/compiler"
	"github.com/tsvm-lang/teascript/internal/config"
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/coroutine"
	"github.com/tsvm-lang/teascript/internal/parserstate"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/tsvm"
	"github.com/tsvm-lang/teascript/internal/value"
)

// VM is the high-level embedding handle: one Context plus the bootstrap
// configuration it was created with.
type VM struct {
	Bootstrap config.Bootstrap
	ctx       *context.Context
}

// New creates a VM whose Context is bootstrapped per cfg.
// Feature opt-outs are not enforced by the core itself — they are
// forwarded to whatever host-side loader consumes them — but the
// dialect flags are applied directly since they are core Context
// behavior.
func New(cfg config.Bootstrap) *VM {
	ctx := context.New()
	ctx.Dialect = cfg.Dialect.ToDialect()
	return &VM{Bootstrap: cfg, ctx: ctx}
}

// Context exposes the underlying Context for callers that need direct
// access, e.g. to hand it to a second VM.Run against a different
// Program.
func (v *VM) Context() *context.Context { return v.ctx }

// BindFunc registers a host callback function under name: a callable
// taking a Context reference and reading its parameter queue, returning
// a Value. The wrapper threads the VM's own Context into fn's parameter
// queue via PushParams/ConsumeParam before invoking it, matching the
// calling convention so a host function is indistinguishable from a
// script function to its caller.
func (v *VM) BindFunc(name string, fn func(ctx *context.Context) (value.Value, error)) error {
	host := value.HostFunc(func(args []value.Value) (value.Value, error) {
		v.ctx.PushParams(args)
		return fn(v.ctx)
	})
	fv := value.FunctionVal(&value.Function{Name: name, Origin: value.OriginHost, Callable: host})
	return v.ctx.DefineConst(name, fv.Share())
}

// SetVar adds an owned (value-copy) variable into the current scope.
func (v *VM) SetVar(name string, val value.Value) error {
	return v.ctx.DefineVar(name, val.Detach())
}

// SetSharedVar adds a shared variable into the current scope.
func (v *VM) SetSharedVar(name string, val value.Value) error {
	return v.ctx.DefineVar(name, val.Share())
}

// Parse turns source text into an AST root.
func (v *VM) Parse(name, src string) (ast.Node, error) {
	return parserstate.Parse(name, src)
}

// Compile lowers an AST root to a Program at the chosen optimization
// level.
func (v *VM) Compile(root ast.Node, name string, level program.OptLevel) (*program.Program, error) {
	return compiler.Compile(root, name, level)
}

// Run executes prog against the VM's Context under optional Constraints,
// returning the result Value or a typed error.
func (v *VM) Run(prog *program.Program, constraints tsvm.Constraints) (value.Value, error) {
	machine := tsvm.New(prog, v.ctx)
	if err := machine.Run(constraints); err != nil {
		return value.Value{}, err
	}
	switch machine.State() {
	case tsvm.StateFinished, tsvm.StateSuspended:
		return machine.Result(), nil
	default:
		return value.Value{}, teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "program did not reach a result state")
	}
}

// Eval parses, compiles at O0, and runs code against the VM's Context in
// one call.
func (v *VM) Eval(name, code string) (value.Value, error) {
	root, err := v.Parse(name, code)
	if err != nil {
		return value.Value{}, err
	}
	prog, err := v.Compile(root, name, program.OptO0)
	if err != nil {
		return value.Value{}, err
	}
	return v.Run(prog, tsvm.Unlimited)
}

// LoadFile parses, compiles, and runs a file. Respects the NoFileRead
// opt-out.
func (v *VM) LoadFile(path string) (value.Value, error) {
	if v.Bootstrap.OptOuts.NoFileRead {
		return value.Value{}, teaerr.New(teaerr.KindLoadFile, teaerr.SourceLocation{Name: path}, "file reads are disabled by this embedding's bootstrap configuration")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{Name: path}, "reading %s: %v", path, err)
	}
	return v.Eval(path, string(data))
}

// NewCoroutine constructs a Coroutine sharing this VM's dialect but not
// its Context — the coroutine gets a private Context whose first action
// is to enter a fresh local scope.
func (v *VM) NewCoroutine() *coroutine.Coroutine {
	return coroutine.New(v.ctx.Dialect)
}
