package coroutine

import (
	"testing"

	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/compiler"
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/tsvm"
	"github.com/tsvm-lang/teascript/internal/value"
)

func loc() teaerr.SourceLocation { return teaerr.SourceLocation{Name: "test", Line: 1, Column: 1} }

// buildYieldCounter builds the AST for scenario 6:
//
//	def c := 0; repeat { yield c; c := c + 1 }
func buildYieldCounter() *ast.Expression {
	root := ast.NewExpression(loc(), ast.ModeCondition)

	defC := ast.NewAssign(loc(), ast.AssignDef, false)
	defC.AddChild(ast.NewIdentifier(loc(), "c"))
	defC.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	root.AddChild(defC)

	repeat := ast.NewRepeat(loc(), "")
	body := ast.NewExpression(loc(), ast.ModeCondition)

	yield := ast.NewYield(loc())
	yield.AddChild(ast.NewIdentifier(loc(), "c"))
	body.AddChild(yield)

	incr := ast.NewAssign(loc(), ast.AssignPlain, false)
	incr.AddChild(ast.NewIdentifier(loc(), "c"))
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewIdentifier(loc(), "c"))
	plus.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	incr.AddChild(plus)
	body.AddChild(incr)

	repeat.AddChild(body)
	root.AddChild(repeat)
	return root
}

func expectI64(t *testing.T, v value.Value, want int64) {
	t.Helper()
	got, ok := v.I64()
	if !ok || got != want {
		t.Fatalf("expected i64 %d, got %v", want, v)
	}
}

func TestCoroutineYieldsSequentialValues(t *testing.T) {
	root := buildYieldCounter()
	prog, err := compiler.Compile(root, "counter", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	co := New(context.Dialect{})
	if err := co.ChangeCoroutine(prog); err != nil {
		t.Fatalf("change_coroutine error: %v", err)
	}

	for want := int64(0); want < 4; want++ {
		if co.State() != StateSuspended {
			t.Fatalf("expected Suspended before resume %d, got %s", want, co.State())
		}
		if err := co.Run(); err != nil {
			t.Fatalf("run error: %v", err)
		}
		if co.State() != StateSuspended {
			t.Fatalf("expected Suspended after resume %d, got %s", want, co.State())
		}
		expectI64(t, co.Result(), want)
	}
}

func TestCoroutineChangeProgramRejectedWhileRunning(t *testing.T) {
	root := buildYieldCounter()
	prog, err := compiler.Compile(root, "counter", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	co := New(context.Dialect{})
	if err := co.ChangeCoroutine(prog); err != nil {
		t.Fatalf("change_coroutine error: %v", err)
	}
	co.state = StateRunning
	if err := co.ChangeCoroutine(prog); err == nil {
		t.Fatalf("expected error changing program while running")
	}
}

func TestCoroutineSetInputParametersInjectsArgsTuple(t *testing.T) {
	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(ast.NewIdentifier(loc(), "argN"))

	prog, err := compiler.Compile(root, "echo", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	co := New(context.Dialect{})
	if err := co.ChangeCoroutine(prog); err != nil {
		t.Fatalf("change_coroutine error: %v", err)
	}
	if err := co.SetInputParameters([]value.Value{value.I64Val(10), value.I64Val(20)}); err != nil {
		t.Fatalf("set_input_parameters error: %v", err)
	}
	if err := co.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if co.State() != StateFinished {
		t.Fatalf("expected Finished, got %s", co.State())
	}
	expectI64(t, co.Result(), 2)
}

func TestCoroutineThreadAwareSuspend(t *testing.T) {
	root := buildYieldCounter()
	prog, err := compiler.Compile(root, "counter", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	co := New(context.Dialect{})
	if err := co.ChangeCoroutine(prog); err != nil {
		t.Fatalf("change_coroutine error: %v", err)
	}
	co.ThreadAware(true)
	if !co.SuspendRequestPossible() {
		t.Fatalf("expected SuspendRequestPossible true")
	}
	if !co.Suspend() {
		t.Fatalf("expected Suspend to succeed")
	}
	if err := co.RunFor(tsvm.Unlimited); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if co.State() != StateSuspended {
		t.Fatalf("expected Suspended from pre-armed stop request, got %s", co.State())
	}
}
