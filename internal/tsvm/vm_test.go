package tsvm

import (
	"testing"

	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/compiler"
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

func loc() teaerr.SourceLocation { return teaerr.SourceLocation{Name: "test", Line: 1, Column: 1} }

// run compiles root at O0 and drives it to completion with an unlimited
// budget, returning its final result.
func run(t *testing.T, root ast.Node) value.Value {
	t.Helper()
	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.New()
	vm := New(prog, ctx)
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if vm.State() != StateFinished {
		t.Fatalf("expected Finished, got %s", vm.State())
	}
	return vm.Result()
}

func expectI64(t *testing.T, v value.Value, want int64) {
	t.Helper()
	got, ok := v.I64()
	if !ok || got != want {
		t.Fatalf("expected i64 %d, got %v", want, v)
	}
}

func expectBool(t *testing.T, v value.Value, want bool) {
	t.Helper()
	got, ok := v.Bool()
	if !ok || got != want {
		t.Fatalf("expected bool %v, got %v", want, v)
	}
}

// buildRepeatCounter builds the AST for scenario 1:
//
//	def c := 0; repeat { c := c + 1; if( c == 10 ) { stop } }; c
func buildRepeatCounter() *ast.Expression {
	root := ast.NewExpression(loc(), ast.ModeCondition)

	defC := ast.NewAssign(loc(), ast.AssignDef, false)
	defC.AddChild(ast.NewIdentifier(loc(), "c"))
	defC.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	root.AddChild(defC)

	body := ast.NewExpression(loc(), ast.ModeCondition)

	incr := ast.NewAssign(loc(), ast.AssignPlain, false)
	incr.AddChild(ast.NewIdentifier(loc(), "c"))
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewIdentifier(loc(), "c"))
	plus.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	incr.AddChild(plus)
	body.AddChild(incr)

	cmp := ast.NewBinaryOp(loc(), "==")
	cmp.AddChild(ast.NewIdentifier(loc(), "c"))
	cmp.AddChild(ast.NewConstant(loc(), value.I64Val(10)))
	ifNode := ast.NewIf(loc())
	ifNode.AddChild(cmp)
	stopBlock := ast.NewExpression(loc(), ast.ModeCondition)
	stopBlock.AddChild(ast.NewStop(loc(), ""))
	ifNode.AddChild(stopBlock)
	body.AddChild(ifNode)

	repeat := ast.NewRepeat(loc(), "")
	repeat.AddChild(body)
	root.AddChild(repeat)

	root.AddChild(ast.NewIdentifier(loc(), "c"))
	return root
}

func TestRepeatUntilStop(t *testing.T) {
	v := run(t, buildRepeatCounter())
	expectI64(t, v, 10)
}

// TestTupleSubscriptAssignCopySemantics is scenario 2: def a := (1,2);
// def b := a; b[0] := 9; a[0] stays 1 (Detach-on-def-assign deep copy).
func TestTupleSubscriptAssignCopySemantics(t *testing.T) {
	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))

	defA := ast.NewAssign(loc(), ast.AssignDef, false)
	defA.AddChild(ast.NewIdentifier(loc(), "a"))
	defA.AddChild(ast.NewConstant(loc(), value.TupleVal(tup)))

	defB := ast.NewAssign(loc(), ast.AssignDef, false)
	defB.AddChild(ast.NewIdentifier(loc(), "b"))
	defB.AddChild(ast.NewIdentifier(loc(), "a"))

	setB0 := ast.NewAssign(loc(), ast.AssignPlain, false)
	sub := ast.NewSubscript(loc())
	sub.AddChild(ast.NewIdentifier(loc(), "b"))
	sub.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	setB0.AddChild(sub)
	setB0.AddChild(ast.NewConstant(loc(), value.I64Val(9)))

	readA0 := ast.NewSubscript(loc())
	readA0.AddChild(ast.NewIdentifier(loc(), "a"))
	readA0.AddChild(ast.NewConstant(loc(), value.I64Val(0)))

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(defA)
	root.AddChild(defB)
	root.AddChild(setB0)
	root.AddChild(readA0)

	v := run(t, root)
	expectI64(t, v, 1)
}

// TestShareAssignAliases is scenario 3: def a := (1,2); def b @= a;
// b[0] := 9; a[0] observes 9 (shared, not copied).
func TestShareAssignAliases(t *testing.T) {
	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))

	defA := ast.NewAssign(loc(), ast.AssignDef, false)
	defA.AddChild(ast.NewIdentifier(loc(), "a"))
	defA.AddChild(ast.NewConstant(loc(), value.TupleVal(tup)))

	defB := ast.NewAssign(loc(), ast.AssignDef, true)
	defB.AddChild(ast.NewIdentifier(loc(), "b"))
	defB.AddChild(ast.NewIdentifier(loc(), "a"))

	setB0 := ast.NewAssign(loc(), ast.AssignPlain, false)
	sub := ast.NewSubscript(loc())
	sub.AddChild(ast.NewIdentifier(loc(), "b"))
	sub.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	setB0.AddChild(sub)
	setB0.AddChild(ast.NewConstant(loc(), value.I64Val(9)))

	readA0 := ast.NewSubscript(loc())
	readA0.AddChild(ast.NewIdentifier(loc(), "a"))
	readA0.AddChild(ast.NewConstant(loc(), value.I64Val(0)))

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(defA)
	root.AddChild(defB)
	root.AddChild(setB0)
	root.AddChild(readA0)

	v := run(t, root)
	expectI64(t, v, 9)
}

// TestConstAssignIsRejected is scenario 4: const c := 1; c := 2 fails
// with KindConstAssign.
func TestConstAssignIsRejected(t *testing.T) {
	defC := ast.NewAssign(loc(), ast.AssignConst, false)
	defC.AddChild(ast.NewIdentifier(loc(), "c"))
	defC.AddChild(ast.NewConstant(loc(), value.I64Val(1)))

	reassign := ast.NewAssign(loc(), ast.AssignPlain, false)
	reassign.AddChild(ast.NewIdentifier(loc(), "c"))
	reassign.AddChild(ast.NewConstant(loc(), value.I64Val(2)))

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(defC)
	root.AddChild(reassign)

	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New(prog, context.New())
	err = vm.Run(Unlimited)
	if err == nil {
		t.Fatal("expected a const-assign error")
	}
	te, ok := err.(*teaerr.Error)
	if !ok || te.Kind != teaerr.KindConstAssign {
		t.Fatalf("expected KindConstAssign, got %v", err)
	}
	if vm.State() != StateHalted {
		t.Fatalf("expected Halted, got %s", vm.State())
	}
}

// TestFunctionCallAndRecursion exercises FuncDef/CallFunc/Ret, a named
// function binding itself so it can recurse: a function summing 1..n.
func TestFunctionCallAndRecursion(t *testing.T) {
	fn := ast.NewFunction(loc(), "sum")
	params := ast.NewParamSpec(loc())
	params.AddChild(ast.NewFromParam(loc(), "n", false, false))
	fn.AddChild(params)

	body := ast.NewExpression(loc(), ast.ModeCondition)
	cmp := ast.NewBinaryOp(loc(), "==")
	cmp.AddChild(ast.NewIdentifier(loc(), "n"))
	cmp.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	ifNode := ast.NewIf(loc())
	ifNode.AddChild(cmp)
	thenBlock := ast.NewExpression(loc(), ast.ModeCondition)
	thenBlock.AddChild(ast.NewConstant(loc(), value.I64Val(0)))
	ifNode.AddChild(thenBlock)
	elseBlock := ast.NewExpression(loc(), ast.ModeCondition)
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewIdentifier(loc(), "n"))
	call := ast.NewCallFunc(loc())
	call.AddChild(ast.NewIdentifier(loc(), "sum"))
	args := ast.NewParamList(loc())
	minus := ast.NewBinaryOp(loc(), "-")
	minus.AddChild(ast.NewIdentifier(loc(), "n"))
	minus.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	args.AddChild(minus)
	call.AddChild(args)
	plus.AddChild(call)
	elseBlock.AddChild(plus)
	ifNode.AddChild(elseBlock)
	body.AddChild(ifNode)
	fn.AddChild(body)

	callTop := ast.NewCallFunc(loc())
	callTop.AddChild(ast.NewIdentifier(loc(), "sum"))
	topArgs := ast.NewParamList(loc())
	topArgs.AddChild(ast.NewConstant(loc(), value.I64Val(5)))
	callTop.AddChild(topArgs)

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(fn)
	root.AddChild(callTop)

	v := run(t, root)
	expectI64(t, v, 15)
}

// TestForallSumsTuple exercises ForallHead/ForallNext over a Tuple.
func TestForallSumsTuple(t *testing.T) {
	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))
	_ = tup.Append(value.I64Val(3))

	defTotal := ast.NewAssign(loc(), ast.AssignDef, false)
	defTotal.AddChild(ast.NewIdentifier(loc(), "total"))
	defTotal.AddChild(ast.NewConstant(loc(), value.I64Val(0)))

	body := ast.NewExpression(loc(), ast.ModeCondition)
	incr := ast.NewAssign(loc(), ast.AssignPlain, false)
	incr.AddChild(ast.NewIdentifier(loc(), "total"))
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewIdentifier(loc(), "total"))
	dot := ast.NewSubscript(loc())
	dot.AddChild(ast.NewIdentifier(loc(), "t"))
	dot.AddChild(ast.NewIdentifier(loc(), "i"))
	plus.AddChild(dot)
	incr.AddChild(plus)
	body.AddChild(incr)

	forall := ast.NewForall(loc(), "", "i")
	forall.AddChild(ast.NewConstant(loc(), value.TupleVal(tup)))
	forall.AddChild(body)

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(defTotal)
	defT := ast.NewAssign(loc(), ast.AssignDef, false)
	defT.AddChild(ast.NewIdentifier(loc(), "t"))
	defT.AddChild(ast.NewConstant(loc(), value.TupleVal(tup)))
	root.AddChild(defT)
	root.AddChild(forall)
	root.AddChild(ast.NewIdentifier(loc(), "total"))

	v := run(t, root)
	expectI64(t, v, 6)
}

// TestForallOverEmptySequenceBalancesScope is the empty-sequence edge case
// of "Forall": the induction scope must still close cleanly.
func TestForallOverEmptySequenceBalancesScope(t *testing.T) {
	seq, err := value.NewIntegerSequence(1, 0, 1)
	if err == nil {
		t.Fatalf("expected NewIntegerSequence to reject an empty ascending range")
	}
	// Build the empty sequence directly: From > To with a positive step is
	// what Len treats as zero elements.
	seq = value.IntegerSequence{From: 1, To: 0, Step: 1}

	body := ast.NewExpression(loc(), ast.ModeCondition)
	body.AddChild(ast.NewConstant(loc(), value.NaV()))

	forall := ast.NewForall(loc(), "", "i")
	forall.AddChild(ast.NewConstant(loc(), value.SequenceVal(seq)))
	forall.AddChild(body)

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(forall)

	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.New()
	vm := New(prog, ctx)
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if ctx.ScopeDepth() != 1 {
		t.Fatalf("expected scope depth 1 after Finished, got %d", ctx.ScopeDepth())
	}
}

// TestYieldSuspendsAndResumes drives a coroutine-shaped program through one
// Yield, checking that Resume restores the one-value-per-statement
// invariant and that the expression's own subsequent statement still runs.
func TestYieldSuspendsAndResumes(t *testing.T) {
	root := ast.NewExpression(loc(), ast.ModeCondition)
	yield := ast.NewYield(loc())
	yield.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	root.AddChild(yield)
	root.AddChild(ast.NewConstant(loc(), value.I64Val(2)))

	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New(prog, context.New())
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if vm.State() != StateSuspended {
		t.Fatalf("expected Suspended, got %s", vm.State())
	}
	expectI64(t, vm.Result(), 1)

	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("resume error: %v", err)
	}
	if vm.State() != StateFinished {
		t.Fatalf("expected Finished after resume, got %s", vm.State())
	}
	expectI64(t, vm.Result(), 2)
}

// TestSuspendOrdering is the "Suspend ordering" testable property: a
// ConstraintInstructionCount budget of exactly k instructions stops with
// PC == k, never mid-instruction and never one instruction early or late.
func TestSuspendOrdering(t *testing.T) {
	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	root.AddChild(ast.NewConstant(loc(), value.I64Val(2)))
	root.AddChild(ast.NewConstant(loc(), value.I64Val(3)))

	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New(prog, context.New())
	if err := vm.Run(Constraints{Kind: ConstraintInstructionCount, MaxInstructions: 2}); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if vm.State() != StateSuspended {
		t.Fatalf("expected Suspended, got %s", vm.State())
	}
	if vm.PC() != 2 {
		t.Fatalf("expected PC 2 after 2 instructions, got %d", vm.PC())
	}
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("resume error: %v", err)
	}
	if vm.State() != StateFinished {
		t.Fatalf("expected Finished, got %s", vm.State())
	}
	expectI64(t, vm.Result(), 3)
}

// TestScopeBalanceAtProgramEnd is the "Scope balance" property for the
// non-control-flow path: after Finished, exactly the root scope remains
// and the operand stack is empty once the result is extracted.
func TestScopeBalanceAtProgramEnd(t *testing.T) {
	root := buildRepeatCounter()
	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.New()
	vm := New(prog, ctx)
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if ctx.ScopeDepth() != 1 {
		t.Fatalf("expected scope depth 1, got %d", ctx.ScopeDepth())
	}
}

// TestExitUnwindsNestedCallFrames is /"Exit": it must unwind every
// open call frame's scope, not just the top-level one.
func TestExitUnwindsNestedCallFrames(t *testing.T) {
	fn := ast.NewFunction(loc(), "bail")
	params := ast.NewParamSpec(loc())
	fn.AddChild(params)
	body := ast.NewExpression(loc(), ast.ModeCondition)
	exit := ast.NewExit(loc())
	exit.AddChild(ast.NewConstant(loc(), value.I64Val(42)))
	body.AddChild(exit)
	fn.AddChild(body)

	call := ast.NewCallFunc(loc())
	call.AddChild(ast.NewIdentifier(loc(), "bail"))
	call.AddChild(ast.NewParamList(loc()))

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(fn)
	root.AddChild(call)
	root.AddChild(ast.NewConstant(loc(), value.I64Val(999))) // unreachable

	prog, err := compiler.Compile(root, "test", program.OptO0)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	ctx := context.New()
	vm := New(prog, ctx)
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if vm.State() != StateFinished {
		t.Fatalf("expected Finished, got %s", vm.State())
	}
	expectI64(t, vm.Result(), 42)
	if ctx.ScopeDepth() != 1 {
		t.Fatalf("expected scope depth 1 after Exit, got %d", ctx.ScopeDepth())
	}
}

// TestDefaultParameterUsedWhenArgumentOmitted exercises the
// FromParam_Or lead/finish instruction pair end to end.
func TestDefaultParameterUsedWhenArgumentOmitted(t *testing.T) {
	fn := ast.NewFunction(loc(), "greet")
	params := ast.NewParamSpec(loc())
	params.AddChild(ast.NewFromParamOr(loc(), "times", false, false, ast.NewConstant(loc(), value.I64Val(3))))
	fn.AddChild(params)
	body := ast.NewExpression(loc(), ast.ModeCondition)
	body.AddChild(ast.NewIdentifier(loc(), "times"))
	fn.AddChild(body)

	callNoArg := ast.NewCallFunc(loc())
	callNoArg.AddChild(ast.NewIdentifier(loc(), "greet"))
	callNoArg.AddChild(ast.NewParamList(loc()))

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(fn)
	root.AddChild(callNoArg)

	v := run(t, root)
	expectI64(t, v, 3)
}

// TestDefaultParameterOverriddenBySuppliedArgument exercises the other
// half of the lead/finish pair: when an argument IS supplied, the default
// expression must never execute.
func TestDefaultParameterOverriddenBySuppliedArgument(t *testing.T) {
	fn := ast.NewFunction(loc(), "greet")
	params := ast.NewParamSpec(loc())
	params.AddChild(ast.NewFromParamOr(loc(), "times", false, false, ast.NewConstant(loc(), value.I64Val(3))))
	fn.AddChild(params)
	body := ast.NewExpression(loc(), ast.ModeCondition)
	body.AddChild(ast.NewIdentifier(loc(), "times"))
	fn.AddChild(body)

	call := ast.NewCallFunc(loc())
	call.AddChild(ast.NewIdentifier(loc(), "greet"))
	args := ast.NewParamList(loc())
	args.AddChild(ast.NewConstant(loc(), value.I64Val(7)))
	call.AddChild(args)

	root := ast.NewExpression(loc(), ast.ModeCondition)
	root.AddChild(fn)
	root.AddChild(call)

	v := run(t, root)
	expectI64(t, v, 7)
}

// TestOperandStackUnderflowHalts checks the VM's own internal-consistency
// guard ("internal inconsistency ... Halted").
func TestOperandStackUnderflowHalts(t *testing.T) {
	prog := program.New("test", program.OptO0)
	prog.Instructions = []program.Instruction{
		{Op: program.OpPop, Payload: value.NaV()},
	}
	vm := New(prog, context.New())
	err := vm.Run(Unlimited)
	if err == nil {
		t.Fatal("expected an operand stack underflow error")
	}
	if vm.State() != StateHalted {
		t.Fatalf("expected Halted, got %s", vm.State())
	}
}

// TestAndOrShortCircuit covers the TestAndJumpRel_If/IfNot lowering
// directly: the right operand must not be evaluated when the left operand
// alone decides the result.
func TestAndOrShortCircuit(t *testing.T) {
	// false and <identifier lookup that would error if evaluated>
	andNode := ast.NewBinaryOp(loc(), "and")
	andNode.AddChild(ast.NewConstant(loc(), value.BoolVal(false)))
	andNode.AddChild(ast.NewIdentifier(loc(), "undefined_identifier"))

	v := run(t, andNode)
	expectBool(t, v, false)

	orNode := ast.NewBinaryOp(loc(), "or")
	orNode.AddChild(ast.NewConstant(loc(), value.BoolVal(true)))
	orNode.AddChild(ast.NewIdentifier(loc(), "undefined_identifier"))

	v = run(t, orNode)
	expectBool(t, v, true)
}

// TestIsTypeAndAsType exercises the VM-only IsType/AsType opcodes (no AST
// surface emits them yet; see DESIGN.md), driven directly against a
// hand-assembled Program.
func TestIsTypeAndAsType(t *testing.T) {
	prog := program.New("test", program.OptO0)
	prog.Instructions = []program.Instruction{
		{Op: program.OpPush, Payload: value.I64Val(5)},
		{Op: program.OpIsType, Payload: value.StringVal("i64")},
		{Op: program.OpProgramEnd, Payload: value.NaV()},
	}
	ctx := context.New()
	vm := New(prog, ctx)
	if err := vm.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	expectBool(t, vm.Result(), true)

	prog2 := program.New("test2", program.OptO0)
	prog2.Instructions = []program.Instruction{
		{Op: program.OpPush, Payload: value.I64Val(5)},
		{Op: program.OpAsType, Payload: value.StringVal("f64")},
		{Op: program.OpProgramEnd, Payload: value.NaV()},
	}
	vm2 := New(prog2, context.New())
	if err := vm2.Run(Unlimited); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	f, ok := vm2.Result().F64()
	if !ok || f != 5.0 {
		t.Fatalf("expected f64 5.0, got %v", vm2.Result())
	}
}
