package ast

import (
	"testing"

	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

func loc() teaerr.SourceLocation { return teaerr.SourceLocation{Name: "test", Line: 1, Column: 1} }

// buildRepeatCounter builds the AST for:
//   def c := 0; repeat { c := c + 1; if( c == 10 ) { stop } }; c
func buildRepeatCounter() *Expression {
	program := NewExpression(loc(), ModeCondition)

	defC := NewAssign(loc(), AssignDef, false)
	defC.AddChild(NewIdentifier(loc(), "c"))
	defC.AddChild(NewConstant(loc(), value.I64Val(0)))
	program.AddChild(defC)

	body := NewExpression(loc(), ModeCondition)

	incr := NewAssign(loc(), AssignPlain, false)
	incr.AddChild(NewIdentifier(loc(), "c"))
	plus := NewBinaryOp(loc(), "+")
	plus.AddChild(NewIdentifier(loc(), "c"))
	plus.AddChild(NewConstant(loc(), value.I64Val(1)))
	incr.AddChild(plus)
	body.AddChild(incr)

	cmp := NewBinaryOp(loc(), "==")
	cmp.AddChild(NewIdentifier(loc(), "c"))
	cmp.AddChild(NewConstant(loc(), value.I64Val(10)))
	ifNode := NewIf(loc())
	ifNode.AddChild(cmp)
	stopBlock := NewExpression(loc(), ModeCondition)
	stopBlock.AddChild(NewStop(loc(), ""))
	ifNode.AddChild(stopBlock)
	body.AddChild(ifNode)

	repeat := NewRepeat(loc(), "")
	repeat.AddChild(body)
	program.AddChild(repeat)

	program.AddChild(NewIdentifier(loc(), "c"))
	return program
}

func TestRepeatUntilStop(t *testing.T) {
	ctx := context.New()
	v, err := buildRepeatCounter().Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := v.I64()
	if !ok || i != 10 {
		t.Fatalf("expected 10, got %v", v)
	}
	if ctx.ScopeDepth() != 1 {
		t.Fatalf("expected scope depth 1 at end, got %d", ctx.ScopeDepth())
	}
}

func TestTupleSubscriptAssignCopySemantics(t *testing.T) {
	// def a := (1,2); def b := a; b[0] := 9; a[0] -> 1 (deep copy)
	ctx := context.New()

	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))

	defA := NewAssign(loc(), AssignDef, false)
	defA.AddChild(NewIdentifier(loc(), "a"))
	defA.AddChild(NewConstant(loc(), value.TupleVal(tup)))

	defB := NewAssign(loc(), AssignDef, false)
	defB.AddChild(NewIdentifier(loc(), "b"))
	defB.AddChild(NewIdentifier(loc(), "a"))

	setB0 := NewAssign(loc(), AssignPlain, false)
	sub := NewSubscript(loc())
	sub.AddChild(NewIdentifier(loc(), "b"))
	sub.AddChild(NewConstant(loc(), value.I64Val(0)))
	setB0.AddChild(sub)
	setB0.AddChild(NewConstant(loc(), value.I64Val(9)))

	readA0 := NewSubscript(loc())
	readA0.AddChild(NewIdentifier(loc(), "a"))
	readA0.AddChild(NewConstant(loc(), value.I64Val(0)))

	program := NewExpression(loc(), ModeCondition)
	program.AddChild(defA)
	program.AddChild(defB)
	program.AddChild(setB0)
	program.AddChild(readA0)

	v, err := program.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 1 {
		t.Fatalf("expected a[0] == 1 after deep-copy assign, got %d", i)
	}
}

func TestTupleSubscriptAssignShareSemantics(t *testing.T) {
	// def a := (1,2); def b @= a; b[0] := 9; a[0] -> 9 (shared)
	ctx := context.New()

	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))

	defA := NewAssign(loc(), AssignDef, false)
	defA.AddChild(NewIdentifier(loc(), "a"))
	defA.AddChild(NewConstant(loc(), value.TupleVal(tup)))

	defB := NewAssign(loc(), AssignDef, true)
	defB.AddChild(NewIdentifier(loc(), "b"))
	defB.AddChild(NewIdentifier(loc(), "a"))

	setB0 := NewAssign(loc(), AssignPlain, false)
	sub := NewSubscript(loc())
	sub.AddChild(NewIdentifier(loc(), "b"))
	sub.AddChild(NewConstant(loc(), value.I64Val(0)))
	setB0.AddChild(sub)
	setB0.AddChild(NewConstant(loc(), value.I64Val(9)))

	readA0 := NewSubscript(loc())
	readA0.AddChild(NewIdentifier(loc(), "a"))
	readA0.AddChild(NewConstant(loc(), value.I64Val(0)))

	program := NewExpression(loc(), ModeCondition)
	program.AddChild(defA)
	program.AddChild(defB)
	program.AddChild(setB0)
	program.AddChild(readA0)

	v, err := program.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 9 {
		t.Fatalf("expected a[0] == 9 after shared assign, got %d", i)
	}
}

func TestConstAssignRejected(t *testing.T) {
	// const t := (1,2,3); t[0] := 9 -> const-assign error
	ctx := context.New()
	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	_ = tup.Append(value.I64Val(2))
	_ = tup.Append(value.I64Val(3))

	defT := NewAssign(loc(), AssignConst, false)
	defT.AddChild(NewIdentifier(loc(), "t"))
	defT.AddChild(NewConstant(loc(), value.TupleVal(tup)))
	if _, err := defT.Evaluate(ctx); err != nil {
		t.Fatalf("unexpected error defining const: %v", err)
	}

	setT0 := NewAssign(loc(), AssignPlain, false)
	sub := NewSubscript(loc())
	sub.AddChild(NewIdentifier(loc(), "t"))
	sub.AddChild(NewConstant(loc(), value.I64Val(0)))
	setT0.AddChild(sub)
	setT0.AddChild(NewConstant(loc(), value.I64Val(9)))

	if _, err := setT0.Evaluate(ctx); err == nil {
		t.Fatalf("expected const-assign error assigning into const tuple t[0]")
	} else if te, ok := err.(*teaerr.Error); !ok || te.Kind != teaerr.KindConstAssign {
		t.Fatalf("expected KindConstAssign, got %v", err)
	}
}

func TestForallOverIntegerSequence(t *testing.T) {
	ctx := context.New()
	seq, _ := value.NewIntegerSequence(0, 3, 1)

	sum := NewAssign(loc(), AssignDef, false)
	sum.AddChild(NewIdentifier(loc(), "sum"))
	sum.AddChild(NewConstant(loc(), value.I64Val(0)))

	forall := NewForall(loc(), "", "i")
	forall.AddChild(NewConstant(loc(), value.SequenceVal(seq)))
	body := NewExpression(loc(), ModeCondition)
	addI := NewAssign(loc(), AssignPlain, false)
	addI.AddChild(NewIdentifier(loc(), "sum"))
	plus := NewBinaryOp(loc(), "+")
	plus.AddChild(NewIdentifier(loc(), "sum"))
	plus.AddChild(NewIdentifier(loc(), "i"))
	addI.AddChild(plus)
	body.AddChild(addI)
	forall.AddChild(body)

	program := NewExpression(loc(), ModeCondition)
	program.AddChild(sum)
	program.AddChild(forall)
	program.AddChild(NewIdentifier(loc(), "sum"))

	v, err := program.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 6 {
		t.Fatalf("expected sum 0+1+2+3=6, got %d", i)
	}
}

func TestFunctionCallReturn(t *testing.T) {
	ctx := context.New()

	fn := NewFunction(loc(), "double")
	spec := NewParamSpec(loc())
	spec.AddChild(NewFromParam(loc(), "x", false, false))
	fn.AddChild(spec)
	body := NewExpression(loc(), ModeCondition)
	ret := NewReturn(loc())
	mul := NewBinaryOp(loc(), "*")
	mul.AddChild(NewIdentifier(loc(), "x"))
	mul.AddChild(NewConstant(loc(), value.I64Val(2)))
	ret.AddChild(mul)
	body.AddChild(ret)
	fn.AddChild(body)

	call := NewCallFunc(loc())
	call.AddChild(NewIdentifier(loc(), "double"))
	args := NewParamList(loc())
	args.AddChild(NewConstant(loc(), value.I64Val(21)))
	call.AddChild(args)

	program := NewExpression(loc(), ModeCondition)
	program.AddChild(fn)
	program.AddChild(call)

	v, err := program.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 42 {
		t.Fatalf("expected 42, got %d", i)
	}
}

func TestFunctionArityErrorOnMissingArgument(t *testing.T) {
	ctx := context.New()

	fn := NewFunction(loc(), "needsTwo")
	spec := NewParamSpec(loc())
	spec.AddChild(NewFromParam(loc(), "a", false, false))
	spec.AddChild(NewFromParam(loc(), "b", false, false))
	fn.AddChild(spec)
	body := NewExpression(loc(), ModeCondition)
	body.AddChild(NewIdentifier(loc(), "a"))
	fn.AddChild(body)

	if _, err := fn.Evaluate(ctx); err != nil {
		t.Fatalf("unexpected error defining function: %v", err)
	}

	call := NewCallFunc(loc())
	call.AddChild(NewIdentifier(loc(), "needsTwo"))
	args := NewParamList(loc())
	args.AddChild(NewConstant(loc(), value.I64Val(1)))
	call.AddChild(args)

	if _, err := call.Evaluate(ctx); err == nil {
		t.Fatalf("expected arity error for missing second argument")
	}
}

func TestUnaryTypeofAndTypename(t *testing.T) {
	ctx := context.New()
	typename := NewUnaryOp(loc(), OpTypename)
	typename.AddChild(NewConstant(loc(), value.I64Val(5)))
	v, err := typename.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := v.Str()
	if s != "i64" {
		t.Fatalf("expected i64, got %q", s)
	}
}

func TestShareCountOperator(t *testing.T) {
	ctx := context.New()
	tup := value.NewTuple()
	_ = tup.Append(value.I64Val(1))
	shared := NewUnaryOp(loc(), OpShareCnt)
	shared.AddChild(NewConstant(loc(), value.TupleVal(tup)))
	v, err := shared.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 1 {
		t.Fatalf("expected share count 1, got %d", i)
	}
}

func TestLabeledLoopStop(t *testing.T) {
	ctx := context.New()
	repeat := NewRepeat(loc(), "outer")
	body := NewExpression(loc(), ModeCondition)
	body.AddChild(NewStop(loc(), "outer"))
	repeat.AddChild(body)

	if _, err := repeat.Evaluate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPrecedenceInsertMultiplicationBindsTighter(t *testing.T) {
	// 1 + 2 * 3: "+" seen first (root), then "*" must descend into its
	// right spine since * (prec 5) binds tighter than + (prec 6).
	plus := NewBinaryOp(loc(), "+")
	plus.AddChild(NewConstant(loc(), value.I64Val(1)))
	var root Node = plus

	star := NewBinaryOp(loc(), "*")
	root = Insert(root, star)
	star.AddChild(NewConstant(loc(), value.I64Val(2)))
	star.AddChild(NewConstant(loc(), value.I64Val(3)))

	if root != Node(plus) {
		t.Fatalf("expected + to remain the root")
	}
	if plus.Right != Node(star) {
		t.Fatalf("expected * to be absorbed as the right child of +")
	}

	ctx := context.New()
	v, err := root.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, _ := v.I64()
	if i != 7 {
		t.Fatalf("expected 1+2*3=7, got %d", i)
	}
}
