package compiler

import (
	"testing"

	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

func loc() teaerr.SourceLocation { return teaerr.SourceLocation{Name: "test", Line: 1, Column: 1} }

func opcodes(p *program.Program) []program.Opcode {
	ops := make([]program.Opcode, len(p.Instructions))
	for i, ins := range p.Instructions {
		ops[i] = ins.Op
	}
	return ops
}

func TestCompileConstantFoldsAtO1(t *testing.T) {
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	plus.AddChild(ast.NewConstant(loc(), value.I64Val(2)))

	p0, err := Compile(plus, "t", program.OptO0)
	if err != nil {
		t.Fatalf("compile O0: %v", err)
	}
	gotO0 := opcodes(p0)
	wantO0 := []program.Opcode{program.OpPush, program.OpPush, program.OpBinaryOp, program.OpProgramEnd}
	if !opsEqual(gotO0, wantO0) {
		t.Fatalf("O0 opcodes = %v, want %v", gotO0, wantO0)
	}

	p1, err := Compile(plus, "t", program.OptO1)
	if err != nil {
		t.Fatalf("compile O1: %v", err)
	}
	gotO1 := opcodes(p1)
	wantO1 := []program.Opcode{program.OpNoOp, program.OpNoOp, program.OpPush, program.OpProgramEnd}
	if !opsEqual(gotO1, wantO1) {
		t.Fatalf("O1 opcodes = %v, want %v", gotO1, wantO1)
	}
	folded := p1.Instructions[2].Payload
	i, ok := folded.I64()
	if !ok || i != 3 {
		t.Fatalf("expected folded constant 3, got %v", folded)
	}
}

func TestCompileChainedConstantFoldsToSingleValue(t *testing.T) {
	// (1 + 2) + 3 folds within a single peephole pass: the first fold
	// leaves its Push right where the second Push pair begins.
	inner := ast.NewBinaryOp(loc(), "+")
	inner.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	inner.AddChild(ast.NewConstant(loc(), value.I64Val(2)))
	outer := ast.NewBinaryOp(loc(), "+")
	outer.AddChild(inner)
	outer.AddChild(ast.NewConstant(loc(), value.I64Val(3)))

	p, err := Compile(outer, "t", program.OptO1)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	last := p.Instructions[len(p.Instructions)-2]
	if last.Op != program.OpPush {
		t.Fatalf("expected final fold to leave a Push, got %v", last.Op)
	}
	i, ok := last.Payload.I64()
	if !ok || i != 6 {
		t.Fatalf("expected folded constant 6, got %v", last.Payload)
	}
}

func TestCompileIfElseJumpTargets(t *testing.T) {
	ifNode := ast.NewIf(loc())
	ifNode.AddChild(ast.NewConstant(loc(), value.BoolVal(true)))
	ifNode.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	ifNode.AddChild(ast.NewConstant(loc(), value.I64Val(2)))

	p, err := Compile(ifNode, "t", program.OptO0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var jmpIfNot, jmpEnd int = -1, -1
	for i, ins := range p.Instructions {
		switch ins.Op {
		case program.OpJumpRel_IfNot:
			jmpIfNot = i
		case program.OpJumpRel:
			jmpEnd = i
		}
	}
	if jmpIfNot < 0 || jmpEnd < 0 {
		t.Fatalf("expected both a JumpRel_IfNot and a JumpRel in %v", opcodes(p))
	}

	offset, ok := p.Instructions[jmpIfNot].Payload.I64()
	if !ok {
		t.Fatalf("JumpRel_IfNot payload is not an I64")
	}
	elseTarget := jmpIfNot + 1 + int(offset)
	if elseTarget != jmpEnd+1 {
		t.Fatalf("JumpRel_IfNot should land on the else arm's first instruction (%d), got %d", jmpEnd+1, elseTarget)
	}

	endOffset, ok := p.Instructions[jmpEnd].Payload.I64()
	if !ok {
		t.Fatalf("JumpRel payload is not an I64")
	}
	endTarget := jmpEnd + 1 + int(endOffset)
	if endTarget != len(p.Instructions)-2 {
		t.Fatalf("JumpRel should land on the if's closing ExitScope (%d), got %d", len(p.Instructions)-2, endTarget)
	}
}

// TestCompileRepeatWithLabeledStop mirrors a repeat-until-stop shape:
// def c := 0; repeat { c := c + 1; if(c == 10) { stop } }.
func TestCompileRepeatWithLabeledStop(t *testing.T) {
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
	stopBlock.AddChild(ast.NewStop(loc(), "outer"))
	ifNode.AddChild(stopBlock)
	body.AddChild(ifNode)

	repeat := ast.NewRepeat(loc(), "outer")
	repeat.AddChild(body)

	p, err := Compile(repeat, "t", program.OptO0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var back, stopJump int = -1, -1
	enters, exits := 0, 0
	for i, ins := range p.Instructions {
		switch ins.Op {
		case program.OpEnterScope:
			enters++
		case program.OpExitScope:
			exits++
		case program.OpJumpRel:
			// the repeat's own back-edge is the JumpRel whose target
			// precedes it; the stop's jump is the first forward one.
			off, _ := ins.Payload.I64()
			if i+1+int(off) < i {
				back = i
			} else if stopJump < 0 {
				stopJump = i
			}
		}
	}
	if back < 0 {
		t.Fatalf("expected a backward JumpRel closing the loop, opcodes: %v", opcodes(p))
	}
	if stopJump < 0 {
		t.Fatalf("expected a forward JumpRel for stop, opcodes: %v", opcodes(p))
	}
	// every EnterScope has its own ExitScope, and the stop path unwinds
	// the repeat's and the if's scopes with two more of its own.
	if exits != enters+2 {
		t.Fatalf("unbalanced scopes: %d EnterScope vs %d ExitScope, want %d", enters, exits, enters+2)
	}

	stopOff, _ := p.Instructions[stopJump].Payload.I64()
	stopTarget := stopJump + 1 + int(stopOff)
	if p.Instructions[stopTarget].Op != program.OpProgramEnd {
		t.Fatalf("stop should land right at the program's end, landed on %v", p.Instructions[stopTarget].Op)
	}
}

func TestCompileForallEmptySequenceJumpBalancesScope(t *testing.T) {
	seq := ast.NewConstant(loc(), value.TupleVal(value.NewTuple()))
	forall := ast.NewForall(loc(), "", "i")
	forall.AddChild(seq)
	forall.AddChild(ast.NewIdentifier(loc(), "i"))

	p, err := Compile(forall, "t", program.OptO0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var headIdx = -1
	for i, ins := range p.Instructions {
		if ins.Op == program.OpForallHead {
			headIdx = i
			break
		}
	}
	if headIdx < 0 {
		t.Fatalf("expected a ForallHead instruction, opcodes: %v", opcodes(p))
	}
	meta, ok := p.Instructions[headIdx].Payload.Tuple()
	if !ok {
		t.Fatalf("ForallHead payload is not a Tuple")
	}
	offVal, _ := meta.Get(1)
	off, ok := offVal.I64()
	if !ok {
		t.Fatalf("ForallHead's second field is not an I64 offset")
	}
	target := headIdx + 1 + int(off)
	if p.Instructions[target].Op != program.OpExitScope {
		t.Fatalf("empty-sequence jump should land on the induction scope's closing ExitScope, landed on %v", p.Instructions[target].Op)
	}
}

func TestCompileFunctionDefAndCall(t *testing.T) {
	fn := ast.NewFunction(loc(), "add")
	spec := ast.NewParamSpec(loc())
	_ = spec.AddChild(ast.NewFromParam(loc(), "a", false, false))
	_ = spec.AddChild(ast.NewFromParam(loc(), "b", false, false))
	fn.AddChild(spec)
	plus := ast.NewBinaryOp(loc(), "+")
	plus.AddChild(ast.NewIdentifier(loc(), "a"))
	plus.AddChild(ast.NewIdentifier(loc(), "b"))
	fn.AddChild(plus)

	call := ast.NewCallFunc(loc())
	call.AddChild(ast.NewIdentifier(loc(), "add"))
	args := ast.NewParamList(loc())
	_ = args.AddChild(ast.NewConstant(loc(), value.I64Val(1)))
	_ = args.AddChild(ast.NewConstant(loc(), value.I64Val(2)))
	call.AddChild(args)

	top := ast.NewExpression(loc(), ast.ModeCondition)
	top.AddChild(fn)
	top.AddChild(call)

	p, err := Compile(top, "t", program.OptO0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	ops := opcodes(p)
	if ops[0] != program.OpFuncDef {
		t.Fatalf("expected FuncDef first, got %v", ops[0])
	}
	if ops[1] != program.OpJumpRel {
		t.Fatalf("expected a JumpRel skipping the function body, got %v", ops[1])
	}
	skipOff, _ := p.Instructions[1].Payload.I64()
	skipTarget := 1 + 1 + int(skipOff)

	var sawRet bool
	for i := 2; i < skipTarget; i++ {
		if p.Instructions[i].Op == program.OpRet {
			sawRet = true
		}
	}
	if !sawRet {
		t.Fatalf("expected a Ret before the skip target, opcodes: %v", ops[2:skipTarget])
	}
	if p.Instructions[skipTarget-1].Op != program.OpRet {
		t.Fatalf("the skip target should land right after the function's own Ret")
	}

	var callIdx = -1
	for i := skipTarget; i < len(p.Instructions); i++ {
		if p.Instructions[i].Op == program.OpCallFunc {
			callIdx = i
		}
	}
	if callIdx < 0 {
		t.Fatalf("expected a CallFunc after the function body, opcodes: %v", ops)
	}
	argc, ok := p.Instructions[callIdx].Payload.I64()
	if !ok || argc != 2 {
		t.Fatalf("expected CallFunc's payload to be the argument count 2, got %v", p.Instructions[callIdx].Payload)
	}
}

func TestCompileUnmatchedLabelIsCompileError(t *testing.T) {
	stop := ast.NewStop(loc(), "outer")
	_, err := Compile(stop, "t", program.OptO0)
	if err == nil {
		t.Fatalf("expected an error compiling a stop with no enclosing loop")
	}
	var terr *teaerr.Error
	if !asTeaErr(err, &terr) {
		t.Fatalf("expected a *teaerr.Error, got %T", err)
	}
	if terr.Kind != teaerr.KindCompile {
		t.Fatalf("expected KindCompile, got %v", terr.Kind)
	}
}

func TestCompileScopeElisionAtO2(t *testing.T) {
	ifNode := ast.NewIf(loc())
	ifNode.AddChild(ast.NewConstant(loc(), value.BoolVal(true)))
	empty := ast.NewExpression(loc(), ast.ModeCondition)
	ifNode.AddChild(empty)

	p, err := Compile(ifNode, "t", program.OptO2)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for i := 0; i+1 < len(p.Instructions); i++ {
		if p.Instructions[i].Op == program.OpEnterScope && p.Instructions[i+1].Op == program.OpExitScope {
			t.Fatalf("O2 should have elided the empty scope bracket at %d, opcodes: %v", i, opcodes(p))
		}
	}
}

func opsEqual(a, b []program.Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func asTeaErr(err error, target **teaerr.Error) bool {
	te, ok := err.(*teaerr.Error)
	if !ok {
		return false
	}
	*target = te
	return true
}
