package compiler

import (
	"github.com/tsvm-lang/teascript/internal/arith"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/value"
)

// optimize runs the peephole passes for each optimization level.
// Every pass rewrites instructions IN PLACE and never changes the
// instruction count: jump payloads are relative offsets computed against
// fixed indices during compilation (Compiler.patch), and deleting or
// inserting instructions would require renumbering every one of them.
// A folded/merged instruction group is instead tombstoned down to
// NoOp/NoOp_NaV, which is indistinguishable from "nothing happened here"
// to anything that jumps to it.
//
// Debug and O0 are left untouched: Debug's extra density is the marker
// no-ops already emitted inline during compilation, and O0 is the
// unoptimized baseline the other levels are measured against.
func optimize(prog *program.Program, level program.OptLevel) {
	if level < program.OptO1 {
		return
	}
	for peepholeOnce(prog) {
	}
	if level >= program.OptO2 {
		elideEmptyScopes(prog)
	}
}

// peepholeOnce makes one left-to-right pass merging Pop+Push into Replace
// and constant-folding a Push+Push+(BinaryOp|BitOp) triple over literal
// operands; UnaryOp instructions are not folded. It returns whether it
// changed anything, so the caller can iterate to a fixpoint. A chain such
// as "1 + 2 + 3" folds within one pass: the first fold leaves its Push
// where the next Push pair begins, so the scan folds that pair next.
func peepholeOnce(prog *program.Program) bool {
	changed := false
	ins := prog.Instructions
	for i := 0; i+1 < len(ins); i++ {
		if ins[i].Op == program.OpPop && ins[i+1].Op == program.OpPush {
			ins[i] = program.Instruction{Op: program.OpNoOp, Payload: value.NaV()}
			ins[i+1] = program.Instruction{Op: program.OpReplace, Payload: ins[i+1].Payload}
			changed = true
			continue
		}
		if i+2 < len(ins) && ins[i].Op == program.OpPush && ins[i+1].Op == program.OpPush {
			if folded, ok := foldPair(ins[i].Payload, ins[i+1].Payload, ins[i+2]); ok {
				ins[i] = program.Instruction{Op: program.OpNoOp, Payload: value.NaV()}
				ins[i+1] = program.Instruction{Op: program.OpNoOp, Payload: value.NaV()}
				ins[i+2] = program.Instruction{Op: program.OpPush, Payload: folded}
				changed = true
				continue
			}
		}
	}
	return changed
}

// foldPair evaluates op (a BinaryOp or BitOp instruction immediately
// following two constant Pushes) at compile time, using the exact same
// arithmetic helpers the VM will use at runtime (internal/arith), so
// folding can never observe a different result than leaving it unfolded
// would. Any error — type mismatch, division by zero, overflow — is left
// for the VM to raise at runtime instead.
func foldPair(a, b value.Value, op program.Instruction) (value.Value, bool) {
	switch op.Op {
	case program.OpBinaryOp:
		opName, ok := op.Payload.Str()
		if !ok {
			return value.Value{}, false
		}
		switch opName {
		case "+", "-", "*", "/", "mod":
			v, err := arith.BinaryArith(opName, a, b)
			if err != nil {
				return value.Value{}, false
			}
			return v, true
		case "<", "<=", ">", ">=", "==", "!=":
			v, err := arith.Compare(opName, a, b)
			if err != nil {
				return value.Value{}, false
			}
			return v, true
		case "%":
			return arith.Concat(a, b), true
		}
	case program.OpBitOp:
		opName, ok := op.Payload.Str()
		if !ok {
			return value.Value{}, false
		}
		v, err := arith.BitOp(opName, a, b)
		if err != nil {
			return value.Value{}, false
		}
		return v, true
	}
	return value.Value{}, false
}

// elideEmptyScopes tombstones any EnterScope immediately followed by its
// own ExitScope (an empty scope bracket, typically left behind by an
// empty If arm or loop body). Replacing both with NoOp preserves exact
// semantics for anything that jumps directly to either index: running
// EnterScope+ExitScope back to back has the same observable effect as
// running neither ("scope elision").
func elideEmptyScopes(prog *program.Program) {
	ins := prog.Instructions
	for i := 0; i+1 < len(ins); i++ {
		if ins[i].Op == program.OpEnterScope && ins[i+1].Op == program.OpExitScope {
			ins[i] = program.Instruction{Op: program.OpNoOp, Payload: value.NaV()}
			ins[i+1] = program.Instruction{Op: program.OpNoOp, Payload: value.NaV()}
		}
	}
}
