// Package compiler lowers an AST (internal/ast) into a linear instruction
// stream (internal/program). It supports four optimization levels
// (Debug, O0, O1, O2) and aims at a soundness property: the same AST
// compiled at any level should evaluate to the same final Value under
// internal/tsvm.
//
// The Compiler struct (locals table, loop-context stack, chunk being
// built) and the loop-stack/scope-depth bookkeeping style follow
// internal/vm/compiler.go and compiler_loops.go/compiler_scope.go,
// retargeted at this package's own opcode set and extended with
// peephole/constant-fold/scope-elision passes the original register
// machine has no equivalent of.
package compiler

import (
	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// loopFrame tracks one open Repeat/Forall construct being compiled, so
// labeled `stop`/`loop` statements nested arbitrarily deep inside it (and
// inside further nested if/block scopes) can be resolved ("Labeled
// loops").
type loopFrame struct {
	label string
	kind  string // "repeat" or "forall"

	// baseDepth is the compiler's scopeDepth immediately before the loop
	// construct's own scope(s) were entered; a `stop` unwinds down to it.
	baseDepth int
	// bodyDepth is the scopeDepth a `loop` restart lands at: for a Repeat
	// that equals baseDepth (the per-iteration EnterScope runs again at
	// the head); for a Forall it is baseDepth+1 (only the induction
	// variable's scope survives a restart, not the per-iteration body
	// scope).
	bodyDepth int

	// pendingStop/pendingLoop hold the instruction index of each
	// placeholder JumpRel emitted for a `stop`/`loop` targeting this
	// loop; resolved once the loop finishes compiling.
	pendingStop []int
	pendingLoop []int
}

// funcFrame tracks the function body currently being compiled, so Return
// knows how many ExitScope instructions to emit before Ret.
type funcFrame struct {
	savedDepth int // scopeDepth as it stood in the enclosing compile, restored on exit
}

// Compiler lowers one AST root into one Program. It is not safe for
// concurrent use; create a fresh Compiler per compilation.
type Compiler struct {
	prog       *program.Program
	level      program.OptLevel
	loopStack  []*loopFrame
	scopeDepth int // EnterScope instructions emitted but not yet matched by ExitScope, relative to the current function body (or top level)
}

// Compile lowers root into a Program named name at the given optimization
// level.
func Compile(root ast.Node, name string, level program.OptLevel) (*program.Program, error) {
	c := &Compiler{prog: program.New(name, level), level: level}
	if err := c.compileNode(root); err != nil {
		return nil, err
	}
	c.emit(program.OpProgramEnd, value.NaV())
	optimize(c.prog, level)
	return c.prog, nil
}

// emit appends an instruction and returns its index.
func (c *Compiler) emit(op program.Opcode, payload value.Value) int {
	idx := len(c.prog.Instructions)
	c.prog.Instructions = append(c.prog.Instructions, program.Instruction{Op: op, Payload: payload})
	return idx
}

// emitLoc is emit plus a debug-map entry: used at every operator/identifier
// site regardless of level, since O0's debug info is a strict subset of
// Debug's. The O1/O2 passes leave the debug map as compiled.
func (c *Compiler) emitLoc(op program.Opcode, payload value.Value, loc teaerr.SourceLocation) int {
	idx := c.emit(op, payload)
	c.prog.DebugMap[idx] = loc
	return idx
}

// patch overwrites instruction idx's payload with a relative jump offset
// computed from idx to target. The convention used throughout: the VM
// adds the offset to pc after already having moved past the jump
// instruction itself, so offset == target - (idx+1).
func (c *Compiler) patch(idx int, target int) {
	c.prog.Instructions[idx].Payload = value.I64Val(int64(target - (idx + 1)))
}

func (c *Compiler) here() int { return len(c.prog.Instructions) }

func (c *Compiler) pushLoop(label, kind string, baseDepth, bodyDepth int) *loopFrame {
	f := &loopFrame{label: label, kind: kind, baseDepth: baseDepth, bodyDepth: bodyDepth}
	c.loopStack = append(c.loopStack, f)
	return f
}

func (c *Compiler) popLoop() {
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

// findLoop returns the innermost loop frame matching label (empty label
// matches the innermost loop, period), per /label-matching rules.
func (c *Compiler) findLoop(label string) (*loopFrame, error) {
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		f := c.loopStack[i]
		if label == "" || label == f.label {
			return f, nil
		}
	}
	return nil, teaerr.Newf(teaerr.KindCompile, teaerr.SourceLocation{}, "stop/loop with label %q matches no enclosing loop", label)
}

// unwind emits (scopeDepth - target) ExitScope instructions, balancing
// every scope entry still open on the jump path a `stop`/`loop` statement
// takes ("every scope entry has a matching exit on every exit path").
func (c *Compiler) unwind(target int) {
	for d := c.scopeDepth; d > target; d-- {
		c.emit(program.OpExitScope, value.NaV())
	}
}

func (c *Compiler) enterScope() {
	c.emit(program.OpEnterScope, value.NaV())
	c.scopeDepth++
}

func (c *Compiler) exitScope() {
	c.emit(program.OpExitScope, value.NaV())
	c.scopeDepth--
}

// debugMarker emits a no-op marker instruction only at Debug level;
// O0 and above never see these.
func (c *Compiler) debugMarker(op program.Opcode) {
	if c.level == program.OptDebug {
		c.emit(op, value.NaV())
	}
}
