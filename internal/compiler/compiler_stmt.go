package compiler

import (
	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/value"
)

// compileIf lowers "If/Else": condition and body share one scope
// bracket, and the condition's truth decides which arm to jump
// past via Test+JumpRel_IfNot ("If/else").
func (c *Compiler) compileIf(n *ast.If) error {
	c.debugMarker(program.OpIf)
	c.enterScope()
	if err := c.compileNode(n.Condition); err != nil {
		return err
	}
	c.emit(program.OpTest, value.NaV())
	jmpToElse := c.emit(program.OpJumpRel_IfNot, value.I64Val(0))

	if err := c.compileNode(n.Then); err != nil {
		return err
	}
	jmpToEnd := c.emit(program.OpJumpRel, value.I64Val(0))

	c.patch(jmpToElse, c.here())
	c.debugMarker(program.OpElse)
	if n.Else != nil {
		if err := c.compileNode(n.Else); err != nil {
			return err
		}
	} else {
		c.emit(program.OpPush, value.NaV())
	}
	c.patch(jmpToEnd, c.here())
	c.exitScope()
	return nil
}

// compileRepeat lowers "Repeat": an unbounded loop, each iteration
// bracketed by its own scope, terminated only by a matching `stop` or an
// escaping error ("Repeat").
func (c *Compiler) compileRepeat(n *ast.Repeat) error {
	c.debugMarker(program.OpRepeatStart)
	baseDepth := c.scopeDepth
	frame := c.pushLoop(n.Label, "repeat", baseDepth, baseDepth)

	headIdx := c.here()
	c.enterScope()
	if err := c.compileNode(n.Body); err != nil {
		return err
	}
	c.exitScope()
	c.emit(program.OpPop, value.NaV())
	back := c.emit(program.OpJumpRel, value.I64Val(0))
	c.patch(back, headIdx)
	c.debugMarker(program.OpRepeatEnd)

	loopEnd := c.here()
	for _, idx := range frame.pendingStop {
		c.patch(idx, loopEnd)
	}
	for _, idx := range frame.pendingLoop {
		c.patch(idx, headIdx)
	}
	c.popLoop()
	return nil
}

// compileForall lowers "Forall": the sequence is evaluated once, an
// induction-variable scope wraps the whole loop, and each iteration's
// body gets its own nested scope ("Forall").
func (c *Compiler) compileForall(n *ast.Forall) error {
	if err := c.compileNode(n.Seq); err != nil {
		return err
	}

	baseDepth := c.scopeDepth
	c.enterScope() // induction-variable scope
	headIdx := c.emit(program.OpForallHead, value.TupleVal(forallHeadPayload(n.VarName, 0)))

	frame := c.pushLoop(n.Label, "forall", baseDepth, baseDepth+1)

	c.enterScope() // per-iteration body scope
	if err := c.compileNode(n.Body); err != nil {
		return err
	}
	c.exitScope()
	nextIdx := c.emit(program.OpForallNext, value.StringVal(n.VarName))
	c.exitScope() // induction-variable scope

	loopEnd := c.here()
	for _, idx := range frame.pendingStop {
		c.patch(idx, loopEnd)
	}
	for _, idx := range frame.pendingLoop {
		c.patch(idx, nextIdx)
	}
	c.popLoop()

	// Patch ForallHead's empty-sequence jump: it must still land on the
	// induction scope's own closing ExitScope so that scope is balanced
	// even when the body never runs.
	c.prog.Instructions[headIdx].Payload = value.TupleVal(forallHeadPayload(n.VarName, loopEnd-1-(headIdx+1)))
	return nil
}

// forallHeadPayload packs ForallHead's two pieces of state — the
// induction variable's name and the relative jump to take when the
// sequence/tuple is empty — into a Tuple, since an instruction carries a
// single payload Value.
func forallHeadPayload(varName string, emptyJumpOffset int) *value.Tuple {
	t := value.NewTuple()
	_ = t.Append(value.StringVal(varName))
	_ = t.Append(value.I64Val(int64(emptyJumpOffset)))
	return t
}

func (c *Compiler) compileLoop(n *ast.Loop) error {
	frame, err := c.findLoop(n.Label)
	if err != nil {
		return err
	}
	if frame.kind == "forall" {
		// ForallNext expects one value on the stack to fold into its
		// per-iteration bookkeeping; a bare `loop` doesn't carry one.
		c.emit(program.OpPush, value.NaV())
	}
	c.unwind(frame.bodyDepth)
	idx := c.emit(program.OpJumpRel, value.I64Val(0))
	frame.pendingLoop = append(frame.pendingLoop, idx)
	return nil
}

func (c *Compiler) compileStop(n *ast.Stop) error {
	frame, err := c.findLoop(n.Label)
	if err != nil {
		return err
	}
	if n.Result != nil {
		if err := c.compileNode(n.Result); err != nil {
			return err
		}
	} else {
		c.emit(program.OpPush, value.NaV())
	}
	c.unwind(frame.baseDepth)
	idx := c.emit(program.OpJumpRel, value.I64Val(0))
	frame.pendingStop = append(frame.pendingStop, idx)
	return nil
}

// compileReturn lowers /"Return": valid only inside a function
// body, where the compiler's scopeDepth is function-relative (reset to 0
// by compileFunction), so Return always unwinds down to 0 before Ret.
func (c *Compiler) compileReturn(n *ast.Return) error {
	if n.Result != nil {
		if err := c.compileNode(n.Result); err != nil {
			return err
		}
	} else {
		c.emit(program.OpPush, value.NaV())
	}
	c.unwind(0)
	c.emit(program.OpRet, value.NaV())
	return nil
}

// compileExit lowers /"Exit": a normal termination, not an error,
// that unwinds every scope (including ones opened by enclosing function
// calls) down to the root. The VM's ExitProgram handler does that
// unwinding itself since the compiler has no static knowledge of how many
// call frames might be open at runtime.
func (c *Compiler) compileExit(n *ast.Exit) error {
	if n.Result != nil {
		if err := c.compileNode(n.Result); err != nil {
			return err
		}
	} else {
		c.emit(program.OpPush, value.NaV())
	}
	c.emit(program.OpExitProgram, value.NaV())
	return nil
}

// compileYield lowers /"Yield": suspends the coroutine, handing
// its operand back to whoever resumed it; execution continues with the
// Value the resumer supplies ("run_for" resumes exactly after the
// Suspend/Yield point).
func (c *Compiler) compileYield(n *ast.Yield) error {
	if n.Result != nil {
		if err := c.compileNode(n.Result); err != nil {
			return err
		}
	} else {
		c.emit(program.OpPush, value.NaV())
	}
	c.emit(program.OpYield, value.NaV())
	return nil
}
