package compiler

import (
	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// compileNode dispatches on the concrete AST node type and lowers it,
// leaving exactly one Value on the operand stack when it returns (every
// node kind evaluates to a value under AST-eval, and the compiled form
// preserves that one-value-per-node discipline).
// fromParamLead/fromParamFinish tag the two FromParam_Or instructions a
// defaulted parameter compiles to (see compileFunction).
const (
	fromParamLead   = "lead"
	fromParamFinish = "finish"
)

func (c *Compiler) compileNode(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Constant:
		c.emit(program.OpPush, node.Val)
		return nil
	case *ast.Identifier:
		c.emitLoc(program.OpLoad, value.StringVal(node.Name), node.Location())
		return nil
	case *ast.Expression:
		return c.compileExpression(node)
	case *ast.TupleElement:
		return c.compileNode(node.Value)
	case *ast.UnaryOp:
		return c.compileUnary(node)
	case *ast.BinaryOp:
		return c.compileBinary(node)
	case *ast.BitOp:
		if err := c.compileNode(node.Left); err != nil {
			return err
		}
		if err := c.compileNode(node.Right); err != nil {
			return err
		}
		c.emitLoc(program.OpBitOp, value.StringVal(node.Op), node.Location())
		return nil
	case *ast.Assign:
		return c.compileAssign(node)
	case *ast.DotOp:
		return c.compileDotOp(node)
	case *ast.Subscript:
		return c.compileSubscript(node)
	case *ast.If:
		return c.compileIf(node)
	case *ast.Repeat:
		return c.compileRepeat(node)
	case *ast.Forall:
		return c.compileForall(node)
	case *ast.Loop:
		return c.compileLoop(node)
	case *ast.Stop:
		return c.compileStop(node)
	case *ast.Return:
		return c.compileReturn(node)
	case *ast.Exit:
		return c.compileExit(node)
	case *ast.Yield:
		return c.compileYield(node)
	case *ast.Suspend:
		// Suspend itself leaves nothing on the operand stack (unlike
		// Yield, which carries its result), so it needs its own trailing
		// Push NaV to keep the one-value-per-statement invariant.
		c.emit(program.OpSuspend, value.NaV())
		c.emit(program.OpPush, value.NaV())
		return nil
	case *ast.Function:
		return c.compileFunction(node)
	case *ast.CallFunc:
		return c.compileCallFunc(node)
	default:
		return teaerr.Newf(teaerr.KindCompile, n.Location(), "compiler has no lowering for node kind %q", n.KindName())
	}
}

// compileExpression lowers 's two-mode node: ModeCondition evaluates
// every child for effect, keeping only the last; ModeExpression is a
// single value or a Tuple literal.
func (c *Compiler) compileExpression(n *ast.Expression) error {
	c.debugMarker(program.OpExprStart)
	defer c.debugMarker(program.OpExprEnd)
	if len(n.Children) == 0 {
		c.emit(program.OpPush, value.NaV())
		return nil
	}
	if n.Mode == ast.ModeCondition {
		for i, child := range n.Children {
			if i > 0 {
				c.emit(program.OpPop, value.NaV())
			}
			if err := c.compileNode(child); err != nil {
				return err
			}
		}
		return nil
	}
	if len(n.Children) == 1 {
		return c.compileNode(n.Children[0])
	}
	for _, child := range n.Children {
		if el, ok := child.(*ast.TupleElement); ok && el.HasKey {
			if err := c.compileNode(el.Value); err != nil {
				return err
			}
			c.emit(program.OpPush, value.StringVal(el.Key))
			continue
		}
		if err := c.compileNode(child); err != nil {
			return err
		}
		c.emit(program.OpPush, value.NaV()) // no key: MakeTuple reads a (value, key-or-NaV) pair per element
	}
	// Stack is now [v0, k0, v1, k1, ...]; MakeTuple's payload is the
	// element count.
	c.emit(program.OpMakeTuple, value.I64Val(int64(len(n.Children))))
	return nil
}

func (c *Compiler) compileUnary(n *ast.UnaryOp) error {
	if err := c.compileNode(n.Operand); err != nil {
		return err
	}
	c.emitLoc(program.OpUnaryOp, value.StringVal(n.Op), n.Location())
	return nil
}

// compileBinary lowers a binary operator, giving `and`/`or` the
// short-circuit jump shape: evaluate the left
// operand, TestAndJumpRel_If(Not) past an interposed Pop+right-hand-side
// when the left operand alone already decides the result.
func (c *Compiler) compileBinary(n *ast.BinaryOp) error {
	if n.Op == "and" || n.Op == "or" {
		if err := c.compileNode(n.Left); err != nil {
			return err
		}
		var shortCircuit program.Opcode
		if n.Op == "or" {
			shortCircuit = program.OpTestAndJumpRel_If
		} else {
			shortCircuit = program.OpTestAndJumpRel_IfNot
		}
		jmp := c.emitLoc(shortCircuit, value.I64Val(0), n.Location())
		c.emit(program.OpPop, value.NaV())
		if err := c.compileNode(n.Right); err != nil {
			return err
		}
		c.patch(jmp, c.here())
		return nil
	}
	if err := c.compileNode(n.Left); err != nil {
		return err
	}
	if err := c.compileNode(n.Right); err != nil {
		return err
	}
	c.emitLoc(program.OpBinaryOp, value.StringVal(n.Op), n.Location())
	return nil
}

// compileAssign lowers an Assign node: push the target name (for an
// Identifier LHS) or the target/index pair (for Dot/Subscript), evaluate
// the RHS, then emit the Stor/DefVar/ConstVar/SetElement/SubscriptSet
// variant carrying the shared-vs-copy flag as its payload.
func (c *Compiler) compileAssign(n *ast.Assign) error {
	switch lhs := n.LHS.(type) {
	case *ast.Identifier:
		c.emit(program.OpPush, value.StringVal(lhs.Name))
		if err := c.compileNode(n.RHS); err != nil {
			return err
		}
		var op program.Opcode
		switch n.Mode {
		case ast.AssignDef:
			op = program.OpDefVar
		case ast.AssignConst:
			op = program.OpConstVar
		default:
			op = program.OpStor
		}
		c.emitLoc(op, value.BoolVal(n.Shared), n.Location())
		return nil
	case *ast.DotOp:
		if err := c.compileNode(lhs.Target); err != nil {
			return err
		}
		if lhs.HasKey {
			c.emit(program.OpPush, value.StringVal(lhs.Key))
		} else {
			c.emit(program.OpPush, value.I64Val(lhs.Index))
		}
		if err := c.compileNode(n.RHS); err != nil {
			return err
		}
		c.emitLoc(program.OpSetElement, value.BoolVal(n.Shared), n.Location())
		return nil
	case *ast.Subscript:
		if err := c.compileNode(lhs.Target); err != nil {
			return err
		}
		if err := c.compileNode(lhs.Index); err != nil {
			return err
		}
		if err := c.compileNode(n.RHS); err != nil {
			return err
		}
		c.emitLoc(program.OpSubscriptSet, value.BoolVal(n.Shared), n.Location())
		return nil
	}
	return teaerr.New(teaerr.KindCompile, n.Location(), "assign target is not an Identifier, DotOp, or Subscript")
}

func (c *Compiler) compileDotOp(n *ast.DotOp) error {
	if err := c.compileNode(n.Target); err != nil {
		return err
	}
	if n.HasKey {
		c.emitLoc(program.OpDotOp, value.StringVal(n.Key), n.Location())
	} else {
		c.emitLoc(program.OpDotOp, value.I64Val(n.Index), n.Location())
	}
	return nil
}

func (c *Compiler) compileSubscript(n *ast.Subscript) error {
	if err := c.compileNode(n.Target); err != nil {
		return err
	}
	if err := c.compileNode(n.Index); err != nil {
		return err
	}
	c.emitLoc(program.OpSubscriptGet, value.NaV(), n.Location())
	return nil
}

// compileFunction lowers "Function": `FuncDef name` (payload: a
// Tuple of (name, required-arity)), a JumpRel skipping the body for the
// surrounding control flow, then the body itself starting at ParamSpec.
// The VM creates the Function Value when FuncDef executes and resumes
// normal flow right after the JumpRel.
func (c *Compiler) compileFunction(n *ast.Function) error {
	meta := value.NewTuple()
	_ = meta.Append(value.StringVal(n.Name))
	_ = meta.Append(value.I64Val(int64(n.Params.Arity())))
	c.emitLoc(program.OpFuncDef, value.TupleVal(meta), n.Location())
	skip := c.emit(program.OpJumpRel, value.I64Val(0))

	savedDepth := c.scopeDepth
	c.scopeDepth = 0
	c.emit(program.OpParamSpec, value.I64Val(int64(len(n.Params.Params))))
	for _, p := range n.Params.Params {
		if p.Default == nil {
			spec := value.NewTuple()
			_ = spec.Append(value.StringVal(p.Name))
			_ = spec.Append(value.BoolVal(p.Const))
			_ = spec.Append(value.BoolVal(p.Shared))
			c.emit(program.OpFromParam, value.TupleVal(spec))
			continue
		}
		// A defaulted parameter compiles to two FromParam_Or instructions
		// bracketing the default expression: "lead" consumes a supplied
		// argument if there is one and, if so, jumps past the default
		// expression and "finish" entirely (since compileFunction's linear
		// stream has no other way to skip them); "finish" runs only when
		// the lead found nothing to consume, binding whatever the default
		// expression just left on the stack.
		leadSpec := value.NewTuple()
		_ = leadSpec.Append(value.StringVal(p.Name))
		_ = leadSpec.Append(value.BoolVal(p.Const))
		_ = leadSpec.Append(value.BoolVal(p.Shared))
		_ = leadSpec.Append(value.StringVal(fromParamLead))
		_ = leadSpec.Append(value.I64Val(0)) // patched below once finishIdx is known
		leadIdx := c.emit(program.OpFromParam_Or, value.TupleVal(leadSpec))

		if err := c.compileNode(p.Default); err != nil {
			c.scopeDepth = savedDepth
			return err
		}

		finishSpec := value.NewTuple()
		_ = finishSpec.Append(value.StringVal(p.Name))
		_ = finishSpec.Append(value.BoolVal(p.Const))
		_ = finishSpec.Append(value.BoolVal(p.Shared))
		_ = finishSpec.Append(value.StringVal(fromParamFinish))
		finishIdx := c.emit(program.OpFromParam_Or, value.TupleVal(finishSpec))

		_, _ = leadSpec.Set(4, value.I64Val(int64(finishIdx-leadIdx)))
	}
	c.emit(program.OpParamSpecClean, value.NaV())
	if err := c.compileNode(n.Body); err != nil {
		c.scopeDepth = savedDepth
		return err
	}
	c.emit(program.OpRet, value.NaV())
	c.scopeDepth = savedDepth

	c.patch(skip, c.here())
	return nil
}

func (c *Compiler) compileCallFunc(n *ast.CallFunc) error {
	if err := c.compileNode(n.Callee); err != nil {
		return err
	}
	for _, arg := range n.Args.Args {
		if err := c.compileNode(arg); err != nil {
			return err
		}
	}
	c.emitLoc(program.OpCallFunc, value.I64Val(int64(len(n.Args.Args))), n.Location())
	return nil
}
