package tsvm

import (
	"strconv"

	"github.com/tsvm-lang/teascript/internal/arith"
	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// step executes one instruction. It returns done=true when the VM has
// reached a state (Finished/Suspended/Halted) the caller's loop should
// stop observing further instructions for; otherwise it has already
// updated vm.pc to the next instruction to execute ("Dispatch
// loop").
func (vm *VM) step(instr program.Instruction) (done bool, err error) {
	advance := true
	defer func() {
		if advance && err == nil && !done {
			vm.pc++
		}
	}()

	switch instr.Op {

	// --- Stack ---
	case program.OpPush:
		vm.push(instr.Payload)
	case program.OpPop:
		_, err = vm.pop()
	case program.OpReplace:
		if _, err = vm.pop(); err != nil {
			return
		}
		vm.push(instr.Payload)
	case program.OpSwap:
		b, e := vm.pop()
		if e != nil {
			err = e
			return
		}
		a, e := vm.pop()
		if e != nil {
			err = e
			return
		}
		vm.push(b)
		vm.push(a)
	case program.OpLoad:
		name, _ := instr.Payload.Str()
		v, e := vm.ctx.Get(name)
		if e != nil {
			err = e
			return
		}
		vm.push(v)

	// --- Binding ---
	case program.OpStor, program.OpDefVar, program.OpConstVar, program.OpAutoVar:
		err = vm.execBind(instr.Op, instr.Payload)
	case program.OpUndefVar:
		name, _ := instr.Payload.Str()
		if e := vm.ctx.Undef(name); e != nil {
			err = e
			return
		}
		vm.push(value.NaV())
	case program.OpIsDef:
		name, _ := instr.Payload.Str()
		if distance, ok := vm.ctx.IsDefined(name); ok {
			vm.push(value.I64Val(int64(distance)))
		} else {
			vm.push(value.BoolVal(false))
		}

	// --- Composite ---
	case program.OpMakeTuple:
		err = vm.execMakeTuple(instr.Payload)
	case program.OpSetElement:
		err = vm.execSetElement(instr.Payload)
	case program.OpDefElement, program.OpConstElement:
		err = vm.execDeclareElement(instr.Op, instr.Payload)
	case program.OpIsDefElement:
		err = vm.execIsDefElement(instr.Payload)
	case program.OpUndefElement:
		err = vm.execUndefElement(instr.Payload)
	case program.OpSubscriptGet:
		err = vm.execSubscriptGet()
	case program.OpSubscriptSet:
		err = vm.execSubscriptSet(instr.Payload)

	// --- Arith/logic ---
	case program.OpUnaryOp:
		err = vm.execUnaryOp(instr.Payload)
	case program.OpBinaryOp:
		err = vm.execBinaryOp(instr.Payload)
	case program.OpBitOp:
		err = vm.execBitOp(instr.Payload)
	case program.OpIsType:
		err = vm.execIsType(instr.Payload)
	case program.OpAsType:
		err = vm.execAsType(instr.Payload)
	case program.OpDotOp:
		err = vm.execDotOp(instr.Payload)

	// --- Scope/control ---
	case program.OpEnterScope:
		vm.ctx.EnterScope()
	case program.OpExitScope:
		err = vm.ctx.ExitScope()
	case program.OpTest:
		var v value.Value
		if v, err = vm.peek(); err != nil {
			return
		}
		if _, ok := v.Bool(); !ok {
			err = teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "condition must be Bool")
			return
		}
	case program.OpJumpRel:
		off, _ := instr.Payload.I64()
		vm.pc = vm.pc + 1 + int(off)
		advance = false
	case program.OpJumpRel_If:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			return
		}
		b, ok := v.Bool()
		if !ok {
			err = teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "condition must be Bool")
			return
		}
		off, _ := instr.Payload.I64()
		if b {
			vm.pc = vm.pc + 1 + int(off)
		} else {
			vm.pc++
		}
		advance = false
	case program.OpJumpRel_IfNot:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			return
		}
		b, ok := v.Bool()
		if !ok {
			err = teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "condition must be Bool")
			return
		}
		off, _ := instr.Payload.I64()
		if !b {
			vm.pc = vm.pc + 1 + int(off)
		} else {
			vm.pc++
		}
		advance = false
	case program.OpTestAndJumpRel_If:
		var v value.Value
		if v, err = vm.peek(); err != nil {
			return
		}
		b, ok := v.Bool()
		if !ok {
			err = teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "and/or require Bool operands")
			return
		}
		off, _ := instr.Payload.I64()
		if b {
			vm.pc = vm.pc + 1 + int(off)
		} else {
			vm.pc++
		}
		advance = false
	case program.OpTestAndJumpRel_IfNot:
		var v value.Value
		if v, err = vm.peek(); err != nil {
			return
		}
		b, ok := v.Bool()
		if !ok {
			err = teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "and/or require Bool operands")
			return
		}
		off, _ := instr.Payload.I64()
		if !b {
			vm.pc = vm.pc + 1 + int(off)
		} else {
			vm.pc++
		}
		advance = false
	case program.OpForallHead:
		advance = false
		err = vm.execForallHead(instr.Payload)
	case program.OpForallNext:
		advance = false
		err = vm.execForallNext(instr.Payload)

	// --- Call/func ---
	case program.OpCallFunc:
		advance = false
		err = vm.execCallFunc(instr.Payload)
	case program.OpFuncDef:
		err = vm.execFuncDef(instr.Payload)
	case program.OpRet:
		advance = false
		err = vm.execRet()
	case program.OpParamSpec:
		// Informational marker only (payload is the param count); binding
		// happens instruction-by-instruction via FromParam/FromParam_Or.
	case program.OpParamSpecClean:
		if remaining := vm.ctx.RemainingParams(); remaining != 0 {
			err = teaerr.Newf(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "%d unconsumed argument(s)", remaining)
		}
	case program.OpFromParam:
		err = vm.execFromParam(instr.Payload)
	case program.OpFromParam_Or:
		advance = false
		err = vm.execFromParamOr(instr.Payload)

	// --- Program lifecycle ---
	case program.OpHALT:
		done = true
		vm.state = StateHalted
		vm.err = teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "halted")
		err = vm.err
	case program.OpProgramEnd:
		done = true
		var v value.Value
		if v, err = vm.pop(); err != nil {
			return
		}
		vm.result = v
		vm.state = StateFinished
	case program.OpExitProgram:
		done = true
		var v value.Value
		if v, err = vm.pop(); err != nil {
			return
		}
		for len(vm.frames) > 0 {
			vm.frames = vm.frames[:len(vm.frames)-1]
			if e := vm.ctx.ExitScope(); e != nil {
				err = e
				return
			}
		}
		vm.stack = vm.stack[:0]
		vm.result = v
		vm.state = StateFinished
	case program.OpSuspend:
		done = true
		vm.pc++
		vm.result = value.NaV()
		vm.lastSuspendWasYield = false
		vm.state = StateSuspended
	case program.OpYield:
		done = true
		var v value.Value
		if v, err = vm.pop(); err != nil {
			return
		}
		vm.pc++
		vm.result = v
		vm.lastSuspendWasYield = true
		vm.state = StateSuspended

	// --- Debug no-ops ---
	case program.OpNoOp:
		// nothing
	case program.OpNoOp_NaV:
		vm.push(value.NaV())
	case program.OpDebug, program.OpExprStart, program.OpExprEnd,
		program.OpIf, program.OpElse, program.OpRepeatStart, program.OpRepeatEnd,
		program.OpParamList:
		// marker no-ops, never touch the operand stack.
	case program.OpNotImplemented:
		err = teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "NotImplemented instruction executed")

	default:
		err = teaerr.Newf(teaerr.KindRuntime, teaerr.SourceLocation{}, "unknown opcode %s", instr.Op)
	}

	return
}

// execBind implements Stor/DefVar/ConstVar/AutoVar ("Assignment to
// identifier", "Binding"). The stack holds [name, rhs]; the payload
// is the shared-assign boolean. Grounded on internal/ast/assign.go's
// Assign.Evaluate: the share-vs-detach happens once here, exactly the way
// it happens once in Evaluate before dispatching to the Context method,
// including that method's own internal re-share for the shared/Plain
// combination (ctx.SetShared shares its argument again) — replicated
// faithfully so AST-eval and VM-eval observe the same share counts.
func (vm *VM) execBind(op program.Opcode, payload value.Value) error {
	rhs, err := vm.pop()
	if err != nil {
		return err
	}
	nameV, err := vm.pop()
	if err != nil {
		return err
	}
	name, _ := nameV.Str()
	shared, _ := payload.Bool()
	if shared {
		rhs = rhs.Share()
	} else {
		rhs = rhs.Detach()
	}

	switch op {
	case program.OpDefVar:
		err = vm.ctx.DefineVar(name, rhs)
	case program.OpConstVar:
		err = vm.ctx.DefineConst(name, rhs)
	case program.OpAutoVar:
		if _, ok := vm.ctx.IsDefined(name); ok {
			if shared {
				err = vm.ctx.SetShared(name, rhs)
			} else {
				err = vm.ctx.Set(name, rhs)
			}
		} else {
			err = vm.ctx.DefineVar(name, rhs)
		}
	default: // OpStor
		if shared {
			err = vm.ctx.SetShared(name, rhs)
		} else {
			err = vm.ctx.Set(name, rhs)
		}
	}
	if err != nil {
		return err
	}
	vm.push(rhs)
	return nil
}

// execMakeTuple implements MakeTuple n ("Expression"): the stack
// holds n (value, key-or-NaV) pairs pushed in source order by
// compiler.compileExpression.
func (vm *VM) execMakeTuple(payload value.Value) error {
	n, _ := payload.I64()
	type pair struct{ v, k value.Value }
	pairs := make([]pair, n)
	for i := int(n) - 1; i >= 0; i-- {
		k, err := vm.pop()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		pairs[i] = pair{v: v, k: k}
	}
	tup := value.NewTuple()
	for _, p := range pairs {
		if key, ok := p.k.Str(); ok {
			if err := tup.AppendNamed(key, p.v); err != nil {
				return teaerr.New(teaerr.KindRedefinition, teaerr.SourceLocation{}, err.Error())
			}
			continue
		}
		_ = tup.Append(p.v)
	}
	vm.push(value.TupleVal(tup))
	return nil
}

// execDotOp implements DotOp, reading a Tuple element by key or
// positional index. Grounded on internal/ast/dot.go's DotOp.Evaluate.
func (vm *VM) execDotOp(payload value.Value) error {
	target, err := vm.pop()
	if err != nil {
		return err
	}
	tup, ok := target.Tuple()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "dot operator requires a Tuple target")
	}
	var v value.Value
	if key, isKey := payload.Str(); isKey {
		v, ok = tup.GetByKey(key)
	} else {
		idx, _ := payload.I64()
		v, ok = tup.Get(int(idx))
	}
	if !ok {
		return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "tuple element not found")
	}
	vm.push(v)
	return nil
}

// execSubscriptGet implements SubscriptGet. Grounded on
// internal/ast/subscript.go's Subscript.Evaluate.
func (vm *VM) execSubscriptGet() error {
	idxV, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	switch target.Kind() {
	case value.KindTuple:
		tup, _ := target.Tuple()
		if s, ok := idxV.Str(); ok {
			v, ok := tup.GetByKey(s)
			if !ok {
				return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "tuple key not found")
			}
			vm.push(v)
			return nil
		}
		idx, ok := idxV.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "tuple subscript requires an integer or String index")
		}
		v, ok := tup.Get(int(idx))
		if !ok {
			return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "tuple index out of range")
		}
		vm.push(v)
		return nil
	case value.KindBuffer:
		idx, ok := idxV.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "buffer subscript requires an integer index")
		}
		buf, _ := target.Buffer()
		if idx < 0 || int(idx) >= len(buf) {
			return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "buffer index out of range")
		}
		vm.push(value.U8Val(buf[idx]))
		return nil
	}
	return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "subscript requires a Tuple or Buffer target")
}

// execSetElement implements SetElement ("Assign ... LHS may be ...
// a dot-op"). Stack: [target, keyOrIndex, rhs]; payload carries the
// shared-assign flag. Grounded on internal/ast/dot.go's DotOp.AssignTo.
func (vm *VM) execSetElement(payload value.Value) error {
	rhs, err := vm.pop()
	if err != nil {
		return err
	}
	keyOrIdx, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	if target.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot assign into a const Tuple")
	}
	tup, ok := target.Tuple()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "dot operator requires a Tuple target")
	}
	shared, _ := payload.Bool()
	if shared {
		rhs = rhs.Share()
	} else {
		rhs = rhs.Detach()
	}
	if key, isKey := keyOrIdx.Str(); isKey {
		old, existed := tup.SetByKey(key, rhs)
		if existed {
			old.Release()
		}
		vm.push(rhs)
		return nil
	}
	idx, _ := keyOrIdx.I64()
	if int(idx) == tup.Len() {
		if err := tup.Append(rhs); err != nil {
			return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, err.Error())
		}
		vm.push(rhs)
		return nil
	}
	old, err := tup.Set(int(idx), rhs)
	if err != nil {
		return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, err.Error())
	}
	old.Release()
	vm.push(rhs)
	return nil
}

// execSubscriptSet implements SubscriptSet. Stack: [target, index, rhs];
// payload carries the shared-assign flag.
// Grounded on internal/ast/subscript.go's Subscript.AssignTo.
func (vm *VM) execSubscriptSet(payload value.Value) error {
	rhs, err := vm.pop()
	if err != nil {
		return err
	}
	idxV, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	if target.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot assign into a const Tuple or Buffer")
	}
	shared, _ := payload.Bool()
	if shared {
		rhs = rhs.Share()
	} else {
		rhs = rhs.Detach()
	}
	switch target.Kind() {
	case value.KindTuple:
		tup, _ := target.Tuple()
		if s, ok := idxV.Str(); ok {
			old, existed := tup.SetByKey(s, rhs)
			if existed {
				old.Release()
			}
			vm.push(rhs)
			return nil
		}
		idx, ok := idxV.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "tuple subscript requires an integer or String index")
		}
		old, err := tup.Set(int(idx), rhs)
		if err != nil {
			return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, err.Error())
		}
		old.Release()
		vm.push(rhs)
		return nil
	case value.KindBuffer:
		idx, ok := idxV.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "buffer subscript requires an integer index")
		}
		b, ok := rhs.U8()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "buffer elements are u8 only")
		}
		buf, _ := target.Buffer()
		if idx < 0 || int(idx) >= len(buf) {
			return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "buffer index out of range")
		}
		buf[idx] = b
		target.SetBuffer(buf)
		vm.push(rhs)
		return nil
	}
	return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "subscript requires a Tuple or Buffer target")
}

// execDeclareElement implements DefElement/ConstElement: declaring a new
// keyed Tuple element, symmetric with DefVar/ConstVar declaring a new
// Context binding ("Composite"). Not reachable from the current
// grammar (no AST node emits it yet; see DESIGN.md), but implemented to
// the same redefinition-checked contract DefineVar/DefineConst apply to
// identifiers. Stack: [target, rhs]; payload is a Tuple(key, shared).
func (vm *VM) execDeclareElement(op program.Opcode, payload value.Value) error {
	rhs, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	if target.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot declare an element in a const Tuple")
	}
	tup, ok := target.Tuple()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "element declaration requires a Tuple target")
	}
	spec, _ := payload.Tuple()
	keyV, _ := spec.Get(0)
	key, _ := keyV.Str()
	sharedV, _ := spec.Get(1)
	shared, _ := sharedV.Bool()

	if _, exists := tup.GetByKey(key); exists {
		return teaerr.Newf(teaerr.KindRedefinition, teaerr.SourceLocation{}, "tuple key %q already defined", key)
	}
	if shared {
		rhs = rhs.Share()
	} else {
		rhs = rhs.Detach()
	}
	if op == program.OpConstElement {
		rhs = rhs.AsConst()
	} else {
		rhs = rhs.AsMutable()
	}
	if err := tup.AppendNamed(key, rhs); err != nil {
		return teaerr.New(teaerr.KindRedefinition, teaerr.SourceLocation{}, err.Error())
	}
	vm.push(rhs)
	return nil
}

// execIsDefElement implements IsDefElement, the Tuple-key analogue of
// IsDef. Stack: [target]; payload is the key (StringVal).
func (vm *VM) execIsDefElement(payload value.Value) error {
	target, err := vm.pop()
	if err != nil {
		return err
	}
	tup, ok := target.Tuple()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "IsDefElement requires a Tuple target")
	}
	key, _ := payload.Str()
	_, exists := tup.GetByKey(key)
	vm.push(value.BoolVal(exists))
	return nil
}

// execUndefElement implements UndefElement, the Tuple-key analogue of
// UndefVar: it refuses to remove a const element, mirroring Context.Undef
// refusing a const binding.
func (vm *VM) execUndefElement(payload value.Value) error {
	target, err := vm.pop()
	if err != nil {
		return err
	}
	tup, ok := target.Tuple()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "UndefElement requires a Tuple target")
	}
	key, _ := payload.Str()
	idx := -1
	tup.Range(func(i int, k string, v value.Value) bool {
		if k == key {
			idx = i
			return false
		}
		return true
	})
	if idx < 0 {
		return teaerr.Newf(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "tuple key %q not found", key)
	}
	v, _ := tup.Get(idx)
	if v.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot undefine a const tuple element")
	}
	v.Release()
	if err := tup.RemoveAt(idx); err != nil {
		return teaerr.New(teaerr.KindOutOfRange, teaerr.SourceLocation{}, err.Error())
	}
	vm.push(value.NaV())
	return nil
}

// execUnaryOp implements UnaryOp. Grounded on internal/ast/unary.go's
// UnaryOp.Evaluate — shares internal/arith so AST-eval and VM-eval can
// never diverge.
func (vm *VM) execUnaryOp(payload value.Value) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	op, _ := payload.Str()
	var result value.Value
	switch op {
	case ast.OpNot:
		result, err = arith.Not(v)
	case ast.OpBitNot, ast.OpNeg, ast.OpPos:
		result, err = arith.UnaryArith(op, v)
	case ast.OpShareCnt:
		result = value.I64Val(v.ShareCount())
	case ast.OpTypeof:
		ti := v.TypeInfo()
		result = value.PassthroughVal(ti, value.Passthrough{TypeName: "TypeInfo", Payload: ti})
	case ast.OpTypename:
		ti := v.TypeInfo()
		if ti == nil {
			result = value.StringVal("")
		} else {
			result = value.StringVal(ti.Name())
		}
	default:
		err = teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown unary operator %q", op)
	}
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

// execBinaryOp implements BinaryOp for every op except and/or, which
// lower to TestAndJumpRel_If/IfNot instead ("Short-circuit
// and/or"). Grounded on internal/ast/binary.go's BinaryOp.Evaluate.
func (vm *VM) execBinaryOp(payload value.Value) error {
	rv, err := vm.pop()
	if err != nil {
		return err
	}
	lv, err := vm.pop()
	if err != nil {
		return err
	}
	op, _ := payload.Str()
	var result value.Value
	switch op {
	case "+", "-", "*", "/", "mod":
		result, err = arith.BinaryArith(op, lv, rv)
	case "<", "<=", ">", ">=", "==", "!=":
		result, err = arith.Compare(op, lv, rv)
	case "@@":
		result = value.BoolVal(lv.SharedWith(rv))
	case "%":
		result = arith.Concat(lv, rv)
	default:
		err = teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown binary operator %q", op)
	}
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

// execBitOp implements BitOp.
func (vm *VM) execBitOp(payload value.Value) error {
	rv, err := vm.pop()
	if err != nil {
		return err
	}
	lv, err := vm.pop()
	if err != nil {
		return err
	}
	op, _ := payload.Str()
	result, err := arith.BitOp(op, lv, rv)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

// execIsType/execAsType implement IsType/AsType. Payload is the target
// type name; the TypeSystem's LookupByName exists
// specifically to serve these two opcodes (internal/value/typesystem.go).
func (vm *VM) execIsType(payload value.Value) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	name, _ := payload.Str()
	ti, ok := vm.ctx.TypeSystem.LookupByName(name)
	vm.push(value.BoolVal(ok && v.TypeInfo() != nil && v.TypeInfo().Name() == ti.Name()))
	return nil
}

func (vm *VM) execAsType(payload value.Value) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	name, _ := payload.Str()
	ti, ok := vm.ctx.TypeSystem.LookupByName(name)
	if !ok {
		return teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "unknown type %q", name)
	}
	if v.TypeInfo() == ti {
		vm.push(v)
		return nil
	}
	if ti.Kind() == value.KindString && isNumericKind(v.Kind()) {
		vm.push(value.StringVal(numericToString(v)))
		return nil
	}
	if isNumericKind(ti.Kind()) && isNumericKind(v.Kind()) {
		vm.push(coerceNumeric(v, ti.Kind()))
		return nil
	}
	return teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "cannot cast %s to %s", v.Kind(), ti.Name())
}

func numericToString(v value.Value) string {
	switch v.Kind() {
	case value.KindU8:
		b, _ := v.U8()
		return strconv.FormatUint(uint64(b), 10)
	case value.KindI64:
		i, _ := v.I64()
		return strconv.FormatInt(i, 10)
	case value.KindU64:
		u, _ := v.U64()
		return strconv.FormatUint(u, 10)
	case value.KindF64:
		f, _ := v.F64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return ""
}

func isNumericKind(k value.Kind) bool {
	switch k {
	case value.KindU8, value.KindI64, value.KindU64, value.KindF64:
		return true
	}
	return false
}

func coerceNumeric(v value.Value, target value.Kind) value.Value {
	var f float64
	switch v.Kind() {
	case value.KindU8:
		b, _ := v.U8()
		f = float64(b)
	case value.KindI64:
		i, _ := v.I64()
		f = float64(i)
	case value.KindU64:
		u, _ := v.U64()
		f = float64(u)
	case value.KindF64:
		f, _ = v.F64()
	}
	switch target {
	case value.KindU8:
		return value.U8Val(byte(f))
	case value.KindI64:
		return value.I64Val(int64(f))
	case value.KindU64:
		return value.U64Val(uint64(f))
	case value.KindF64:
		return value.F64Val(f)
	}
	return v
}
