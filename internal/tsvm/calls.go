package tsvm

import (
	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// bytecodeCallable is the VM's own value.Callable implementation: a
// Function Value created by FuncDef wraps one of these, pointing back at
// the VM that defined it and the pc its body starts at. CallFunc
// recognizes a call back into the same VM and takes the fast flat-frame
// path (calls.go execCallFunc); any other caller — a host Go function
// holding the Function value directly, or a second VM's program calling
// into this one — goes through CallValue, which reenters the dispatch
// loop recursively (grounded on internal/vm/vm_calls.go's
// executeDefaultChunk reentrant technique). That reentrant path cannot
// itself be suspended or yielded from; see DESIGN.md.
type bytecodeCallable struct {
	vm        *VM
	bodyStart int
	name      string
}

func (c *bytecodeCallable) CallValue(args []value.Value) (value.Value, error) {
	return c.vm.callNested(c.bodyStart, args)
}

// callNested drives the dispatch loop for one call into bodyStart without
// going through Run's state machine, used when something other than this
// VM's own CallFunc opcode invokes a bytecode Function. It returns
// once the nested call's own Ret instruction pops back below the frame it
// pushed to track the call.
func (vm *VM) callNested(bodyStart int, args []value.Value) (value.Value, error) {
	vm.ctx.EnterScope()
	vm.ctx.PushParams(args)
	entryDepth := len(vm.frames)
	savedPC := vm.pc
	vm.pc = bodyStart
	vm.frames = append(vm.frames, callFrame{returnPC: -1, name: "<host-call>"})
	defer func() { vm.pc = savedPC }()

	for {
		if len(vm.frames) <= entryDepth {
			return vm.pop()
		}
		if vm.pc < 0 || vm.pc >= len(vm.prog.Instructions) {
			return value.Value{}, teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "program counter ran off the end of the instruction stream during a nested call")
		}
		instr := vm.prog.Instructions[vm.pc]
		if vm.OnInstruction != nil {
			vm.OnInstruction(vm.pc, instr.Op)
		}
		done, err := vm.step(instr)
		vm.instrCount++
		if err != nil {
			return value.Value{}, err
		}
		if done {
			return value.Value{}, teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "suspend, yield, and program-end are not supported inside a host-initiated call into a bytecode function")
		}
	}
}

// execCallFunc implements CallFunc n: pop n arguments and the
// callee, then either push a flat call frame (same-VM bytecode callee,
// resumable) or invoke the callee's Callable directly (any other origin).
func (vm *VM) execCallFunc(payload value.Value) error {
	n, _ := payload.I64()
	args := make([]value.Value, n)
	for i := int(n) - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	calleeV, err := vm.pop()
	if err != nil {
		return err
	}
	fn, ok := calleeV.Function()
	if !ok {
		return teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "call target is not a Function")
	}
	if bc, ok := fn.Callable.(*bytecodeCallable); ok && bc.vm == vm {
		vm.frames = append(vm.frames, callFrame{returnPC: vm.pc + 1, name: fn.Name})
		vm.ctx.EnterScope()
		vm.ctx.PushParams(args)
		vm.pc = bc.bodyStart
		return nil
	}
	result, err := fn.Call(args)
	if err != nil {
		return err
	}
	vm.push(result)
	vm.pc++
	return nil
}

// execFuncDef implements FuncDef ("Function"). Payload is a
// Tuple(name, arity). A named function also binds itself as a const in
// the enclosing scope, matching internal/ast/function.go's Function node
// defining itself before the body is reachable (so it can recurse).
func (vm *VM) execFuncDef(payload value.Value) error {
	meta, _ := payload.Tuple()
	nameV, _ := meta.Get(0)
	name, _ := nameV.Str()
	arityV, _ := meta.Get(1)
	arity, _ := arityV.I64()

	bodyStart := vm.pc + 2 // skip this instruction and the following JumpRel
	fn := &value.Function{Name: name, Origin: value.OriginBytecode, Arity: int(arity)}
	fn.Callable = &bytecodeCallable{vm: vm, bodyStart: bodyStart, name: name}
	fv := value.FunctionVal(fn)

	if name != "" && name != ast.LambdaName {
		if err := vm.ctx.DefineConst(name, fv.Share()); err != nil {
			return err
		}
	}
	vm.push(fv)
	return nil
}

// execRet implements Ret (/): pop the function's result, close its
// scope, and resume the caller at its recorded return pc.
func (vm *VM) execRet() error {
	result, err := vm.pop()
	if err != nil {
		return err
	}
	if err := vm.ctx.ExitScope(); err != nil {
		return err
	}
	if len(vm.frames) == 0 {
		return teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "Ret with no open call frame")
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.push(result)
	vm.pc = frame.returnPC
	return nil
}

// execFromParam implements FromParam: bind a required parameter,
// consuming one queued argument. Grounded on
// internal/ast/params.go's Param.bind/define with fromArgument always
// true (the compiler only emits this opcode for a Param with no Default).
func (vm *VM) execFromParam(payload value.Value) error {
	spec, _ := payload.Tuple()
	name, constFlag, sharedFlag := paramSpecFields(spec)
	v, ok := vm.ctx.ConsumeParam()
	if !ok {
		return teaerr.Newf(teaerr.KindOutOfRange, vm.prog.LocationFor(vm.pc), "missing required argument %q", name)
	}
	return vm.bindParam(name, v, true, sharedFlag, constFlag)
}

// execFromParamOr implements the two-instruction FromParam_Or pattern a
// defaulted parameter compiles to (see compiler.compileFunction's
// fromParamLead/fromParamFinish). advance is left false by the caller;
// this sets vm.pc itself in every path.
func (vm *VM) execFromParamOr(payload value.Value) error {
	spec, _ := payload.Tuple()
	name, constFlag, sharedFlag := paramSpecFields(spec)
	modeV, _ := spec.Get(3)
	mode, _ := modeV.Str()

	if mode == "finish" {
		dv, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.bindParam(name, dv, false, sharedFlag, constFlag); err != nil {
			return err
		}
		vm.pc++
		return nil
	}

	v, ok := vm.ctx.ConsumeParam()
	if ok {
		if err := vm.bindParam(name, v, true, sharedFlag, constFlag); err != nil {
			return err
		}
		offV, _ := spec.Get(4)
		off, _ := offV.I64()
		vm.pc = vm.pc + 1 + int(off)
		return nil
	}
	vm.pc++ // fall into the default expression; its "finish" instruction binds the result
	return nil
}

func paramSpecFields(spec *value.Tuple) (name string, constFlag, sharedFlag bool) {
	nameV, _ := spec.Get(0)
	name, _ = nameV.Str()
	constV, _ := spec.Get(1)
	constFlag, _ = constV.Bool()
	sharedV, _ := spec.Get(2)
	sharedFlag, _ = sharedV.Bool()
	return
}

// bindParam replicates internal/ast/params.go's Param.define: shared
// binding only applies when the value actually came from a supplied
// argument, and a parameter is const either because it says so explicitly
// or because the dialect defaults unshared parameters to const.
func (vm *VM) bindParam(name string, v value.Value, fromArgument, shared, constFlag bool) error {
	effectiveShared := fromArgument && shared
	var bv value.Value
	if effectiveShared {
		bv = v.Share()
	} else {
		bv = v.Detach()
	}
	wantConst := constFlag || (vm.ctx.Dialect.ParametersAreDefaultConst && !effectiveShared)
	if wantConst {
		return vm.ctx.DefineConst(name, bv)
	}
	return vm.ctx.DefineVar(name, bv)
}

// execForallHead implements ForallHead (/"Forall"): evaluate the
// already-pushed sequence/tuple, bind the induction variable to its first
// element, and push VM-side iteration state ForallNext will need — or, if
// the source is empty, jump straight to the loop's closing ExitScope
// (payload's second element), leaving the induction scope balanced.
func (vm *VM) execForallHead(payload value.Value) error {
	seqV, err := vm.pop()
	if err != nil {
		return err
	}
	meta, _ := payload.Tuple()
	varNameV, _ := meta.Get(0)
	varName, _ := varNameV.Str()
	offV, _ := meta.Get(1)
	offset, _ := offV.I64()

	var f forallFrame
	f.varName = varName
	switch seqV.Kind() {
	case value.KindIntegerSequence:
		seq, _ := seqV.Sequence()
		f.seq = seq
		f.length = seq.Len()
	case value.KindTuple:
		tup, _ := seqV.Tuple()
		f.isTuple = true
		f.tup = tup
		f.length = int64(tup.Len())
	default:
		return teaerr.New(teaerr.KindTypeMismatch, vm.prog.LocationFor(vm.pc), "forall requires an IntegerSequence or a Tuple")
	}

	if f.length == 0 {
		vm.push(value.NaV())
		vm.pc = vm.pc + 1 + int(offset)
		return nil
	}

	var first value.Value
	if f.isTuple {
		first = value.I64Val(0)
	} else {
		first = value.I64Val(f.seq.At(0))
	}
	if err := vm.ctx.DefineVar(varName, first); err != nil {
		return err
	}
	f.bodyStart = vm.pc + 1
	vm.foralls = append(vm.foralls, f)
	vm.pc++
	return nil
}

// execForallNext implements ForallNext (/"Forall"): advance to
// the next element and loop back, or, once exhausted, pop the iteration
// state and fall through past the loop.
func (vm *VM) execForallNext(payload value.Value) error {
	last, err := vm.pop()
	if err != nil {
		return err
	}
	if len(vm.foralls) == 0 {
		return teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "ForallNext with no open forall")
	}
	f := &vm.foralls[len(vm.foralls)-1]
	f.index++
	if f.index < f.length {
		var next value.Value
		if f.isTuple {
			next = value.I64Val(f.index)
		} else {
			next = value.I64Val(f.seq.At(f.index))
		}
		if err := vm.ctx.Set(f.varName, next); err != nil {
			return err
		}
		vm.pc = f.bodyStart
		return nil
	}
	vm.foralls = vm.foralls[:len(vm.foralls)-1]
	vm.push(last)
	vm.pc++
	return nil
}
