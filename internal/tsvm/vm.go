// Package tsvm implements the TSVM stack-based virtual machine:
// the dispatch loop that executes a compiled internal/program.Program
// against an internal/context.Context, honoring suspension and
// instruction/time budgets.
//
// Grounded on internal/vm/vm.go's VM struct (operand stack, call-frame
// stack, dispatch loop with a periodic cancellation check) and on
// internal/vm/vm_calls.go's executeDefaultChunk reentrant technique,
// retargeted from a register-free tree-walking bytecode onto TSVM's own
// instruction set: a flat, VM-owned CallFrame+pc stack drives
// bytecode-to-bytecode calls inside one iterative loop (so a
// Suspend/Yield mid-call can be resumed later), while the rarer case of a
// host Go function invoking a script Function value reenters the loop
// recursively, mirroring executeDefaultChunk.
package tsvm

import (
	"sync/atomic"

	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// State is the VM's run state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateSuspended
	StateFinished
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFinished:
		return "finished"
	case StateHalted:
		return "halted"
	default:
		return "?"
	}
}

// ConstraintKind selects the execution budget a Run applies. Beyond the
// three kinds original_source/include/teascript/StackVMConstraints.hpp
// defines, this adds ConstraintAutoContinue, used by the coroutine engine
// to keep driving a program through its own internal Suspend points
// without handing control back to the host each time.
type ConstraintKind int

const (
	ConstraintUnlimited ConstraintKind = iota
	ConstraintInstructionCount
	ConstraintWallTime
	ConstraintAutoContinue
)

// timePollGranularity is how many instructions elapse between wall-clock
// reads under ConstraintWallTime, amortizing the cost of a clock read
// ("time budget is polled every N instructions (default 10)").
const timePollGranularity = 10

// Constraints bounds one Run/Resume call.
type Constraints struct {
	Kind ConstraintKind

	// MaxInstructions is the instruction budget for ConstraintInstructionCount.
	MaxInstructions uint64

	// MaxDuration is the wall-time budget for ConstraintWallTime, expressed
	// as a number of nanoseconds; the caller supplies "now" via NowFunc so
	// this package never calls time.Now itself (kept dependency-free and
	// deterministic for tests).
	MaxDuration int64
	NowFunc     func() int64

	// AutoContinueLimit caps how many internal Suspend points
	// ConstraintAutoContinue will drive through before giving up and
	// returning Suspended anyway, guarding against a runaway loop with no
	// other exit.
	AutoContinueLimit uint64
}

// Unlimited is the zero-value Constraints: no budget at all.
var Unlimited = Constraints{Kind: ConstraintUnlimited}

// callFrame records one open bytecode-to-bytecode call ("Call
// stack"): where to resume the caller, and the callee's display name for
// diagnostics. The callee's own code lives in the same Program the VM is
// already executing — TeaScript compiles one flat instruction stream per
// Program, so a frame needs no separate code/program reference the way a
// multi-chunk closure representation would.
type callFrame struct {
	returnPC int
	name     string
}

// forallFrame is the VM-side iteration state a running Forall needs
// between its ForallHead and ForallNext instructions ("Forall"):
// neither instruction carries enough payload on its own to recompute where
// the next element comes from or where the loop body begins, so the VM
// keeps a small stack of these alongside the operand stack.
type forallFrame struct {
	varName   string
	bodyStart int
	isTuple   bool
	seq       value.IntegerSequence
	tup       *value.Tuple
	length    int64
	index     int64
}

// VM executes one Program against one Context. Not safe for concurrent
// use except for the single stop-request flag, which may be flipped from
// another goroutine ("thread-aware suspension").
type VM struct {
	prog *program.Program
	ctx  *context.Context

	pc    int
	stack []value.Value
	frames []callFrame
	foralls []forallFrame

	state  State
	result value.Value
	err    error

	instrCount uint64

	// stopRequested is polled once per instruction; flipping it
	// from another goroutine is the thread-aware suspend primitive.
	// Platforms without an atomic-flag-equivalent simply never get a
	// VM constructed with ThreadAware set, and suspendRequestPossible
	// reports false.
	stopRequested atomic.Bool
	threadAware   bool

	// lastSuspendWasYield records whether the pending Suspended state was
	// entered via Yield (which consumes its operand before suspending) so
	// Resume knows to push a NaV placeholder back before continuing —
	// keeping the "every statement leaves exactly one value" invariant
	// true across the suspend boundary without a second
	// instruction the way plain Suspend gets one at compile time.
	lastSuspendWasYield bool

	// OnInstruction, if set, is invoked once per instruction before it
	// executes ("invokes an optional per-instruction callback"); used
	// by debuggers/tracers. Not safe to set while Running.
	OnInstruction func(pc int, op program.Opcode)
}

// New creates a VM bound to prog and ctx, ready to Run. ctx should
// already have had its root scope created (context.New does this); the
// VM does not enter or exit the root scope itself.
func New(prog *program.Program, ctx *context.Context) *VM {
	return &VM{prog: prog, ctx: ctx, state: StateReady}
}

// ThreadAware opts a VM into polling an atomic stop flag once per
// instruction ("a second form of the VM ... opts into thread-aware
// suspension"). Call before Run.
func (vm *VM) ThreadAware(on bool) { vm.threadAware = on }

// State reports the VM's current run state.
func (vm *VM) State() State { return vm.state }

// Result reports the Finished/Suspended result Value, or the Halted
// error via Err.
func (vm *VM) Result() value.Value { return vm.result }

// Err reports the recorded error once the VM is Halted.
func (vm *VM) Err() error { return vm.err }

// InstructionCount reports the number of instructions executed so far
// across the VM's lifetime (reset only by Reset).
func (vm *VM) InstructionCount() uint64 { return vm.instrCount }

// PC reports the current instruction pointer, used by the "Suspend
// ordering" testable property.
func (vm *VM) PC() int { return vm.pc }

// SuspendRequestPossible reports whether Suspend (the thread-cooperative
// flavor) is available on this VM ("suspend_request_possible").
func (vm *VM) SuspendRequestPossible() bool { return vm.threadAware }

// Suspend requests the dispatch loop stop at the next instruction
// boundary, from any goroutine. Returns false if this VM wasn't
// constructed thread-aware, in which case the caller must fall back to a
// Constraints-based budget.
func (vm *VM) Suspend() bool {
	if !vm.threadAware {
		return false
	}
	vm.stopRequested.Store(true)
	return true
}

// Reset discards all VM-owned runtime state (operand stack, call
// frames, forall iteration state, pc, instruction counter) so the same
// VM can execute a freshly assigned Program from the top — used by the
// coroutine engine's change_coroutine.
func (vm *VM) Reset(prog *program.Program) {
	vm.prog = prog
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.foralls = vm.foralls[:0]
	vm.state = StateReady
	vm.result = value.Value{}
	vm.err = nil
	vm.instrCount = 0
	vm.stopRequested.Store(false)
	vm.lastSuspendWasYield = false
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "operand stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "operand stack underflow")
	}
	return vm.stack[len(vm.stack)-1], nil
}

// Run drives the dispatch loop from the current state (Ready or
// Suspended) until the VM reaches Finished, Suspended, or Halted. It is
// the entry point both for a fresh program and for resuming one
// previously suspended via Yield/Suspend.
func (vm *VM) Run(c Constraints) error {
	if vm.state != StateReady && vm.state != StateSuspended {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "VM.Run requires state ready or suspended")
	}
	if vm.state == StateSuspended && vm.lastSuspendWasYield {
		vm.push(value.NaV())
		vm.lastSuspendWasYield = false
	}
	vm.state = StateRunning
	vm.stopRequested.Store(false)

	var startTime int64
	if c.Kind == ConstraintWallTime && c.NowFunc != nil {
		startTime = c.NowFunc()
	}
	var autoContinued uint64

	for {
		// (a) external stop request
		if vm.threadAware && vm.stopRequested.Load() {
			vm.state = StateSuspended
			vm.lastSuspendWasYield = false
			return nil
		}
		// (b) active Constraints
		switch c.Kind {
		case ConstraintInstructionCount:
			if vm.instrCount >= c.MaxInstructions {
				vm.state = StateSuspended
				vm.lastSuspendWasYield = false
				return nil
			}
		case ConstraintWallTime:
			if c.NowFunc != nil && vm.instrCount%timePollGranularity == 0 {
				if c.NowFunc()-startTime >= c.MaxDuration {
					vm.state = StateSuspended
					vm.lastSuspendWasYield = false
					return nil
				}
			}
		}

		if vm.pc < 0 || vm.pc >= len(vm.prog.Instructions) {
			err := teaerr.New(teaerr.KindRuntime, vm.prog.LocationFor(vm.pc), "program counter ran off the end of the instruction stream")
			vm.state = StateHalted
			vm.err = err
			return err
		}
		instr := vm.prog.Instructions[vm.pc]

		// (c) optional per-instruction callback
		if vm.OnInstruction != nil {
			vm.OnInstruction(vm.pc, instr.Op)
		}

		// (d) execute
		done, err := vm.step(instr)
		vm.instrCount++
		if err != nil {
			loc := vm.prog.LocationFor(vm.pc)
			if te, ok := err.(*teaerr.Error); ok {
				err = te.WithLocation(loc)
			} else {
				err = teaerr.Newf(teaerr.KindRuntime, loc, "%s", err.Error())
			}
			vm.state = StateHalted
			vm.err = err
			return err
		}
		if done {
			if vm.state == StateSuspended && c.Kind == ConstraintAutoContinue {
				autoContinued++
				if autoContinued >= c.AutoContinueLimit {
					return nil
				}
				if vm.lastSuspendWasYield {
					vm.push(value.NaV())
					vm.lastSuspendWasYield = false
				}
				vm.state = StateRunning
				continue
			}
			return nil
		}
	}
}
