// Package coroutine implements TeaScript's coroutine engine: a
// wrapper around one internal/tsvm.VM instance and one private
// internal/context.Context that presents a resumable computation with
// yield values, external suspend, and input-parameter injection.
//
// The concurrency idiom follows this codebase's existing conventions
// elsewhere (sync.RWMutex-guarded Environment in
// internal/evaluator/environment.go, the context.Context
// cooperative-cancellation plumbing in internal/vm/vm.go): google/uuid
// stamps every Coroutine with an identity for diagnostics, and
// golang.org/x/sync/semaphore backs the "at-most-one executor thread"
// lifecycle guarantee with a non-blocking TryAcquire instead of a bare
// mutex, matching the existing dependency on golang.org/x/sync.
package coroutine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	tscontext "github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/tsvm"
	"github.com/tsvm-lang/teascript/internal/value"
)

// State mirrors the underlying VM's run state machine, widened with one
// extra value. It is distinct from tsvm.State: a Coroutine that has
// never been given a program is Stopped, which has no VM-side
// equivalent.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateSuspended
	StateFinished
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
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

// Coroutine wraps one VM and one private Context. Its ID is
// stamped at construction for diagnostics — distinguishing concurrent
// coroutines in a CLI host's session log is the only consumer; the ID
// plays no role in semantics.
type Coroutine struct {
	ID uuid.UUID

	vm  *tsvm.VM
	ctx *tscontext.Context

	// executing is held (weight 1) for the duration of any run/run_for
	// call, enforcing the "at-most-one executor thread" guarantee with a
	// non-blocking TryAcquire rather than a blocking mutex, so a second
	// caller attempting to drive an already-running coroutine gets an
	// immediate "already running" error instead of queuing.
	executing *semaphore.Weighted

	state State
	err   error
}

// New creates a Coroutine with its own Context (dialect and type system
// as given) and a fresh VM, both uninitialized until ChangeCoroutine is
// called. The Context's first action is to enter a fresh local scope,
// so the global scope remains clean across resumes.
func New(dialect tscontext.Dialect) *Coroutine {
	ctx := tscontext.New()
	ctx.Dialect = dialect
	ctx.EnterScope()
	return &Coroutine{
		ID:        uuid.New(),
		ctx:       ctx,
		executing: semaphore.NewWeighted(1),
		state:     StateStopped,
	}
}

// State reports the coroutine's current lifecycle state.
func (co *Coroutine) State() State { return co.state }

// Err reports the recorded error once the coroutine is Halted.
func (co *Coroutine) Err() error { return co.err }

// Result reports the last Finished/Suspended result Value.
func (co *Coroutine) Result() value.Value {
	if co.vm == nil {
		return value.NaV()
	}
	return co.vm.Result()
}

// ChangeCoroutine resets the VM and Context to run prog from the top
// ("change_coroutine(program)"). Requires the coroutine not be
// running. Discards all local scopes accumulated by prior runs, enters a
// fresh one, and pre-loads the program by executing zero instructions —
// a VM.Reset followed by binding prog is sufficient here because
// TeaScript has no separate "load" pass that populates function tables;
// FuncDef instructions register themselves the first time the dispatch
// loop reaches them, so "pre-loading" is a no-op beyond binding the
// Program and resetting state.
func (co *Coroutine) ChangeCoroutine(prog *program.Program) error {
	if co.state == StateRunning {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "coroutine: cannot change program while running")
	}
	for co.ctx.ScopeDepth() > 1 {
		if err := co.ctx.ExitScope(); err != nil {
			return err
		}
	}
	co.ctx.EnterScope()
	if co.vm == nil {
		co.vm = tsvm.New(prog, co.ctx)
	} else {
		co.vm.Reset(prog)
	}
	co.state = StateSuspended
	co.err = nil
	return nil
}

// acquire implements the non-blocking "requires not-running" precondition
// shared by Run/RunFor/SetInputParameters: TryAcquire never blocks, so a
// concurrent caller sees an immediate error rather than stalling behind
// whichever goroutine is currently executing.
func (co *Coroutine) acquire() error {
	if !co.executing.TryAcquire(1) {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "coroutine: already running")
	}
	return nil
}

func (co *Coroutine) release() { co.executing.Release(1) }

// Run drives the coroutine to completion or its next suspension point
// with no budget ("run"). Requires Suspended.
func (co *Coroutine) Run() error {
	return co.RunFor(tsvm.Unlimited)
}

// RunFor drives the coroutine under the given Constraints. Requires
// Suspended. On return, any yielded value is available via Result; a
// halted VM's error is forwarded and also retrievable via Err.
func (co *Coroutine) RunFor(c tsvm.Constraints) error {
	if co.vm == nil {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "coroutine: no program loaded")
	}
	if co.state != StateSuspended {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, fmt.Sprintf("coroutine: run requires state suspended, got %s", co.state))
	}
	if err := co.acquire(); err != nil {
		return err
	}
	defer co.release()

	co.state = StateRunning
	err := co.vm.Run(c)
	co.syncState()
	if err != nil {
		co.err = err
		return err
	}
	return nil
}

func (co *Coroutine) syncState() {
	switch co.vm.State() {
	case tsvm.StateSuspended:
		co.state = StateSuspended
	case tsvm.StateFinished:
		co.state = StateFinished
	case tsvm.StateHalted:
		co.state = StateHalted
		co.err = co.vm.Err()
	default:
		co.state = StateRunning
	}
}

// SetInputParameters injects an `args` Tuple and an `argN` count into the
// coroutine's current scope ("set_input_parameters(values)"),
// visible to the script the next time it resumes. Requires Suspended.
func (co *Coroutine) SetInputParameters(values []value.Value) error {
	if co.state != StateSuspended {
		return teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, fmt.Sprintf("coroutine: set_input_parameters requires state suspended, got %s", co.state))
	}
	if err := co.acquire(); err != nil {
		return err
	}
	defer co.release()

	args := value.NewTuple()
	for _, v := range values {
		if err := args.Append(v); err != nil {
			return err
		}
	}
	if err := co.ctx.Set("args", value.TupleVal(args)); err != nil {
		if err2 := co.ctx.DefineVar("args", value.TupleVal(args)); err2 != nil {
			return err2
		}
	}
	argN := value.I64Val(int64(len(values)))
	if err := co.ctx.Set("argN", argN); err != nil {
		if err2 := co.ctx.DefineVar("argN", argN); err2 != nil {
			return err2
		}
	}
	return nil
}

// Suspend signals the running VM to stop at the next instruction
// boundary, callable from any goroutine ("suspend"). Returns
// false if the underlying VM was not constructed thread-aware, mirroring
// tsvm.VM.Suspend's capability predicate — the caller must then poll
// State instead.
func (co *Coroutine) Suspend() bool {
	if co.vm == nil {
		return false
	}
	return co.vm.Suspend()
}

// ThreadAware opts the underlying VM into polling an atomic stop flag
// once per instruction, enabling Suspend from another goroutine.
// Call before the first Run/RunFor.
func (co *Coroutine) ThreadAware(on bool) {
	if co.vm != nil {
		co.vm.ThreadAware(on)
	}
}

// SuspendRequestPossible reports whether Suspend is available. On
// platforms without the requisite primitive, it returns false.
func (co *Coroutine) SuspendRequestPossible() bool {
	return co.vm != nil && co.vm.SuspendRequestPossible()
}

// runWithCancel drives RunFor but also returns early if ctx is canceled,
// translating the cancellation into a best-effort Suspend request —
// useful for embedding hosts that want context.Context-based cancellation
// instead of polling Constraints, following the same context.Context
// cooperative-cancellation idiom internal/vm/vm.go's executeWithDebugger
// uses.
func (co *Coroutine) runWithCancel(ctx context.Context, c tsvm.Constraints) error {
	done := make(chan error, 1)
	go func() { done <- co.RunFor(c) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		co.Suspend()
		return <-done
	}
}

// RunContext is the context.Context-aware variant of RunFor, for hosts
// that prefer to cancel via context rather than flipping Suspend
// themselves.
func (co *Coroutine) RunContext(ctx context.Context, c tsvm.Constraints) error {
	return co.runWithCancel(ctx, c)
}
