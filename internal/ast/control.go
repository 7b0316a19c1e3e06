package ast

import "github.com/tsvm-lang/teascript/internal/value"

// Typed control-flow exceptions. Each is caught at the matching node
// (Repeat/Forall for the loop pair, Function for Return, the top-level
// Evaluate call for Exit) and never escapes observably — the same
// errEarlyReturn sentinel-error technique internal/vm/vm.go uses,
// generalized to four distinct carriers instead of one.

// StopLoop unwinds to the nearest Repeat/Forall whose label matches (or
// any loop, if Label is empty), carrying the loop's result value.
type StopLoop struct {
	Result value.Value
	Label  string
}

func (e *StopLoop) Error() string { return "stop" }

// LoopToHead restarts the nearest matching Repeat/Forall from its head.
type LoopToHead struct {
	Label string
}

func (e *LoopToHead) Error() string { return "loop" }

// ReturnFromFunction unwinds to the nearest enclosing Function call.
type ReturnFromFunction struct {
	Result value.Value
}

func (e *ReturnFromFunction) Error() string { return "return" }

// ExitScript unwinds all the way to the top-level evaluate, clearing every
// scope on the way ("_Exit and uncaught Return-from-main unwind all
// scopes ... normal terminations, not errors").
type ExitScript struct {
	Result value.Value
}

func (e *ExitScript) Error() string { return "exit" }

// matchesLoop reports whether a loop/stop request with the given label
// should be caught by a loop carrying ownLabel. An empty request label
// matches any loop (the innermost one, since matching happens bottom-up);
// a non-empty request label only matches a loop with the same label.
func matchesLoop(requestLabel, ownLabel string) bool {
	return requestLabel == "" || requestLabel == ownLabel
}
