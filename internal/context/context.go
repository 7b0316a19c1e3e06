// Package context implements TeaScript's scope-stack symbol table.
//
// Grounded on internal/evaluator/environment.go's Environment/outer chain,
// generalized from an implicit linked list of closures into an explicit
// scope stack so is_defined can report a distance and so every scope entry
// has a matching, counted exit.
package context

import (
	"fmt"

	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Dialect holds the language-behavior toggles carried by the Context.
type Dialect struct {
	AutoDefineUnknownIdentifiers           bool
	DeclareIdentifiersWithoutAssignAllowed bool
	UndefineUnknownIdentifiersAllowed      bool
	ParametersAreDefaultConst              bool
}

type binding struct {
	name  string
	val   value.Value
	const_ bool
}

// Scope is a single name -> Value mapping, plus the current-call
// parameter queue active while a call into this scope is being
// bound.
type Scope struct {
	order      []string
	vals       map[string]*binding
	paramQueue []value.Value
}

func newScope() *Scope {
	return &Scope{vals: make(map[string]*binding)}
}

// Context is a stack of Scopes with a root/global scope always present.
type Context struct {
	scopes     []*Scope
	Dialect    Dialect
	TypeSystem *value.TypeSystem
}

// New creates a Context with its root/global scope already entered.
func New() *Context {
	return &Context{
		scopes:     []*Scope{newScope()},
		TypeSystem: value.NewTypeSystem(),
	}
}

// EnterScope brackets a block/if/forall/call body.
func (c *Context) EnterScope() {
	c.scopes = append(c.scopes, newScope())
}

// ExitScope pops the innermost scope, releasing every binding's share
// ("every scope entry has a matching exit on every exit path"). It is
// a programming error to call ExitScope on the root scope; callers are
// expected to bracket every EnterScope.
func (c *Context) ExitScope() error {
	if len(c.scopes) <= 1 {
		return fmt.Errorf("context: cannot exit the root scope")
	}
	top := c.scopes[len(c.scopes)-1]
	for _, name := range top.order {
		if b := top.vals[name]; b != nil {
			b.val.Release()
		}
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

// ScopeDepth returns the number of scopes on the stack, including the
// root — used by the "Scope balance" testable property: a Finished
// VM run must see this back down to 1.
func (c *Context) ScopeDepth() int { return len(c.scopes) }

func (c *Context) top() *Scope { return c.scopes[len(c.scopes)-1] }

// define installs a new binding in the innermost scope. Redefining a name
// already present in the SAME scope is a redefinition error; shadowing an
// outer scope's binding is allowed (lookup is innermost-first).
func (c *Context) define(name string, v value.Value, asConst bool) error {
	s := c.top()
	if _, exists := s.vals[name]; exists {
		return teaerr.Newf(teaerr.KindRedefinition, teaerr.SourceLocation{}, "identifier %q already defined in this scope", name)
	}
	if asConst {
		v = v.AsConst()
	} else {
		v = v.AsMutable()
	}
	s.vals[name] = &binding{name: name, val: v, const_: asConst}
	s.order = append(s.order, name)
	return nil
}

// DefineVar declares a mutable binding (def-assign).
func (c *Context) DefineVar(name string, v value.Value) error {
	return c.define(name, v, false)
}

// DefineConst declares a const binding (const-assign).
func (c *Context) DefineConst(name string, v value.Value) error {
	return c.define(name, v, true)
}

// lookup returns the scope index (from the top, 1-based distance) and the
// binding for name, searching innermost-first.
func (c *Context) lookup(name string) (int, *binding) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i].vals[name]; ok {
			return len(c.scopes) - i, b
		}
	}
	return 0, nil
}

// Get resolves name, innermost-first.
func (c *Context) Get(name string) (value.Value, error) {
	_, b := c.lookup(name)
	if b == nil {
		return value.Value{}, teaerr.Newf(teaerr.KindUnknownIdentifier, teaerr.SourceLocation{}, "unknown identifier %q", name)
	}
	return b.val, nil
}

// IsDefined returns the distance (positive integer, 1 == innermost scope)
// to the defining scope, or ok=false if name is not defined anywhere.
func (c *Context) IsDefined(name string) (distance int, ok bool) {
	d, b := c.lookup(name)
	if b == nil {
		return 0, false
	}
	return d, true
}

// Set assigns to an existing binding (plain assign), enforcing
// const-assign and type-match rules ("Invariants").
func (c *Context) Set(name string, v value.Value) error {
	_, b := c.lookup(name)
	if b == nil {
		if c.Dialect.AutoDefineUnknownIdentifiers {
			return c.DefineVar(name, v)
		}
		return teaerr.Newf(teaerr.KindUnknownIdentifier, teaerr.SourceLocation{}, "unknown identifier %q", name)
	}
	if b.const_ {
		return teaerr.Newf(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot assign to const identifier %q", name)
	}
	if !b.val.AssignableFrom(v) {
		return teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "cannot assign %s to %s identifier %q", v.Kind(), b.val.Kind(), name)
	}
	old := b.val
	b.val = v
	old.Release()
	return nil
}

// SetShared implements `@=` into an existing binding: it additionally
// rejects sharing a const value into a mutable slot at assignment time,
// not at use time ("Invariants").
func (c *Context) SetShared(name string, v value.Value) error {
	_, b := c.lookup(name)
	if b == nil {
		if c.Dialect.AutoDefineUnknownIdentifiers {
			s := v.Share()
			return c.DefineVar(name, s)
		}
		return teaerr.Newf(teaerr.KindUnknownIdentifier, teaerr.SourceLocation{}, "unknown identifier %q", name)
	}
	if b.const_ {
		return teaerr.Newf(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot assign to const identifier %q", name)
	}
	if v.IsConst() && b.val.IsMutable() {
		return teaerr.Newf(teaerr.KindConstSharedAssign, teaerr.SourceLocation{}, "cannot share const value into mutable identifier %q", name)
	}
	if !b.val.AssignableFrom(v) {
		return teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "cannot assign %s to %s identifier %q", v.Kind(), b.val.Kind(), name)
	}
	old := b.val
	b.val = v.Share()
	old.Release()
	return nil
}

// Undef removes a binding from whichever scope currently defines it. It
// refuses const bindings.
func (c *Context) Undef(name string) error {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		s := c.scopes[i]
		b, ok := s.vals[name]
		if !ok {
			continue
		}
		if b.const_ {
			return teaerr.Newf(teaerr.KindConstAssign, teaerr.SourceLocation{}, "cannot undefine const identifier %q", name)
		}
		b.val.Release()
		delete(s.vals, name)
		for idx, n := range s.order {
			if n == name {
				s.order = append(s.order[:idx], s.order[idx+1:]...)
				break
			}
		}
		return nil
	}
	if c.Dialect.UndefineUnknownIdentifiersAllowed {
		return nil
	}
	return teaerr.Newf(teaerr.KindUnknownIdentifier, teaerr.SourceLocation{}, "unknown identifier %q", name)
}

// --- current-call parameter queue ---

// PushParams establishes the current-call parameter queue in the
// innermost scope, filled with the already-evaluated arguments in order.
func (c *Context) PushParams(args []value.Value) {
	c.top().paramQueue = append([]value.Value(nil), args...)
}

// ConsumeParam pops the next argument off the current scope's parameter
// queue, for FromParam/FromParam_Or.
func (c *Context) ConsumeParam() (value.Value, bool) {
	s := c.top()
	if len(s.paramQueue) == 0 {
		return value.Value{}, false
	}
	v := s.paramQueue[0]
	s.paramQueue = s.paramQueue[1:]
	return v, true
}

// RemainingParams reports how many arguments are still queued; a
// non-zero count when ParamSpecClean runs is an arity error.
func (c *Context) RemainingParams() int {
	return len(c.top().paramQueue)
}
