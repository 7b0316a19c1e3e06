package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// dotPrecedence binds tighter than any operator in the table; member
// access always groups before arithmetic.
const dotPrecedence = 1

// DotOp accesses a Tuple element by identifier (key) or integer index.
// Only one of Key/Index is meaningful, selected by HasKey.
type DotOp struct {
	Base
	Target Node
	Key    string
	HasKey bool
	Index  int64
}

func NewDotOpByKey(loc teaerr.SourceLocation, key string) *DotOp {
	return &DotOp{Base: Base{Loc: loc}, Key: key, HasKey: true}
}

func NewDotOpByIndex(loc teaerr.SourceLocation, idx int64) *DotOp {
	return &DotOp{Base: Base{Loc: loc}, Index: idx, HasKey: false}
}

func (n *DotOp) KindName() string { return "DotOp" }

func (n *DotOp) Detail() string {
	if n.HasKey {
		return n.Key
	}
	return ""
}

func (n *DotOp) IsComplete() bool { return n.Target != nil }
func (n *DotOp) Precedence() int  { return dotPrecedence }
func (n *DotOp) NeedsLHS() bool   { return n.Target == nil }

func (n *DotOp) AddChild(child Node) error {
	if n.Target != nil {
		return errAlreadyComplete("DotOp")
	}
	n.Target = child
	return nil
}

func (n *DotOp) resolveTuple(ctx *context.Context) (*value.Tuple, value.Value, error) {
	tv, err := n.Target.Evaluate(ctx)
	if err != nil {
		return nil, value.Value{}, err
	}
	tup, ok := tv.Tuple()
	if !ok {
		return nil, value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "dot operator requires a Tuple target")
	}
	return tup, tv, nil
}

func (n *DotOp) Evaluate(ctx *context.Context) (value.Value, error) {
	tup, _, err := n.resolveTuple(ctx)
	if err != nil {
		return value.Value{}, err
	}
	var v value.Value
	var ok bool
	if n.HasKey {
		v, ok = tup.GetByKey(n.Key)
	} else {
		v, ok = tup.Get(int(n.Index))
	}
	if !ok {
		return value.Value{}, teaerr.New(teaerr.KindOutOfRange, n.Loc, "tuple element not found")
	}
	return v, nil
}

// AssignTo writes v into the target tuple, creating the element if it
// doesn't exist yet ("during write it may create elements").
func (n *DotOp) AssignTo(ctx *context.Context, v value.Value) error {
	tup, tv, err := n.resolveTuple(ctx)
	if err != nil {
		return err
	}
	if tv.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, n.Loc, "cannot assign into a const Tuple")
	}
	if n.HasKey {
		old, existed := tup.SetByKey(n.Key, v)
		if existed {
			old.Release()
		}
		return nil
	}
	if int(n.Index) == tup.Len() {
		return tup.Append(v)
	}
	old, err := tup.Set(int(n.Index), v)
	if err != nil {
		return teaerr.New(teaerr.KindOutOfRange, n.Loc, err.Error())
	}
	old.Release()
	return nil
}
