package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

const subscriptPrecedence = 2

// Subscript implements `lhs[idx]`: integer or string access into a
// Tuple, integer-only byte access into a Buffer.
type Subscript struct {
	Base
	Target Node
	Index  Node
}

func NewSubscript(loc teaerr.SourceLocation) *Subscript {
	return &Subscript{Base: Base{Loc: loc}}
}

func (n *Subscript) KindName() string { return "Subscript" }
func (n *Subscript) Detail() string   { return "" }
func (n *Subscript) IsComplete() bool { return n.Target != nil && n.Index != nil }
func (n *Subscript) Precedence() int  { return subscriptPrecedence }
func (n *Subscript) NeedsLHS() bool   { return n.Target == nil }

func (n *Subscript) AddChild(child Node) error {
	if n.Target == nil {
		n.Target = child
		return nil
	}
	if n.Index == nil {
		n.Index = child
		return nil
	}
	return errAlreadyComplete("Subscript")
}

func (n *Subscript) Evaluate(ctx *context.Context) (value.Value, error) {
	tv, err := n.Target.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	iv, err := n.Index.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case tv.Kind() == value.KindTuple:
		tup, _ := tv.Tuple()
		if s, ok := iv.Str(); ok {
			v, ok := tup.GetByKey(s)
			if !ok {
				return value.Value{}, teaerr.New(teaerr.KindOutOfRange, n.Loc, "tuple key not found")
			}
			return v, nil
		}
		idx, ok := iv.I64()
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "tuple subscript requires an integer or String index")
		}
		v, ok := tup.Get(int(idx))
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindOutOfRange, n.Loc, "tuple index out of range")
		}
		return v, nil
	case tv.Kind() == value.KindBuffer:
		idx, ok := iv.I64()
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "buffer subscript requires an integer index")
		}
		buf, _ := tv.Buffer()
		if idx < 0 || int(idx) >= len(buf) {
			return value.Value{}, teaerr.New(teaerr.KindOutOfRange, n.Loc, "buffer index out of range")
		}
		return value.U8Val(buf[idx]), nil
	}
	return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "subscript requires a Tuple or Buffer target")
}

// AssignTo writes v at the index/key into a Tuple, or a byte into a
// Buffer — Buffer targets only accept byte values.
func (n *Subscript) AssignTo(ctx *context.Context, v value.Value) error {
	tv, err := n.Target.Evaluate(ctx)
	if err != nil {
		return err
	}
	iv, err := n.Index.Evaluate(ctx)
	if err != nil {
		return err
	}
	if tv.IsConst() {
		return teaerr.New(teaerr.KindConstAssign, n.Loc, "cannot assign into a const Tuple or Buffer")
	}
	switch {
	case tv.Kind() == value.KindTuple:
		tup, _ := tv.Tuple()
		if s, ok := iv.Str(); ok {
			old, existed := tup.SetByKey(s, v)
			if existed {
				old.Release()
			}
			return nil
		}
		idx, ok := iv.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, n.Loc, "tuple subscript requires an integer or String index")
		}
		old, err := tup.Set(int(idx), v)
		if err != nil {
			return teaerr.New(teaerr.KindOutOfRange, n.Loc, err.Error())
		}
		old.Release()
		return nil
	case tv.Kind() == value.KindBuffer:
		idx, ok := iv.I64()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, n.Loc, "buffer subscript requires an integer index")
		}
		b, ok := v.U8()
		if !ok {
			return teaerr.New(teaerr.KindTypeMismatch, n.Loc, "buffer elements are u8 only")
		}
		buf, _ := tv.Buffer()
		if idx < 0 || int(idx) >= len(buf) {
			return teaerr.New(teaerr.KindOutOfRange, n.Loc, "buffer index out of range")
		}
		buf[idx] = b
		tv.SetBuffer(buf)
		return nil
	}
	return teaerr.New(teaerr.KindTypeMismatch, n.Loc, "subscript requires a Tuple or Buffer target")
}
