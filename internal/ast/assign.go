package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// AssignMode distinguishes the three declaration modes an assignment
// statement can use: plain, def, and const.
type AssignMode int

const (
	AssignPlain AssignMode = iota
	AssignDef
	AssignConst
)

const assignPrecedence = 16

// Assign covers plain/def/const assignment with either copy (`:=`) or
// shared (`@=`) semantics. LHS is an Identifier for def/const; it may also
// be a Dot or Subscript node for plain assign ("Assign").
type Assign struct {
	Base
	Mode   AssignMode
	Shared bool
	LHS    Node
	RHS    Node
}

func NewAssign(loc teaerr.SourceLocation, mode AssignMode, shared bool) *Assign {
	return &Assign{Base: Base{Loc: loc}, Mode: mode, Shared: shared}
}

func (n *Assign) KindName() string { return "Assign" }
func (n *Assign) Detail() string   { return "" }
func (n *Assign) IsComplete() bool { return n.LHS != nil && n.RHS != nil }
func (n *Assign) Precedence() int  { return assignPrecedence }
func (n *Assign) NeedsLHS() bool   { return n.LHS == nil }

func (n *Assign) AddChild(child Node) error {
	if n.LHS == nil {
		n.LHS = child
		return nil
	}
	if n.RHS == nil {
		n.RHS = child
		return nil
	}
	return errAlreadyComplete("Assign")
}

func (n *Assign) Evaluate(ctx *context.Context) (value.Value, error) {
	rv, err := n.RHS.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}

	if n.Shared {
		rv = rv.Share()
	} else {
		rv = rv.Detach()
	}

	ident, isIdent := n.LHS.(*Identifier)
	if !isIdent {
		if n.Mode != AssignPlain {
			return value.Value{}, teaerr.New(teaerr.KindCompile, n.Loc, "def/const assign require an identifier target")
		}
		target, ok := n.LHS.(Assignable)
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindCompile, n.Loc, "assign target is not assignable")
		}
		if err := target.AssignTo(ctx, rv); err != nil {
			return value.Value{}, err
		}
		return rv, nil
	}

	switch n.Mode {
	case AssignDef:
		if err := ctx.DefineVar(ident.Name, rv); err != nil {
			return value.Value{}, err
		}
	case AssignConst:
		if err := ctx.DefineConst(ident.Name, rv); err != nil {
			return value.Value{}, err
		}
	default:
		if n.Shared {
			if err := ctx.SetShared(ident.Name, rv); err != nil {
				return value.Value{}, err
			}
		} else {
			if err := ctx.Set(ident.Name, rv); err != nil {
				return value.Value{}, err
			}
		}
	}
	return rv, nil
}
