package ast

import (
	"github.com/tsvm-lang/teascript/internal/arith"
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Unary operator kinds.
const (
	OpNot       = "not"
	OpBitNot    = "bit_not"
	OpNeg       = "-"
	OpPos       = "+"
	OpShareCnt  = "@?"
	OpTypeof    = "typeof"
	OpTypename  = "typename"
)

// unaryPrecedence places unary operators tighter than every binary/bit
// operator.
const unaryPrecedence = 3

// UnaryOp is a prefix unary operator node.
type UnaryOp struct {
	Base
	Op      string
	Operand Node
}

func NewUnaryOp(loc teaerr.SourceLocation, op string) *UnaryOp {
	return &UnaryOp{Base: Base{Loc: loc}, Op: op}
}

func (n *UnaryOp) KindName() string { return "UnaryOp" }
func (n *UnaryOp) Detail() string   { return n.Op }
func (n *UnaryOp) IsComplete() bool { return n.Operand != nil }
func (n *UnaryOp) Precedence() int  { return unaryPrecedence }
func (n *UnaryOp) NeedsLHS() bool   { return false }

func (n *UnaryOp) AddChild(child Node) error {
	if n.Operand != nil {
		return errAlreadyComplete("UnaryOp")
	}
	n.Operand = child
	return nil
}

func (n *UnaryOp) Evaluate(ctx *context.Context) (value.Value, error) {
	v, err := n.Operand.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case OpNot:
		return arith.Not(v)
	case OpBitNot, OpNeg, OpPos:
		return arith.UnaryArith(n.Op, v)
	case OpShareCnt:
		return value.I64Val(v.ShareCount()), nil
	case OpTypeof:
		ti := v.TypeInfo()
		return value.PassthroughVal(ti, value.Passthrough{TypeName: "TypeInfo", Payload: ti}), nil
	case OpTypename:
		ti := v.TypeInfo()
		if ti == nil {
			return value.StringVal(""), nil
		}
		return value.StringVal(ti.Name()), nil
	}
	return value.Value{}, teaerr.Newf(teaerr.KindEval, n.Loc, "unknown unary operator %q", n.Op)
}
