package ast

import (
	"github.com/tsvm-lang/teascript/internal/arith"
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// binaryPrecedence assigns a lower number to the tighter-binding operators:
// *,/,mod = 5, +,- = 6, bit shifts = 7, comparisons = 9-10, bitwise
// and/xor/or = 11-13, and/or = 14-15, assignment = 16.
var binaryPrecedence = map[string]int{
	"*": 5, "/": 5, "mod": 5,
	"+": 6, "-": 6,
	"bit_lsh": 7, "bit_rsh": 7,
	"<": 9, "<=": 9, ">": 9, ">=": 9,
	"==": 10, "!=": 10,
	"bit_and": 11,
	"bit_xor": 12,
	"bit_or":  13,
	"and":     14,
	"or":      15,
	"@@":      9,
	"%":       6,
}

// BinaryOp is a two-operand infix node covering arithmetic, comparison,
// logical short-circuit, shared-identity, and string concatenation.
type BinaryOp struct {
	Base
	Op    string
	Left  Node
	Right Node
}

func NewBinaryOp(loc teaerr.SourceLocation, op string) *BinaryOp {
	return &BinaryOp{Base: Base{Loc: loc}, Op: op}
}

func (n *BinaryOp) KindName() string { return "BinaryOp" }
func (n *BinaryOp) Detail() string   { return n.Op }
func (n *BinaryOp) IsComplete() bool { return n.Left != nil && n.Right != nil }
func (n *BinaryOp) Precedence() int  { return binaryPrecedence[n.Op] }
func (n *BinaryOp) NeedsLHS() bool   { return n.Left == nil }

func (n *BinaryOp) AddChild(child Node) error {
	if n.Left == nil {
		n.Left = child
		return nil
	}
	if n.Right == nil {
		n.Right = child
		return nil
	}
	return errAlreadyComplete("BinaryOp")
}

func (n *BinaryOp) Evaluate(ctx *context.Context) (value.Value, error) {
	lv, err := n.Left.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case "and", "or":
		b, ok := lv.Bool()
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "and/or require Bool operands")
		}
		if n.Op == "and" && !b {
			return value.BoolVal(false), nil
		}
		if n.Op == "or" && b {
			return value.BoolVal(true), nil
		}
		rv, err := n.Right.Evaluate(ctx)
		if err != nil {
			return value.Value{}, err
		}
		rb, ok := rv.Bool()
		if !ok {
			return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "and/or require Bool operands")
		}
		return value.BoolVal(rb), nil
	}

	rv, err := n.Right.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case "+", "-", "*", "/", "mod":
		v, err := arith.BinaryArith(n.Op, lv, rv)
		return v, wrapLoc(err, n.Loc)
	case "<", "<=", ">", ">=", "==", "!=":
		v, err := arith.Compare(n.Op, lv, rv)
		return v, wrapLoc(err, n.Loc)
	case "@@":
		return value.BoolVal(lv.SharedWith(rv)), nil
	case "%":
		return arith.Concat(lv, rv), nil
	}
	return value.Value{}, teaerr.Newf(teaerr.KindEval, n.Loc, "unknown binary operator %q", n.Op)
}

// BitOp is the bitwise sibling of BinaryOp, kept as its own node kind for
// its separate "Bit operator" catalogue entry.
type BitOp struct {
	Base
	Op    string
	Left  Node
	Right Node
}

func NewBitOp(loc teaerr.SourceLocation, op string) *BitOp {
	return &BitOp{Base: Base{Loc: loc}, Op: op}
}

func (n *BitOp) KindName() string { return "BitOp" }
func (n *BitOp) Detail() string   { return n.Op }
func (n *BitOp) IsComplete() bool { return n.Left != nil && n.Right != nil }
func (n *BitOp) Precedence() int  { return binaryPrecedence[n.Op] }
func (n *BitOp) NeedsLHS() bool   { return n.Left == nil }

func (n *BitOp) AddChild(child Node) error {
	if n.Left == nil {
		n.Left = child
		return nil
	}
	if n.Right == nil {
		n.Right = child
		return nil
	}
	return errAlreadyComplete("BitOp")
}

func (n *BitOp) Evaluate(ctx *context.Context) (value.Value, error) {
	lv, err := n.Left.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	rv, err := n.Right.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}
	v, err := arith.BitOp(n.Op, lv, rv)
	return v, wrapLoc(err, n.Loc)
}

func wrapLoc(err error, loc teaerr.SourceLocation) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*teaerr.Error); ok {
		return te.WithLocation(loc)
	}
	return err
}
