package ast

import (
	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// ExprMode distinguishes Expression's two evaluation strategies.
type ExprMode int

const (
	// ModeExpression is expression/tuple mode: a single child evaluates to
	// its own value; several children compose a Tuple literal.
	ModeExpression ExprMode = iota
	// ModeCondition evaluates every child in order and returns the last
	// value (a statement block, an if-condition-plus-guards run, ...).
	ModeCondition
)

// Expression is 's two-mode node.
type Expression struct {
	Base
	Mode     ExprMode
	Children []Node
}

func NewExpression(loc teaerr.SourceLocation, mode ExprMode) *Expression {
	return &Expression{Base: Base{Loc: loc}, Mode: mode}
}

func (n *Expression) KindName() string { return "Expression" }

func (n *Expression) Detail() string {
	if n.Mode == ModeCondition {
		return "condition"
	}
	return "expression"
}

// IsComplete: an Expression never refuses more children; the parser closes
// it explicitly once the enclosing construct's delimiter is seen.
func (n *Expression) IsComplete() bool { return true }

func (n *Expression) AddChild(child Node) error {
	n.Children = append(n.Children, child)
	return nil
}

func (n *Expression) Evaluate(ctx *context.Context) (value.Value, error) {
	if len(n.Children) == 0 {
		return value.NaV(), nil
	}
	if n.Mode == ModeCondition {
		var last value.Value
		for _, c := range n.Children {
			v, err := c.Evaluate(ctx)
			if err != nil {
				return value.Value{}, err
			}
			last = v
		}
		return last, nil
	}
	if len(n.Children) == 1 {
		if el, ok := n.Children[0].(*TupleElement); ok {
			return el.Evaluate(ctx)
		}
		return n.Children[0].Evaluate(ctx)
	}
	tup := value.NewTuple()
	for _, c := range n.Children {
		if el, ok := c.(*TupleElement); ok && el.HasKey {
			v, err := el.Value.Evaluate(ctx)
			if err != nil {
				return value.Value{}, err
			}
			if err := tup.AppendNamed(el.Key, v); err != nil {
				return value.Value{}, teaerr.Newf(teaerr.KindRedefinition, n.Loc, "%v", err)
			}
			continue
		}
		v, err := c.Evaluate(ctx)
		if err != nil {
			return value.Value{}, err
		}
		_ = tup.Append(v)
	}
	return value.TupleVal(tup), nil
}

// TupleElement wraps a child of a tuple-literal Expression that carries an
// optional key, e.g. `(x: 1, 2)`.
type TupleElement struct {
	Base
	Key    string
	HasKey bool
	Value  Node
}

func NewTupleElement(loc teaerr.SourceLocation, key string, hasKey bool, v Node) *TupleElement {
	return &TupleElement{Base: Base{Loc: loc}, Key: key, HasKey: hasKey, Value: v}
}

func (n *TupleElement) KindName() string { return "TupleElement" }
func (n *TupleElement) Detail() string   { return n.Key }
func (n *TupleElement) IsComplete() bool { return n.Value != nil }

func (n *TupleElement) AddChild(child Node) error {
	if n.Value != nil {
		return errAlreadyComplete("TupleElement")
	}
	n.Value = child
	return nil
}

func (n *TupleElement) Evaluate(ctx *context.Context) (value.Value, error) {
	return n.Value.Evaluate(ctx)
}
