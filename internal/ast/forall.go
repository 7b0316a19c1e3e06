package ast

import (
	"errors"

	"github.com/tsvm-lang/teascript/internal/context"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Forall iterates an IntegerSequence directly, or synthesizes one over a
// Tuple's indices ("Forall"). The induction variable lives in a
// fresh scope entered once for the whole loop and rebound each iteration.
type Forall struct {
	Base
	Label   string
	VarName string
	Seq     Node
	Body    Node
}

func NewForall(loc teaerr.SourceLocation, label, varName string) *Forall {
	return &Forall{Base: Base{Loc: loc}, Label: label, VarName: varName}
}

func (n *Forall) KindName() string { return "Forall" }
func (n *Forall) Detail() string   { return n.VarName }
func (n *Forall) IsComplete() bool { return n.Seq != nil && n.Body != nil }

func (n *Forall) AddChild(child Node) error {
	if n.Seq == nil {
		n.Seq = child
		return nil
	}
	if n.Body == nil {
		n.Body = child
		return nil
	}
	return errAlreadyComplete("Forall")
}

func (n *Forall) Evaluate(ctx *context.Context) (value.Value, error) {
	sv, err := n.Seq.Evaluate(ctx)
	if err != nil {
		return value.Value{}, err
	}

	var length int64
	switch sv.Kind() {
	case value.KindIntegerSequence:
		seq, _ := sv.Sequence()
		length = seq.Len()
	case value.KindTuple:
		tup, _ := sv.Tuple()
		length = int64(tup.Len())
	default:
		return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, n.Loc, "forall requires an IntegerSequence or a Tuple")
	}

	ctx.EnterScope()
	defer ctx.ExitScope()

	result := value.NaV()
	bound := false
	for i := int64(0); i < length; i++ {
		var iv value.Value
		if sv.Kind() == value.KindIntegerSequence {
			seq, _ := sv.Sequence()
			iv = value.I64Val(seq.At(i))
		} else {
			iv = value.I64Val(i)
		}

		if !bound {
			if err := ctx.DefineVar(n.VarName, iv); err != nil {
				return value.Value{}, err
			}
			bound = true
		} else if err := ctx.Set(n.VarName, iv); err != nil {
			return value.Value{}, err
		}

		v, err := n.Body.Evaluate(ctx)
		if err == nil {
			result = v
			continue
		}

		var stop *StopLoop
		if errors.As(err, &stop) {
			if matchesLoop(stop.Label, n.Label) {
				return stop.Result, nil
			}
			return value.Value{}, err
		}

		var loop *LoopToHead
		if errors.As(err, &loop) {
			if matchesLoop(loop.Label, n.Label) {
				continue
			}
			return value.Value{}, err
		}

		return value.Value{}, err
	}
	return result, nil
}
