// Package value implements TeaScript's runtime value model: a
// tagged union of primitive and composite variants, each carrying a
// TypeInfo, a mutability flag, and a sharing discipline (inline vs.
// reference-counted shared cell).
//
// Grounded on internal/vm/value.go's split between an inline scalar
// (ValueType + Data uint64) and a heap object (Obj), generalized with an
// explicit refcounted cell for composites so the share-count (`@?`) and
// shared-identity (`@@`) operators are directly observable — something a
// plain GC-backed object model never needs to expose.
package value

import (
	"math"
)

// Value is TeaScript's stack-allocated tagged union. Primitives (Bool,
// U8, I64, U64, F64) are stored inline in data/str and never allocate;
// composites (Tuple, Buffer, IntegerSequence, Function, Passthrough)
// live in a shared cell reached through cell.
type Value struct {
	kind Kind
	typ  *TypeInfo
	mut  bool // true == mutable, false == const
	data uint64
	str  string
	cell *cell
}

var navTypeInfo = DefaultTypeSystem.Lookup(KindNaV)

// NaV returns the singleton not-a-value (tag 0): distinguishable from
// absent, with its own type identity.
func NaV() Value {
	return Value{kind: KindNaV, typ: navTypeInfo, mut: true}
}

func BoolVal(b bool) Value {
	d := uint64(0)
	if b {
		d = 1
	}
	return Value{kind: KindBool, typ: DefaultTypeSystem.Lookup(KindBool), mut: true, data: d}
}

func U8Val(b byte) Value {
	return Value{kind: KindU8, typ: DefaultTypeSystem.Lookup(KindU8), mut: true, data: uint64(b)}
}

func I64Val(i int64) Value {
	return Value{kind: KindI64, typ: DefaultTypeSystem.Lookup(KindI64), mut: true, data: uint64(i)}
}

func U64Val(u uint64) Value {
	return Value{kind: KindU64, typ: DefaultTypeSystem.Lookup(KindU64), mut: true, data: u}
}

func F64Val(f float64) Value {
	return Value{kind: KindF64, typ: DefaultTypeSystem.Lookup(KindF64), mut: true, data: math.Float64bits(f)}
}

func StringVal(s string) Value {
	return Value{kind: KindString, typ: DefaultTypeSystem.Lookup(KindString), mut: true, str: s}
}

func TupleVal(t *Tuple) Value {
	return Value{kind: KindTuple, typ: DefaultTypeSystem.Lookup(KindTuple), mut: true,
		cell: newCell(variant{kind: KindTuple, tup: t})}
}

// NewBuffer wraps a byte slice as a Buffer value (tag 8).
func NewBuffer(b []byte) Value {
	return Value{kind: KindBuffer, typ: DefaultTypeSystem.Lookup(KindBuffer), mut: true,
		cell: newCell(variant{kind: KindBuffer, buf: b})}
}

func SequenceVal(seq IntegerSequence) Value {
	return Value{kind: KindIntegerSequence, typ: DefaultTypeSystem.Lookup(KindIntegerSequence), mut: true,
		cell: newCell(variant{kind: KindIntegerSequence, seq: seq})}
}

func FunctionVal(fn *Function) Value {
	return Value{kind: KindFunction, typ: DefaultTypeSystem.Lookup(KindFunction), mut: true,
		cell: newCell(variant{kind: KindFunction, fn: fn})}
}

func PassthroughVal(ti *TypeInfo, pt Passthrough) Value {
	return Value{kind: KindPassthrough, typ: ti, mut: true,
		cell: newCell(variant{kind: KindPassthrough, pt: pt})}
}

// Kind reports the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// TypeInfo reports the value's runtime type identity, for `typeof`.
func (v Value) TypeInfo() *TypeInfo { return v.typ }

func (v Value) IsNaV() bool { return v.kind == KindNaV }

// IsConst / IsMutable report the binding's mutability flag.
func (v Value) IsConst() bool   { return !v.mut }
func (v Value) IsMutable() bool { return v.mut }

// AsConst / AsMutable return a handle to the same payload with the
// mutability flag changed; they do not affect sharing.
func (v Value) AsConst() Value {
	v.mut = false
	return v
}

func (v Value) AsMutable() Value {
	v.mut = true
	return v
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.data == 1, true
}

func (v Value) U8() (byte, bool) {
	if v.kind != KindU8 {
		return 0, false
	}
	return byte(v.data), true
}

func (v Value) I64() (int64, bool) {
	if v.kind != KindI64 {
		return 0, false
	}
	return int64(v.data), true
}

func (v Value) U64() (uint64, bool) {
	if v.kind != KindU64 {
		return 0, false
	}
	return v.data, true
}

func (v Value) F64() (float64, bool) {
	if v.kind != KindF64 {
		return 0, false
	}
	return math.Float64frombits(v.data), true
}

func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) Tuple() (*Tuple, bool) {
	if v.kind != KindTuple || v.cell == nil {
		return nil, false
	}
	return v.cell.v.tup, true
}

func (v Value) Buffer() ([]byte, bool) {
	if v.kind != KindBuffer || v.cell == nil {
		return nil, false
	}
	return v.cell.v.buf, true
}

// SetBuffer replaces the buffer's contents in place (mutation through the
// shared cell, so other handles sharing it observe the change).
func (v Value) SetBuffer(b []byte) bool {
	if v.kind != KindBuffer || v.cell == nil {
		return false
	}
	v.cell.v.buf = b
	return true
}

func (v Value) Sequence() (IntegerSequence, bool) {
	if v.kind != KindIntegerSequence || v.cell == nil {
		return IntegerSequence{}, false
	}
	return v.cell.v.seq, true
}

func (v Value) Function() (*Function, bool) {
	if v.kind != KindFunction || v.cell == nil {
		return nil, false
	}
	return v.cell.v.fn, true
}

func (v Value) Passthrough() (Passthrough, bool) {
	if v.kind != KindPassthrough || v.cell == nil {
		return Passthrough{}, false
	}
	return v.cell.v.pt, true
}

// Share returns a new handle pointing at the same underlying cell,
// incrementing its refcount — the `@=` shared-assign semantics.
// Primitives and NaV have no cell to share; Share is then equivalent to
// a plain copy.
func (v Value) Share() Value {
	if v.cell != nil {
		v.cell.addRef()
	}
	return v
}

// Release decrements the refcount of a shared handle being dropped
// (variable overwrite, scope exit, element removal). It never frees
// anything explicitly — Go's GC reclaims the cell once nothing in the
// interpreter still references it — it only keeps ShareCount accurate.
func (v Value) Release() {
	if v.cell != nil {
		v.cell.release()
	}
}

// Detach converts a shared handle into an unshared one by copying the
// underlying cell ("Detaching a shared Value always yields an
// unshared copy; for Tuples the copy is deep"). For primitives/NaV,
// which never share a cell, Detach is a no-op.
func (v Value) Detach() Value {
	if v.cell == nil {
		return v
	}
	cp := v
	cp.cell = v.cell.deepCopy()
	return cp
}

// DetachDroppingConst performs Detach and additionally clears const on
// the top-level copy while leaving nested Tuple elements' constness
// untouched, the default detach-copy rule for Tuples.
func (v Value) DetachDroppingConst() Value {
	cp := v.Detach()
	cp.mut = true
	return cp
}

// ShareCount reports the number of Value handles currently referring to
// the same cell (`@?`). Primitives report 1 (never shared); NaV
// reports 0.
func (v Value) ShareCount() int64 {
	if v.kind == KindNaV {
		return 0
	}
	if v.cell == nil {
		return 1
	}
	return v.cell.refCount()
}

// SharedWith reports whether v and other refer to the same underlying
// cell (`@@`).
func (v Value) SharedWith(other Value) bool {
	if v.cell == nil || other.cell == nil {
		return false
	}
	return v.cell == other.cell
}

// AssignableFrom reports whether a Value of rhs's type may be assigned
// into a slot whose declared type is that of v, per : "Assignment
// across differing types fails unless the right-hand side is NaV."
func (v Value) AssignableFrom(rhs Value) bool {
	if rhs.kind == KindNaV {
		return true
	}
	return v.kind == rhs.kind
}
