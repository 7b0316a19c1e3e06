package value

import "sync/atomic"

// cell is the shareable backing store behind a composite Value (Tuple,
// Buffer, Function, Passthrough). Every Value handle that refers to the
// same cell observes the same mutations; detaching allocates a fresh
// cell with the payload copied.
//
// Go's garbage collector owns the cell's actual lifetime; refs is not a
// memory-management mechanism here, it is bookkeeping kept accurate enough
// to make `@?` (share-count) and `@@` (shared-with) observable. It is
// incremented by share and decremented at the defined release points:
// variable/element reassignment and scope exit (see internal/context and
// internal/tsvm). A cell that is never released simply overcounts its
// refs relative to a "true" ownership count; cycles and leaks are left to
// the user, same as any refcounted scheme without a collector behind it.
type cell struct {
	refs int32
	v    variant
}

// variant holds the payload for every non-trivially-inline Kind. Bool,
// U8, I64, U64, and F64 never allocate a cell — their bit pattern lives
// directly in the Value (mirrors internal/vm/value.go's split between
// inline Data and heap Obj).
type variant struct {
	kind Kind
	str  string
	tup  *Tuple
	buf  []byte
	seq  IntegerSequence
	fn   *Function
	pt   Passthrough
}

func newCell(v variant) *cell {
	return &cell{refs: 1, v: v}
}

func (c *cell) addRef() { atomic.AddInt32(&c.refs, 1) }

func (c *cell) release() int32 {
	return atomic.AddInt32(&c.refs, -1)
}

func (c *cell) refCount() int64 {
	return int64(atomic.LoadInt32(&c.refs))
}

// deepCopy produces a fresh, unshared cell with the same logical content.
// Tuples are copied recursively ("Invariants"); Buffers are copied
// byte-for-byte; Functions and Passthrough payloads are copied by
// reference since they are immutable handles from the value model's
// point of view.
func (c *cell) deepCopy() *cell {
	nv := c.v
	switch c.v.kind {
	case KindTuple:
		nv.tup = c.v.tup.deepCopy()
	case KindBuffer:
		buf := make([]byte, len(c.v.buf))
		copy(buf, c.v.buf)
		nv.buf = buf
	}
	return newCell(nv)
}
