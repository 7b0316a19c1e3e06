package value

import "testing"

func TestShareAndDetach(t *testing.T) {
	tup := NewTuple()
	_ = tup.Append(I64Val(1))
	_ = tup.Append(I64Val(2))
	a := TupleVal(tup)

	b := a.Share()
	if !a.SharedWith(b) {
		t.Fatalf("expected a and b to share a cell")
	}
	if got := a.ShareCount(); got != 2 {
		t.Fatalf("expected share count 2, got %d", got)
	}

	at, _ := a.Tuple()
	bt, _ := b.Tuple()
	_, _ = at.Set(0, I64Val(99))
	got, _ := bt.Get(0)
	gi, _ := got.I64()
	if gi != 99 {
		t.Fatalf("shared tuple mutation not observed: got %d", gi)
	}

	c := a.Detach()
	if a.SharedWith(c) {
		t.Fatalf("detach should yield an unshared copy")
	}
	ct, _ := c.Tuple()
	_, _ = ct.Set(0, I64Val(7))
	got2, _ := at.Get(0)
	gi2, _ := got2.I64()
	if gi2 != 99 {
		t.Fatalf("detached copy mutation leaked back to original: got %d", gi2)
	}
}

func TestEmptyArraySentinel(t *testing.T) {
	arr := NewEmptyArray()
	if arr.Len() != 0 {
		t.Fatalf("expected empty array length 0, got %d", arr.Len())
	}
	if err := arr.Append(I64Val(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if arr.Len() != 1 {
		t.Fatalf("expected length 1 after append, got %d", arr.Len())
	}
}

func TestTupleDuplicateKeyRejected(t *testing.T) {
	tup := NewTuple()
	if err := tup.AppendNamed("x", I64Val(1)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := tup.AppendNamed("x", I64Val(2)); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestIntegerSequenceValidation(t *testing.T) {
	if _, err := NewIntegerSequence(0, 10, 0); err == nil {
		t.Fatalf("expected error for zero step")
	}
	if _, err := NewIntegerSequence(10, 0, 1); err == nil {
		t.Fatalf("expected error for direction mismatch")
	}
	seq, err := NewIntegerSequence(0, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.Len() != 3 {
		t.Fatalf("expected length 3, got %d", seq.Len())
	}
}

func TestAssignableFrom(t *testing.T) {
	slot := I64Val(0)
	if !slot.AssignableFrom(NaV()) {
		t.Fatalf("NaV should be assignable into any slot")
	}
	if slot.AssignableFrom(StringVal("x")) {
		t.Fatalf("cross-type assignment should be rejected")
	}
	if !slot.AssignableFrom(I64Val(5)) {
		t.Fatalf("same-type assignment should be allowed")
	}
}

func TestNumericEquals(t *testing.T) {
	if !I64Val(1).Equals(F64Val(1.0)) {
		t.Fatalf("expected implicit int/float equality")
	}
}
