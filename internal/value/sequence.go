package value

import "fmt"

// IntegerSequence is a lazy ordered sequence (from, to, step) (tag 9).
type IntegerSequence struct {
	From int64
	To   int64
	Step int64
}

// NewIntegerSequence validates and constructs a sequence: step == 0 is
// rejected and direction must agree with the sign of step.
func NewIntegerSequence(from, to, step int64) (IntegerSequence, error) {
	if step == 0 {
		return IntegerSequence{}, fmt.Errorf("integer sequence step must not be zero")
	}
	if step > 0 && from > to {
		return IntegerSequence{}, fmt.Errorf("integer sequence direction disagrees with positive step")
	}
	if step < 0 && from < to {
		return IntegerSequence{}, fmt.Errorf("integer sequence direction disagrees with negative step")
	}
	return IntegerSequence{From: from, To: to, Step: step}, nil
}

// Len returns the number of elements the sequence produces.
func (s IntegerSequence) Len() int64 {
	if s.Step > 0 {
		if s.From > s.To {
			return 0
		}
		return (s.To-s.From)/s.Step + 1
	}
	if s.From < s.To {
		return 0
	}
	return (s.From-s.To)/(-s.Step) + 1
}

// At returns the i-th element produced by the sequence.
func (s IntegerSequence) At(i int64) int64 {
	return s.From + i*s.Step
}

// Range visits every element from..to respecting step, stopping early if
// fn returns false. Mirrors a Forall's iteration contract.
func (s IntegerSequence) Range(fn func(i int64, v int64) bool) {
	n := s.Len()
	for i := int64(0); i < n; i++ {
		if !fn(i, s.At(i)) {
			return
		}
	}
}
