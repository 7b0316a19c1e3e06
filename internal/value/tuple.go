package value

import "fmt"

// tupleElement is one slot of a Tuple: an optionally-keyed Value that also
// has a stable positional index.
type tupleElement struct {
	key *string // nil for purely positional elements
	val Value
}

// Tuple is the universal composite value: insertion-ordered, with both
// integer-index and string-key access, doubling as array and object.
//
// Grounded on the shape of Collection.hpp from original_source/ (a
// Collection offers both MakeTuple-style positional append and named
// append) and on internal/evaluator.Tuple, generalized to carry optional
// keys per element instead of being purely positional.
type Tuple struct {
	elems []tupleElement
	keys  map[string]int // key -> index into elems
}

// NewTuple creates an empty Tuple.
func NewTuple() *Tuple {
	return &Tuple{}
}

// emptyArraySentinelKey is never a legal user key; the sentinel element
// uses a nil key but is recognized by (and only by) isEmptyArraySentinel.
func emptyArraySentinel() tupleElement {
	return tupleElement{key: nil, val: NewBuffer(nil)}
}

// NewEmptyArray returns a Tuple representing an empty array, distinguished
// from an empty object by the sentinel convention required for
// JSON/TOML round-tripping by the (out-of-scope) adapter layer.
func NewEmptyArray() *Tuple {
	return &Tuple{elems: []tupleElement{emptyArraySentinel()}}
}

func (t *Tuple) isEmptyArraySentinel() bool {
	return len(t.elems) == 1 && t.elems[0].key == nil && t.elems[0].val.kind == KindBuffer &&
		t.elems[0].val.cell != nil && len(t.elems[0].val.cell.v.buf) == 0
}

// stripSentinel removes the empty-array sentinel element if present; it
// must be called before the first real append.
func (t *Tuple) stripSentinel() {
	if t.isEmptyArraySentinel() {
		t.elems = t.elems[:0]
	}
}

// Len returns the number of logical elements (0 for a sentinel-only empty
// array).
func (t *Tuple) Len() int {
	if t.isEmptyArraySentinel() {
		return 0
	}
	return len(t.elems)
}

// Get returns the element at positional index i.
func (t *Tuple) Get(i int) (Value, bool) {
	if i < 0 || i >= t.Len() {
		return Value{}, false
	}
	return t.elems[i].val, true
}

// GetByKey returns the element with the given key.
func (t *Tuple) GetByKey(key string) (Value, bool) {
	if t.keys == nil {
		return Value{}, false
	}
	idx, ok := t.keys[key]
	if !ok {
		return Value{}, false
	}
	return t.elems[idx].val, true
}

// KeyAt returns the key of element i, if any.
func (t *Tuple) KeyAt(i int) (string, bool) {
	if i < 0 || i >= len(t.elems) {
		return "", false
	}
	if t.elems[i].key == nil {
		return "", false
	}
	return *t.elems[i].key, true
}

// Append adds a purely-positional element; numeric append at index n
// requires n == size, which holds automatically for append.
func (t *Tuple) Append(v Value) error {
	t.stripSentinel()
	t.elems = append(t.elems, tupleElement{val: v})
	return nil
}

// AppendNamed adds a keyed element; a duplicate key is rejected.
func (t *Tuple) AppendNamed(key string, v Value) error {
	t.stripSentinel()
	if t.keys == nil {
		t.keys = make(map[string]int)
	}
	if _, exists := t.keys[key]; exists {
		return fmt.Errorf("duplicate key %q in tuple", key)
	}
	k := key
	t.elems = append(t.elems, tupleElement{key: &k, val: v})
	t.keys[key] = len(t.elems) - 1
	return nil
}

// Set overwrites the element at positional index i. Returns the previous
// value so the caller can release its share before overwriting.
func (t *Tuple) Set(i int, v Value) (Value, error) {
	if i < 0 || i >= t.Len() {
		return Value{}, fmt.Errorf("tuple index %d out of range (len %d)", i, t.Len())
	}
	old := t.elems[i].val
	t.elems[i].val = v
	return old, nil
}

// SetByKey overwrites (or, if absent, appends) a keyed element.
func (t *Tuple) SetByKey(key string, v Value) (Value, bool) {
	if t.keys != nil {
		if idx, ok := t.keys[key]; ok {
			old := t.elems[idx].val
			t.elems[idx].val = v
			return old, true
		}
	}
	_ = t.AppendNamed(key, v)
	return Value{}, false
}

// RemoveAt removes the element at i, renumbering subsequent keys so
// order is preserved ("Dot operator ... during remove it preserves
// order by renumbering").
func (t *Tuple) RemoveAt(i int) error {
	if i < 0 || i >= t.Len() {
		return fmt.Errorf("tuple index %d out of range (len %d)", i, t.Len())
	}
	removed := t.elems[i]
	t.elems = append(t.elems[:i], t.elems[i+1:]...)
	if removed.key != nil && t.keys != nil {
		delete(t.keys, *removed.key)
	}
	// Renumber: any remaining keyed element's map entry that pointed past i
	// must shift down by one.
	if t.keys != nil {
		for k, idx := range t.keys {
			if idx > i {
				t.keys[k] = idx - 1
			}
		}
	}
	return nil
}

// IsArray reports whether the tuple has no keyed elements (purely
// positional), the "array" side of the duality.
func (t *Tuple) IsArray() bool {
	return len(t.keys) == 0
}

func (t *Tuple) deepCopy() *Tuple {
	cp := &Tuple{elems: make([]tupleElement, len(t.elems))}
	for i, e := range t.elems {
		cp.elems[i] = tupleElement{key: e.key, val: e.val.Detach()}
	}
	if t.keys != nil {
		cp.keys = make(map[string]int, len(t.keys))
		for k, v := range t.keys {
			cp.keys[k] = v
		}
	}
	return cp
}

// Range visits every element in insertion order.
func (t *Tuple) Range(fn func(i int, key string, v Value) bool) {
	for i, e := range t.elems {
		if t.isEmptyArraySentinel() {
			return
		}
		k := ""
		if e.key != nil {
			k = *e.key
		}
		if !fn(i, k, e.val) {
			return
		}
	}
}
