package value

import "sync"

// Kind is the stable ordinal tag of a Value variant. The numeric
// values match spec's persistence-format tags and must not be reordered.
type Kind uint8

const (
	KindNaV Kind = iota
	KindBool
	KindU8
	KindI64
	KindU64
	KindF64
	KindString
	KindTuple
	KindBuffer
	KindIntegerSequence
	KindFunction
	KindPassthrough
)

func (k Kind) String() string {
	switch k {
	case KindNaV:
		return "NaV"
	case KindBool:
		return "Bool"
	case KindU8:
		return "U8"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindString:
		return "String"
	case KindTuple:
		return "Tuple"
	case KindBuffer:
		return "Buffer"
	case KindIntegerSequence:
		return "IntegerSequence"
	case KindFunction:
		return "Function"
	case KindPassthrough:
		return "Passthrough"
	default:
		return "<unknown>"
	}
}

// TypeInfo is a registry entry mapping a runtime type identity to a name
// and a set of properties (arithmetic-capable? is-NaV?), as required by
// the Unary `typeof`/`typename` operators.
//
// Grounded on internal/evaluator/object.go's ObjectType constant registry,
// generalized into a first-class value instead of a bare string so
// `typeof` can return it directly.
type TypeInfo struct {
	kind       Kind
	name       string
	arithmetic bool
	isNaV      bool
}

func (t *TypeInfo) Kind() Kind        { return t.kind }
func (t *TypeInfo) Name() string      { return t.name }
func (t *TypeInfo) Arithmetic() bool  { return t.arithmetic }
func (t *TypeInfo) IsNaVType() bool   { return t.isNaV }
func (t *TypeInfo) String() string    { return t.name }

// TypeSystem is the registry of known TypeInfo values, keyed both by Kind
// (for the built-in variants) and by name (so host-registered Passthrough
// types can be looked up by name, e.g. for `AsType`/`IsType`).
type TypeSystem struct {
	mu      sync.RWMutex
	byKind  map[Kind]*TypeInfo
	byName  map[string]*TypeInfo
}

// NewTypeSystem builds a TypeSystem pre-populated with the built-in
// variants.
func NewTypeSystem() *TypeSystem {
	ts := &TypeSystem{
		byKind: make(map[Kind]*TypeInfo),
		byName: make(map[string]*TypeInfo),
	}
	register := func(k Kind, name string, arith bool, isNaV bool) {
		ti := &TypeInfo{kind: k, name: name, arithmetic: arith, isNaV: isNaV}
		ts.byKind[k] = ti
		ts.byName[name] = ti
	}
	register(KindNaV, "NaV", false, true)
	register(KindBool, "Bool", false, false)
	register(KindU8, "u8", true, false)
	register(KindI64, "i64", true, false)
	register(KindU64, "u64", true, false)
	register(KindF64, "f64", true, false)
	register(KindString, "String", false, false)
	register(KindTuple, "Tuple", false, false)
	register(KindBuffer, "Buffer", false, false)
	register(KindIntegerSequence, "IntegerSequence", false, false)
	register(KindFunction, "Function", false, false)
	register(KindPassthrough, "Passthrough", false, false)
	return ts
}

// Lookup returns the TypeInfo for one of the built-in Kinds.
func (ts *TypeSystem) Lookup(k Kind) *TypeInfo {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.byKind[k]
}

// LookupByName returns a registered TypeInfo (built-in or host-registered)
// by name, used by `typename`'s inverse and by AsType/IsType.
func (ts *TypeSystem) LookupByName(name string) (*TypeInfo, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	ti, ok := ts.byName[name]
	return ti, ok
}

// RegisterPassthrough registers a distinct named type for host-owned
// Passthrough payloads (variant 11), so a host can distinguish e.g. a
// "FileHandle" from a "SqlConnection" at the `typename` level.
func (ts *TypeSystem) RegisterPassthrough(name string) *TypeInfo {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ti, ok := ts.byName[name]; ok {
		return ti
	}
	ti := &TypeInfo{kind: KindPassthrough, name: name, arithmetic: false, isNaV: false}
	ts.byName[name] = ti
	return ti
}

// DefaultTypeSystem is shared by code that doesn't carry its own registry
// (tests, the reference parser). A Context normally owns its own instance
// so host-registered Passthrough names don't leak across embeddings.
var DefaultTypeSystem = NewTypeSystem()
