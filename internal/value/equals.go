package value

// Equals implements `==`/`!=` value equality (not identity — use
// SharedWith for that). Numeric kinds compare across width the same way
// internal/arith promotes them for arithmetic, so `1 == 1.0` holds.
func (v Value) Equals(other Value) bool {
	if v.kind == KindNaV || other.kind == KindNaV {
		return v.kind == other.kind
	}
	if isNumericKind(v.kind) && isNumericKind(other.kind) {
		af, aok := numericAsFloat(v)
		bf, bok := numericAsFloat(other)
		if aok && bok {
			return af == bf
		}
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		a, _ := v.Bool()
		b, _ := other.Bool()
		return a == b
	case KindString:
		a, _ := v.Str()
		b, _ := other.Str()
		return a == b
	case KindBuffer:
		a, _ := v.Buffer()
		b, _ := other.Buffer()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case KindIntegerSequence:
		a, _ := v.Sequence()
		b, _ := other.Sequence()
		return a == b
	case KindTuple:
		a, _ := v.Tuple()
		b, _ := other.Tuple()
		if a.Len() != b.Len() {
			return false
		}
		eq := true
		a.Range(func(i int, key string, av Value) bool {
			bv, ok := b.Get(i)
			if !ok || !av.Equals(bv) {
				eq = false
				return false
			}
			return true
		})
		return eq
	case KindFunction:
		af, _ := v.Function()
		bf, _ := other.Function()
		return af == bf
	case KindPassthrough:
		ap, _ := v.Passthrough()
		bp, _ := other.Passthrough()
		return ap.Payload == bp.Payload
	}
	return false
}

func isNumericKind(k Kind) bool {
	switch k {
	case KindU8, KindI64, KindU64, KindF64:
		return true
	default:
		return false
	}
}

func numericAsFloat(v Value) (float64, bool) {
	switch v.kind {
	case KindU8:
		b, _ := v.U8()
		return float64(b), true
	case KindI64:
		i, _ := v.I64()
		return float64(i), true
	case KindU64:
		u, _ := v.U64()
		return float64(u), true
	case KindF64:
		f, _ := v.F64()
		return f, true
	}
	return 0, false
}
