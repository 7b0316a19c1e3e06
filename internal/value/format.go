package value

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders a value for display and for the `%` string-concatenation
// operator's implicit coercion.
func (v Value) String() string {
	switch v.kind {
	case KindNaV:
		return "NaV"
	case KindBool:
		b, _ := v.Bool()
		return strconv.FormatBool(b)
	case KindU8:
		b, _ := v.U8()
		return strconv.FormatUint(uint64(b), 10)
	case KindI64:
		i, _ := v.I64()
		return strconv.FormatInt(i, 10)
	case KindU64:
		u, _ := v.U64()
		return strconv.FormatUint(u, 10)
	case KindF64:
		f, _ := v.F64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		s, _ := v.Str()
		return s
	case KindBuffer:
		b, _ := v.Buffer()
		return fmt.Sprintf("Buffer(%d bytes)", len(b))
	case KindIntegerSequence:
		s, _ := v.Sequence()
		return fmt.Sprintf("%d..%d step %d", s.From, s.To, s.Step)
	case KindTuple:
		t, _ := v.Tuple()
		var sb strings.Builder
		sb.WriteByte('(')
		first := true
		t.Range(func(i int, key string, ev Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			if key != "" {
				sb.WriteString(key)
				sb.WriteString(": ")
			}
			sb.WriteString(ev.String())
			return true
		})
		sb.WriteByte(')')
		return sb.String()
	case KindFunction:
		fn, _ := v.Function()
		return fmt.Sprintf("<function %s>", fn.Name)
	case KindPassthrough:
		p, _ := v.Passthrough()
		return fmt.Sprintf("<%s>", p.TypeName)
	default:
		return "<?>"
	}
}

// CodePointLength returns the UTF-8 code-point-aware length of a String
// value.
func (v Value) CodePointLength() (int, bool) {
	s, ok := v.Str()
	if !ok {
		return 0, false
	}
	return len([]rune(s)), true
}
