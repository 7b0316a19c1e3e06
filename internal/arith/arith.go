// Package arith implements the shared arithmetic, comparison, and bitwise
// helpers used identically by AST-eval (internal/ast) and the VM
// (internal/tsvm), so both execution modes agree by construction.
//
// Grounded on internal/vm/vm_ops.go's binaryOp/bitwiseOp and numeric
// promotion handling, generalized to TeaScript's U8/I64/U64/F64 numeric
// tower (original_source/include/teascript/Number.hpp promotes
// U8 -> I64 -> U64 -> F64; integer overflow is its own error kind rather
// than silently wrapping or promoting further).
package arith

import (
	"math"

	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

func rank(k value.Kind) int {
	switch k {
	case value.KindU8:
		return 0
	case value.KindI64:
		return 1
	case value.KindU64:
		return 2
	case value.KindF64:
		return 3
	default:
		return -1
	}
}

// promote widens a and b to a common numeric kind following the
// U8 -> I64 -> U64 -> F64 tower.
func promote(a, b value.Value) (value.Kind, error) {
	ra, rb := rank(a.Kind()), rank(b.Kind())
	if ra < 0 || rb < 0 {
		return 0, teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "operand is not arithmetic: %s/%s", a.Kind(), b.Kind())
	}
	if ra > rb {
		return a.Kind(), nil
	}
	return b.Kind(), nil
}

func asF64(v value.Value) float64 {
	switch v.Kind() {
	case value.KindU8:
		b, _ := v.U8()
		return float64(b)
	case value.KindI64:
		i, _ := v.I64()
		return float64(i)
	case value.KindU64:
		u, _ := v.U64()
		return float64(u)
	case value.KindF64:
		f, _ := v.F64()
		return f
	}
	return 0
}

func asI64(v value.Value) int64 {
	switch v.Kind() {
	case value.KindU8:
		b, _ := v.U8()
		return int64(b)
	case value.KindI64:
		i, _ := v.I64()
		return i
	case value.KindU64:
		u, _ := v.U64()
		return int64(u)
	case value.KindF64:
		f, _ := v.F64()
		return int64(f)
	}
	return 0
}

func asU64(v value.Value) uint64 {
	switch v.Kind() {
	case value.KindU8:
		b, _ := v.U8()
		return uint64(b)
	case value.KindI64:
		i, _ := v.I64()
		return uint64(i)
	case value.KindU64:
		u, _ := v.U64()
		return u
	case value.KindF64:
		f, _ := v.F64()
		return uint64(f)
	}
	return 0
}

func makeOfKind(k value.Kind, i64 int64, u64 uint64, f64 float64) value.Value {
	switch k {
	case value.KindU8:
		return value.U8Val(byte(i64))
	case value.KindI64:
		return value.I64Val(i64)
	case value.KindU64:
		return value.U64Val(u64)
	case value.KindF64:
		return value.F64Val(f64)
	}
	return value.NaV()
}

// BinaryArith evaluates one of `+ - * / mod` over two arithmetic values.
func BinaryArith(op string, a, b value.Value) (value.Value, error) {
	k, err := promote(a, b)
	if err != nil {
		return value.Value{}, err
	}

	if k == value.KindF64 {
		if op == "mod" {
			return value.Value{}, teaerr.New(teaerr.KindModuloWithFloatingPoint, teaerr.SourceLocation{}, "mod requires integer operands")
		}
		af, bf := asF64(a), asF64(b)
		switch op {
		case "+":
			return value.F64Val(af + bf), nil
		case "-":
			return value.F64Val(af - bf), nil
		case "*":
			return value.F64Val(af * bf), nil
		case "/":
			if bf == 0 {
				return value.Value{}, teaerr.New(teaerr.KindDivisionByZero, teaerr.SourceLocation{}, "division by zero")
			}
			return value.F64Val(af / bf), nil
		}
	}

	if k == value.KindU64 {
		au, bu := asU64(a), asU64(b)
		switch op {
		case "+":
			r := au + bu
			if r < au {
				return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "u64 addition overflow")
			}
			return value.U64Val(r), nil
		case "-":
			if bu > au {
				return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "u64 subtraction underflow")
			}
			return value.U64Val(au - bu), nil
		case "*":
			if au != 0 && bu != 0 {
				r := au * bu
				if r/au != bu {
					return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "u64 multiplication overflow")
				}
				return value.U64Val(r), nil
			}
			return value.U64Val(0), nil
		case "/":
			if bu == 0 {
				return value.Value{}, teaerr.New(teaerr.KindDivisionByZero, teaerr.SourceLocation{}, "division by zero")
			}
			return value.U64Val(au / bu), nil
		case "mod":
			if bu == 0 {
				return value.Value{}, teaerr.New(teaerr.KindDivisionByZero, teaerr.SourceLocation{}, "modulo by zero")
			}
			return value.U64Val(au % bu), nil
		}
	}

	// I64 / U8 share the checked-signed-arithmetic path (U8 is promoted
	// to I64 for any binary op wider than its own 0..255 range; the
	// result is narrowed back only when both operands were U8, handled
	// by promote returning KindU8 in that case via the rank table).
	ai, bi := asI64(a), asI64(b)
	var r int64
	switch op {
	case "+":
		r = ai + bi
		if (bi > 0 && r < ai) || (bi < 0 && r > ai) {
			return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "integer addition overflow")
		}
	case "-":
		r = ai - bi
		if (bi < 0 && r < ai) || (bi > 0 && r > ai) {
			return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "integer subtraction overflow")
		}
	case "*":
		r = ai * bi
		if ai != 0 && r/ai != bi {
			return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "integer multiplication overflow")
		}
	case "/":
		if bi == 0 {
			return value.Value{}, teaerr.New(teaerr.KindDivisionByZero, teaerr.SourceLocation{}, "division by zero")
		}
		if ai == math.MinInt64 && bi == -1 {
			return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "integer division overflow")
		}
		r = ai / bi
	case "mod":
		if bi == 0 {
			return value.Value{}, teaerr.New(teaerr.KindDivisionByZero, teaerr.SourceLocation{}, "modulo by zero")
		}
		r = ai % bi
	default:
		return value.Value{}, teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown arithmetic operator %q", op)
	}
	if k == value.KindU8 {
		if r < 0 || r > 255 {
			return value.Value{}, teaerr.New(teaerr.KindIntegerOverflow, teaerr.SourceLocation{}, "u8 arithmetic overflow")
		}
		return value.U8Val(byte(r)), nil
	}
	return value.I64Val(r), nil
}

// Compare evaluates `< <= > >= == !=`.
func Compare(op string, a, b value.Value) (value.Value, error) {
	if op == "==" {
		return value.BoolVal(a.Equals(b)), nil
	}
	if op == "!=" {
		return value.BoolVal(!a.Equals(b)), nil
	}
	if !isArithmetic(a) || !isArithmetic(b) {
		return value.Value{}, teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "comparison %s requires arithmetic operands", op)
	}
	af, bf := asF64(a), asF64(b)
	switch op {
	case "<":
		return value.BoolVal(af < bf), nil
	case "<=":
		return value.BoolVal(af <= bf), nil
	case ">":
		return value.BoolVal(af > bf), nil
	case ">=":
		return value.BoolVal(af >= bf), nil
	}
	return value.Value{}, teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown comparison operator %q", op)
}

func isArithmetic(v value.Value) bool {
	ti := v.TypeInfo()
	return ti != nil && ti.Arithmetic()
}

// BitOp evaluates `bit_and bit_or bit_xor bit_lsh bit_rsh` ("Bit
// operator"). Shift on a signed integer uses arithmetic shift; the shift
// amount must be strictly less than the operand bit-width.
func BitOp(op string, a, b value.Value) (value.Value, error) {
	k, err := promote(a, b)
	if err != nil {
		return value.Value{}, err
	}
	width := 64
	if a.Kind() == value.KindU8 {
		width = 8
	}
	switch op {
	case "bit_and":
		if k == value.KindU64 {
			return value.U64Val(asU64(a) & asU64(b)), nil
		}
		return makeOfKind(k, asI64(a)&asI64(b), 0, 0), nil
	case "bit_or":
		if k == value.KindU64 {
			return value.U64Val(asU64(a) | asU64(b)), nil
		}
		return makeOfKind(k, asI64(a)|asI64(b), 0, 0), nil
	case "bit_xor":
		if k == value.KindU64 {
			return value.U64Val(asU64(a) ^ asU64(b)), nil
		}
		return makeOfKind(k, asI64(a)^asI64(b), 0, 0), nil
	case "bit_lsh", "bit_rsh":
		amount := asI64(b)
		if amount < 0 || int(amount) >= width {
			return value.Value{}, teaerr.Newf(teaerr.KindOutOfRange, teaerr.SourceLocation{}, "shift amount %d out of range for %d-bit operand", amount, width)
		}
		if k == value.KindU64 {
			u := asU64(a)
			if op == "bit_lsh" {
				return value.U64Val(u << uint(amount)), nil
			}
			return value.U64Val(u >> uint(amount)), nil
		}
		i := asI64(a)
		if op == "bit_lsh" {
			return makeOfKind(k, i<<uint(amount), 0, 0), nil
		}
		// arithmetic right shift on signed integers
		return makeOfKind(k, i>>uint(amount), 0, 0), nil
	}
	return value.Value{}, teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown bit operator %q", op)
}

// UnaryArith evaluates unary `-`, `+`, and `bit_not` ("Unary
// operator").
func UnaryArith(op string, a value.Value) (value.Value, error) {
	if !isArithmetic(a) {
		return value.Value{}, teaerr.Newf(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "unary %s requires an arithmetic operand", op)
	}
	switch op {
	case "+":
		return a, nil
	case "-":
		if a.Kind() == value.KindF64 {
			return value.F64Val(-asF64(a)), nil
		}
		return makeOfKind(a.Kind(), -asI64(a), 0, 0), nil
	case "bit_not":
		if a.Kind() == value.KindF64 {
			return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "bit_not requires an integer operand")
		}
		if a.Kind() == value.KindU64 {
			return value.U64Val(^asU64(a)), nil
		}
		return makeOfKind(a.Kind(), ^asI64(a), 0, 0), nil
	}
	return value.Value{}, teaerr.Newf(teaerr.KindEval, teaerr.SourceLocation{}, "unknown unary operator %q", op)
}

// Not evaluates logical `not` on a Bool.
func Not(a value.Value) (value.Value, error) {
	b, ok := a.Bool()
	if !ok {
		return value.Value{}, teaerr.New(teaerr.KindTypeMismatch, teaerr.SourceLocation{}, "not requires a Bool operand")
	}
	return value.BoolVal(!b), nil
}

// Concat implements `%`, string concatenation after string-coercing both
// sides.
func Concat(a, b value.Value) value.Value {
	return value.StringVal(a.String() + b.String())
}
