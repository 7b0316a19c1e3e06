// Package program implements the Program artifact produced by
// internal/compiler and executed by internal/tsvm: an immutable
// instruction vector plus a debug map from instruction index to source
// location, a compiler version stamp, and an optimization level, together
// with the `.tsb` binary persistence format.
//
// The instruction-vector/constant-pool/line table shape follows
// internal/vm/chunk.go, and the hand-rolled magic+version binary header
// follows internal/vm/bundle.go's style (encoding/binary, not gob — that
// bundle format is gob-based because it also carries module graphs that
// are out of this core's scope; this format only needs a flat
// header/body).
package program

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// Opcode is the TSVM instruction set.
type Opcode uint32

const (
	OpPush Opcode = iota
	OpPop
	OpReplace
	OpSwap
	OpLoad
	OpStor

	OpDefVar
	OpConstVar
	OpAutoVar
	OpUndefVar
	OpIsDef

	OpMakeTuple
	OpSetElement
	OpDefElement
	OpConstElement
	OpIsDefElement
	OpUndefElement
	OpSubscriptGet
	OpSubscriptSet

	OpUnaryOp
	OpBinaryOp
	OpBitOp
	OpIsType
	OpAsType
	OpDotOp

	OpEnterScope
	OpExitScope
	OpTest
	OpJumpRel
	OpJumpRel_If
	OpJumpRel_IfNot
	OpTestAndJumpRel_If
	OpTestAndJumpRel_IfNot
	OpForallHead
	OpForallNext

	OpCallFunc
	OpFuncDef
	OpRet
	OpParamSpec
	OpParamSpecClean
	OpFromParam
	OpFromParam_Or

	OpHALT
	OpProgramEnd
	OpExitProgram
	OpSuspend
	OpYield

	OpNoOp
	OpNoOp_NaV
	OpDebug
	OpExprStart
	OpExprEnd
	OpIf
	OpElse
	OpRepeatStart
	OpRepeatEnd
	OpParamList
	OpNotImplemented

	opcodeCount
)

var opcodeNames = [...]string{
	"Push", "Pop", "Replace", "Swap", "Load", "Stor",
	"DefVar", "ConstVar", "AutoVar", "UndefVar", "IsDef",
	"MakeTuple", "SetElement", "DefElement", "ConstElement", "IsDefElement", "UndefElement", "SubscriptGet", "SubscriptSet",
	"UnaryOp", "BinaryOp", "BitOp", "IsType", "AsType", "DotOp",
	"EnterScope", "ExitScope", "Test", "JumpRel", "JumpRel_If", "JumpRel_IfNot", "TestAndJumpRel_If", "TestAndJumpRel_IfNot", "ForallHead", "ForallNext",
	"CallFunc", "FuncDef", "Ret", "ParamSpec", "ParamSpecClean", "FromParam", "FromParam_Or",
	"HALT", "ProgramEnd", "ExitProgram", "Suspend", "Yield",
	"NoOp", "NoOp_NaV", "Debug", "ExprStart", "ExprEnd", "If", "Else", "RepeatStart", "RepeatEnd", "ParamList", "NotImplemented",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint32(op))
}

func (op Opcode) valid() bool { return op < opcodeCount }

// Instruction is one step of a Program's linear stream: an opcode plus an
// optional payload Value ("Program").
type Instruction struct {
	Op      Opcode
	Payload value.Value
}

// OptLevel is the compiler's optimization level.
type OptLevel uint8

const (
	OptDebug OptLevel = iota
	OptO0
	OptO1
	OptO2
)

func (l OptLevel) String() string {
	switch l {
	case OptDebug:
		return "Debug"
	case OptO0:
		return "O0"
	case OptO1:
		return "O1"
	case OptO2:
		return "O2"
	default:
		return "?"
	}
}

// CompilerVersion is the monotonic stamp compared by the loader: a
// single integer, not a semver triple.
const CompilerVersion uint32 = 1

// Program is the immutable compiled artifact: a name, the optimization
// level used, the compiler version stamp, an ordered instruction vector,
// and a debug map from instruction index to source location.
type Program struct {
	Name            string
	OptLevel        OptLevel
	CompilerVersion uint32
	Instructions    []Instruction
	DebugMap        map[int]teaerr.SourceLocation
}

// New creates an empty Program stamped with the current compiler version.
func New(name string, level OptLevel) *Program {
	return &Program{
		Name:            name,
		OptLevel:        level,
		CompilerVersion: CompilerVersion,
		DebugMap:        make(map[int]teaerr.SourceLocation),
	}
}

// Len reports the instruction count.
func (p *Program) Len() int { return len(p.Instructions) }

// LocationFor returns the best-matching source location for instruction
// index idx, walking backwards through the debug map if idx itself has no
// entry ("Exception injection ... the best-matching source location
// from the program's debug map").
func (p *Program) LocationFor(idx int) teaerr.SourceLocation {
	for i := idx; i >= 0; i-- {
		if loc, ok := p.DebugMap[i]; ok {
			return loc
		}
	}
	return teaerr.SourceLocation{}
}

// Equal reports whether two programs are observably identical: same
// instructions (opcode + payload, compared by kind and rendered string
// since value.Value has no exported equality besides Equals, which NaVs
// treat specially), name, optimization level, and compiler version. Used
// by the "Round-trip" testable property.
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Name != other.Name || p.OptLevel != other.OptLevel || p.CompilerVersion != other.CompilerVersion {
		return false
	}
	if len(p.Instructions) != len(other.Instructions) {
		return false
	}
	for i := range p.Instructions {
		a, b := p.Instructions[i], other.Instructions[i]
		if a.Op != b.Op {
			return false
		}
		if a.Payload.Kind() != b.Payload.Kind() {
			return false
		}
		if !a.Payload.IsNaV() && a.Payload.String() != b.Payload.String() {
			return false
		}
	}
	return true
}

// --- "Program image format" ---

const (
	magicTag     = "\xCA\xFE\x07\xEA"
	headerString = ".tsb"
	maxNameLen   = 32767
	maxInstrs    = 2_800_000
	maxPayloadStr = 10 * 1024 * 1024
)

var errWrongMagic = teaerr.New(teaerr.KindRuntime, teaerr.SourceLocation{}, "wrong magic number")

// payload type tags for the wire format, distinct from value.Kind so the
// format is stable even if the in-memory Kind enum is renumbered.
const (
	wireNaV uint32 = iota
	wireBool
	wireU8
	wireI64
	wireU64
	wireF64
	wireString
)

func kindToWire(k value.Kind) (uint32, error) {
	switch k {
	case value.KindNaV:
		return wireNaV, nil
	case value.KindBool:
		return wireBool, nil
	case value.KindU8:
		return wireU8, nil
	case value.KindI64:
		return wireI64, nil
	case value.KindU64:
		return wireU64, nil
	case value.KindF64:
		return wireF64, nil
	case value.KindString:
		return wireString, nil
	default:
		return 0, teaerr.Newf(teaerr.KindRuntime, teaerr.SourceLocation{}, "value kind %s is not persistable as an instruction payload", k)
	}
}

// Save serializes p to the `.tsb` binary format. Multi-byte fields are
// always written little-endian, whatever the host byte order.
func (p *Program) Save(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(headerString)
	buf.WriteString(magicTag)
	binary.Write(&buf, binary.LittleEndian, p.CompilerVersion)
	buf.WriteByte(byte(p.OptLevel))
	if len(p.Name) > maxNameLen {
		return teaerr.Newf(teaerr.KindRuntime, teaerr.SourceLocation{}, "program name too long: %d bytes", len(p.Name))
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Name)))
	buf.WriteString(p.Name)

	binary.Write(&buf, binary.LittleEndian, uint64(len(p.Instructions)))
	for _, instr := range p.Instructions {
		binary.Write(&buf, binary.LittleEndian, uint32(instr.Op))
		wt, err := kindToWire(instr.Payload.Kind())
		if err != nil {
			return err
		}
		binary.Write(&buf, binary.LittleEndian, wt)
		if err := writePayload(&buf, wt, instr.Payload); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writePayload(buf *bytes.Buffer, wt uint32, v value.Value) error {
	switch wt {
	case wireNaV:
		return nil
	case wireBool:
		b, _ := v.Bool()
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case wireU8:
		u, _ := v.U8()
		buf.WriteByte(u)
	case wireI64:
		i, _ := v.I64()
		binary.Write(buf, binary.LittleEndian, i)
	case wireU64:
		u, _ := v.U64()
		binary.Write(buf, binary.LittleEndian, u)
	case wireF64:
		f, _ := v.F64()
		binary.Write(buf, binary.LittleEndian, f)
	case wireString:
		s, _ := v.Str()
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	return nil
}

// Load deserializes a Program from the `.tsb` format, rejecting images
// on: wrong magic, over-long name, instruction count over the safety
// bound, over-long payload strings, truncated bodies, unknown opcodes,
// and a compiler-version mismatch against the running CompilerVersion.
func Load(r io.Reader) (*Program, error) {
	hdr := make([]byte, len(headerString)+len(magicTag))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated header: %v", err)
	}
	if string(hdr[:len(headerString)]) != headerString || string(hdr[len(headerString):]) != magicTag {
		return nil, errWrongMagic
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated header: %v", err)
	}

	var optByte [1]byte
	if _, err := io.ReadFull(r, optByte[:]); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated header: %v", err)
	}

	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated header: %v", err)
	}
	if nameLen > maxNameLen {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "name length %d exceeds maximum", nameLen)
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated name: %v", err)
	}

	if version != CompilerVersion {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "compiler version mismatch: image is %d, runtime is %d", version, CompilerVersion)
	}

	p := &Program{
		Name:            string(nameBuf),
		OptLevel:        OptLevel(optByte[0]),
		CompilerVersion: version,
		DebugMap:        make(map[int]teaerr.SourceLocation),
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated body: %v", err)
	}
	if count > maxInstrs {
		return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "instruction count %d exceeds safety bound", count)
	}

	p.Instructions = make([]Instruction, 0, count)
	for i := uint64(0); i < count; i++ {
		var op uint32
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated instruction %d: %v", i, err)
		}
		if !Opcode(op).valid() {
			return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "unknown opcode %d at instruction %d", op, i)
		}
		var wt uint32
		if err := binary.Read(r, binary.LittleEndian, &wt); err != nil {
			return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "truncated instruction %d: %v", i, err)
		}
		payload, err := readPayload(r, wt)
		if err != nil {
			return nil, teaerr.Newf(teaerr.KindLoadFile, teaerr.SourceLocation{}, "instruction %d: %v", i, err)
		}
		p.Instructions = append(p.Instructions, Instruction{Op: Opcode(op), Payload: payload})
	}
	return p, nil
}

func readPayload(r io.Reader, wt uint32) (value.Value, error) {
	switch wt {
	case wireNaV:
		return value.NaV(), nil
	case wireBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return value.Value{}, err
		}
		return value.BoolVal(b[0] != 0), nil
	case wireU8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return value.Value{}, err
		}
		return value.U8Val(b[0]), nil
	case wireI64:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return value.Value{}, err
		}
		return value.I64Val(i), nil
	case wireU64:
		var u uint64
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			return value.Value{}, err
		}
		return value.U64Val(u), nil
	case wireF64:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return value.Value{}, err
		}
		return value.F64Val(f), nil
	case wireString:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return value.Value{}, err
		}
		if n > maxPayloadStr {
			return value.Value{}, fmt.Errorf("payload string length %d exceeds maximum", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return value.Value{}, err
		}
		return value.StringVal(string(buf)), nil
	default:
		return value.Value{}, fmt.Errorf("unknown payload type tag %d", wt)
	}
}
