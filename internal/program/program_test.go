package program

import (
	"bytes"
	"testing"

	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

func sample() *Program {
	p := New("sample", OptO1)
	p.Instructions = append(p.Instructions,
		Instruction{Op: OpPush, Payload: value.I64Val(7)},
		Instruction{Op: OpPush, Payload: value.StringVal("hello")},
		Instruction{Op: OpBinaryOp, Payload: value.StringVal("+")},
		Instruction{Op: OpProgramEnd, Payload: value.NaV()},
	)
	p.DebugMap[0] = teaerr.SourceLocation{Name: "sample.tea", Line: 1, Column: 1}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := sample()
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Equal(loaded) {
		t.Fatalf("round trip mismatch: %+v != %+v", p, loaded)
	}
}

func TestWrongMagic(t *testing.T) {
	p := sample()
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	data := buf.Bytes()
	// Corrupt a magic byte (scenario 8).
	data[5] ^= 0xFF
	if _, err := Load(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected an error loading a corrupted magic number")
	}
}

func TestVersionMismatch(t *testing.T) {
	p := sample()
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	data := buf.Bytes()
	// Version field follows the 8-byte header string+magic.
	data[8] = 0xFF
	if _, err := Load(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected an error loading a version-mismatched image")
	}
}
