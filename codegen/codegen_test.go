package codegen

import (
	"testing"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
	"github.com/TheAnsarya/poppy/sema"
	"github.com/TheAnsarya/poppy/srcmap"
	"github.com/TheAnsarya/poppy/target"
)

func loc(file string, line int) lex.Location { return lex.Location{File: file, Line: line} }

func TestGenerateSimpleProgram(t *testing.T) {
	an := &sema.Analysis{
		Target: target.MOS6502,
		Symbols: sema.NewSymbolTable(),
		Items: []sema.Item{
			{
				Kind: sema.ItemInstruction, Loc: loc("main.s", 1), Addr: 0x8000, Size: 2,
				Mnemonic: "LDA", Op: target.Operand{Mode: ast.Immediate, Values: []int64{0x42}, Known: true, NarrowOK: true},
			},
			{
				Kind: sema.ItemBytes, Loc: loc("main.s", 2), Addr: 0x8002, Size: 1, Bytes: []byte{0xea},
			},
		},
	}
	res := Generate(an, Options{})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("got %d segments; want 1", len(res.Segments))
	}
	seg := res.Segments[0]
	want := []byte{0xa9, 0x42, 0xea}
	if seg.Start != 0x8000 || string(seg.Data) != string(want) {
		t.Errorf("segment = start %#x data %x; want start 0x8000 data %x", seg.Start, seg.Data, want)
	}
}

func TestGenerateComputesBranchDisplacement(t *testing.T) {
	an := &sema.Analysis{
		Target:  target.MOS6502,
		Symbols: sema.NewSymbolTable(),
		Items: []sema.Item{
			{
				Kind: sema.ItemInstruction, Loc: loc("main.s", 1), Addr: 0x8000, Size: 2,
				Mnemonic: "BEQ", Op: target.Operand{Values: []int64{0x7ffe}, Known: true},
			},
		},
	}
	res := Generate(an, Options{})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	// Target 0x7ffe is 4 bytes behind the instruction after this one (0x8002).
	if res.Segments[0].Data[1] != 0xfc {
		t.Errorf("branch displacement byte = %#x; want 0xfc", res.Segments[0].Data[1])
	}
}

func TestGenerateDetectsSegmentOverlap(t *testing.T) {
	an := &sema.Analysis{
		Target:  target.MOS6502,
		Symbols: sema.NewSymbolTable(),
		Items: []sema.Item{
			{Kind: sema.ItemBytes, Addr: 0x8000, Size: 2, Bytes: []byte{1, 2}},
			{Kind: sema.ItemBytes, Addr: 0x8001, Size: 2, Bytes: []byte{3, 4}},
		},
	}
	res := Generate(an, Options{})
	if len(res.Errors) == 0 {
		t.Fatal("expected a SegmentOverlap error")
	}
	cgErr, ok := res.Errors[0].(*Error)
	if !ok || cgErr.Kind != SegmentOverlap {
		t.Errorf("err = %v; want *Error{Kind: SegmentOverlap}", res.Errors[0])
	}
}

func TestGenerateAutolabelsUnnamedCallTarget(t *testing.T) {
	sm := srcmap.New()
	an := &sema.Analysis{
		Target:  target.MOS6502,
		Symbols: sema.NewSymbolTable(),
		Items: []sema.Item{
			{
				Kind: sema.ItemInstruction, Loc: loc("main.s", 1), Addr: 0x8000, Size: 3,
				Mnemonic: "JSR", Op: target.Operand{Values: []int64{0x9000}, Known: true},
			},
		},
	}
	res := Generate(an, Options{Autolabel: true, SourceMap: sm})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(sm.Exports) != 1 || sm.Exports[0].Label != "sub_9000" {
		t.Errorf("exports = %+v; want one sub_9000 export", sm.Exports)
	}
}

func TestGenerateRejectsUnresolvedOperand(t *testing.T) {
	an := &sema.Analysis{
		Target:  target.MOS6502,
		Symbols: sema.NewSymbolTable(),
		Items: []sema.Item{
			{Kind: sema.ItemInstruction, Loc: loc("main.s", 1), Addr: 0x8000, Size: 2, Mnemonic: "LDA", Op: target.Operand{Known: false}},
		},
	}
	res := Generate(an, Options{})
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors; want 1", len(res.Errors))
	}
	if cgErr, ok := res.Errors[0].(*Error); !ok || cgErr.Kind != UnresolvedOperand {
		t.Errorf("err = %v; want UnresolvedOperand", res.Errors[0])
	}
}
