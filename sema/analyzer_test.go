package sema

import (
	"testing"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/target"
)

func num(v int64) *ast.NumberLiteral { return &ast.NumberLiteral{Value: v} }

func ident(name string) *ast.Identifier { return &ast.Identifier{Kind: ast.IdentName, Name: name} }

// TestMinimalNESProgram checks that LDA #0 / STA $2000 / JMP start sizes
// to 2+3+3 bytes with start resolved to its own address.
func TestMinimalNESProgram(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.Label{Kind: ast.GlobalLabel, Name: "start"},
		&ast.Instruction{Mnemonic: "LDA", Mode: ast.Immediate, Operands: []ast.Expr{num(0)}},
		&ast.Instruction{Mnemonic: "STA", Mode: ast.Absolute, Operands: []ast.Expr{num(0x2000)}},
		&ast.Instruction{Mnemonic: "JMP", Mode: ast.Absolute, Operands: []ast.Expr{ident("start")}},
	}}

	an := Analyze(prog, Options{Target: target.MOS6502})
	if len(an.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", an.Errors)
	}
	if len(an.Items) != 3 {
		t.Fatalf("want 3 items, got %d", len(an.Items))
	}
	sizes := []int{2, 3, 3}
	for i, it := range an.Items {
		if it.Size != sizes[i] {
			t.Errorf("item %d: want size %d, got %d", i, sizes[i], it.Size)
		}
	}
	jmp := an.Items[2]
	if !jmp.Op.Known || jmp.Op.Value() != 0 {
		t.Errorf("jmp operand: want resolved to 0, got %+v", jmp.Op)
	}
}

// TestForwardReferenceResolvesInPhaseB exercises a constant defined after
// its first use, the case pass 1 alone cannot size and must park on the
// pending-constants list for phase B.
func TestForwardReferenceResolvesInPhaseB(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.Directive{Name: ".equ", Args: []ast.Expr{ident("SIZE"), ident("TOTAL")}},
		&ast.Directive{Name: ".equ", Args: []ast.Expr{ident("TOTAL"), num(42)}},
	}}
	an := Analyze(prog, Options{Target: target.MOS6502})
	if len(an.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", an.Errors)
	}
	sym, ok := an.Symbols.Lookup("SIZE")
	if !ok || !sym.Known || sym.Value != 42 {
		t.Fatalf("SIZE: want resolved to 42, got %+v (ok=%v)", sym, ok)
	}
}

// TestCircularConstantDetected ensures A = B, B = A is reported rather
// than looping forever.
func TestCircularConstantDetected(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.Directive{Name: ".equ", Args: []ast.Expr{ident("A"), ident("B")}},
		&ast.Directive{Name: ".equ", Args: []ast.Expr{ident("B"), ident("A")}},
	}}
	an := Analyze(prog, Options{Target: target.MOS6502})
	found := false
	for _, e := range an.Errors {
		if se, ok := e.(*Error); ok && se.Kind == CircularConstant {
			found = true
		}
	}
	if !found {
		t.Fatalf("want a CircularConstant error, got %v", an.Errors)
	}
}

// TestSNESHeaderDirectives checks that .snes / .lorom / .snes_title
// accumulate into ROMConfig for the rom package to consume.
func TestSNESHeaderDirectives(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.Directive{Name: ".snes"},
		&ast.Directive{Name: ".lorom"},
		&ast.Directive{Name: ".snes_title", Args: []ast.Expr{&ast.StringLiteral{Value: "TEST"}}},
	}}
	an := Analyze(prog, Options{Target: target.WDC65816})
	if len(an.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", an.Errors)
	}
	if an.Config.Target != target.WDC65816 {
		t.Errorf("want target WDC65816, got %v", an.Config.Target)
	}
	if !an.Config.Flags[".lorom"] {
		t.Errorf("want .lorom flag set")
	}
	if an.Config.Strings[".snes_title"] != "TEST" {
		t.Errorf("want snes_title %q, got %q", "TEST", an.Config.Strings[".snes_title"])
	}
}

// TestBackwardBranchTarget checks a backward branch: INX / BNE -
// (loop back to the label before it) resolves to the label's address.
func TestBackwardBranchTarget(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.Label{Kind: ast.AnonLabel, Name: "-"},
		&ast.Instruction{Mnemonic: "INX", Mode: ast.Implied},
		&ast.Instruction{Mnemonic: "BNE", Mode: ast.Absolute, Operands: []ast.Expr{&ast.Identifier{Kind: ast.IdentAnon, Name: "-", Dir: -1}}},
	}}
	an := Analyze(prog, Options{Target: target.MOS6502})
	if len(an.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", an.Errors)
	}
	branch := an.Items[1]
	if !branch.Op.Known || branch.Op.Value() != 0 {
		t.Errorf("branch target: want resolved to 0, got %+v", branch.Op)
	}
}

// TestMacroExpansionUniquifiesLabels checks that two invocations of a
// macro defining a local-looking global label must not collide.
func TestMacroExpansionUniquifiesLabels(t *testing.T) {
	macro := &ast.MacroDefinition{
		Name:   "setByte",
		Params: []ast.MacroParam{"val", "addr"},
		Body: []ast.Stmt{
			&ast.Label{Kind: ast.GlobalLabel, Name: "done"},
			&ast.Instruction{Mnemonic: "LDA", Mode: ast.Immediate, Operands: []ast.Expr{&ast.Identifier{Kind: ast.IdentMacroParam, Name: "val"}}},
			&ast.Instruction{Mnemonic: "STA", Mode: ast.Absolute, Operands: []ast.Expr{&ast.Identifier{Kind: ast.IdentMacroParam, Name: "addr"}}},
		},
	}
	prog := &ast.Program{Statements: []ast.Stmt{
		macro,
		&ast.MacroInvocation{Name: "setByte", Args: []ast.Expr{num(1), num(0x2000)}},
		&ast.MacroInvocation{Name: "setByte", Args: []ast.Expr{num(2), num(0x2001)}},
	}}
	an := Analyze(prog, Options{Target: target.MOS6502})
	if len(an.Errors) != 0 {
		t.Fatalf("unexpected errors (label collision?): %v", an.Errors)
	}
	count := 0
	for name := range an.Symbols.All() {
		if name == "done~exp1" || name == "done~exp2" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("want 2 uniquified 'done' labels, got %d: %v", count, an.Symbols.All())
	}
}
