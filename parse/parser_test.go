package parse

import (
	"testing"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
)

func is6502Mnemonic(name string) bool {
	switch name {
	case "LDA", "lda", "STA", "sta", "JMP", "jmp", "BNE", "bne", "INX", "inx", "NOP", "nop":
		return true
	default:
		return false
	}
}

func parseSource(t *testing.T, src string) (*ast.Program, []error) {
	t.Helper()
	l := lex.New("test", []byte(src), is6502Mnemonic)
	return ParseProgram(l)
}

func checkNoErrors(t *testing.T, errs []error) {
	t.Helper()
	for _, e := range errs {
		t.Errorf("unexpected parse error: %v", e)
	}
}

func TestParseLabelAndInstruction(t *testing.T) {
	prog, errs := parseSource(t, "reset:\n LDA #$20\n")
	checkNoErrors(t, errs)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	lbl, ok := prog.Statements[0].(*ast.Label)
	if !ok || lbl.Kind != ast.GlobalLabel || lbl.Name != "reset" {
		t.Fatalf("expected global label 'reset', got %#v", prog.Statements[0])
	}
	inst, ok := prog.Statements[1].(*ast.Instruction)
	if !ok || inst.Mnemonic != "LDA" || inst.Mode != ast.Immediate {
		t.Fatalf("expected LDA Immediate, got %#v", prog.Statements[1])
	}
}

func TestParseAddressingModes(t *testing.T) {
	src := "STA $2000\nSTA $2000,X\nSTA ($20,X)\nSTA ($20),Y\nNOP\n"
	prog, errs := parseSource(t, src)
	checkNoErrors(t, errs)
	want := []ast.AddrMode{ast.Absolute, ast.IndexedX, ast.IndexedIndirect, ast.IndirectIndexed, ast.Implied}
	if len(prog.Statements) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(prog.Statements))
	}
	for i, w := range want {
		inst := prog.Statements[i].(*ast.Instruction)
		if inst.Mode != w {
			t.Errorf("statement %d: mode = %v, want %v", i, inst.Mode, w)
		}
	}
}

func TestParseEquDirective(t *testing.T) {
	prog, errs := parseSource(t, "SCREEN = $2000\n")
	checkNoErrors(t, errs)
	d, ok := prog.Statements[0].(*ast.Directive)
	if !ok || d.Name != ".equ" {
		t.Fatalf("expected .equ directive, got %#v", prog.Statements[0])
	}
}

func TestParseMacroDefinitionAndInvocation(t *testing.T) {
	src := ".macro SET, \\addr, \\val\n LDA #\\val\n STA \\addr\n.endmacro\n%SET $2000, $01\n"
	prog, errs := parseSource(t, src)
	checkNoErrors(t, errs)
	def, ok := prog.Statements[0].(*ast.MacroDefinition)
	if !ok || def.Name != "SET" || len(def.Params) != 2 {
		t.Fatalf("expected macro definition SET with 2 params, got %#v", prog.Statements[0])
	}
	inv, ok := prog.Statements[1].(*ast.MacroInvocation)
	if !ok || inv.Name != "SET" || len(inv.Args) != 2 {
		t.Fatalf("expected invocation of SET with 2 args, got %#v", prog.Statements[1])
	}
}

func TestParseConditional(t *testing.T) {
	src := ".if 1\n NOP\n.else\n NOP\n.endif\n"
	prog, errs := parseSource(t, src)
	checkNoErrors(t, errs)
	cond, ok := prog.Statements[0].(*ast.Conditional)
	if !ok || len(cond.Branches) != 2 {
		t.Fatalf("expected conditional with 2 branches, got %#v", prog.Statements[0])
	}
	if cond.Branches[1].Cond != nil {
		t.Fatalf("expected .else branch to have nil condition")
	}
}

func TestParseAnonymousLabels(t *testing.T) {
	src := "-:\n INX\n BNE -\n"
	prog, errs := parseSource(t, src)
	checkNoErrors(t, errs)
	lbl, ok := prog.Statements[0].(*ast.Label)
	if !ok || lbl.Kind != ast.AnonLabel || lbl.Name != "-" {
		t.Fatalf("expected anonymous label '-', got %#v", prog.Statements[0])
	}
}

func TestParseErrorRecoveryContinues(t *testing.T) {
	src := "STA )\nNOP\n"
	prog, errs := parseSource(t, src)
	if len(errs) == 0 {
		t.Fatalf("expected a parse error")
	}
	found := false
	for _, s := range prog.Statements {
		if inst, ok := s.(*ast.Instruction); ok && inst.Mnemonic == "NOP" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parser to recover and still see the NOP statement")
	}
}
