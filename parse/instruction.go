package parse

import (
	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
)

// parseMacroInvocation parses "%name arg, arg, ...".
func (p *Parser) parseMacroInvocation() ast.Stmt {
	percent := p.advance()
	name := p.advance()
	inv := &ast.MacroInvocation{Loc: percent.Loc, Name: name.Text}
	if !p.atStatementEnd() {
		inv.Args = append(inv.Args, p.parseExpr(0))
		for p.peek().Kind == lex.Comma {
			p.advance()
			inv.Args = append(inv.Args, p.parseExpr(0))
		}
	}
	p.endStatement()
	return inv
}

// parseInstruction parses "MNEMONIC[.size] [operand-shape]". The
// addressing mode is inferred syntactically here; zero-page
// narrowing and architecture-specific encoding happen later (sema,
// codegen). Two-operand targets (Z80/SM83/M68000/ARM) fall through to
// the generic comma-separated-operand-list branch when the parsed shape
// doesn't match one of the single-operand forms.
func (p *Parser) parseInstruction() ast.Stmt {
	m := p.advance()
	inst := &ast.Instruction{Loc: m.Loc, Mnemonic: m.Text}

	// explicit 65816 operand-width suffix was folded into the mnemonic
	// token text by the lexer as "NAME.b"/"NAME.w"/"NAME.l"; split it.
	if n := len(inst.Mnemonic); n >= 2 && inst.Mnemonic[n-2] == '.' {
		switch inst.Mnemonic[n-1] {
		case 'b', 'w', 'l':
			inst.Size = inst.Mnemonic[n-1]
			inst.Mnemonic = inst.Mnemonic[:n-2]
		}
	}

	if p.atStatementEnd() {
		inst.Mode = ast.Implied
		p.endStatement()
		return inst
	}

	switch p.peek().Kind {
	case lex.Hash:
		p.advance()
		inst.Mode = ast.Immediate
		inst.Operands = []ast.Expr{p.parseExpr(0)}

	case lex.LParen:
		inst.Operands, inst.Mode = p.parseParenOperand()

	case lex.LBracket:
		inst.Operands, inst.Mode = p.parseBracketOperand()

	case lex.Identifier:
		if isAccumulatorOperand(p.peek()) && p.isSoleOperand() {
			p.advance()
			inst.Mode = ast.Accumulator
		} else {
			inst.Operands, inst.Mode = p.parseOperandList()
		}

	default:
		inst.Operands, inst.Mode = p.parseOperandList()
	}

	p.endStatement()
	return inst
}

func (p *Parser) atStatementEnd() bool {
	t := p.peek()
	return t.Kind == lex.Newline || t.IsEOF()
}

// isAccumulatorOperand reports whether tok spells the bare accumulator
// register ('a' or 'A') used as a 6502-family shift/rotate operand.
func isAccumulatorOperand(tok lex.Token) bool {
	return tok.Text == "a" || tok.Text == "A"
}

// isSoleOperand looks one token ahead (without consuming 'a') to check
// nothing follows it but end-of-statement -- otherwise "a" is an ordinary
// identifier (e.g. start of "a,b" in a two-operand ISA).
func (p *Parser) isSoleOperand() bool {
	next := p.peekAt(1)
	return next.Kind == lex.Newline || next.IsEOF()
}

// parseParenOperand handles (expr), (expr,x), and (expr),y.
func (p *Parser) parseParenOperand() ([]ast.Expr, ast.AddrMode) {
	p.advance() // '('
	e := p.parseExpr(0)
	if p.peek().Kind == lex.Comma {
		p.advance()
		idx := p.advance()
		p.expect(lex.RParen)
		if idx.Text == "x" || idx.Text == "X" {
			return []ast.Expr{e}, ast.IndexedIndirect
		}
		p.errorf(idx.Loc, "expected 'x' in (expr,x), found %q", idx.Text)
		return []ast.Expr{e}, ast.IndexedIndirect
	}
	p.expect(lex.RParen)
	if p.peek().Kind == lex.Comma {
		p.advance()
		idx := p.advance()
		if idx.Text == "y" || idx.Text == "Y" {
			return []ast.Expr{e}, ast.IndirectIndexed
		}
		p.errorf(idx.Loc, "expected 'y' in (expr),y, found %q", idx.Text)
		return []ast.Expr{e}, ast.IndirectIndexed
	}
	return []ast.Expr{e}, ast.Indirect
}

// parseBracketOperand handles the 65816 long-indirect forms [expr] and
// [expr],y.
func (p *Parser) parseBracketOperand() ([]ast.Expr, ast.AddrMode) {
	p.advance() // '['
	e := p.parseExpr(0)
	p.expect(lex.RBracket)
	if p.peek().Kind == lex.Comma {
		p.advance()
		idx := p.advance()
		if idx.Text == "y" || idx.Text == "Y" {
			return []ast.Expr{e}, ast.LongIndirectY
		}
		p.errorf(idx.Loc, "expected 'y' in [expr],y, found %q", idx.Text)
	}
	return []ast.Expr{e}, ast.LongIndirect
}

// parseOperandList parses a comma-separated expression list. A single
// operand followed by ",x"/",y"/",s" collapses into the corresponding
// 6502-family indexed addressing mode; any other shape (zero operands
// after the first comma split, or more than one operand, or an index
// token that isn't x/y/s) is a generalized multi-operand instruction,
// extending the single-operand grammar for register-pair ISAs.
func (p *Parser) parseOperandList() ([]ast.Expr, ast.AddrMode) {
	first := p.parseExpr(0)
	if p.peek().Kind != lex.Comma {
		return []ast.Expr{first}, ast.Absolute
	}

	// Lookahead: a single trailing bare x/y/s identifier with nothing
	// after it is the 6502-family indexed-addressing suffix.
	if id := p.peekAt(1); id.Kind == lex.Identifier && isIndexSuffix(id.Text) {
		if after := p.peekAt(2); after.Kind == lex.Newline || after.IsEOF() {
			p.advance() // ','
			p.advance() // index identifier
			switch id.Text {
			case "x", "X":
				return []ast.Expr{first}, ast.IndexedX
			case "y", "Y":
				return []ast.Expr{first}, ast.IndexedY
			default:
				return []ast.Expr{first}, ast.IndexedS
			}
		}
	}

	operands := []ast.Expr{first}
	for p.peek().Kind == lex.Comma {
		p.advance()
		operands = append(operands, p.parseExpr(0))
	}
	return operands, ast.Implied
}

func isIndexSuffix(s string) bool {
	switch s {
	case "x", "X", "y", "Y", "s", "S":
		return true
	default:
		return false
	}
}
