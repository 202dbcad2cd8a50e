// Package parse implements poppy's recursive-descent, precedence-climbing
// parser: token stream to AST. Parse errors never abort the compile --
// recovery advances to the next newline and parsing continues, mirroring
// the multi-error-per-compile behavior beevik/go6502's asm.go gets for
// free by being line-oriented; our statement loop earns the same property
// explicitly since tokens can span files after preprocessing.
package parse

import (
	"fmt"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
)

// TokenSource is anything that can hand the parser one token at a time.
// *lex.Lexer satisfies it directly; package include's spliced stream
// satisfies it too, so the parser never needs to know whether .include
// was involved.
type TokenSource interface {
	Next() lex.Token
}

// Error is a single parse failure, carrying enough location information
// for a diagnostic to point at the source.
type Error struct {
	Loc lex.Location
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Loc, e.Msg) }

// Parser turns a token stream into a Program, collecting every error it
// encounters rather than stopping at the first one.
type Parser struct {
	ts   TokenSource
	buf  []lex.Token // pending lookahead; buf[0] is the next token
	errs []error
}

// New creates a Parser reading from ts.
func New(ts TokenSource) *Parser {
	return &Parser{ts: ts}
}

// ParseProgram consumes the entire token stream and returns the resulting
// AST along with any parse errors encountered (possibly both non-empty,
// since recovery continues past errors).
func ParseProgram(ts TokenSource) (*ast.Program, []error) {
	p := New(ts)
	prog := &ast.Program{}
	for {
		p.skipNewlines()
		if p.peek().IsEOF() {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog, p.errs
}

func (p *Parser) peek() lex.Token { return p.peekAt(0) }

// peekAt returns the token n positions ahead (0 is the next token),
// pulling more tokens from the source as needed.
func (p *Parser) peekAt(n int) lex.Token {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.ts.Next())
	}
	return p.buf[n]
}

func (p *Parser) advance() lex.Token {
	t := p.peek()
	p.buf = p.buf[1:]
	return t
}

// unread pushes a token back in front of the stream.
func (p *Parser) unread(t lex.Token) {
	p.buf = append([]lex.Token{t}, p.buf...)
}

func (p *Parser) errorf(loc lex.Location, format string, args ...any) {
	p.errs = append(p.errs, &Error{Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) skipNewlines() {
	for p.peek().Kind == lex.Newline {
		p.advance()
	}
}

// recover advances to the next newline or EOF, so one bad statement
// doesn't stop the rest of the file from being checked.
func (p *Parser) recover() {
	for {
		t := p.peek()
		if t.Kind == lex.Newline || t.IsEOF() {
			return
		}
		p.advance()
	}
}

func (p *Parser) expect(k lex.Kind) (lex.Token, bool) {
	t := p.peek()
	if t.Kind != k {
		p.errorf(t.Loc, "expected %s, found %s %q", k, t.Kind, t.Text)
		return t, false
	}
	return p.advance(), true
}

// parseStatement parses exactly one top-level statement. On any error it
// records a diagnostic and consumes through the next newline; a nil
// return means "nothing to append" (e.g. a line that was only an error).
func (p *Parser) parseStatement() ast.Stmt {
	t := p.peek()
	switch {
	case t.Kind == lex.Error:
		p.errorf(t.Loc, "%s", t.Err)
		p.advance()
		p.recover()
		return nil

	case t.Kind == lex.Directive:
		return p.parseDirectiveStatement()

	case t.Kind == lex.Mnemonic:
		return p.parseInstruction()

	case t.Kind == lex.Identifier:
		return p.parseIdentifierLeadStatement()

	case t.Kind == lex.Percent:
		return p.parseMacroInvocation()

	case t.Kind == lex.Plus || t.Kind == lex.Minus:
		// Shouldn't normally reach here -- anon label runs lex as
		// Identifier -- but stray operators at statement start are
		// reported plainly rather than silently misparsed.
		p.errorf(t.Loc, "unexpected %s at start of statement", t.Kind)
		p.advance()
		p.recover()
		return nil

	default:
		p.errorf(t.Loc, "unexpected %s %q", t.Kind, t.Text)
		p.advance()
		p.recover()
		return nil
	}
}

// parseIdentifierLeadStatement handles "IDENT:" (label), "IDENT = expr"
// (constant assignment), and anonymous-label definitions "+:"/"-:".
func (p *Parser) parseIdentifierLeadStatement() ast.Stmt {
	id := p.advance()
	switch p.peek().Kind {
	case lex.Colon:
		p.advance()
		return p.labelFromIdent(id)
	case lex.Equals:
		p.advance()
		loc := id.Loc
		val := p.parseExpr(0)
		p.endStatement()
		return &ast.Directive{Loc: loc, Name: ".equ", Args: []ast.Expr{
			&ast.Identifier{Loc: loc, Kind: ast.IdentName, Name: id.Text}, val,
		}}
	default:
		p.errorf(p.peek().Loc, "expected ':' or '=' after identifier %q", id.Text)
		p.recover()
		return nil
	}
}

func (p *Parser) labelFromIdent(id lex.Token) ast.Stmt {
	name := id.Text
	switch {
	case isAnonRun(name):
		p.endStatement()
		return &ast.Label{Loc: id.Loc, Kind: ast.AnonLabel, Name: name}
	case len(name) > 0 && (name[0] == '@' || name[0] == '.'):
		p.endStatement()
		return &ast.Label{Loc: id.Loc, Kind: ast.LocalLabel, Name: name}
	default:
		p.endStatement()
		return &ast.Label{Loc: id.Loc, Kind: ast.GlobalLabel, Name: name}
	}
}

func isAnonRun(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c != '+' && c != '-' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

// endStatement expects end-of-statement (newline, EOF, or a trailing
// line-comment that already became one) and recovers past extra tokens
// rather than cascading further errors.
func (p *Parser) endStatement() {
	t := p.peek()
	if t.Kind == lex.Newline {
		p.advance()
		return
	}
	if t.IsEOF() {
		return
	}
	p.errorf(t.Loc, "unexpected trailing %s %q", t.Kind, t.Text)
	p.recover()
	if p.peek().Kind == lex.Newline {
		p.advance()
	}
}
