package parse

import (
	"strings"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
)

// parseDirectiveStatement dispatches a ".name" token to either one of the
// specially-structured directives (.macro, .if family, .rept, .enum) or
// the generic comma-separated-argument-list form.
func (p *Parser) parseDirectiveStatement() ast.Stmt {
	tok := p.advance()
	name := strings.ToLower(tok.Text)

	switch name {
	case ".equ", ".define":
		return p.parseEquDirective(tok)
	case ".macro":
		return p.parseMacroDefinition(tok)
	case ".endmacro":
		p.errorf(tok.Loc, ".endmacro without a matching .macro")
		p.recover()
		return nil
	case ".if", ".ifdef", ".ifndef", ".ifeq", ".ifne":
		return p.parseConditional(tok, name)
	case ".elseif", ".else", ".endif":
		p.errorf(tok.Loc, "%s without a matching .if", name)
		p.recover()
		return nil
	case ".rept", ".repeat":
		return p.parseRepeatBlock(tok)
	case ".endrept", ".endrepeat":
		p.errorf(tok.Loc, "%s without a matching %s", name, ".rept")
		p.recover()
		return nil
	case ".enum":
		return p.parseEnumBlock(tok)
	default:
		switch p.peek().Kind {
		case lex.Equals:
			// "NAME = expr" spelled as a directive token because NAME
			// happened to lex with a leading '.': treat uniformly with
			// the IDENT-local-label-equals path.
			p.advance()
			val := p.parseExpr(0)
			p.endStatement()
			return &ast.Directive{Loc: tok.Loc, Name: ".equ", Args: []ast.Expr{
				&ast.Identifier{Loc: tok.Loc, Kind: ast.IdentName, Name: tok.Text}, val,
			}}
		case lex.Colon:
			// ".name:" is a local-label definition.
			p.advance()
			return p.labelFromIdent(tok)
		}
		return p.parseGenericDirective(tok, name)
	}
}

func (p *Parser) parseGenericDirective(tok lex.Token, name string) ast.Stmt {
	d := &ast.Directive{Loc: tok.Loc, Name: name}
	if p.atStatementEnd() {
		p.endStatement()
		return d
	}
	d.Args = append(d.Args, p.parseExpr(0))
	for p.peek().Kind == lex.Comma {
		p.advance()
		d.Args = append(d.Args, p.parseExpr(0))
	}
	p.endStatement()
	return d
}

// parseEquDirective handles ".equ IDENT, expr" and ".define IDENT, expr",
// normalizing both, and the bare "IDENT = expr" form, to Directive(".equ").
func (p *Parser) parseEquDirective(tok lex.Token) ast.Stmt {
	id := p.advance()
	if id.Kind != lex.Identifier {
		p.errorf(id.Loc, "expected identifier after %s, found %s %q", tok.Text, id.Kind, id.Text)
		p.recover()
		return nil
	}
	p.expect(lex.Comma)
	val := p.parseExpr(0)
	p.endStatement()
	return &ast.Directive{Loc: tok.Loc, Name: ".equ", Args: []ast.Expr{
		&ast.Identifier{Loc: id.Loc, Kind: ast.IdentName, Name: id.Text}, val,
	}}
}

// parseMacroDefinition consumes ".macro NAME, \param, \param2 ... <body>
// .endmacro". Parameter names are written with their leading backslash,
// matching \param references inside the body.
func (p *Parser) parseMacroDefinition(tok lex.Token) ast.Stmt {
	nameTok := p.advance()
	def := &ast.MacroDefinition{Loc: tok.Loc, Name: nameTok.Text}

	for p.peek().Kind == lex.Comma {
		p.advance()
		p.expect(lex.Backslash)
		param := p.advance()
		def.Params = append(def.Params, ast.MacroParam(param.Text))
	}
	p.endStatement()

	for {
		p.skipNewlines()
		t := p.peek()
		if t.IsEOF() {
			p.errorf(tok.Loc, "unterminated .macro %s", def.Name)
			return def
		}
		if t.Kind == lex.Directive && strings.EqualFold(t.Text, ".endmacro") {
			p.advance()
			p.endStatement()
			return def
		}
		if stmt := p.parseStatement(); stmt != nil {
			def.Body = append(def.Body, stmt)
		}
	}
}

// parseConditional consumes a full .if/.elseif*/.else?/.endif chain.
// .ifdef/.ifndef take a bare identifier instead of a full expression;
// they are represented the same way, with Cond wrapping a synthetic
// "defined(name)"-style check the semantic analyzer recognizes via the
// directive keyword recorded on the branch's owning Conditional -- here
// captured by using an Identifier node as Cond and keeping kind on the
// Conditional itself would require a second field, so instead .ifdef/
// .ifndef are desugared immediately into a normal boolean condition using
// a dedicated pseudo-identifier kind the analyzer special-cases.
func (p *Parser) parseConditional(tok lex.Token, kind string) ast.Stmt {
	cond := &ast.Conditional{Loc: tok.Loc}
	branchCond := p.parseConditionFor(kind)
	body := p.parseBlockBody(".elseif", ".else", ".endif")
	cond.Branches = append(cond.Branches, ast.ConditionalBranch{Cond: branchCond, Body: body})

	for {
		t := p.peek()
		if t.Kind != lex.Directive {
			p.errorf(t.Loc, "unterminated %s", tok.Text)
			return cond
		}
		switch strings.ToLower(t.Text) {
		case ".elseif":
			p.advance()
			c := p.parseExpr(0)
			p.endStatement()
			b := p.parseBlockBody(".elseif", ".else", ".endif")
			cond.Branches = append(cond.Branches, ast.ConditionalBranch{Cond: c, Body: b})
		case ".else":
			p.advance()
			p.endStatement()
			b := p.parseBlockBody(".endif")
			cond.Branches = append(cond.Branches, ast.ConditionalBranch{Cond: nil, Body: b})
		case ".endif":
			p.advance()
			p.endStatement()
			return cond
		default:
			p.errorf(t.Loc, "unterminated %s", tok.Text)
			return cond
		}
	}
}

// parseConditionFor builds the first branch's condition expression,
// desugaring .ifdef/.ifndef to a call-shaped expression ("defined",
// name) the analyzer evaluates specially.
func (p *Parser) parseConditionFor(kind string) ast.Expr {
	switch kind {
	case ".ifdef", ".ifndef":
		name := p.advance()
		p.endStatement()
		if kind == ".ifndef" {
			return &ast.UnaryExpression{Loc: name.Loc, Op: ast.UnaryNot, X: definedExpr(name)}
		}
		return definedExpr(name)
	default:
		c := p.parseExpr(0)
		p.endStatement()
		return c
	}
}

// definedExpr marks an identifier as a "is this symbol defined" query
// rather than "evaluate this symbol". sema recognizes an Identifier whose
// Name begins with the sentinel prefix and treats it as a definedness
// check instead of a value lookup.
const definedSentinel = "\x00defined:"

func definedExpr(name lex.Token) ast.Expr {
	return &ast.Identifier{Loc: name.Loc, Kind: ast.IdentName, Name: definedSentinel + name.Text}
}

// parseBlockBody parses statements until one of the given directive
// names (case-insensitive) is seen at statement-start, without consuming
// the terminator.
func (p *Parser) parseBlockBody(terminators ...string) []ast.Stmt {
	var body []ast.Stmt
	for {
		p.skipNewlines()
		t := p.peek()
		if t.IsEOF() {
			return body
		}
		if t.Kind == lex.Directive {
			for _, term := range terminators {
				if strings.EqualFold(t.Text, term) {
					return body
				}
			}
		}
		if stmt := p.parseStatement(); stmt != nil {
			body = append(body, stmt)
		}
	}
}

// parseRepeatBlock consumes ".rept count[, counterName] <body> .endrept".
func (p *Parser) parseRepeatBlock(tok lex.Token) ast.Stmt {
	count := p.parseExpr(0)
	r := &ast.RepeatBlock{Loc: tok.Loc, Count: count}
	if p.peek().Kind == lex.Comma {
		p.advance()
		id := p.advance()
		r.Counter = id.Text
	}
	p.endStatement()
	r.Body = p.parseBlockBody(".endrept", ".endrepeat")
	if p.peek().Kind == lex.Directive {
		p.advance()
		p.endStatement()
	} else {
		p.errorf(tok.Loc, "unterminated .rept")
	}
	return r
}

// parseEnumBlock consumes ".enum name1, name2, ...". EnumerationBlock
// carries optional Base/Step; the parser always leaves both nil, letting
// the analyzer apply 0/1. No directive spelling sets an explicit base or
// step.
func (p *Parser) parseEnumBlock(tok lex.Token) ast.Stmt {
	e := &ast.EnumerationBlock{Loc: tok.Loc}
	e.Names = append(e.Names, p.advance().Text)
	for p.peek().Kind == lex.Comma {
		p.advance()
		e.Names = append(e.Names, p.advance().Text)
	}
	p.endStatement()
	return e
}
