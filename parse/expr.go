package parse

import (
	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
)

// binPrec gives each infix operator's precedence, lowest first: logical
// OR, logical AND, bitwise OR, bitwise XOR, bitwise AND, equality,
// comparison, shift, additive, multiplicative -- the same shape as
// beevik/go6502's asm/expr.go exprOp table, generalized with the
// comparison and logical tiers the 6502-only teacher didn't need.
var binPrec = map[lex.Kind]int{
	lex.OrOr:   1,
	lex.AndAnd: 2,
	lex.Pipe:   3,
	lex.Caret:  4,
	lex.Amp:    5,
	lex.EqEq:   6, lex.NotEq: 6,
	lex.Lt: 7, lex.Gt: 7, lex.LtEq: 7, lex.GtEq: 7,
	lex.Shl: 8, lex.Shr: 8,
	lex.Plus: 9, lex.Minus: 9,
	lex.Star: 10, lex.Slash: 10, lex.Percent: 10,
}

var binOpFor = map[lex.Kind]ast.BinaryOp{
	lex.Plus: ast.BinAdd, lex.Minus: ast.BinSub, lex.Star: ast.BinMul,
	lex.Slash: ast.BinDiv, lex.Percent: ast.BinMod,
	lex.Shl: ast.BinShl, lex.Shr: ast.BinShr,
	lex.Amp: ast.BinAnd, lex.Pipe: ast.BinOr, lex.Caret: ast.BinXor,
	lex.EqEq: ast.BinEq, lex.NotEq: ast.BinNotEq,
	lex.Lt: ast.BinLt, lex.Gt: ast.BinGt, lex.LtEq: ast.BinLtEq, lex.GtEq: ast.BinGtEq,
	lex.AndAnd: ast.BinAndAnd, lex.OrOr: ast.BinOrOr,
}

// parseExpr parses an expression via precedence climbing: minPrec is the
// lowest-precedence operator this call is allowed to consume.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		t := p.peek()
		prec, ok := binPrec[t.Kind]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseExpr(prec + 1)
		left = &ast.BinaryExpression{Loc: t.Loc, Op: binOpFor[t.Kind], X: left, Y: right}
	}
}

// parseUnary handles the prefix operators: '-' negate,
// '!' logical not, '~' bitwise not, '<' low byte, '>' high byte, '^' bank
// byte. A bare '+'/'-' that isn't a single char followed by a primary
// starter never reaches here -- the lexer already folded runs of it into
// an anonymous-label Identifier token.
func (p *Parser) parseUnary() ast.Expr {
	t := p.peek()
	var op ast.UnaryOp
	switch t.Kind {
	case lex.Minus:
		op = ast.UnaryNeg
	case lex.Bang:
		op = ast.UnaryNot
	case lex.Tilde:
		op = ast.UnaryBitNot
	case lex.Lt:
		op = ast.UnaryLow
	case lex.Gt:
		op = ast.UnaryHigh
	case lex.Caret:
		op = ast.UnaryBank
	default:
		return p.parsePrimary()
	}
	p.advance()
	x := p.parseUnary()
	return &ast.UnaryExpression{Loc: t.Loc, Op: op, X: x}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case lex.Number:
		p.advance()
		return &ast.NumberLiteral{Loc: t.Loc, Value: t.Num, Bytes: t.Bytes}

	case lex.String:
		p.advance()
		return &ast.StringLiteral{Loc: t.Loc, Value: t.Str}

	case lex.Star:
		p.advance()
		return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentHere}

	case lex.LParen:
		p.advance()
		e := p.parseExpr(0)
		p.expect(lex.RParen)
		return e

	case lex.Backslash:
		p.advance()
		name := p.advance()
		if name.Kind == lex.Hash {
			return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentMacroCount}
		}
		return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentMacroParam, Name: name.Text}

	case lex.Identifier, lex.Directive:
		// a Directive token in expression position is a ".name" local-label
		// reference.
		p.advance()
		return identifierExpr(t)

	default:
		p.errorf(t.Loc, "expected expression, found %s %q", t.Kind, t.Text)
		return &ast.NumberLiteral{Loc: t.Loc, Value: 0, Bytes: 1}
	}
}

// identifierExpr classifies a bare Identifier token into the right
// ast.IdentKind: local-label reference (leading '@'/'.'), anonymous-label
// reference (a run of '+' or '-'), or a plain name.
func identifierExpr(t lex.Token) ast.Expr {
	name := t.Text
	if isAnonRun(name) {
		dir := int8(1)
		if name[0] == '-' {
			dir = -1
		}
		return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentAnon, Name: name, Dir: dir}
	}
	if len(name) > 0 && (name[0] == '@' || name[0] == '.') {
		return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentLocal, Name: name}
	}
	return &ast.Identifier{Loc: t.Loc, Kind: ast.IdentName, Name: name}
}
