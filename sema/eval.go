package sema

import (
	"strings"

	"github.com/TheAnsarya/poppy/ast"
)

// definedSentinel mirrors parse/directive.go's desugaring of .ifdef/
// .ifndef into an Identifier whose Name carries this prefix: sema treats
// it as a "is this symbol defined" query rather than a value lookup.
const definedSentinel = "\x00defined:"

// evalCtx carries everything an expression evaluation needs beyond the
// expression itself: the enclosing scope (for local-label qualification),
// the current program counter (for '*'), and the anon-label reference
// sequence number (for "nearest in direction" resolution).
type evalCtx struct {
	syms       *SymbolTable
	scope      string // enclosing global label, for @name/.name qualification
	pc         uint32
	anonSeq    int  // this reference's position in program order
	regNames   map[string]bool
	allowRegs  bool // true when evaluating an instruction operand that may be a bare register name
}

// eval resolves e to a value. ok is false when e references an undefined
// symbol (UndefinedSymbol is reported by the caller, which has more
// context about whether the reference is allowed to stay pending).
func eval(e ast.Expr, c *evalCtx) (int64, bool, error) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return n.Value, true, nil

	case *ast.StringLiteral:
		// A bare string used in a numeric context packs its bytes
		// big-endian into an integer -- useful for short ASCII tags
		// compared against constants.
		var v int64
		for i := 0; i < len(n.Value) && i < 8; i++ {
			v = v<<8 | int64(n.Value[i])
		}
		return v, true, nil

	case *ast.Identifier:
		return evalIdent(n, c)

	case *ast.UnaryExpression:
		return evalUnary(n, c)

	case *ast.BinaryExpression:
		return evalBinary(n, c)
	}
	return 0, false, errf(InvalidAddressingMode, e.Location(), "unevaluable expression")
}

func evalIdent(n *ast.Identifier, c *evalCtx) (int64, bool, error) {
	if strings.HasPrefix(n.Name, definedSentinel) {
		name := n.Name[len(definedSentinel):]
		_, ok := lookupName(c, name)
		if ok {
			return 1, true, nil
		}
		return 0, true, nil
	}

	switch n.Kind {
	case ast.IdentHere:
		return int64(c.pc), true, nil

	case ast.IdentLocal:
		qualified := LocalName(c.scope, n.Name)
		sym, ok := c.syms.Lookup(qualified)
		if !ok || !sym.Known {
			return 0, false, nil
		}
		return sym.Value, true, nil

	case ast.IdentAnon:
		addr, ok := c.syms.ResolveAnon(n.Name, c.anonSeq, n.Dir)
		if !ok {
			return 0, false, nil
		}
		return int64(addr), true, nil

	default:
		if c.allowRegs && c.regNames != nil && c.regNames[strings.ToLower(n.Name)] {
			// Register names are never symbol lookups; codegen never
			// calls eval on them (it consults Operand.Regs instead), but
			// a defensive caller asking anyway gets a clean "not a
			// value" rather than an UndefinedSymbol.
			return 0, false, nil
		}
		sym, ok := lookupName(c, n.Name)
		if !ok || !sym.Known {
			return 0, false, nil
		}
		return sym.Value, true, nil
	}
}

// lookupName tries the name as a plain global/constant first, then as a
// locally-qualified name, since a bare identifier used inside a label's
// scope may refer to either.
func lookupName(c *evalCtx, name string) (*Symbol, bool) {
	if sym, ok := c.syms.Lookup(name); ok {
		return sym, true
	}
	if c.scope != "" {
		if sym, ok := c.syms.Lookup(LocalName(c.scope, name)); ok {
			return sym, true
		}
	}
	return nil, false
}

func evalUnary(n *ast.UnaryExpression, c *evalCtx) (int64, bool, error) {
	v, ok, err := eval(n.X, c)
	if err != nil || !ok {
		return 0, ok, err
	}
	switch n.Op {
	case ast.UnaryNeg:
		return -v, true, nil
	case ast.UnaryNot:
		if v == 0 {
			return 1, true, nil
		}
		return 0, true, nil
	case ast.UnaryBitNot:
		return ^v, true, nil
	case ast.UnaryLow:
		return v & 0xff, true, nil
	case ast.UnaryHigh:
		return (v >> 8) & 0xff, true, nil
	case ast.UnaryBank:
		return (v >> 16) & 0xff, true, nil
	}
	return 0, false, errf(InvalidAddressingMode, n.Loc, "unknown unary operator")
}

func evalBinary(n *ast.BinaryExpression, c *evalCtx) (int64, bool, error) {
	x, okx, err := eval(n.X, c)
	if err != nil || !okx {
		return 0, okx, err
	}
	y, oky, err := eval(n.Y, c)
	if err != nil || !oky {
		return 0, oky, err
	}
	switch n.Op {
	case ast.BinAdd:
		return x + y, true, nil
	case ast.BinSub:
		return x - y, true, nil
	case ast.BinMul:
		return x * y, true, nil
	case ast.BinDiv:
		if y == 0 {
			return 0, false, errf(InvalidAddressingMode, n.Loc, "division by zero")
		}
		return x / y, true, nil
	case ast.BinMod:
		if y == 0 {
			return 0, false, errf(InvalidAddressingMode, n.Loc, "division by zero")
		}
		return x % y, true, nil
	case ast.BinShl:
		return x << uint(y), true, nil
	case ast.BinShr:
		return x >> uint(y), true, nil
	case ast.BinAnd:
		return x & y, true, nil
	case ast.BinOr:
		return x | y, true, nil
	case ast.BinXor:
		return x ^ y, true, nil
	case ast.BinEq:
		return boolInt(x == y), true, nil
	case ast.BinNotEq:
		return boolInt(x != y), true, nil
	case ast.BinLt:
		return boolInt(x < y), true, nil
	case ast.BinGt:
		return boolInt(x > y), true, nil
	case ast.BinLtEq:
		return boolInt(x <= y), true, nil
	case ast.BinGtEq:
		return boolInt(x >= y), true, nil
	case ast.BinAndAnd:
		return boolInt(x != 0 && y != 0), true, nil
	case ast.BinOrOr:
		return boolInt(x != 0 || y != 0), true, nil
	}
	return 0, false, errf(InvalidAddressingMode, n.Loc, "unknown binary operator")
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
