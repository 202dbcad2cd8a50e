package sema

import "github.com/TheAnsarya/poppy/ast"

// collectGlobalLabels finds every global label a macro body defines
// (recursing into nested conditional/repeat bodies), so invocation-time
// substitution knows which bare identifiers need the per-expansion
// uniquifying suffix, preventing collisions between expansions.
func collectGlobalLabels(stmts []ast.Stmt) map[string]bool {
	set := map[string]bool{}
	var walk func([]ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.Label:
				if n.Kind == ast.GlobalLabel {
					set[n.Name] = true
				}
			case *ast.Conditional:
				for _, b := range n.Branches {
					walk(b.Body)
				}
			case *ast.RepeatBlock:
				walk(n.Body)
			}
		}
	}
	walk(stmts)
	return set
}

// substCtx carries the per-invocation substitution rules: \param -> arg
// expression, \# -> literal argument count, and the global-label rename
// set/suffix for this expansion.
type substCtx struct {
	params     map[string]ast.Expr
	argCount   int64
	labels     map[string]bool
	suffix     string
	plainNames map[string]ast.Expr // plain IDENT -> replacement (.rept counter binding)
}

func substituteStmts(stmts []ast.Stmt, c *substCtx) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, substituteStmt(s, c))
	}
	return out
}

func substituteStmt(s ast.Stmt, c *substCtx) ast.Stmt {
	switch n := s.(type) {
	case *ast.Label:
		if n.Kind == ast.GlobalLabel && c.labels[n.Name] {
			cp := *n
			cp.Name = n.Name + c.suffix
			return &cp
		}
		return n

	case *ast.Instruction:
		cp := *n
		cp.Operands = substituteExprs(n.Operands, c)
		return &cp

	case *ast.Directive:
		cp := *n
		cp.Args = substituteExprs(n.Args, c)
		return &cp

	case *ast.MacroInvocation:
		cp := *n
		cp.Args = substituteExprs(n.Args, c)
		return &cp

	case *ast.Conditional:
		cp := *n
		cp.Branches = make([]ast.ConditionalBranch, len(n.Branches))
		for i, b := range n.Branches {
			cp.Branches[i] = ast.ConditionalBranch{
				Cond: substituteExprOrNil(b.Cond, c),
				Body: substituteStmts(b.Body, c),
			}
		}
		return &cp

	case *ast.RepeatBlock:
		cp := *n
		cp.Count = substituteExpr(n.Count, c)
		cp.Body = substituteStmts(n.Body, c)
		return &cp

	case *ast.EnumerationBlock:
		cp := *n
		cp.Base = substituteExprOrNil(n.Base, c)
		cp.Step = substituteExprOrNil(n.Step, c)
		return &cp

	default:
		return s
	}
}

func substituteExprOrNil(e ast.Expr, c *substCtx) ast.Expr {
	if e == nil {
		return nil
	}
	return substituteExpr(e, c)
}

func substituteExprs(es []ast.Expr, c *substCtx) []ast.Expr {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = substituteExpr(e, c)
	}
	return out
}

func substituteExpr(e ast.Expr, c *substCtx) ast.Expr {
	switch n := e.(type) {
	case *ast.Identifier:
		switch n.Kind {
		case ast.IdentMacroParam:
			if arg, ok := c.params[n.Name]; ok {
				return arg
			}
			return n
		case ast.IdentMacroCount:
			return &ast.NumberLiteral{Loc: n.Loc, Value: c.argCount}
		case ast.IdentName:
			if c.plainNames != nil {
				if repl, ok := c.plainNames[n.Name]; ok {
					return repl
				}
			}
			if c.labels[n.Name] {
				cp := *n
				cp.Name = n.Name + c.suffix
				return &cp
			}
			return n
		default:
			return n
		}

	case *ast.UnaryExpression:
		cp := *n
		cp.X = substituteExpr(n.X, c)
		return &cp

	case *ast.BinaryExpression:
		cp := *n
		cp.X = substituteExpr(n.X, c)
		cp.Y = substituteExpr(n.Y, c)
		return &cp

	default:
		return e
	}
}
