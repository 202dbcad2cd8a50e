package sema

import "github.com/TheAnsarya/poppy/ast"

// resolve is phase B: every label is now defined, so re-walk whatever
// pass 1 couldn't resolve -- deferred constants,
// forward-referencing instruction operands, and forward-referencing data
// bytes -- and report anything that still doesn't resolve as
// UndefinedSymbol. A constant's own right-hand side referencing itself
// (directly or through another pending constant) is reported as
// CircularConstant rather than looping forever.
func (a *analyzer) resolve() {
	a.resolvePendingConsts()
	a.resolveItems()
}

func (a *analyzer) resolvePendingConsts() {
	resolving := map[string]bool{}
	reported := map[string]bool{}
	byName := map[string]pendingConst{}
	for _, p := range a.pending {
		if p.name != "" {
			byName[p.name] = p
		}
	}

	var deps func(e ast.Expr)
	var resolveOne func(name string) (int64, bool)
	resolveOne = func(name string) (int64, bool) {
		if sym, ok := a.syms.Lookup(name); ok && sym.Known {
			return sym.Value, true
		}
		p, ok := byName[name]
		if !ok {
			return 0, false
		}
		if resolving[name] {
			if !reported[name] {
				a.errorf(CircularConstant, p.loc, "constant %q is defined in terms of itself", name)
				reported[name] = true
			}
			return 0, false
		}
		resolving[name] = true
		deps(p.expr)
		v, ok, err := eval(p.expr, &evalCtx{syms: a.syms, scope: p.scope})
		delete(resolving, name)
		if err != nil {
			a.errs = append(a.errs, err)
			reported[name] = true
			return 0, false
		}
		if !ok {
			return 0, false
		}
		sym := &Symbol{Name: name, Kind: SymConstant, Value: v, Known: true, Reassignable: p.reassignable, Loc: p.loc}
		a.syms.byName[name] = sym
		return v, true
	}
	deps = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Identifier:
			resolveOne(n.Name)
		case *ast.UnaryExpression:
			deps(n.X)
		case *ast.BinaryExpression:
			deps(n.X)
			deps(n.Y)
		}
	}

	for _, p := range a.pending {
		if p.name == "" {
			continue
		}
		if _, ok := resolveOne(p.name); ok {
			continue
		}
		if !reported[p.name] {
			a.errorf(UndefinedSymbol, p.loc, "%q never resolves to a known value", p.name)
			reported[p.name] = true
		}
	}
}

func (a *analyzer) resolveItems() {
	for _, pi := range a.pendingItems {
		it := &a.items[pi.idx]
		if len(it.OperandExprs) != 1 {
			continue
		}
		v, ok, err := eval(it.OperandExprs[0], &evalCtx{syms: a.syms, scope: it.scope, pc: it.Addr, anonSeq: it.seq})
		if err != nil {
			a.errs = append(a.errs, err)
			continue
		}
		if !ok {
			a.errorf(UndefinedSymbol, it.Loc, "value never resolves to a known constant")
			continue
		}
		packInt(it.Bytes, v, pi.width, a.bigEndian)
	}

	regNames := a.arch.RegisterNames()
	for idx := range a.items {
		it := &a.items[idx]
		if it.Kind != ItemInstruction || it.Op.Known {
			continue
		}
		ctx := &evalCtx{syms: a.syms, scope: it.scope, pc: it.Addr, anonSeq: it.seq, regNames: regNames, allowRegs: true}
		ok := true
		for i, expr := range it.OperandExprs {
			if it.Op.Reg(i) != "" {
				continue
			}
			v, found, err := eval(expr, ctx)
			if err != nil {
				a.errs = append(a.errs, err)
				ok = false
				continue
			}
			if !found {
				a.errorf(UndefinedSymbol, it.Loc, "%s: operand never resolves to a known value", it.Mnemonic)
				ok = false
				continue
			}
			it.Op.Values[i] = v
		}
		if ok && len(it.Op.Values) == 1 {
			it.Op.NarrowOK = it.Op.Values[0] >= 0 && it.Op.Values[0] <= 0xff
		}
		it.Op.Known = ok
	}
}
