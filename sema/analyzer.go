package sema

import (
	"fmt"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
	"github.com/TheAnsarya/poppy/target"
)

// Options configures one analysis run.
type Options struct {
	Target    target.Tag
	Defines   map[string]int64 // manifest-provided pre-populated constants
	Autolabel bool             // not read by sema; codegen.Options.Autolabel does the sub_XXXX/loc_XXXX synthesis
	ReadInclude func(path string) ([]byte, error) // backs .incbin; nil disables it
}

// Analysis is sema's product: the resolved symbol table, the flat
// address-stamped item list codegen walks, the accumulated ROM/header
// configuration, and every diagnostic collected across both passes.
type Analysis struct {
	Symbols *SymbolTable
	Items   []Item
	Config  *ROMConfig
	Target  target.Tag
	Errors  []error
}

type pendingConst struct {
	name         string
	expr         ast.Expr
	scope        string
	loc          lex.Location
	reassignable bool
}

// pendingItem records where a forward-referencing data directive's
// placeholder bytes live in a.items, so phase B can patch them in place
// once every label is defined.
type pendingItem struct {
	idx   int
	width int
}

type analyzer struct {
	opts Options
	arch target.Architecture

	syms   *SymbolTable
	config *ROMConfig
	errs   []error

	pc      uint32
	bank    int
	seg     string
	scope   string // current enclosing global label
	seq     int    // program-order counter, for anon-label lanes
	bigEndian bool

	pending      []pendingConst
	pendingItems []pendingItem
	macros       map[string]*ast.MacroDefinition
	items        []Item

	expansion int // macro/repeat expansion counter, for unique suffixes
}

// Analyze runs the full two-pass semantic analysis over prog and
// returns the resolved Analysis.
func Analyze(prog *ast.Program, opts Options) *Analysis {
	arch, ok := target.Lookup(opts.Target)
	if !ok {
		arch, _ = target.Lookup(target.MOS6502)
	}
	a := &analyzer{
		opts:   opts,
		arch:   arch,
		syms:   NewSymbolTable(),
		config: newROMConfig(opts.Target),
		macros: map[string]*ast.MacroDefinition{},
	}
	for name, v := range opts.Defines {
		a.syms.Define(&Symbol{Name: name, Kind: SymConstant, Value: v, Known: true})
	}

	a.expandStmts(prog.Statements)
	a.resolve()

	return &Analysis{
		Symbols: a.syms,
		Items:   a.items,
		Config:  a.config,
		Target:  a.config.Target,
		Errors:  a.errs,
	}
}

func (a *analyzer) errorf(kind Kind, loc lex.Location, format string, args ...any) {
	a.errs = append(a.errs, errf(kind, loc, format, args...))
}

func (a *analyzer) ctx() *evalCtx {
	return &evalCtx{syms: a.syms, scope: a.scope, pc: a.pc, anonSeq: a.seq}
}

// tryEval attempts to resolve e using only symbols known so far: pass-1
// optimistic evaluation, which fails if e uses a forward-referenced
// label.
func (a *analyzer) tryEval(e ast.Expr) (int64, bool) {
	v, ok, err := eval(e, a.ctx())
	if err != nil {
		a.errs = append(a.errs, err)
		return 0, false
	}
	return v, ok
}

//
// Phase A: expansion, symbol collection, and sizing.
//

func (a *analyzer) expandStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		a.expandStmt(s)
	}
}

func (a *analyzer) expandStmt(s ast.Stmt) {
	a.seq++
	switch n := s.(type) {
	case *ast.Label:
		a.handleLabel(n)
	case *ast.Instruction:
		a.handleInstruction(n)
	case *ast.Directive:
		a.handleDirective(n)
	case *ast.MacroDefinition:
		a.macros[n.Name] = n
	case *ast.MacroInvocation:
		a.handleMacroInvocation(n)
	case *ast.Conditional:
		a.handleConditional(n)
	case *ast.RepeatBlock:
		a.handleRepeatBlock(n)
	case *ast.EnumerationBlock:
		a.handleEnum(n)
	default:
		a.errorf(InvalidConditional, s.Location(), "unrecognized statement %T", s)
	}
}

func (a *analyzer) handleLabel(l *ast.Label) {
	switch l.Kind {
	case ast.GlobalLabel:
		a.scope = l.Name
		a.define(&Symbol{Name: l.Name, Kind: SymLabel, Value: int64(a.pc), Known: true, Loc: l.Loc})
	case ast.LocalLabel:
		qualified := LocalName(a.scope, l.Name)
		a.define(&Symbol{Name: qualified, Kind: SymLocalLabel, Value: int64(a.pc), Known: true, Loc: l.Loc})
	case ast.AnonLabel:
		a.syms.DefineAnon(l.Name, a.pc, a.seq)
	}
}

func (a *analyzer) define(sym *Symbol) {
	if err := a.syms.Define(sym); err != nil {
		a.errs = append(a.errs, err)
	}
}

func (a *analyzer) handleInstruction(inst *ast.Instruction) {
	if !a.arch.IsMnemonic(inst.Mnemonic) {
		a.errorf(InvalidAddressingMode, inst.Loc, "%q is not a recognized mnemonic on %s", inst.Mnemonic, a.config.Target)
	}

	op := target.Operand{Mode: inst.Mode, Size: inst.Size}
	op.Values = make([]int64, len(inst.Operands))
	op.Regs = make([]string, len(inst.Operands))
	regNames := a.arch.RegisterNames()
	resolved := make([]bool, len(inst.Operands))

	for i, operand := range inst.Operands {
		if id, ok := operand.(*ast.Identifier); ok && id.Kind == ast.IdentName && regNames != nil && regNames[loweredReg(id.Name)] {
			op.Regs[i] = loweredReg(id.Name)
			resolved[i] = true
			continue
		}
		if v, ok := a.tryEval(operand); ok {
			op.Values[i] = v
			resolved[i] = true
		}
	}
	if len(op.Values) == 1 {
		op.NarrowOK = resolved[0] && op.Values[0] >= 0 && op.Values[0] <= 0xff
	}

	size, err := a.arch.Size(inst.Mnemonic, op)
	if err != nil {
		a.errs = append(a.errs, err)
		return
	}

	op.Known = true
	for _, r := range resolved {
		if !r {
			op.Known = false
			break
		}
	}
	a.items = append(a.items, Item{
		Kind:         ItemInstruction,
		Loc:          inst.Loc,
		Addr:         a.pc,
		Bank:         a.bank,
		Seg:          a.seg,
		Mnemonic:     inst.Mnemonic,
		Op:           op,
		OperandExprs: inst.Operands,
		Size:         size,
		scope:        a.scope,
		seq:          a.seq,
	})
	a.pc += uint32(size)
}

func loweredReg(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func (a *analyzer) handleConditional(c *ast.Conditional) {
	for _, branch := range c.Branches {
		if branch.Cond == nil {
			a.expandStmts(branch.Body)
			return
		}
		v, ok, err := eval(branch.Cond, a.ctx())
		if err != nil {
			a.errs = append(a.errs, err)
			return
		}
		if !ok {
			a.errorf(InvalidConditional, c.Loc, "condition depends on an undefined symbol")
			return
		}
		if v != 0 {
			a.expandStmts(branch.Body)
			return
		}
	}
}

func (a *analyzer) handleRepeatBlock(r *ast.RepeatBlock) {
	count, ok := a.tryEval(r.Count)
	if !ok {
		a.errorf(InvalidConditional, r.Loc, ".rept count must be a constant known at this point")
		return
	}
	for i := int64(0); i < count; i++ {
		body := r.Body
		if r.Counter != "" {
			a.expansion++
			body = substituteStmts(r.Body, &substCtx{
				labels:     collectGlobalLabels(r.Body),
				suffix:     fmt.Sprintf("~rep%d", a.expansion),
				plainNames: map[string]ast.Expr{r.Counter: &ast.NumberLiteral{Loc: r.Loc, Value: i}},
			})
		}
		a.expandStmts(body)
	}
}

func (a *analyzer) handleMacroInvocation(inv *ast.MacroInvocation) {
	def, ok := a.macros[inv.Name]
	if !ok {
		a.errorf(UnknownMacro, inv.Loc, "undefined macro %q", inv.Name)
		return
	}
	if len(inv.Args) != len(def.Params) {
		a.errorf(MacroArityMismatch, inv.Loc, "macro %q expects %d argument(s), got %d", inv.Name, len(def.Params), len(inv.Args))
		return
	}
	params := make(map[string]ast.Expr, len(def.Params))
	for i, p := range def.Params {
		params[string(p)] = inv.Args[i]
	}
	a.expansion++
	body := substituteStmts(def.Body, &substCtx{
		params:   params,
		argCount: int64(len(inv.Args)),
		labels:   collectGlobalLabels(def.Body),
		suffix:   fmt.Sprintf("~exp%d", a.expansion),
	})
	a.expandStmts(body)
}

func (a *analyzer) handleEnum(e *ast.EnumerationBlock) {
	base := int64(0)
	if e.Base != nil {
		if v, ok := a.tryEval(e.Base); ok {
			base = v
		}
	}
	step := int64(1)
	if e.Step != nil {
		if v, ok := a.tryEval(e.Step); ok {
			step = v
		}
	}
	for i, name := range e.Names {
		a.define(&Symbol{Name: name, Kind: SymConstant, Value: base + step*int64(i), Known: true, Loc: e.Loc})
	}
}
