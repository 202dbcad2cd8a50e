package sema

import (
	"strings"

	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
	"github.com/TheAnsarya/poppy/target"
)

// handleDirective dispatches a pseudo-op by name. Unknown directives (not
// target-select, not a recognized config directive, not one of the
// built-ins below) are reported as UnknownDirective rather than silently
// ignored.
func (a *analyzer) handleDirective(d *ast.Directive) {
	name := strings.ToLower(d.Name)

	if tag, ok := target.ParseTag(strings.TrimPrefix(name, ".")); ok {
		a.config.Target = tag
		if arch, ok := target.Lookup(tag); ok {
			a.arch = arch
		}
		return
	}
	if kind, ok := configDirectives[name]; ok {
		a.handleConfigDirective(name, kind, d)
		return
	}

	switch name {
	case ".equ", ".define":
		a.handleEqu(d, false)
	case ".set":
		a.handleEqu(d, true)
	case ".org":
		a.handleOrg(d)
	case ".segment":
		a.handleSegment(d)
	case ".bank":
		a.handleBank(d)
	case ".align":
		a.handleAlign(d)
	case ".pad":
		a.handlePad(d)
	case ".big_endian":
		a.bigEndian = true
	case ".little_endian":
		a.bigEndian = false
	case ".db", ".byte":
		a.handleDataBytes(d, 1)
	case ".dw", ".word":
		a.handleDataBytes(d, 2)
	case ".dl", ".long":
		a.handleDataBytes(d, 3)
	case ".dd", ".dword":
		a.handleDataBytes(d, 4)
	case ".ds", ".res":
		a.handleFillSize(d)
	case ".fill":
		a.handleFill(d)
	case ".ascii", ".asciiz", ".text":
		a.handleAscii(d, name == ".asciiz")
	case ".incbin":
		a.handleIncbin(d)
	default:
		a.errorf(UnknownDirective, d.Loc, "unrecognized directive %q", d.Name)
	}
}

func (a *analyzer) handleConfigDirective(name string, kind configArgKind, d *ast.Directive) {
	switch kind {
	case configFlag:
		a.config.Flags[name] = true
	case configString:
		if len(d.Args) != 1 {
			a.errorf(InvalidDirectiveArity, d.Loc, "%s expects one string argument", name)
			return
		}
		if s, ok := d.Args[0].(*ast.StringLiteral); ok {
			a.config.Strings[name] = s.Value
			return
		}
		a.errorf(InvalidDirectiveArity, d.Loc, "%s expects a string literal", name)
	case configInt:
		if len(d.Args) != 1 {
			a.errorf(InvalidDirectiveArity, d.Loc, "%s expects one numeric argument", name)
			return
		}
		if v, ok := a.tryEval(d.Args[0]); ok {
			a.config.Ints[name] = v
		}
	}
}

// handleEqu defines a named constant. .set constants are reassignable
// (redefinition never errors); .equ/.define constants are not. A
// right-hand side that can't resolve yet (forward
// reference) is parked on the pending-constants list for phase B rather
// than failing immediately.
func (a *analyzer) handleEqu(d *ast.Directive, reassignable bool) {
	if len(d.Args) != 2 {
		a.errorf(InvalidDirectiveArity, d.Loc, "%s expects name, value", d.Name)
		return
	}
	id, ok := d.Args[0].(*ast.Identifier)
	if !ok {
		a.errorf(InvalidDirectiveArity, d.Loc, "%s requires an identifier name", d.Name)
		return
	}
	expr := d.Args[1]
	if v, ok := a.tryEval(expr); ok {
		a.define(&Symbol{Name: id.Name, Kind: SymConstant, Value: v, Known: true, Reassignable: reassignable, Loc: d.Loc})
		return
	}
	a.define(&Symbol{Name: id.Name, Kind: SymConstant, Known: false, Reassignable: reassignable, Loc: d.Loc})
	a.pending = append(a.pending, pendingConst{name: id.Name, expr: expr, scope: a.scope, loc: d.Loc, reassignable: reassignable})
}

func (a *analyzer) handleOrg(d *ast.Directive) {
	if len(d.Args) != 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".org expects one address argument")
		return
	}
	if v, ok := a.tryEval(d.Args[0]); ok {
		a.pc = uint32(v)
		return
	}
	a.errorf(UndefinedSymbol, d.Loc, ".org address must be a constant known at this point")
}

func (a *analyzer) handleSegment(d *ast.Directive) {
	if len(d.Args) != 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".segment expects one name argument")
		return
	}
	if s, ok := d.Args[0].(*ast.StringLiteral); ok {
		a.seg = s.Value
		return
	}
	if id, ok := d.Args[0].(*ast.Identifier); ok {
		a.seg = id.Name
		return
	}
	a.errorf(InvalidDirectiveArity, d.Loc, ".segment expects a name")
}

func (a *analyzer) handleBank(d *ast.Directive) {
	if len(d.Args) != 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".bank expects one numeric argument")
		return
	}
	if v, ok := a.tryEval(d.Args[0]); ok {
		a.bank = int(v)
	}
}

func (a *analyzer) handleAlign(d *ast.Directive) {
	if len(d.Args) < 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".align expects a boundary argument")
		return
	}
	v, ok := a.tryEval(d.Args[0])
	if !ok || v <= 0 {
		a.errorf(UndefinedSymbol, d.Loc, ".align boundary must be a known positive constant")
		return
	}
	boundary := uint32(v)
	fill := byte(0)
	if len(d.Args) == 2 {
		if fv, ok := a.tryEval(d.Args[1]); ok {
			fill = byte(fv)
		}
	}
	rem := a.pc % boundary
	if rem == 0 {
		return
	}
	n := boundary - rem
	a.emitBytes(make([]byte, n), d.Loc, fill)
}

func (a *analyzer) handlePad(d *ast.Directive) {
	if len(d.Args) < 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".pad expects a target-address argument")
		return
	}
	target, ok := a.tryEval(d.Args[0])
	if !ok {
		a.errorf(UndefinedSymbol, d.Loc, ".pad target must be a known constant")
		return
	}
	if uint32(target) < a.pc {
		a.errorf(SegmentOverflow, d.Loc, ".pad target 0x%x is behind the current address 0x%x", target, a.pc)
		return
	}
	fill := byte(0)
	if len(d.Args) == 2 {
		if fv, ok := a.tryEval(d.Args[1]); ok {
			fill = byte(fv)
		}
	}
	n := uint32(target) - a.pc
	a.emitBytes(make([]byte, n), d.Loc, fill)
}

func (a *analyzer) handleDataBytes(d *ast.Directive, width int) {
	for _, arg := range d.Args {
		if s, ok := arg.(*ast.StringLiteral); ok && width == 1 {
			a.emitDataExpr(arg, d.Loc, width, []byte(s.Value))
			continue
		}
		a.emitDataExpr(arg, d.Loc, width, nil)
	}
}

// emitDataExpr tries to resolve expr now (covering the common case of a
// literal or already-defined constant); forward-referencing data values
// are parked as a zero-filled placeholder item patched during phase B.
func (a *analyzer) emitDataExpr(expr ast.Expr, loc lex.Location, width int, raw []byte) {
	if raw != nil {
		a.items = append(a.items, Item{Kind: ItemBytes, Addr: a.pc, Bank: a.bank, Seg: a.seg, Bytes: raw, Size: len(raw)})
		a.pc += uint32(len(raw))
		return
	}
	v, ok := a.tryEval(expr)
	buf := make([]byte, width)
	if ok {
		packInt(buf, v, width, a.bigEndian)
	}
	item := Item{Kind: ItemBytes, Addr: a.pc, Bank: a.bank, Seg: a.seg, Bytes: buf, Size: width, OperandExprs: []ast.Expr{expr}, scope: a.scope, seq: a.seq}
	a.items = append(a.items, item)
	if !ok {
		a.pendingItems = append(a.pendingItems, pendingItem{idx: len(a.items) - 1, width: width})
	}
	a.pc += uint32(width)
}

func packInt(buf []byte, v int64, width int, bigEndian bool) {
	u := uint64(v)
	if bigEndian {
		for i := 0; i < width; i++ {
			buf[width-1-i] = byte(u >> (8 * i))
		}
		return
	}
	for i := 0; i < width; i++ {
		buf[i] = byte(u >> (8 * i))
	}
}

func (a *analyzer) handleFillSize(d *ast.Directive) {
	if len(d.Args) < 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".ds expects a count argument")
		return
	}
	count, ok := a.tryEval(d.Args[0])
	if !ok {
		a.errorf(UndefinedSymbol, d.Loc, ".ds count must be a known constant")
		return
	}
	fill := byte(0)
	if len(d.Args) == 2 {
		if fv, ok := a.tryEval(d.Args[1]); ok {
			fill = byte(fv)
		}
	}
	a.emitBytes(make([]byte, count), d.Loc, fill)
}

func (a *analyzer) handleFill(d *ast.Directive) {
	a.handleFillSize(d)
}

func (a *analyzer) emitBytes(buf []byte, loc lex.Location, fill byte) {
	for i := range buf {
		buf[i] = fill
	}
	a.items = append(a.items, Item{Kind: ItemBytes, Addr: a.pc, Bank: a.bank, Seg: a.seg, Bytes: buf, Size: len(buf)})
	a.pc += uint32(len(buf))
}

func (a *analyzer) handleAscii(d *ast.Directive, nullTerminate bool) {
	for _, arg := range d.Args {
		s, ok := arg.(*ast.StringLiteral)
		if !ok {
			a.errorf(InvalidDirectiveArity, d.Loc, ".ascii expects string literal arguments")
			continue
		}
		buf := []byte(s.Value)
		if nullTerminate {
			buf = append(buf, 0)
		}
		a.items = append(a.items, Item{Kind: ItemBytes, Addr: a.pc, Bank: a.bank, Seg: a.seg, Bytes: buf, Size: len(buf)})
		a.pc += uint32(len(buf))
	}
}

func (a *analyzer) handleIncbin(d *ast.Directive) {
	if len(d.Args) < 1 {
		a.errorf(InvalidDirectiveArity, d.Loc, ".incbin expects a path argument")
		return
	}
	s, ok := d.Args[0].(*ast.StringLiteral)
	if !ok {
		a.errorf(InvalidDirectiveArity, d.Loc, ".incbin expects a string path")
		return
	}
	if a.opts.ReadInclude == nil {
		a.errorf(UnknownDirective, d.Loc, ".incbin is not available in this build")
		return
	}
	data, err := a.opts.ReadInclude(s.Value)
	if err != nil {
		a.errorf(UnknownDirective, d.Loc, "reading %q: %v", s.Value, err)
		return
	}
	a.items = append(a.items, Item{Kind: ItemBytes, Addr: a.pc, Bank: a.bank, Seg: a.seg, Bytes: data, Size: len(data)})
	a.pc += uint32(len(data))
}
