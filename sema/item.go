package sema

import (
	"github.com/TheAnsarya/poppy/ast"
	"github.com/TheAnsarya/poppy/lex"
	"github.com/TheAnsarya/poppy/target"
)

// ItemKind distinguishes the two shapes an analyzed statement reduces to
// by the time codegen sees it: an instruction still needing
// architecture-specific encoding, or a run of already-resolved bytes.
// The code generator walks this list a third time.
type ItemKind byte

const (
	ItemInstruction ItemKind = iota
	ItemBytes
)

// Item is one fully-addressed unit of output, the product of sema's two
// passes. Instructions keep their raw
// operand expressions around so codegen (or a diagnostic) can re-render
// them, but Op.Values/Op.Regs are what Encode actually consumes.
type Item struct {
	Kind ItemKind
	Loc  lex.Location
	Addr uint32
	Bank int
	Seg  string

	Mnemonic     string
	Op           target.Operand
	OperandExprs []ast.Expr // raw, parallel to Op.Values/Op.Regs

	Bytes []byte // final bytes: pre-resolved for ItemBytes; always nil for
	             // ItemInstruction, whose bytes codegen encodes without storing them here

	Size int // resolved size in bytes, fixed by pass 1 -- codegen may
	         // never change this

	scope string // enclosing global label at the point this item was emitted
	seq   int    // program-order sequence number at emission, for anon-label resolution in phase B
}
