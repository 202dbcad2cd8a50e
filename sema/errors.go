package sema

import (
	"fmt"

	"github.com/TheAnsarya/poppy/lex"
)

// Kind enumerates the semantic-analysis failure taxonomy.
type Kind string

const (
	UndefinedSymbol       Kind = "UndefinedSymbol"
	Redefinition          Kind = "Redefinition"
	CircularConstant      Kind = "CircularConstant"
	InvalidAddressingMode Kind = "InvalidAddressingMode"
	SegmentOverflow       Kind = "SegmentOverflow"
	BankOutOfRange        Kind = "BankOutOfRange"
	InvalidConditional    Kind = "InvalidConditional"
	MacroArityMismatch    Kind = "MacroArityMismatch"
	UnknownMacro          Kind = "UnknownMacro"
	UnknownDirective      Kind = "UnknownDirective"
	InvalidDirectiveArity Kind = "InvalidDirectiveArity"
)

// Error is a single structured semantic diagnostic: a (kind, message,
// source location) triple.
type Error struct {
	Kind Kind
	Loc  lex.Location
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Msg)
}

func errf(kind Kind, loc lex.Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
