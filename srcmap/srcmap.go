// Package srcmap builds the address<->source-line debug map a Poppy
// build produces alongside its ROM image, adapted from beevik/go6502's
// asm.SourceMap (asm/sourcemap.go) to a multi-bank, multi-file target:
// where the teacher's 6502-only assembler needed one flat 16-bit
// address space, Poppy's Map additionally carries the bank/segment an
// address belongs to, since several of its target platforms bank-switch
// ROM above a fixed CPU-visible window.
package srcmap

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"sort"
)

// Line maps one generated byte's address back to the poppy source line
// that produced it, the same role asm.SourceLine plays for go6502.
type Line struct {
	Bank      int
	Address   uint32
	FileIndex int
	Line      int
}

// Export is one symbol visible to a debugger or linker-map consumer:
// every label and named constant sema.Analysis resolved, not just the
// ones go6502's Export captures for its REPL.
type Export struct {
	Label   string
	Bank    int
	Address uint32
	Value   int64
	IsLabel bool // false for symbolic constants (no address, just a value)
}

// Map is the full debug map for one build: every source file referenced,
// the address<->line table, and every exported symbol.
type Map struct {
	Files   []string
	Lines   []Line
	Exports []Export
}

// New returns an empty Map ready for incremental population during code
// generation.
func New() *Map {
	return &Map{Files: []string{}, Lines: []Line{}, Exports: []Export{}}
}

// AddFile interns filename, returning its FileIndex for use in a Line.
func (m *Map) AddFile(filename string) int {
	for i, f := range m.Files {
		if f == filename {
			return i
		}
	}
	m.Files = append(m.Files, filename)
	return len(m.Files) - 1
}

// AddLine records that the byte at (bank, addr) was generated by line
// lineNo of file.
func (m *Map) AddLine(bank int, addr uint32, file string, lineNo int) {
	m.Lines = append(m.Lines, Line{Bank: bank, Address: addr, FileIndex: m.AddFile(file), Line: lineNo})
}

// AddExport records a resolved symbol for later lookup by a debugger or
// linker-map report.
func (m *Map) AddExport(label string, bank int, addr uint32, value int64, isLabel bool) {
	m.Exports = append(m.Exports, Export{Label: label, Bank: bank, Address: addr, Value: value, IsLabel: isLabel})
}

// Find looks up the source file and line that generated the byte at
// (bank, addr), the same binary-search approach as asm.SourceMap.Find --
// Lines must be sorted first via Finalize.
func (m *Map) Find(bank int, addr uint32) (filename string, line int, err error) {
	i := sort.Search(len(m.Lines), func(i int) bool {
		if m.Lines[i].Bank != bank {
			return m.Lines[i].Bank > bank
		}
		return m.Lines[i].Address >= addr
	})
	if i < len(m.Lines) && m.Lines[i].Bank == bank && m.Lines[i].Address == addr {
		return m.Files[m.Lines[i].FileIndex], m.Lines[i].Line, nil
	}
	return "", 0, fmt.Errorf("bank %d address $%06x not found in source map", bank, addr)
}

// Finalize sorts Lines and Exports into the canonical order Find and
// WriteTo depend on. Call once after code generation finishes.
func (m *Map) Finalize() {
	m.Lines = sortLines(m.Lines)
	m.Exports = sortExports(m.Exports)
}

func sortLines(lines []Line) []Line {
	out := slices.Clone(lines)
	slices.SortFunc(out, func(a, b Line) int {
		if c := cmp.Compare(a.Bank, b.Bank); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})
	return out
}

func sortExports(exports []Export) []Export {
	out := slices.Clone(exports)
	slices.SortFunc(out, func(a, b Export) int { return cmp.Compare(a.Label, b.Label) })
	return out
}

// WriteTo serializes the map as newline-delimited text, one record per
// line, legible without a separate reader tool -- go6502's binary
// varint format (asm.SourceMap.WriteTo) optimizes for the 6502
// assembler's single in-memory debugger session; Poppy's map is a build
// artifact meant to be diffed and grepped, so plain text better suits
// exporting it for external debuggers and linker-map consumers.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(bw, format, args...)
		n += int64(c)
		return err
	}
	if err := write("FILES %d\n", len(m.Files)); err != nil {
		return n, err
	}
	for i, f := range m.Files {
		if err := write("%d %s\n", i, f); err != nil {
			return n, err
		}
	}
	if err := write("LINES %d\n", len(m.Lines)); err != nil {
		return n, err
	}
	for _, l := range m.Lines {
		if err := write("%d %06x %d %d\n", l.Bank, l.Address, l.FileIndex, l.Line); err != nil {
			return n, err
		}
	}
	if err := write("EXPORTS %d\n", len(m.Exports)); err != nil {
		return n, err
	}
	for _, e := range m.Exports {
		kind := "const"
		if e.IsLabel {
			kind = "label"
		}
		if err := write("%s %s %d %06x %d\n", kind, e.Label, e.Bank, e.Address, e.Value); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
