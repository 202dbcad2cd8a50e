// Package codegen walks a sema.Analysis a third time to produce the
// final byte-exact OutputSegment list a rom.Builder assembles into a
// cartridge image. It is grounded on the same
// "single linear pass over already-addressed items" shape beevik/go6502's
// asm package uses between its own parse and assemble stages, adapted
// to many banks/segments instead of one flat 16-bit address space.
package codegen

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/TheAnsarya/poppy/sema"
	"github.com/TheAnsarya/poppy/srcmap"
	"github.com/TheAnsarya/poppy/target"
)

// Kind enumerates codegen's own failure taxonomy -- distinct from
// sema.Kind because these errors only exist once placement is final:
// overlapping segments from two .org directives is a hard error.
type Kind string

const (
	SegmentOverlap    Kind = "SegmentOverlap"
	ValueOutOfRange   Kind = "ValueOutOfRange"
	UnresolvedOperand Kind = "UnresolvedOperand"
)

// Error is codegen's structured diagnostic, mirroring sema.Error's shape:
// every stage reports the same (kind, message, location) triple.
type Error struct {
	Kind Kind
	Loc  string
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Msg) }

func errf(kind Kind, loc string, format string, args ...any) *Error {
	return &Error{Kind: kind, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// OutputSegment is one contiguous run of bytes destined for a single
// bank, the unit rom.Builder implementations place into a cartridge
// image.
type OutputSegment struct {
	Bank  int
	Name  string
	Start uint32
	Data  []byte
}

func (s *OutputSegment) end() uint32 { return s.Start + uint32(len(s.Data)) }

// Options configures one code-generation run.
type Options struct {
	// Autolabel synthesizes sub_XXXX/loc_XXXX export entries in SourceMap
	// for FlagCall/FlagJump targets that never received a name. codegen,
	// not sema, owns autolabeling since it is purely a debug-output
	// convenience with no effect on encoding.
	Autolabel bool
	// SourceMap, if non-nil, is populated with every emitted item's
	// source line and, when Autolabel is set, every autolabeled symbol.
	// Symbols resolved by sema are not added to it.
	SourceMap *srcmap.Map
}

// Result is codegen's product: the placed segments plus any errors
// encountered while encoding or placing them.
type Result struct {
	Segments []OutputSegment
	Errors   []error
}

type generator struct {
	an      *sema.Analysis
	arch    target.Architecture
	opts    Options
	errs    []error
	byBank  map[int][]*OutputSegment
}

// Generate encodes every instruction in an.Items, places every item's
// bytes at its already-resolved address, and returns the finished
// segment list. It never changes an instruction's size from what sema
// already committed to during pass 1 -- an Encode that can't reproduce
// that size is a codegen bug, not a recoverable diagnostic.
func Generate(an *sema.Analysis, opts Options) *Result {
	arch, ok := target.Lookup(an.Target)
	if !ok {
		arch, _ = target.Lookup(target.MOS6502)
	}
	g := &generator{an: an, arch: arch, opts: opts, byBank: map[int][]*OutputSegment{}}

	for i := range an.Items {
		g.place(&an.Items[i])
	}

	if opts.Autolabel {
		g.autolabel()
	}
	if opts.SourceMap != nil {
		opts.SourceMap.Finalize()
	}

	return &Result{Segments: g.flatten(), Errors: g.errs}
}

func (g *generator) place(it *sema.Item) {
	data, err := g.encode(it)
	if err != nil {
		g.errs = append(g.errs, err)
		return
	}
	seg := g.segmentFor(it.Bank, it.Seg, it.Addr, len(data))
	if seg == nil {
		return
	}
	offset := it.Addr - seg.Start
	copy(seg.Data[offset:], data)

	if g.opts.SourceMap != nil {
		g.opts.SourceMap.AddLine(it.Bank, it.Addr, it.Loc.File, it.Loc.Line)
	}
}

// encode turns one Item into its final bytes. For ItemBytes the bytes
// are already resolved by sema; for ItemInstruction, a FlagBranch
// mnemonic's sole value is first rewritten from the absolute target
// address sema resolved into the signed PC-relative displacement the
// architecture actually encodes (target.go's Encode contract: "Encode
// itself never computes PC-relative offsets").
func (g *generator) encode(it *sema.Item) ([]byte, error) {
	if it.Kind == sema.ItemBytes {
		return it.Bytes, nil
	}
	if !it.Op.Known {
		return nil, errf(UnresolvedOperand, it.Loc.String(), "%s: operand never resolved to a known value", it.Mnemonic)
	}
	op := it.Op
	if g.arch.Flags(it.Mnemonic, op)&target.FlagBranch != 0 && len(op.Values) > 0 {
		disp := op.Values[0] - int64(it.Addr) - int64(it.Size)
		values := make([]int64, len(op.Values))
		copy(values, op.Values)
		values[0] = disp
		op.Values = values
	}
	data, err := g.arch.Encode(it.Mnemonic, op, it.Size)
	if err != nil {
		return nil, err
	}
	if len(data) != it.Size {
		return nil, errf(ValueOutOfRange, it.Loc.String(), "%s: encoded to %d byte(s), pass 1 sized it at %d", it.Mnemonic, len(data), it.Size)
	}
	return data, nil
}

// segmentFor returns the OutputSegment [addr, addr+n) should land in,
// creating a fresh one if addr doesn't extend any existing segment in
// this bank, and reporting SegmentOverlap if it collides with one.
func (g *generator) segmentFor(bank int, name string, addr uint32, n int) *OutputSegment {
	segs := g.byBank[bank]
	for _, s := range segs {
		if addr < s.end() && addr+uint32(max(n, 1)) > s.Start {
			g.errs = append(g.errs, errf(SegmentOverlap, "", "bank %d: address 0x%x overlaps an earlier segment [0x%x,0x%x)", bank, addr, s.Start, s.end()))
			return nil
		}
	}
	for _, s := range segs {
		if addr == s.end() {
			s.Data = append(s.Data, make([]byte, n)...)
			return s
		}
	}
	s := &OutputSegment{Bank: bank, Name: name, Start: addr, Data: make([]byte, n)}
	g.byBank[bank] = append(g.byBank[bank], s)
	return s
}

func (g *generator) flatten() []OutputSegment {
	var out []OutputSegment
	banks := lo.Keys(g.byBank)
	sort.Ints(banks)
	for _, b := range banks {
		segs := g.byBank[b]
		sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
		for _, s := range segs {
			out = append(out, *s)
		}
	}
	return out
}

// autolabel names every FlagCall/FlagJump target address that has no
// matching symbol in an.Symbols, the way IDA-style disassemblers
// synthesize sub_XXXX/loc_XXXX when a binary carries no debug info --
// here run in reverse, to make the debug map of an already-named source
// file useful even for the call sites that only ever used a raw
// address literal.
func (g *generator) autolabel() {
	if g.opts.SourceMap == nil {
		return
	}
	seen := map[uint32]bool{}
	known := lo.SliceToMap(g.an.Symbols.Exports(), func(s *sema.Symbol) (int64, bool) {
		return s.Value, true
	})
	for _, it := range g.an.Items {
		if it.Kind != sema.ItemInstruction || !it.Op.Known || len(it.Op.Values) == 0 {
			continue
		}
		flags := g.arch.Flags(it.Mnemonic, it.Op)
		isCall := flags&target.FlagCall != 0
		isJump := flags&target.FlagJump != 0
		if !isCall && !isJump {
			continue
		}
		destVal := it.Op.Values[0]
		addr := uint32(destVal)
		if known[destVal] || seen[addr] {
			continue
		}
		seen[addr] = true
		prefix := "loc_"
		if isCall {
			prefix = "sub_"
		}
		label := fmt.Sprintf("%s%04x", prefix, addr)
		g.opts.SourceMap.AddExport(label, it.Bank, addr, destVal, true)
	}
}
