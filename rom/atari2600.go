package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

// atari2600BankSizes is keyed by sema.romconfig.go's ".atari_bank" encoding:
// None=0, F8=1, F6=2, F4=3.
var atari2600BankSizes = map[int64]int{
	0: 2 * 1024,  // None
	1: 8 * 1024,  // F8
	2: 4 * 1024,  // F6
	3: 4 * 1024,  // F4 -- smallest bankswitch granularity Poppy targets
}

var atari2600ValidSizes = map[int]bool{
	2 * 1024: true, 4 * 1024: true, 8 * 1024: true, 16 * 1024: true, 32 * 1024: true,
}

// atari2600Builder materializes a raw, headerless 2600 cartridge image.
// Every OutputSegment's address already
// falls inside the fixed $f000-$ffff CPU window; bank is the
// bankswitch page index for carts larger than one bank.
type atari2600Builder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newAtari2600(cfg *sema.ROMConfig) *atari2600Builder { return &atari2600Builder{cfg: cfg} }

func (b *atari2600Builder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *atari2600Builder) fileOffset(s codegen.OutputSegment) int {
	bankSize := 4 * 1024
	return s.Bank*bankSize + int(s.Start&0x0fff)
}

func (b *atari2600Builder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	size := atari2600BankSizes[b.cfg.Ints[".atari_bank"]]
	if size == 0 {
		size = 4 * 1024
	}
	for _, s := range segs {
		end := b.fileOffset(s) + len(s.Data)
		if end > size {
			size = nextPowerOfTwo(end)
		}
	}
	if !atari2600ValidSizes[size] {
		return nil, errf(ROMSizeInvalid, "atari 2600 ROM size %d is not one of 2/4/8/16/32 KiB", size)
	}

	im := newImage(size)
	for _, s := range segs {
		if err := im.placeAt(b.fileOffset(s), s.Data); err != nil {
			return nil, err
		}
	}
	return im.buf, nil
}
