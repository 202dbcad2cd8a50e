package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	nesHeaderSize = 16
	nesPRGUnit    = 16 * 1024
	nesBankBase   = 0x8000 // CPU-visible PRG-ROM window start
)

// nesBuilder materializes an iNES image: a 16-byte header followed by
// PRG-ROM banked in 16 KiB units, the
// CPU's $8000-$ffff window folded onto file offsets by
// bank*16KiB + (addr-$8000).
type nesBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newNES(cfg *sema.ROMConfig) *nesBuilder { return &nesBuilder{cfg: cfg} }

func (b *nesBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *nesBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	prgSize := nesPRGUnit
	for _, s := range segs {
		if s.Start < nesBankBase {
			continue
		}
		end := b.fileOffset(s) + len(s.Data)
		if end > prgSize {
			prgSize = nextPowerOfTwoUnits(end, nesPRGUnit)
		}
	}

	im := newImage(nesHeaderSize + prgSize)
	im.reserve(0, nesHeaderSize)

	for _, s := range segs {
		if s.Start < nesBankBase {
			continue
		}
		off := nesHeaderSize + b.fileOffset(s)
		if err := im.placeAt(off, s.Data); err != nil {
			return nil, err
		}
	}

	header := b.buildHeader(prgSize)
	im.writeHeaderAt(0, header)

	return im.buf, nil
}

func (b *nesBuilder) fileOffset(s codegen.OutputSegment) int {
	return s.Bank*nesPRGUnit + int(s.Start-nesBankBase)
}

func nextPowerOfTwoUnits(n, unit int) int {
	units := (n + unit - 1) / unit
	return nextPowerOfTwo(units) * unit
}

func (b *nesBuilder) buildHeader(prgSize int) []byte {
	h := make([]byte, nesHeaderSize)
	copy(h, []byte{'N', 'E', 'S', 0x1a})
	h[4] = byte(prgSize / nesPRGUnit)
	h[5] = byte(b.cfg.Ints[".nes_chr_size"]) // 0 => CHR RAM, no CHR-ROM segment model in this pipeline

	mapper := b.cfg.Ints[".nes_mapper"]
	mirroring := b.cfg.Ints[".nes_mirroring"]
	h[6] = byte(mapper<<4) | byte(mirroring&0x1)
	if b.cfg.Flags[".sram"] {
		h[6] |= 0x02
	}

	h[7] = byte(mapper & 0xf0)
	if b.cfg.Flags[".ines2"] {
		h[7] |= 0x08 // NES 2.0 identifier, bits 2-3 = 10
	}

	h[8] = byte(b.cfg.Ints[".nes_submapper"] << 4)
	h[9] = 0 // extended size bits: unused until PRG/CHR exceed the 8-bit unit count
	h[12] = 0

	return h
}
