package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	snesHeaderSizeLoROM  = 32 * 1024
	snesHeaderSizeHiROM  = 64 * 1024
	snesHeaderOffLoROM   = 0x7fc0
	snesHeaderOffHiROM   = 0xffc0
	snesTitleLen         = 21
)

// snesBuilder writes the 64-byte SNES internal header and the 16-bit
// checksum/complement pair, computed only after
// every segment (and the header itself, with its checksum fields
// zeroed) is in place.
type snesBuilder struct {
	cfg    *sema.ROMConfig
	segs   []codegen.OutputSegment
	hirom  bool
}

func newSNES(cfg *sema.ROMConfig) *snesBuilder {
	return &snesBuilder{cfg: cfg, hirom: cfg.Flags[".hirom"]}
}

func (b *snesBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *snesBuilder) fileOffset(s codegen.OutputSegment) int {
	// LoROM: banks are 32 KiB mapped at $8000-$ffff; HiROM: banks are
	// 64 KiB mapped at $0000-$ffff. Both fold onto a flat file by bank.
	if b.hirom {
		return s.Bank*0x10000 + int(s.Start)
	}
	base := int(s.Start)
	if base >= 0x8000 {
		base -= 0x8000
	}
	return s.Bank*0x8000 + base
}

func (b *snesBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	minSize := snesHeaderSizeLoROM
	headerOff := snesHeaderOffLoROM
	if b.hirom {
		minSize = snesHeaderSizeHiROM
		headerOff = snesHeaderOffHiROM
	}

	size := minSize
	for _, s := range segs {
		end := b.fileOffset(s) + len(s.Data)
		if end > size {
			size = nextPowerOfTwo(end)
			if size < minSize {
				size = minSize
			}
		}
	}

	im := newImage(size)
	im.reserve(headerOff, headerOff+64)

	for _, s := range segs {
		off := b.fileOffset(s)
		if err := im.placeAt(off, s.Data); err != nil {
			return nil, err
		}
	}

	title := padString(b.cfg.Strings[".snes_title"], snesTitleLen, ' ')
	header := make([]byte, 64)
	copy(header[0:21], title)
	mapMode := byte(0x20)
	if b.hirom {
		mapMode = 0x21
	}
	header[21] = mapMode
	header[22] = 0x00 // cartridge type: ROM only
	header[23] = byte(log2ceil(size / 1024))
	header[24] = 0 // RAM size, none modeled
	header[25] = 0x01 // destination code
	header[26] = 0x33 // fixed
	header[27] = 0x00 // version
	// complement/checksum at $xxfc/$xxfe (offsets 60/62 of this 64-byte
	// block) are left zero here and filled in below: the checksum fields
	// themselves are treated as zero during their own computation.

	im.writeHeaderAt(headerOff, header)

	sum := sum16(im.buf)
	complement := ^sum

	im.writeHeaderAt(headerOff+0x3c, []byte{byte(complement), byte(complement >> 8)})
	im.writeHeaderAt(headerOff+0x3e, []byte{byte(sum), byte(sum >> 8)})

	return im.buf, nil
}

func log2ceil(n int) int {
	if n <= 1 {
		return 0
	}
	p := nextPowerOfTwo(n)
	shift := 0
	for p > 1 {
		p >>= 1
		shift++
	}
	return shift
}
