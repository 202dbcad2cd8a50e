package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	gbMinSize     = 32 * 1024
	gbHeaderStart = 0x0100
	gbHeaderEnd   = 0x0150
	gbLogoOffset  = 0x0104
	gbTitleOffset = 0x0134
	gbChecksumLo  = 0x014d
	gbChecksumHi  = 0x014e
)

// gbNintendoLogo is the boot-ROM-verified logo bitmap every commercial
// Game Boy/Color cartridge carries at $0104, byte-exact; the hardware
// refuses to run a cartridge whose logo bytes don't match this exactly.
var gbNintendoLogo = [48]byte{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0c, 0x00, 0x0d, 0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e,
	0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99, 0xbb, 0xbb, 0x67, 0x63,
	0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

// gbBuilder materializes a Game Boy ROM image, a flat address space
// with no bank folding beyond the one boot ROM cares about.
type gbBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newGameBoy(cfg *sema.ROMConfig) *gbBuilder { return &gbBuilder{cfg: cfg} }

func (b *gbBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *gbBuilder) fileOffset(s codegen.OutputSegment) int {
	if s.Bank == 0 {
		return int(s.Start)
	}
	// Banks >0 map ROM bank N ($4000-$7fff) onto file offset N*16KiB.
	return s.Bank*0x4000 + int(s.Start-0x4000)
}

func (b *gbBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	size := gbMinSize
	for _, s := range segs {
		end := b.fileOffset(s) + len(s.Data)
		if end > size {
			size = nextPowerOfTwo(end)
			if size < gbMinSize {
				size = gbMinSize
			}
		}
	}

	im := newImage(size)
	im.reserve(gbHeaderStart, gbHeaderEnd)

	for _, s := range segs {
		if err := im.placeAt(b.fileOffset(s), s.Data); err != nil {
			return nil, err
		}
	}

	// Entry stub: NOP; JP $0150 -- hands off to the first byte of code
	// immediately following the header.
	im.writeHeaderAt(gbHeaderStart, []byte{0x00, 0xc3, 0x50, 0x01})
	im.writeHeaderAt(gbLogoOffset, gbNintendoLogo[:])

	title := padString(b.cfg.Strings[".gb_title"], 16, 0x00)
	im.writeHeaderAt(gbTitleOffset, title)

	im.buf[0x0143] = byte(b.cfg.Ints[".gb_cgb"])
	im.buf[0x0144] = '0'
	im.buf[0x0145] = '0'
	im.buf[0x0146] = byte(b.cfg.Ints[".gb_sgb"])
	im.buf[0x0147] = byte(b.cfg.Ints[".gb_mbc"])
	im.buf[0x0148] = byte(log2ceil(size / gbMinSize))
	im.buf[0x0149] = byte(b.cfg.Ints[".gb_ram"])
	im.buf[0x014a] = 0x00 // destination: non-Japanese
	im.buf[0x014b] = 0x33 // old licensee: use new licensee code
	im.buf[0x014c] = 0x00 // mask ROM version

	headerSum := gbHeaderChecksum(im.buf)
	im.buf[gbChecksumLo] = headerSum

	globalSum := gbGlobalChecksum(im.buf)
	im.buf[gbChecksumHi] = byte(globalSum >> 8)
	im.buf[gbChecksumHi+1] = byte(globalSum)

	return im.buf, nil
}

// gbHeaderChecksum computes ((-sum(bytes[0x134..0x14c])) - count) & 0xff,
// the classic "x = x - byte - 1" boot-ROM loop restated as a closed-form
// sum.
func gbHeaderChecksum(buf []byte) byte {
	var sum int
	for i := 0x0134; i <= 0x014c; i++ {
		sum += int(buf[i])
	}
	count := 0x014c - 0x0134 + 1
	return byte((-sum - count) & 0xff)
}

// gbGlobalChecksum is the big-endian 16-bit sum of every ROM byte
// except the checksum field itself.
func gbGlobalChecksum(buf []byte) uint16 {
	var sum uint16
	for i, b := range buf {
		if i == gbChecksumHi || i == gbChecksumHi+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
