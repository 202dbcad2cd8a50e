package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	gbaHeaderSize     = 192
	gbaLogoOffset     = 4
	gbaLogoSize       = 156
	gbaTitleOffset    = 0xa0
	gbaGameCodeOffset = 0xac
	gbaMakerOffset    = 0xb0
	gbaFixedOffset    = 0xb2
	gbaChecksumOffset = 0xbd
)

// gbaLogo is the fixed-length placeholder occupying the BIOS-verified
// 156-byte Nintendo logo region; real hardware checks this against
// Nintendo's own bitmap, which this
// pipeline does not embed -- only the layout and checksum arithmetic
// are this builder's concern.
var gbaLogo = [gbaLogoSize]byte{}

// gbaBuilder materializes a GBA ROM image: header, then every segment
// folded at its logical address (cartridge space starts at
// 0x08000000, but OutputSegment addresses are already relative to
// that window).
type gbaBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newGBA(cfg *sema.ROMConfig) *gbaBuilder { return &gbaBuilder{cfg: cfg} }

func (b *gbaBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *gbaBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	size := gbaHeaderSize
	for _, s := range segs {
		end := int(s.Start) + len(s.Data)
		if end > size {
			size = end
		}
	}

	im := newImage(size)
	im.reserve(0, gbaHeaderSize)

	for _, s := range segs {
		if err := im.placeAt(int(s.Start), s.Data); err != nil {
			return nil, err
		}
	}

	header := make([]byte, gbaHeaderSize)
	// ARM branch opcode to the entry point immediately after the
	// header (word offset (gbaHeaderSize-8)/4, ARM B encoding).
	disp := uint32(gbaHeaderSize-8) / 4
	header[0] = byte(disp)
	header[1] = byte(disp >> 8)
	header[2] = byte(disp >> 16)
	header[3] = 0xea // B condition AL
	copy(header[gbaLogoOffset:], gbaLogo[:])
	copy(header[gbaTitleOffset:gbaTitleOffset+12], padString(b.cfg.Strings[".gba_title"], 12, 0x00))
	copy(header[gbaGameCodeOffset:gbaGameCodeOffset+4], padString(b.cfg.Strings[".gba_game_code"], 4, 0x00))
	copy(header[gbaMakerOffset:gbaMakerOffset+2], padString(b.cfg.Strings[".gba_maker_code"], 2, 0x00))
	header[gbaFixedOffset] = 0x96
	header[gbaFixedOffset+1] = 0x00 // unit code
	header[gbaFixedOffset+2] = 0x00 // device type
	header[0xbc] = byte(b.cfg.Ints[".gba_version"])

	im.writeHeaderAt(0, header)
	im.buf[gbaChecksumOffset] = gbaHeaderChecksum(im.buf)

	return im.buf, nil
}

// gbaHeaderChecksum computes ((-(sum(0xa0..0xbc))-0x19)) & 0xff over
// the already-written header.
func gbaHeaderChecksum(buf []byte) byte {
	var sum int
	for i := 0xa0; i <= 0xbc; i++ {
		sum += int(buf[i])
	}
	return byte((-sum - 0x19) & 0xff)
}
