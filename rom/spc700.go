package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	spcFileSize    = 65984
	spcSignature   = "SNES-SPC700 Sound File Data v0.30"
	spcSeparator   = 0x21
	spcRegOffset   = 0x25
	spcID666Offset = 0x2e
	spcRAMOffset   = 0x0100
	spcDSPOffset   = 0x10100
)

// spcBuilder materializes an SPC700 sound-file snapshot: a fixed-size,
// fixed-layout dump of the audio
// CPU's 64 KiB RAM plus its register and DSP state, rather than a
// bank-addressed cartridge image -- every segment here targets the
// single flat 64 KiB RAM space directly.
type spcBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newSPC(cfg *sema.ROMConfig) *spcBuilder { return &spcBuilder{cfg: cfg} }

func (b *spcBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *spcBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	im := newImage(spcFileSize)
	im.reserve(0, spcRAMOffset)
	im.reserve(spcDSPOffset, spcFileSize)

	for _, s := range segs {
		if err := im.placeAt(spcRAMOffset+int(s.Start&0xffff), s.Data); err != nil {
			return nil, err
		}
	}

	copy(im.buf[0:len(spcSignature)], []byte(spcSignature))
	im.buf[spcSeparator] = 0x26
	im.buf[spcSeparator+1] = 0x26

	pc := uint16(b.cfg.Ints[".spc_pc"])
	im.buf[spcRegOffset] = byte(pc)
	im.buf[spcRegOffset+1] = byte(pc >> 8)
	im.buf[spcRegOffset+2] = byte(b.cfg.Ints[".spc_a"])
	im.buf[spcRegOffset+3] = byte(b.cfg.Ints[".spc_x"])
	im.buf[spcRegOffset+4] = byte(b.cfg.Ints[".spc_y"])
	im.buf[spcRegOffset+5] = byte(b.cfg.Ints[".spc_psw"])
	im.buf[spcRegOffset+6] = byte(b.cfg.Ints[".spc_sp"])

	id666 := make([]byte, 0xd1-spcID666Offset+1)
	copy(id666[0:32], padString(b.cfg.Strings[".spc_title"], 32, 0x00))
	copy(id666[32:48], padString(b.cfg.Strings[".spc_game"], 16, 0x00))
	copy(id666[48:64], padString(b.cfg.Strings[".spc_dumper"], 16, 0x00))
	copy(id666[64:75], padString(b.cfg.Strings[".spc_date"], 11, 0x00))
	im.writeHeaderAt(spcID666Offset, id666)

	return im.buf, nil
}
