package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	lynxHeaderSize   = 64
	lynxBankPageSize = 256
)

// lynxBuilder materializes an Atari Lynx ".lnx" image: the 64-byte
// "LYNX" header followed by bank 0 then
// bank 1's raw pages.
type lynxBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newLynx(cfg *sema.ROMConfig) *lynxBuilder { return &lynxBuilder{cfg: cfg} }

func (b *lynxBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *lynxBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	bankEnd := map[int]int{}
	for _, s := range segs {
		end := int(s.Start) + len(s.Data)
		if end > bankEnd[s.Bank] {
			bankEnd[s.Bank] = end
		}
	}
	bank0Size := bankEnd[0]
	bank1Size := bankEnd[1]

	im := newImage(lynxHeaderSize + bank0Size + bank1Size)
	im.reserve(0, lynxHeaderSize)

	for _, s := range segs {
		base := lynxHeaderSize
		if s.Bank == 1 {
			base += bank0Size
		} else if s.Bank > 1 {
			return nil, errf(HeaderConflict, "atari lynx supports only banks 0 and 1, got bank %d", s.Bank)
		}
		if err := im.placeAt(base+int(s.Start), s.Data); err != nil {
			return nil, err
		}
	}

	header := make([]byte, lynxHeaderSize)
	copy(header[0:4], []byte("LYNX"))
	header[4] = 0x00 // reserved
	header[5] = 0x01
	bank0Pages := uint16((bank0Size + lynxBankPageSize - 1) / lynxBankPageSize)
	bank1Pages := uint16((bank1Size + lynxBankPageSize - 1) / lynxBankPageSize)
	header[6] = byte(bank0Pages)
	header[7] = byte(bank0Pages >> 8)
	header[8] = byte(bank1Pages)
	header[9] = byte(bank1Pages >> 8)
	loadAddr := uint16(b.cfg.Ints[".lynx_load_addr"])
	header[10] = byte(loadAddr)
	header[11] = byte(loadAddr >> 8)
	copy(header[12:44], padString(b.cfg.Strings[".lynx_title"], 32, 0x00))
	copy(header[44:60], padString(b.cfg.Strings[".lynx_manufacturer"], 16, 0x00))
	header[60] = byte(b.cfg.Ints[".lynx_rotation"])

	im.writeHeaderAt(0, header)
	return im.buf, nil
}
