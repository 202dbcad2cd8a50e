package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	genesisVectorTableSize = 256
	genesisHeaderOffset    = 0x100
	genesisHeaderSize      = 512
)

// genesisBuilder materializes a Genesis/Mega Drive ROM: the 256-byte
// vector table at offset 0 (initial SP and reset vector as big-endian
// longs) followed by the 512-byte header at offset $0100.
type genesisBuilder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newGenesis(cfg *sema.ROMConfig) *genesisBuilder { return &genesisBuilder{cfg: cfg} }

func (b *genesisBuilder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *genesisBuilder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	size := genesisHeaderOffset + genesisHeaderSize
	for _, s := range segs {
		end := int(s.Start) + len(s.Data)
		if end > size {
			size = end
		}
	}

	im := newImage(size)
	im.reserve(genesisHeaderOffset, genesisHeaderOffset+genesisHeaderSize)

	var resetTarget uint32
	haveReset := false
	for _, s := range segs {
		if s.Name == "reset" || s.Name == "entry" {
			resetTarget = s.Start
			haveReset = true
		}
		if err := im.placeAt(int(s.Start), s.Data); err != nil {
			return nil, err
		}
	}
	if !haveReset && len(segs) > 0 {
		resetTarget = segs[0].Start
	}

	initialSP := uint32(b.cfg.Ints[".genesis_stack"])
	if initialSP == 0 {
		initialSP = 0x00ffff00
	}

	vectors := make([]byte, genesisVectorTableSize)
	packBE32(vectors[0:4], int64(initialSP))
	packBE32(vectors[4:8], int64(resetTarget))
	im.writeHeaderAt(0, vectors)

	header := make([]byte, genesisHeaderSize)
	copy(header[0:16], padString("SEGA MEGA DRIVE ", 16, ' '))
	copy(header[16:32], padString("(C)SEGA", 16, ' '))
	copy(header[32:80], padString(b.cfg.Strings[".genesis_title"], 48, ' '))
	copy(header[80:128], padString(b.cfg.Strings[".genesis_title"], 48, ' '))
	copy(header[128:144], padString("GM 00000000-00", 16, ' '))
	copy(header[0x180:0x183], padString("JUE", 3, ' ')) // region: all

	im.writeHeaderAt(genesisHeaderOffset, header)

	return im.buf, nil
}

func packBE32(buf []byte, v int64) {
	u := uint32(v)
	buf[0] = byte(u >> 24)
	buf[1] = byte(u >> 16)
	buf[2] = byte(u >> 8)
	buf[3] = byte(u)
}
