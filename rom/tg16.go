package rom

import (
	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
)

const (
	tg16MinSize = 8 * 1024
	tg16MaxSize = 1024 * 1024
)

// tg16Builder materializes a headerless TurboGrafx-16/PC Engine HuCard
// image: banks of 8 KiB folded onto a flat file, reset vector
// expected in the last two
// bytes the source itself wrote via .org/.dw.
type tg16Builder struct {
	cfg  *sema.ROMConfig
	segs []codegen.OutputSegment
}

func newTG16(cfg *sema.ROMConfig) *tg16Builder { return &tg16Builder{cfg: cfg} }

func (b *tg16Builder) AddSegment(seg codegen.OutputSegment) {
	b.segs = append(b.segs, seg)
}

func (b *tg16Builder) fileOffset(s codegen.OutputSegment) int {
	return s.Bank*0x2000 + int(s.Start&0x1fff)
}

func (b *tg16Builder) Build() ([]byte, error) {
	segs := sortedSegments(b.segs)

	size := tg16MinSize
	for _, s := range segs {
		end := b.fileOffset(s) + len(s.Data)
		if end > size {
			size = nextPowerOfTwo(end)
		}
	}
	if size < tg16MinSize || size > tg16MaxSize {
		return nil, errf(ROMSizeInvalid, "turbografx-16 ROM size %d is outside [8 KiB, 1 MiB]", size)
	}

	im := newImage(size)
	for _, s := range segs {
		if err := im.placeAt(b.fileOffset(s), s.Data); err != nil {
			return nil, err
		}
	}
	return im.buf, nil
}
