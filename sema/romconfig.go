package sema

import "github.com/TheAnsarya/poppy/target"

// ROMConfig accumulates the platform metadata a source file declares with
// target-select and header directives (".snes", ".lorom", ".snes_title
// ..."). rom.Builder implementations read this alongside the
// OutputSegment list.
type ROMConfig struct {
	Target  target.Tag
	Flags   map[string]bool
	Strings map[string]string
	Ints    map[string]int64
}

func newROMConfig(t target.Tag) *ROMConfig {
	return &ROMConfig{Target: t, Flags: map[string]bool{}, Strings: map[string]string{}, Ints: map[string]int64{}}
}

// configDirectives names the header/flag directives sema recognizes
// beyond the target-select ones (which are resolved via
// target.ParseTag). Each entry says whether the directive takes a
// string argument, a numeric argument, or none (a bare flag).
type configArgKind byte

const (
	configFlag configArgKind = iota
	configString
	configInt
)

var configDirectives = map[string]configArgKind{
	".lorom":         configFlag,
	".hirom":         configFlag,
	".ines2":         configFlag,
	".sram":          configFlag,
	".snes_title":    configString,
	".gb_title":      configString,
	".nes_title":     configString,
	".genesis_title": configString,
	".lynx_title":    configString,
	".nes_mapper":    configInt,
	".nes_mirroring": configInt,
	".nes_submapper": configInt,
	".gb_cgb":        configInt,
	".gb_sgb":        configInt,
	".gb_mbc":        configInt,
	".gb_ram":        configInt,
	".atari_bank":    configInt, // None=0, F8=1, F6=2, F4=3
}
