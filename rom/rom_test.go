package rom

import (
	"testing"

	"github.com/TheAnsarya/poppy/codegen"
	"github.com/TheAnsarya/poppy/sema"
	"github.com/TheAnsarya/poppy/target"
)

func romConfig(t target.Tag) *sema.ROMConfig {
	return &sema.ROMConfig{Target: t, Flags: map[string]bool{}, Strings: map[string]string{}, Ints: map[string]int64{}}
}

func TestNESMinimalImage(t *testing.T) {
	cfg := romConfig(target.MOS6502)
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b.AddSegment(codegen.OutputSegment{Start: 0x8000, Data: []byte{0xa9, 0x00, 0x8d, 0x00, 0x20, 0x4c, 0x00, 0x80}})
	b.AddSegment(codegen.OutputSegment{Start: 0xfffa, Data: []byte{0x00, 0x00, 0x00, 0x80, 0x00, 0x00}})

	out, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if string(out[0:4]) != "NES\x1a" {
		t.Fatalf("header magic = %q", out[0:4])
	}
	prgOff := 16
	prgBytes := out[prgOff : prgOff+8]
	want := []byte{0xa9, 0x00, 0x8d, 0x00, 0x20, 0x4c, 0x00, 0x80}
	if string(prgBytes) != string(want) {
		t.Errorf("PRG bytes = %x; want %x", prgBytes, want)
	}
	resetOff := prgOff + 0x7ffc
	if out[resetOff] != 0x00 || out[resetOff+1] != 0x80 {
		t.Errorf("reset vector = %x %x; want 00 80", out[resetOff], out[resetOff+1])
	}
}

func TestSNESChecksumScenario(t *testing.T) {
	cfg := romConfig(target.WDC65816)
	cfg.Flags[".lorom"] = true
	cfg.Strings[".snes_title"] = "TEST"

	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b.AddSegment(codegen.OutputSegment{Start: 0x8000, Data: []byte{0x78, 0x4c, 0x00, 0x80}})

	out, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 32*1024 {
		t.Fatalf("ROM size = %d; want 32768", len(out))
	}
	complement := uint16(out[0x7ffc]) | uint16(out[0x7ffd])<<8
	checksum := uint16(out[0x7ffe]) | uint16(out[0x7fff])<<8
	if complement+checksum != 0xffff {
		t.Errorf("complement %#04x + checksum %#04x != 0xffff", complement, checksum)
	}
}

func TestGameBoyHeaderScenario(t *testing.T) {
	cfg := romConfig(target.SM83)
	cfg.Strings[".gb_title"] = "HELLO"

	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b.AddSegment(codegen.OutputSegment{Start: 0x0150, Data: []byte{0x00}})

	out, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if string(out[0x0100:0x0104]) != "\x00\xc3\x50\x01" {
		t.Fatalf("entry stub = %x", out[0x0100:0x0104])
	}
	for i := 0; i < 48; i++ {
		if out[0x0104+i] != gbNintendoLogo[i] {
			t.Fatalf("logo byte %d = %#x; want %#x", i, out[0x0104+i], gbNintendoLogo[i])
		}
	}
	want := gbHeaderChecksum(out)
	if out[0x014d] != want {
		t.Errorf("header checksum = %#x; want %#x", out[0x014d], want)
	}
}

func TestAtari2600RejectsInvalidSize(t *testing.T) {
	cfg := romConfig(target.MOS6507)
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b.AddSegment(codegen.OutputSegment{Bank: 0, Start: 0xf000, Data: make([]byte, 40000)})
	if _, err := b.Build(); err == nil {
		t.Fatal("expected ROMSizeInvalid for a non-power-of-two-KiB 2600 image")
	}
}

func TestLynxRejectsUnsupportedBank(t *testing.T) {
	cfg := romConfig(target.WDC65C02)
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b.AddSegment(codegen.OutputSegment{Bank: 2, Start: 0, Data: make([]byte, 1)})
	_, err = b.Build()
	if err == nil {
		t.Fatal("expected a HeaderConflict error for an unsupported lynx bank")
	}
	if romErr, ok := err.(*Error); !ok || romErr.Kind != HeaderConflict {
		t.Errorf("err = %v; want *Error{Kind: HeaderConflict}", err)
	}
}
