package main

import (
	"testing"

	"github.com/TheAnsarya/poppy/target"
)

func TestSplitDefine(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantValue int64
		wantOK    bool
	}{
		{"SCREEN_WIDTH=256", "SCREEN_WIDTH", 256, true},
		{"DEBUG=0", "DEBUG", 0, true},
		{"NOEQUALS", "", 0, false},
	}
	for _, tt := range tests {
		name, value, ok := splitDefine(tt.in)
		if ok != tt.wantOK || name != tt.wantName || value != tt.wantValue {
			t.Errorf("splitDefine(%q) = %q, %d, %v, want %q, %d, %v",
				tt.in, name, value, ok, tt.wantName, tt.wantValue, tt.wantOK)
		}
	}
}

func TestParseDefines(t *testing.T) {
	got, err := parseDefines([]string{"A=1", "B=2"})
	if err != nil {
		t.Fatalf("parseDefines: %v", err)
	}
	if got["A"] != 1 || got["B"] != 2 {
		t.Errorf("parseDefines = %v", got)
	}

	if _, err := parseDefines([]string{"BAD"}); err == nil {
		t.Error("expected an error for a define with no '='")
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		source string
		tag    target.Tag
		want   string
	}{
		{"game.pasm", target.MOS6502, "game.nes"},
		{"game.pasm", target.WDC65816, "game.sfc"},
		{"game.pasm", target.SM83, "game.gb"},
		{"sub/dir/game.pasm", target.ARM7TDMI, "sub/dir/game.gba"},
		{"noext", target.M68000, "noext.bin"},
	}
	for _, tt := range tests {
		got := defaultOutputPath(tt.source, tt.tag)
		if got != tt.want {
			t.Errorf("defaultOutputPath(%q, %s) = %q, want %q", tt.source, tt.tag, got, tt.want)
		}
	}
}
