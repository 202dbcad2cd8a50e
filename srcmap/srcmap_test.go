package srcmap

import (
	"strings"
	"testing"
)

func TestAddLineAndFind(t *testing.T) {
	m := New()
	m.AddLine(0, 0x8000, "main.s", 10)
	m.AddLine(0, 0x8002, "main.s", 11)
	m.AddLine(1, 0x8000, "bank1.s", 3)
	m.Finalize()

	file, line, err := m.Find(0, 0x8002)
	if err != nil || file != "main.s" || line != 11 {
		t.Fatalf("Find(0, 0x8002) = %q, %d, %v; want main.s, 11, nil", file, line, err)
	}
	if _, _, err := m.Find(0, 0x9999); err == nil {
		t.Error("Find on an unknown address should fail")
	}
	file, line, err = m.Find(1, 0x8000)
	if err != nil || file != "bank1.s" || line != 3 {
		t.Fatalf("Find(1, 0x8000) = %q, %d, %v; want bank1.s, 3, nil", file, line, err)
	}
}

func TestAddFileInterns(t *testing.T) {
	m := New()
	a := m.AddFile("main.s")
	b := m.AddFile("inc.s")
	c := m.AddFile("main.s")
	if a != c {
		t.Errorf("AddFile should intern repeated names: got %d and %d", a, c)
	}
	if a == b {
		t.Error("distinct filenames should get distinct indices")
	}
	if len(m.Files) != 2 {
		t.Errorf("len(Files) = %d; want 2", len(m.Files))
	}
}

func TestExportsSortedByLabel(t *testing.T) {
	m := New()
	m.AddExport("zed", 0, 0x8010, 0x8010, true)
	m.AddExport("alpha", 0, 0x8000, 0x8000, true)
	m.Finalize()
	if m.Exports[0].Label != "alpha" || m.Exports[1].Label != "zed" {
		t.Errorf("Exports not sorted: %+v", m.Exports)
	}
}

func TestWriteToRoundTripsRecordCounts(t *testing.T) {
	m := New()
	m.AddLine(0, 0x8000, "main.s", 1)
	m.AddExport("reset", 0, 0x8000, 0x8000, true)
	m.AddExport("NUM_LIVES", 0, 0, 3, false)
	m.Finalize()

	var sb strings.Builder
	if _, err := m.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{"FILES 1", "LINES 1", "EXPORTS 2", "label reset", "const NUM_LIVES"} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteTo output missing %q:\n%s", want, out)
		}
	}
}
