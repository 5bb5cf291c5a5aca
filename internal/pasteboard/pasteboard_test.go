package pasteboard

import "testing"

func TestMemoryCounter(t *testing.T) {
	b := NewMemory()
	if b.ChangeCount() != 0 {
		t.Fatalf("initial count = %d", b.ChangeCount())
	}
	_ = b.WriteText("abc")
	_ = b.WritePNG([]byte{0x89, 'P', 'N', 'G'})
	_ = b.Clear()
	if got := b.ChangeCount(); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestMemoryContents(t *testing.T) {
	b := NewMemory()
	if _, ok := b.ReadText(); ok {
		t.Error("empty board should have no text")
	}

	_ = b.WriteText("hello")
	if s, ok := b.ReadText(); !ok || s != "hello" {
		t.Errorf("ReadText = %q, %v", s, ok)
	}
	if Has(b.Types(), TypePNG) {
		t.Error("text write should not expose png")
	}

	_ = b.WritePNG([]byte{1, 2, 3})
	if _, ok := b.ReadText(); ok {
		t.Error("png write should replace text")
	}
	if data, ok := b.ReadPNG(); !ok || len(data) != 3 {
		t.Errorf("ReadPNG = %v, %v", data, ok)
	}
}

func TestSetContentsBothFlavors(t *testing.T) {
	b := NewMemory()
	s := "caption"
	b.SetContents(&s, []byte{9})

	types := b.Types()
	if !Has(types, TypePNG) || !Has(types, TypeText) {
		t.Errorf("types = %v", types)
	}
	if b.ChangeCount() != 1 {
		t.Errorf("count = %d, want 1", b.ChangeCount())
	}
}
