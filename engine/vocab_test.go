package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	content := "<blk> 0\n▁hello 1\nworld 2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing vocab fixture: %v", err)
	}

	vocab, err := loadVocabulary(path)
	if err != nil {
		t.Fatalf("loadVocabulary: %v", err)
	}
	if vocab.size() != 3 {
		t.Fatalf("expected 3 tokens, got %d", vocab.size())
	}
	if vocab.blankID != 0 {
		t.Errorf("expected blankID 0 for explicit <blk> token, got %d", vocab.blankID)
	}
}

func TestLoadVocabulary_DefaultBlankWhenUnmarked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(path, []byte("a 0\nb 1\n"), 0644); err != nil {
		t.Fatalf("writing vocab fixture: %v", err)
	}

	vocab, err := loadVocabulary(path)
	if err != nil {
		t.Fatalf("loadVocabulary: %v", err)
	}
	if vocab.blankID != 0 {
		t.Errorf("expected default blankID 0, got %d", vocab.blankID)
	}
}

func TestLoadVocabulary_BlankIDPinnedToZeroRegardlessOfMarkerPosition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	// A non-blank token at index 0 plus an unrelated literal "<blk>" token
	// elsewhere in the file must not relocate blankID away from 0.
	content := "a 0\n▁hello 1\n<blk> 2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing vocab fixture: %v", err)
	}

	vocab, err := loadVocabulary(path)
	if err != nil {
		t.Fatalf("loadVocabulary: %v", err)
	}
	if vocab.blankID != 0 {
		t.Errorf("expected blankID pinned to 0, got %d", vocab.blankID)
	}
}

func TestDetokenize_WordBoundaryMarker(t *testing.T) {
	v := &vocabulary{tokens: []string{"<blk>", "▁hello", "▁world", "!"}, blankID: 0}
	got := v.detokenize([]int{1, 2, 3})
	want := "hello world!"
	if got != want {
		t.Errorf("detokenize() = %q, want %q", got, want)
	}
}

func TestDetokenize_IgnoresOutOfRangeIDs(t *testing.T) {
	v := &vocabulary{tokens: []string{"<blk>", "▁ok"}, blankID: 0}
	got := v.detokenize([]int{1, 99, -1})
	if got != "ok" {
		t.Errorf("detokenize() = %q, want %q", got, "ok")
	}
}
