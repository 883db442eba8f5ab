package rag

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadDocument_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("The games were postponed to 2021."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	text, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "The games were postponed to 2021." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReadDocument_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.txt")
	if err := os.WriteFile(path, []byte("  \n "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDocument(path); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestReadDocument_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDocument(path); err == nil {
		t.Fatalf("expected error for invalid pdf")
	}
}
