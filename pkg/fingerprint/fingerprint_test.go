package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHasher_Hash(t *testing.T) {
	t.Run("Known Content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.txt")
		if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
			t.Fatal(err)
		}

		hasher := NewHasher()
		got, err := hasher.Hash(path)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		// sha256("hello")
		want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
		if got != want {
			t.Errorf("Hash = %q, want %q", got, want)
		}
	})

	t.Run("Empty File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}

		got, err := NewHasher().Hash(path)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if got != want {
			t.Errorf("Hash = %q, want %q", got, want)
		}
	})

	t.Run("Larger Than One Chunk", func(t *testing.T) {
		// Spans multiple read chunks; result must equal a one-shot hash.
		path := filepath.Join(t.TempDir(), "big.bin")
		content := strings.Repeat("0123456789abcdef", 3*hashChunkSize/16)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		hasher := NewHasher()
		first, err := hasher.Hash(path)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		second, err := hasher.Hash(path)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		if first != second || len(first) != 64 {
			t.Errorf("expected stable 64-char digest, got %q and %q", first, second)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		got, err := NewHasher().Hash(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Fatal("expected an error for a missing file, got nil")
		}
		if got != "" {
			t.Errorf("expected the empty-hash sentinel on failure, got %q", got)
		}
	})
}

func TestNewRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	rec := NewRecord(path, info)
	if rec.Path != path {
		t.Errorf("Path = %q, want %q", rec.Path, path)
	}
	if rec.Size != 5 {
		t.Errorf("Size = %d, want 5", rec.Size)
	}
	if rec.ModTime != modTime.UnixNano() {
		t.Errorf("ModTime = %d, want %d", rec.ModTime, modTime.UnixNano())
	}
	if rec.ContentHash != "" {
		t.Errorf("a fresh record must carry no hash, got %q", rec.ContentHash)
	}
}
