package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tg-trade-suite/internal/domain"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	// pad so small test fixtures pass the minimum-size gate
	for buf.Len() < minFileSize {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	maxSize := int64(5 * 1024 * 1024)

	ext, err := ValidateImage(pngBytes(t, 200, 200), "PNG", maxSize)
	if err != nil {
		t.Fatalf("valid png rejected: %v", err)
	}
	if ext != "png" {
		t.Fatalf("ext = %q, want png", ext)
	}

	_, err = ValidateImage(pngBytes(t, 50, 200), "png", maxSize)
	if !errors.Is(err, domain.ErrImageTooSmall) {
		t.Fatalf("tiny dimensions: got %v, want ErrImageTooSmall", err)
	}

	_, err = ValidateImage([]byte("tiny"), "png", maxSize)
	if !errors.Is(err, domain.ErrImageTooSmall) {
		t.Fatalf("tiny file: got %v, want ErrImageTooSmall", err)
	}

	_, err = ValidateImage(pngBytes(t, 200, 200), "png", 64)
	if !errors.Is(err, domain.ErrImageTooLarge) {
		t.Fatalf("oversized file: got %v, want ErrImageTooLarge", err)
	}

	junk := append([]byte("GIF89a"), make([]byte, minFileSize)...)
	_, err = ValidateImage(junk, "gif", maxSize)
	if !errors.Is(err, domain.ErrUnsupportedImage) {
		t.Fatalf("gif: got %v, want ErrUnsupportedImage", err)
	}
}

func TestLocalStorePutAndSweep(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	path, err := store.Put(context.Background(), pngBytes(t, 150, 150), "png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "chart_") || !strings.HasSuffix(base, ".png") {
		t.Fatalf("unexpected file name %q", base)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	// Fresh file survives a sweep with an old cutoff.
	n, err := store.SweepOlderThan(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("swept %d files, want 0", n)
	}

	// Backdate the file and sweep again.
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	n, err = store.SweepOlderThan(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d files, want 1", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired file still present")
	}
}
