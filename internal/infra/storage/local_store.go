package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tg-trade-suite/internal/infra/metrics"
)

var _ ImageStore = (*LocalStore)(nil)

// LocalStore writes chart images under a single upload folder using
// chart_<uuid>.<ext> names, matching what the retention sweeper globs for.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) Put(_ context.Context, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("chart_%s.%s", uuid.NewString(), strings.TrimPrefix(ext, "."))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	metrics.IncImageStored("local", len(data))
	return path, nil
}

// SweepOlderThan removes chart_* files whose mtime is before the cutoff.
// Returns how many files were deleted.
func (s *LocalStore) SweepOlderThan(cutoff time.Time) (int, error) {
	pattern := filepath.Join(s.dir, "chart_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
