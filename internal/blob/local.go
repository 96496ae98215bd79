package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalDir serves assets from a directory on disk. This is the default
// backend: deployments that ship their seed CSVs alongside the binary
// point it at the asset directory.
type LocalDir struct {
	dir string
}

// NewLocalDir constructs a directory-backed fetcher.
func NewLocalDir(dir string) (*LocalDir, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("asset directory is required")
	}
	return &LocalDir{dir: dir}, nil
}

// Get opens the asset at dir/key.
func (l *LocalDir) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.dir, filepath.FromSlash(key)))
}
