// Package blob abstracts where bulk seed assets are fetched from.
// Deployments ship the CSV tables either on local disk or in an object
// store; the loader only ever reads them.
package blob

import (
	"context"
	"io"
	"os"
)

// Fetcher opens named assets from a backend.
type Fetcher interface {
	// Get opens a reader for the asset stored under key. Backends return
	// an error satisfying os.ErrNotExist semantics when the asset is
	// absent; callers treat any failure as "no data".
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Empty is a Fetcher with no assets. Used when no bulk source is
// configured.
type Empty struct{}

func (Empty) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}
