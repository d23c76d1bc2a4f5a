// Package storage persists uploaded chart images. The database only keeps
// the returned path; the files themselves are owned here and subject to the
// retention policy, not to any SQL lifecycle.
package storage

import "context"

// ImageStore abstracts where chart images land (local folder or S3).
type ImageStore interface {
	// Put writes the image and returns the stable path recorded in
	// chart_analyses.image_path.
	Put(ctx context.Context, data []byte, ext string) (string, error)
	Backend() string
}
