// Package media stores user supplied images. Uploads arrive as base64
// strings, are normalised with imaging and land in an ObjectStorage.
package media

import (
	"context"
	"io"
)

// ObjectStorage is the blob backend behind the uploader.
type ObjectStorage interface {
	// Write stores r under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key.
	URL(key string) string
}
