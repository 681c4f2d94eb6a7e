package storage

import (
	"context"
	"io"
)

// BlobStore is the byte-storage capability behind document revisions.
// Handles are opaque to callers; only the store can resolve them.
type BlobStore interface {
	// Put streams the reader into the store and returns the handle and
	// the number of bytes written. ext carries the original file
	// extension (".pdf") so served content keeps a sensible name.
	Put(ctx context.Context, r io.Reader, ext string) (handle string, size int64, err error)

	// Open returns a reader over the stored bytes. The caller must
	// close it, including on early client disconnect.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Delete removes the stored bytes.
	Delete(ctx context.Context, handle string) error

	// URL returns the public URL a client can fetch the blob from.
	URL(handle string) string
}
