package port

import "context"

type BlobStore interface {
	// Get returns the bytes stored under key, or an error wrapping
	// domain.ErrBlobNotFound when no such blob exists.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, overwriting any previous value. Writers may
	// race on the same key; last write wins.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the blob under key. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, key string) error
}
