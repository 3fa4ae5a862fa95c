package port

import (
	"context"
	"imagio/internal/core/domain"

	"github.com/gofrs/uuid/v5"
)

type Catalog interface {
	// Resolve looks up the record for an external ref, or returns an error
	// wrapping domain.ErrUnknownImage. Safe for unbounded concurrent callers.
	Resolve(ctx context.Context, ref uuid.UUID) (*domain.ImageRecord, error)
	// Register persists a new record, assigning its ref and creation time
	// atomically, and returns the stored record.
	Register(ctx context.Context, mime, category, fingerprint string) (*domain.ImageRecord, error)
	// Restore persists a record under a caller-supplied ref, so an existing
	// image tree can be re-indexed without severing refs already handed out.
	// Restoring a ref that is already registered is an error.
	Restore(ctx context.Context, ref uuid.UUID, mime, category, fingerprint string) (*domain.ImageRecord, error)
	// List returns up to limit records of a category, newest first, skipping
	// offset records.
	List(ctx context.Context, category string, limit, offset int) ([]domain.ImageRecord, error)
	// Delete removes the record for ref, returning an error wrapping
	// domain.ErrUnknownImage if there is none.
	Delete(ctx context.Context, ref uuid.UUID) error
}
