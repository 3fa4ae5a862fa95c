package port

import (
	"context"
	"imagio/internal/core/domain"

	"github.com/gofrs/uuid/v5"
)

type Renderer interface {
	// Render produces the transformed artifact for one image and spec,
	// serving from the derived-artifact cache when possible.
	Render(ctx context.Context, ref uuid.UUID, spec domain.TransformSpec) (*domain.Artifact, error)
}

type Ingestor interface {
	// Upload stores raw image bytes and registers them under a category,
	// returning the new catalog record.
	Upload(ctx context.Context, category string, data []byte) (*domain.ImageRecord, error)
	// Purge removes an image from the catalog and its blob from source
	// storage. Cached artifacts are left to orphan.
	Purge(ctx context.Context, ref uuid.UUID) error
	// Refresh re-indexes a directory tree of category/image files into the
	// catalog and source store, returning the number of images registered.
	Refresh(ctx context.Context, root string) (int, error)
}
