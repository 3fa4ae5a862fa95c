package service

import (
	"context"
	"errors"
	"fmt"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var _ port.Ingestor = (*Ingest)(nil)

// Ingest registers source images: uploads from the API, administrative purges
// and re-indexing of an existing on-disk image tree.
type Ingest struct {
	catalog port.Catalog
	source  port.BlobStore
}

func NewIngest(catalog port.Catalog, source port.BlobStore) *Ingest {
	return &Ingest{catalog: catalog, source: source}
}

// Upload sniffs the payload's mime type, stores the bytes under their
// content-addressed key and registers a catalog record. The blob write happens
// first: an orphaned blob is harmless, a record without its blob is not.
func (s *Ingest) Upload(ctx context.Context, category string, data []byte) (*domain.ImageRecord, error) {
	mime, err := sniffImageMIME(data)
	if err != nil {
		return nil, err
	}

	fingerprint := domain.Fingerprint(data)
	key := fmt.Sprintf("%s/%s%s", category, fingerprint, domain.ExtensionForMIME(mime))
	if err := s.source.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("storing source blob: %w", err)
	}

	record, err := s.catalog.Register(ctx, mime, category, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("registering image: %w", err)
	}

	log.Info().
		Stringer("ref", record.Ref).
		Str("category", category).
		Str("mime", mime).
		Int("bytes", len(data)).
		Msg("image ingested")

	return record, nil
}

// Purge removes an image record and its source blob. Cached artifacts keyed on
// the old fingerprint are left to orphan; they can never be served again.
func (s *Ingest) Purge(ctx context.Context, ref uuid.UUID) error {
	record, err := s.catalog.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.catalog.Delete(ctx, ref); err != nil {
		return err
	}

	if err := s.source.Delete(ctx, record.StorageKey()); err != nil {
		log.Warn().Err(err).Stringer("ref", ref).Msg("could not remove source blob")
	}

	log.Info().Stringer("ref", ref).Msg("image purged")
	return nil
}

// Refresh walks root, expecting one directory per category with image files
// named `<ref>.<ext>` inside, and registers every file whose ref the catalog
// does not know yet. Filename refs are kept, so re-indexing a tree never
// severs links already handed out, and a second run is a no-op. Categories are
// processed concurrently.
func (s *Ingest) Refresh(ctx context.Context, root string) (int, error) {
	categories, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("reading image root: %w", err)
	}

	var registered atomic.Int64
	g, ctx := errgroup.WithContext(ctx)

	for _, category := range categories {
		if !category.IsDir() {
			continue
		}

		g.Go(func() error {
			files, err := os.ReadDir(filepath.Join(root, category.Name()))
			if err != nil {
				return fmt.Errorf("reading category %s: %w", category.Name(), err)
			}

			for _, file := range files {
				if file.IsDir() {
					continue
				}
				path := filepath.Join(root, category.Name(), file.Name())

				ref, err := uuid.FromString(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
				if err != nil {
					log.Debug().Str("path", path).Msg("file name carries no ref, skipping")
					continue
				}

				if _, err := s.catalog.Resolve(ctx, ref); err == nil {
					continue
				} else if !errors.Is(err, domain.ErrUnknownImage) {
					return fmt.Errorf("resolving %s: %w", ref, err)
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}

				if err := s.restore(ctx, ref, category.Name(), data); err != nil {
					log.Warn().Err(err).Str("path", path).Msg("skipping file during refresh")
					continue
				}
				registered.Add(1)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(registered.Load()), err
	}

	log.Info().Int64("images", registered.Load()).Str("root", root).Msg("refresh finished")
	return int(registered.Load()), nil
}

// restore stores the blob under its content-addressed key and registers the
// record under the ref recovered from the filename.
func (s *Ingest) restore(ctx context.Context, ref uuid.UUID, category string, data []byte) error {
	mime, err := sniffImageMIME(data)
	if err != nil {
		return err
	}

	fingerprint := domain.Fingerprint(data)
	key := fmt.Sprintf("%s/%s%s", category, fingerprint, domain.ExtensionForMIME(mime))
	if err := s.source.Put(ctx, key, data); err != nil {
		return fmt.Errorf("storing source blob: %w", err)
	}

	if _, err := s.catalog.Restore(ctx, ref, mime, category, fingerprint); err != nil {
		return fmt.Errorf("restoring image %s: %w", ref, err)
	}

	log.Info().Stringer("ref", ref).Str("category", category).Msg("image restored")
	return nil
}

func sniffImageMIME(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", domain.ErrUnsupportedOperation)
	}

	mime := http.DetectContentType(data)
	switch mime {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return mime, nil
	default:
		return "", fmt.Errorf("%w: payload type %s is not an image", domain.ErrUnsupportedOperation, mime)
	}
}
