package service

import (
	"context"
	"errors"
	"fmt"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"
	"runtime"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var _ port.Renderer = (*Pipeline)(nil)

// Pipeline orchestrates one render request: resolve the ref, derive the cache
// key, serve from cache, and on a miss fetch-transform-populate with all
// concurrent requests for the same key collapsed into a single computation.
type Pipeline struct {
	catalog port.Catalog
	source  port.BlobStore
	cache   port.BlobStore
	engine  port.Transformer

	group singleflight.Group
	// cpu bounds concurrent decode/transform work so image processing cannot
	// starve request intake.
	cpu *semaphore.Weighted
}

func NewPipeline(catalog port.Catalog, source, cache port.BlobStore, engine port.Transformer) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		source:  source,
		cache:   cache,
		engine:  engine,
		cpu:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Render returns the transformed bytes and mime type for one image and spec.
func (p *Pipeline) Render(ctx context.Context, ref uuid.UUID, spec domain.TransformSpec) (*domain.Artifact, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	record, err := p.catalog.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if spec.IsIdentity() {
		return p.original(ctx, record)
	}

	key := domain.DeriveCacheKey(record.Ref, spec, record.Fingerprint)
	l := log.With().
		Stringer("ref", ref).
		Str("key", key).
		Str("spec", spec.Canonical()).
		Logger()

	if data, err := p.cache.Get(ctx, key); err == nil {
		l.Debug().Msg("cache hit")
		return &domain.Artifact{Data: data, MIME: domain.OutputMIME(spec, record.MIME)}, nil
	} else if !errors.Is(err, domain.ErrBlobNotFound) {
		l.Warn().Err(err).Msg("cache lookup failed, computing instead")
	}

	// The computation runs detached from this caller's deadline: a timed-out
	// caller abandons its wait below, but other waiters of the same key still
	// need the result.
	ch := p.group.DoChan(key, func() (any, error) {
		return p.compute(context.WithoutCancel(ctx), l, record, spec, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.Debug().Msg("joined in-flight computation")
		}
		return res.Val.(*domain.Artifact), nil
	case <-ctx.Done():
		l.Debug().Msg("caller gave up waiting for render")
		return nil, ctx.Err()
	}
}

// compute is the single-flight body: exactly one invocation runs per in-flight
// cache key, and every waiter observes its outcome.
func (p *Pipeline) compute(ctx context.Context, l zerolog.Logger, record *domain.ImageRecord,
	spec domain.TransformSpec, key string) (*domain.Artifact, error) {
	// A request that lost the claim race may land here after the winner
	// already populated the cache.
	if data, err := p.cache.Get(ctx, key); err == nil {
		l.Debug().Msg("cache populated while waiting")
		return &domain.Artifact{Data: data, MIME: domain.OutputMIME(spec, record.MIME)}, nil
	}

	source, err := p.source.Get(ctx, record.StorageKey())
	if err != nil {
		l.Error().Err(err).Str("storageKey", record.StorageKey()).Msg("source fetch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	if err := p.cpu.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	artifact, err := p.engine.Apply(source, spec)
	p.cpu.Release(1)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed cache write degrades to uncached serving, it
	// never fails the request.
	if err := p.cache.Put(ctx, key, artifact.Data); err != nil {
		l.Warn().Err(err).Msg("failed to populate cache")
	} else {
		l.Debug().Int("bytes", len(artifact.Data)).Msg("cache populated")
	}

	return artifact, nil
}

// original serves the untransformed source bytes. Nothing is cached; the
// source store is the durable home of these bytes already.
func (p *Pipeline) original(ctx context.Context, record *domain.ImageRecord) (*domain.Artifact, error) {
	data, err := p.source.Get(ctx, record.StorageKey())
	if err != nil {
		log.Error().Err(err).Str("storageKey", record.StorageKey()).Msg("source fetch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return &domain.Artifact{Data: data, MIME: record.MIME}, nil
}
