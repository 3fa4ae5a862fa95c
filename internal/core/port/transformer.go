package port

import "imagio/internal/core/domain"

type Transformer interface {
	// Apply decodes source, runs the spec's operations in canonical order and
	// re-encodes. The result is always jpeg, png or gif: a source format that
	// can only be decoded re-encodes losslessly. Pure and deterministic: no
	// I/O, no shared state, safe for concurrent callers. Returns errors
	// wrapping domain.ErrDecode or domain.ErrUnsupportedOperation.
	Apply(source []byte, spec domain.TransformSpec) (*domain.Artifact, error)
}
