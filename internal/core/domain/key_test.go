package domain

import (
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
)

func TestDeriveCacheKeyDeterministic(t *testing.T) {
	ref := uuid.Must(uuid.FromString("8ec67f05-6b1a-46a4-a4dc-e6b4a1f0807a"))
	spec := TransformSpec{Resize: &Resize{W: 100, H: 100}}
	fingerprint := Fingerprint([]byte("source bytes"))

	first := DeriveCacheKey(ref, spec, fingerprint)
	second := DeriveCacheKey(ref, spec, fingerprint)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
}

func TestDeriveCacheKeyVariesWithInputs(t *testing.T) {
	ref := uuid.Must(uuid.NewV4())
	otherRef := uuid.Must(uuid.NewV4())
	spec := TransformSpec{Resize: &Resize{W: 100, H: 100}}
	fingerprint := Fingerprint([]byte("v1"))

	base := DeriveCacheKey(ref, spec, fingerprint)

	assert.NotEqual(t, base, DeriveCacheKey(otherRef, spec, fingerprint))
	assert.NotEqual(t, base, DeriveCacheKey(ref, TransformSpec{Resize: &Resize{W: 100, H: 101}}, fingerprint))
	assert.NotEqual(t, base, DeriveCacheKey(ref, spec, Fingerprint([]byte("v2"))))
}

func TestDeriveCacheKeyEqualForEquivalentSpecs(t *testing.T) {
	ref := uuid.Must(uuid.NewV4())
	fingerprint := Fingerprint([]byte("content"))

	// Defaults applied explicitly or implicitly make no difference.
	implicit := TransformSpec{Resize: &Resize{W: 64, H: 64}}
	explicit := TransformSpec{Resize: &Resize{W: 64, H: 64, Fit: FitContain}, Quality: DefaultQuality}

	assert.Equal(t,
		DeriveCacheKey(ref, implicit, fingerprint),
		DeriveCacheKey(ref, explicit, fingerprint))
}

func TestFingerprintStable(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}

	assert.Equal(t, Fingerprint(data), Fingerprint(data))
	assert.NotEqual(t, Fingerprint(data), Fingerprint([]byte("other")))
	assert.Len(t, Fingerprint(nil), 16)
}
