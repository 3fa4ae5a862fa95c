package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"imagio/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngSource(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegSource(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeArtifact(t *testing.T, artifact *domain.Artifact) (image.Image, string) {
	t.Helper()

	img, format, err := image.Decode(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	return img, format
}

func TestApplyResizeContain(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 200, 100)

	artifact, err := engine.Apply(source, domain.TransformSpec{
		Resize: &domain.Resize{W: 50, H: 50, Fit: domain.FitContain},
	})

	require.NoError(t, err)
	assert.Equal(t, "image/png", artifact.MIME)

	img, format := decodeArtifact(t, artifact)
	assert.Equal(t, "png", format)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestApplyResizeCoverFillsBox(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 200, 100)

	artifact, err := engine.Apply(source, domain.TransformSpec{
		Resize: &domain.Resize{W: 60, H: 60, Fit: domain.FitCover},
	})

	require.NoError(t, err)
	img, _ := decodeArtifact(t, artifact)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestApplyResizeAspectPreserving(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 200, 100)

	artifact, err := engine.Apply(source, domain.TransformSpec{
		Resize: &domain.Resize{W: 100},
	})

	require.NoError(t, err)
	img, _ := decodeArtifact(t, artifact)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestApplyCropThenResize(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 100, 100)

	artifact, err := engine.Apply(source, domain.TransformSpec{
		Crop:   &domain.Rect{X: 10, Y: 10, W: 40, H: 20},
		Resize: &domain.Resize{W: 20, H: 10, Fit: domain.FitFill},
	})

	require.NoError(t, err)
	img, _ := decodeArtifact(t, artifact)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestApplyCropOutsideBounds(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 10, 10)

	_, err := engine.Apply(source, domain.TransformSpec{
		Crop: &domain.Rect{X: 100, Y: 100, W: 10, H: 10},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}

func TestApplyExplicitFormat(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 20, 20)

	artifact, err := engine.Apply(source, domain.TransformSpec{
		Resize: &domain.Resize{W: 10, H: 10},
		Format: "jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", artifact.MIME)

	_, format := decodeArtifact(t, artifact)
	assert.Equal(t, "jpeg", format)
}

func TestApplyAutoFormatFollowsSource(t *testing.T) {
	engine := NewEngine()

	artifact, err := engine.Apply(pngSource(t, 20, 20), domain.TransformSpec{
		Resize: &domain.Resize{W: 10, H: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", artifact.MIME)

	artifact, err = engine.Apply(jpegSource(t, 20, 20), domain.TransformSpec{
		Resize: &domain.Resize{W: 10, H: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", artifact.MIME)
}

func TestApplyIdentitySpecReencodes(t *testing.T) {
	engine := NewEngine()

	artifact, err := engine.Apply(pngSource(t, 12, 8), domain.TransformSpec{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", artifact.MIME)

	img, format := decodeArtifact(t, artifact)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Pt(12, 8), img.Bounds().Size())
}

func TestEncodableNeverReturnsWebp(t *testing.T) {
	// webp sources decode but cannot be encoded back, so an identity spec on a
	// webp source must still land on an encodable output format.
	assert.Equal(t, "image/png", encodable("image/webp"))
	assert.Equal(t, "image/png", encodable("image/png"))
	assert.Equal(t, "image/jpeg", encodable("image/jpeg"))
	assert.Equal(t, "image/gif", encodable("image/gif"))
}

func TestApplyValidatesBeforeDecode(t *testing.T) {
	engine := NewEngine()

	// Garbage bytes with a hostile spec: the spec must be rejected without the
	// decoder ever touching the payload.
	_, err := engine.Apply([]byte("not an image"), domain.TransformSpec{
		Resize: &domain.Resize{W: -1, H: 10},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
	assert.NotErrorIs(t, err, domain.ErrDecode)
}

func TestApplyCorruptSource(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Apply([]byte("not an image"), domain.TransformSpec{
		Resize: &domain.Resize{W: 10, H: 10},
	})

	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestApplyDeterministic(t *testing.T) {
	engine := NewEngine()
	source := pngSource(t, 64, 48)
	spec := domain.TransformSpec{Resize: &domain.Resize{W: 32, H: 32}, Format: "jpeg", Quality: 70}

	first, err := engine.Apply(source, spec)
	require.NoError(t, err)
	second, err := engine.Apply(source, spec)
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.MIME, second.MIME)
}
