// Package transform implements the pure decode-transform-encode engine.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"

	"github.com/disintegration/imaging"

	// Sources may be webp; imaging registers the other decoders itself.
	_ "golang.org/x/image/webp"
)

var _ port.Transformer = (*Engine)(nil)

// Engine applies a transform spec to raw image bytes. It holds no state and
// is safe for any number of concurrent callers.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Apply validates the spec, decodes, then runs the operations in canonical
// order: crop, resize, re-encode. Validation happens strictly before decode so
// a hostile spec never triggers codec work.
func (e *Engine) Apply(source []byte, spec domain.TransformSpec) (*domain.Artifact, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	img, sourceFormat, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	if c := spec.Crop; c != nil {
		rect := image.Rect(c.X, c.Y, c.X+c.W, c.Y+c.H)
		if !rect.Overlaps(img.Bounds()) {
			return nil, fmt.Errorf("%w: crop %v lies outside image bounds %v",
				domain.ErrUnsupportedOperation, rect, img.Bounds())
		}
		img = imaging.Crop(img, rect)
	}

	if r := spec.Resize; r != nil {
		img = resize(img, r)
	}

	outMIME := encodable(domain.OutputMIME(spec, domain.MIMEForExtension("."+sourceFormat)))

	data, err := encode(img, outMIME, spec.Quality)
	if err != nil {
		return nil, err
	}

	return &domain.Artifact{Data: data, MIME: outMIME}, nil
}

// encodable maps a mime type the engine can decode but not encode onto the
// lossless format it re-encodes as. Only webp falls in that gap.
func encodable(mime string) string {
	if mime == "image/webp" {
		return "image/png"
	}
	return mime
}

func resize(img image.Image, r *domain.Resize) image.Image {
	// A single dimension means "scale by aspect ratio".
	if r.W == 0 || r.H == 0 {
		return imaging.Resize(img, r.W, r.H, imaging.Lanczos)
	}

	switch r.Fit {
	case domain.FitCover:
		return imaging.Fill(img, r.W, r.H, imaging.Center, imaging.Lanczos)
	case domain.FitFill:
		return imaging.Resize(img, r.W, r.H, imaging.Lanczos)
	default:
		return imaging.Fit(img, r.W, r.H, imaging.Lanczos)
	}
}

func encode(img image.Image, mime string, quality int) ([]byte, error) {
	if quality == 0 {
		quality = domain.DefaultQuality
	}

	var buf bytes.Buffer
	var err error

	switch mime {
	case "image/png":
		err = imaging.Encode(&buf, img, imaging.PNG)
	case "image/gif":
		err = imaging.Encode(&buf, img, imaging.GIF)
	case "image/jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", domain.ErrUnsupportedOperation, mime)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", mime, err)
	}

	return buf.Bytes(), nil
}
