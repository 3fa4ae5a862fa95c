package domain

import (
	"fmt"
	"strings"
)

// MaxDimension caps target and crop dimensions so an absurd request is
// rejected before any decode work happens.
const MaxDimension = 8192

// DefaultQuality is the lossy encode quality applied when a spec does not set
// one.
const DefaultQuality = 85

// Fit controls how a resize maps the source onto the target box.
type Fit string

const (
	// FitContain scales the image to fit inside the box, preserving aspect.
	FitContain Fit = "contain"
	// FitCover scales and center-crops the image to fill the box exactly.
	FitCover Fit = "cover"
	// FitFill stretches the image to the box, ignoring aspect.
	FitFill Fit = "fill"
)

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Resize is a target box. One of W or H may be zero, meaning "derive from the
// aspect ratio"; both zero is invalid.
type Resize struct {
	W   int
	H   int
	Fit Fit
}

// TransformSpec is a normalized set of transform operations. The struct itself
// is the normal form: however a request orders its operations, they land in
// these fields, and both serialization and execution follow the one canonical
// order crop, resize, re-encode.
type TransformSpec struct {
	Crop   *Rect
	Resize *Resize
	// Format is the target encoding ("jpeg", "png", "gif"). Empty means the
	// output format is derived from the source.
	Format string
	// Quality applies to lossy encodes, 1-100. Zero means DefaultQuality.
	Quality int
}

// IsIdentity reports whether the spec changes nothing, in which case the
// source bytes are served as-is and nothing is cached.
func (s TransformSpec) IsIdentity() bool {
	return s.Crop == nil && s.Resize == nil && s.Format == ""
}

// Validate checks spec bounds without touching any pixel data. It is the fast
// path guard the engine and the pipeline both run before decode work.
func (s TransformSpec) Validate() error {
	if c := s.Crop; c != nil {
		if c.X < 0 || c.Y < 0 {
			return fmt.Errorf("%w: crop origin (%d,%d) is negative", ErrUnsupportedOperation, c.X, c.Y)
		}
		if c.W <= 0 || c.H <= 0 {
			return fmt.Errorf("%w: crop size %dx%d is not positive", ErrUnsupportedOperation, c.W, c.H)
		}
		if c.W > MaxDimension || c.H > MaxDimension {
			return fmt.Errorf("%w: crop size %dx%d exceeds %d", ErrUnsupportedOperation, c.W, c.H, MaxDimension)
		}
	}

	if r := s.Resize; r != nil {
		if r.W == 0 && r.H == 0 {
			return fmt.Errorf("%w: resize needs a width or a height", ErrUnsupportedOperation)
		}
		if r.W < 0 || r.H < 0 {
			return fmt.Errorf("%w: resize %dx%d is not positive", ErrUnsupportedOperation, r.W, r.H)
		}
		if r.W > MaxDimension || r.H > MaxDimension {
			return fmt.Errorf("%w: resize %dx%d exceeds %d", ErrUnsupportedOperation, r.W, r.H, MaxDimension)
		}
		switch r.Fit {
		case "", FitContain, FitCover, FitFill:
		default:
			return fmt.Errorf("%w: unknown fit mode %q", ErrUnsupportedOperation, r.Fit)
		}
		if (r.W == 0 || r.H == 0) && r.Fit != "" && r.Fit != FitContain {
			return fmt.Errorf("%w: fit %q needs both dimensions", ErrUnsupportedOperation, r.Fit)
		}
	}

	switch s.Format {
	case "", "jpeg", "png", "gif":
	default:
		return fmt.Errorf("%w: unknown target format %q", ErrUnsupportedOperation, s.Format)
	}

	if s.Quality < 0 || s.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range", ErrUnsupportedOperation, s.Quality)
	}

	return nil
}

// Canonical returns the byte-exact serialization of the spec that feeds the
// cache key. Equal specs always serialize identically: field order is fixed,
// absent operations are omitted and defaults are applied before rendering.
func (s TransformSpec) Canonical() string {
	var b strings.Builder

	if c := s.Crop; c != nil {
		fmt.Fprintf(&b, "c:%d,%d,%d,%d;", c.X, c.Y, c.W, c.H)
	}

	if r := s.Resize; r != nil {
		fit := r.Fit
		if fit == "" {
			fit = FitContain
		}
		fmt.Fprintf(&b, "r:%dx%d,%s;", r.W, r.H, fit)
	}

	format := s.Format
	if format == "" {
		format = "auto"
	}
	quality := s.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	fmt.Fprintf(&b, "e:%s,q%d", format, quality)

	return b.String()
}

// OutputMIME returns the mime type a render of this spec will produce, without
// doing any decode work. With no explicit target format, formats that can
// carry alpha re-encode as PNG and everything else as JPEG.
func OutputMIME(s TransformSpec, sourceMIME string) string {
	if s.Format != "" {
		return MIMEForFormat(s.Format)
	}
	if s.IsIdentity() {
		return sourceMIME
	}
	switch sourceMIME {
	case "image/png", "image/gif", "image/webp":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// MIMEForFormat maps a target encoding name to its mime type.
func MIMEForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
