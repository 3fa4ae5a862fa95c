package domain

import "errors"

var (
	// ErrUnknownImage means the catalog has no record for the requested ref.
	ErrUnknownImage = errors.New("unknown image")
	// ErrSourceUnavailable means the source blob could not be fetched even
	// though the catalog says it should exist.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrDecode means the source bytes are malformed or corrupt.
	ErrDecode = errors.New("image decode failed")
	// ErrUnsupportedOperation means the transform spec asks for something the
	// engine cannot or will not do.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrBlobNotFound is the miss result of a blob store lookup.
	ErrBlobNotFound = errors.New("blob not found")
)
