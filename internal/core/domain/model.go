package domain

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ImageRecord is one catalog entry describing an ingested source image. Records
// are immutable once registered; re-ingesting changed content produces a new
// record with a new ref and fingerprint.
type ImageRecord struct {
	ID          int64
	MIME        string
	Category    string
	Ref         uuid.UUID
	Fingerprint string
	CreatedAt   time.Time
}

// StorageKey returns the source blob key for this record. Keys are
// content-addressed, so a re-ingest with different bytes never overwrites the
// blob an older record still points at.
func (r *ImageRecord) StorageKey() string {
	return fmt.Sprintf("%s/%s%s", r.Category, r.Fingerprint, ExtensionForMIME(r.MIME))
}

// Artifact is a transformed payload together with its output mime type.
type Artifact struct {
	Data []byte
	MIME string
}

// ExtensionForMIME maps a supported image mime type to a file extension.
// Unknown types get ".bin" so a storage key is always derivable.
func ExtensionForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// MIMEForExtension is the inverse of ExtensionForMIME, used when re-indexing
// images found on disk.
func MIMEForExtension(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
