package entity

import (
	"github.com/google/uuid"
)

// Document is an opaque uploaded invoice payload. Immutable once submitted;
// consumed exactly once by the analysis pipeline.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	MediaType string    `json:"media_type"`
	Bytes     []byte    `json:"-"`
}

// NewDocument wraps raw bytes as a submittable document.
func NewDocument(data []byte, mediaType, filename string) Document {
	return Document{
		ID:        uuid.New(),
		Filename:  filename,
		MediaType: mediaType,
		Bytes:     data,
	}
}

// Size returns the payload size in bytes.
func (d Document) Size() int64 { return int64(len(d.Bytes)) }
