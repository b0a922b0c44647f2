package entity

import (
	"errors"
	"fmt"
)

// MaxFileSize is the maximum allowed media size (5 MB, the WhatsApp image limit).
const MaxFileSize = 5 << 20

// ErrFileTooLarge is returned when an uploaded file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, MaxFileSize>>20)
}

// FileMetadata holds GridFS metadata for a stored media file.
type FileMetadata struct {
	MIMEType string `bson:"mime_type"`
	Platform string `bson:"platform"`
	Phone    string `bson:"phone"`
	Purpose  string `bson:"purpose"` // "worker_photo"
}
