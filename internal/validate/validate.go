// Package validate is the terminal gate in front of the extractor: nothing
// is extracted or persisted for a file that fails here.
package validate

import (
	"errors"
	"net/http"
	"strings"

	"docarchive-backend/internal/archive"
)

// MaxFileSize is the single upload limit for every path, 50 MB.
const MaxFileSize = 50 << 20

// SniffLen is how many leading bytes type detection looks at.
const SniffLen = 512

var (
	ErrTooLarge        = errors.New("File exceeds maximum size of 50MB")
	ErrUnsupportedType = errors.New("Unsupported file type")
)

// allowedTypes maps sniffed mime types to document variants. Classification
// uses file content, never the filename extension, so spoofed extensions
// cannot smuggle an unsupported payload through.
var allowedTypes = map[string]archive.DocumentType{
	"application/pdf": archive.TypePDF,
	"text/plain":      archive.TypeTXT,
}

// Check validates the declared size and the sniffed content type of an
// upload. head must hold the first bytes of the payload (SniffLen is enough).
func Check(size int64, head []byte) (archive.DocumentType, error) {
	if size > MaxFileSize {
		return "", ErrTooLarge
	}
	typ, ok := allowedTypes[SniffMimeType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return typ, nil
}

// SniffMimeType detects the content type of head and strips parameters such
// as charset.
func SniffMimeType(head []byte) string {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	mime := http.DetectContentType(head)
	return strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
}
