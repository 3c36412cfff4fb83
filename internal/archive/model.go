package archive

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType is the closed set of document variants the archive accepts.
type DocumentType string

const (
	TypePDF     DocumentType = "pdf"
	TypeTXT     DocumentType = "txt"
	TypeYouTube DocumentType = "youtube"
)

// ParseDocumentType maps a raw tag to a DocumentType, rejecting unknown tags.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypePDF:
		return TypePDF, nil
	case TypeTXT:
		return TypeTXT, nil
	case TypeYouTube:
		return TypeYouTube, nil
	default:
		return "", fmt.Errorf("unknown document type %q", raw)
	}
}

// Valid reports whether t is one of the known variants.
func (t DocumentType) Valid() bool {
	switch t {
	case TypePDF, TypeTXT, TypeYouTube:
		return true
	}
	return false
}

// Metadata carries coarse extraction metadata alongside a document.
type Metadata struct {
	ExtractionMethod string `json:"extractionMethod"`
	PageCount        int    `json:"pageCount,omitempty"`
	Language         string `json:"language,omitempty"`
}

// Document is the persisted metadata record for one processed upload.
// ID and UploadedAt are assigned by the store on insert and are immutable
// afterward; documents are never mutated once created.
type Document struct {
	ID            int64
	Name          string
	Type          DocumentType
	ExtractedText string
	UploadedAt    time.Time
	FileSize      int64
	Metadata      Metadata
}

// FileBlob is the raw payload of one upload, keyed by the owning document id.
// A document may exist without a blob (degraded-available); a blob never
// exists without its document.
type FileBlob struct {
	DocumentID   int64
	Payload      []byte
	Name         string
	MimeType     string
	Size         int64
	LastModified time.Time
}

// NewDocument builds an unpersisted Document, rejecting malformed records
// before they reach a store.
func NewDocument(name string, typ DocumentType, text string, fileSize int64, meta Metadata) (Document, error) {
	if strings.TrimSpace(name) == "" {
		return Document{}, fmt.Errorf("document name is required")
	}
	if !typ.Valid() {
		return Document{}, fmt.Errorf("unknown document type %q", typ)
	}
	if fileSize < 0 {
		return Document{}, fmt.Errorf("negative file size %d", fileSize)
	}
	return Document{
		Name:          name,
		Type:          typ,
		ExtractedText: text,
		FileSize:      fileSize,
		Metadata:      meta,
	}, nil
}
