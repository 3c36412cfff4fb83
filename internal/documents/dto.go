package documents

import (
	"time"

	"docarchive-backend/internal/archive"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	ExtractedText string           `json:"extractedText"`
	FileSize      int64            `json:"fileSize"`
	Metadata      archive.Metadata `json:"metadata"`
	UploadedAt    time.Time        `json:"uploadedAt"`
}

// UploadResponse is the success envelope for POST /api/upload.
type UploadResponse struct {
	Success  bool             `json:"success"`
	Document DocumentResponse `json:"document"`
	Token    string           `json:"token"`
}

func toResponse(doc archive.Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		Name:          doc.Name,
		Type:          string(doc.Type),
		ExtractedText: doc.ExtractedText,
		FileSize:      doc.FileSize,
		Metadata:      doc.Metadata,
		UploadedAt:    doc.UploadedAt,
	}
}
