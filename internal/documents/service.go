// Package documents orchestrates the upload pipeline:
// validate -> extract -> persist metadata -> persist blob -> issue token.
package documents

import (
	"context"
	"errors"
	"time"

	"docarchive-backend/internal/archive"
	"docarchive-backend/internal/extract"
	"docarchive-backend/internal/shared/metrics"
	"docarchive-backend/internal/shared/telemetry"
	"docarchive-backend/internal/shared/util"
	"docarchive-backend/internal/token"
	"docarchive-backend/internal/validate"
)

// ErrInvalidInput marks request-level input problems (missing or unsafe
// file name).
var ErrInvalidInput = errors.New("invalid input")

// Service contains the upload and read-path business logic.
type Service struct {
	Archive archive.Store
	Issuer  *token.Issuer
	// Extract overrides the extraction entry point; nil means
	// extract.Extract. Tests inject counting or failing extractors here.
	Extract extract.Func
}

// UploadInput is one file received from a caller.
type UploadInput struct {
	Name         string
	Size         int64
	LastModified time.Time
	Data         []byte
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	Document archive.Document
	Token    string
	// Degraded is set when the metadata insert succeeded but the blob
	// write failed: the document's text is queryable, the original file
	// is not retrievable.
	Degraded bool
}

// Upload runs the full pipeline for one file. Validation completes before
// extraction starts, and extraction completes before anything is written.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	metrics.IncUploadStarted()
	out, err := s.upload(ctx, in)
	if err != nil {
		metrics.IncUploadFailed()
		return UploadResult{}, err
	}
	metrics.IncUploadCompleted()
	return out, nil
}

func (s *Service) upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	name, err := sanitizeName(in.Name)
	if err != nil {
		return UploadResult{}, err
	}

	size := in.Size
	if size <= 0 {
		size = int64(len(in.Data))
	}
	typ, err := validate.Check(size, in.Data)
	if err != nil {
		return UploadResult{}, err
	}

	start := time.Now()
	res, err := s.extractor()(ctx, in.Data, typ)
	if err != nil {
		return UploadResult{}, err
	}
	metrics.ObserveExtractionDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	doc, err := archive.NewDocument(name, typ, res.Text, size, archive.Metadata{
		ExtractionMethod: res.Method,
		PageCount:        res.PageCount,
	})
	if err != nil {
		return UploadResult{}, err
	}

	stored, err := s.Archive.AddDocument(ctx, doc)
	if err != nil {
		// Metadata insert failed: the upload failed, the blob write
		// is never attempted.
		return UploadResult{}, err
	}

	out := UploadResult{Document: stored}
	blob := archive.FileBlob{
		DocumentID:   stored.ID,
		Payload:      in.Data,
		Name:         name,
		MimeType:     validate.SniffMimeType(in.Data),
		Size:         int64(len(in.Data)),
		LastModified: in.LastModified,
	}
	if err := s.Archive.StoreBlob(ctx, blob); err != nil {
		// Accepted partial state: the document stays, permanently
		// degraded-available. GetBlob resolves to nil for it.
		metrics.IncUploadDegraded()
		telemetry.Warn("upload.blob_store_failed", map[string]any{
			"document_id": stored.ID,
			"name":        stored.Name,
			"err":         err.Error(),
		})
		out.Degraded = true
	}

	signed, err := s.Issuer.Issue(stored.Name)
	if err != nil {
		return UploadResult{}, err
	}
	out.Token = signed
	return out, nil
}

func (s *Service) extractor() extract.Func {
	if s.Extract != nil {
		return s.Extract
	}
	return extract.Extract
}

// List returns every archived document in insertion order.
func (s *Service) List(ctx context.Context) ([]archive.Document, error) {
	return s.Archive.AllDocuments(ctx)
}

// ListByType returns archived documents of one type via the type index.
func (s *Service) ListByType(ctx context.Context, typ archive.DocumentType) ([]archive.Document, error) {
	return s.Archive.DocumentsByType(ctx, typ)
}

// FileFor returns the original payload for a document, or nil for a
// degraded-available document.
func (s *Service) FileFor(ctx context.Context, id int64) (*archive.FileBlob, error) {
	if _, err := s.Archive.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.Archive.GetBlob(ctx, id)
}

func sanitizeName(raw string) (string, error) {
	name, err := util.SanitizeFileName(raw)
	if err != nil {
		return "", ErrInvalidInput
	}
	return name, nil
}
