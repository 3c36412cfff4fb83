package documents

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"docarchive-backend/internal/archive"
	"docarchive-backend/internal/extract"
	"docarchive-backend/internal/token"
	"docarchive-backend/internal/validate"
)

// flakyStore wraps a MemoryStore and injects failures per operation.
type flakyStore struct {
	*archive.MemoryStore
	failAddDocument bool
	failStoreBlob   bool
	storeBlobCalls  atomic.Int64
}

func (s *flakyStore) AddDocument(ctx context.Context, doc archive.Document) (archive.Document, error) {
	if s.failAddDocument {
		return archive.Document{}, &archive.StorageError{
			Kind: archive.KindTxAborted,
			Op:   "add document",
			Err:  errors.New("injected failure"),
		}
	}
	return s.MemoryStore.AddDocument(ctx, doc)
}

func (s *flakyStore) StoreBlob(ctx context.Context, blob archive.FileBlob) error {
	s.storeBlobCalls.Add(1)
	if s.failStoreBlob {
		return &archive.StorageError{
			Kind: archive.KindQuota,
			Op:   "store blob",
			Err:  errors.New("injected failure"),
		}
	}
	return s.MemoryStore.StoreBlob(ctx, blob)
}

func newTestService(t *testing.T, store archive.Store) *Service {
	t.Helper()
	issuer, err := token.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return &Service{Archive: store, Issuer: issuer}
}

func TestUploadTXTHappyPath(t *testing.T) {
	store := archive.NewMemoryStore()
	svc := newTestService(t, store)

	out, err := svc.Upload(context.Background(), UploadInput{
		Name: "notes.txt",
		Data: []byte("plain text body"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if out.Document.ID == 0 {
		t.Fatal("expected persisted document with id")
	}
	if out.Document.ExtractedText != "plain text body" {
		t.Fatalf("expected passthrough text, got %q", out.Document.ExtractedText)
	}
	if out.Document.Metadata.ExtractionMethod != extract.MethodTXT {
		t.Fatalf("expected txt method, got %q", out.Document.Metadata.ExtractionMethod)
	}
	if parts := strings.Split(out.Token, "."); len(parts) != 3 {
		t.Fatalf("expected signed token, got %q", out.Token)
	}
	if out.Degraded {
		t.Fatal("expected fully stored upload")
	}

	blob, err := store.GetBlob(context.Background(), out.Document.ID)
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if blob == nil || string(blob.Payload) != "plain text body" {
		t.Fatalf("expected original payload stored, got %+v", blob)
	}
	if blob.MimeType != "text/plain" {
		t.Fatalf("expected sniffed mime type, got %q", blob.MimeType)
	}
}

func TestUploadOversizeNeverReachesExtractor(t *testing.T) {
	svc := newTestService(t, archive.NewMemoryStore())

	var extractorCalls atomic.Int64
	svc.Extract = func(ctx context.Context, data []byte, typ archive.DocumentType) (extract.Result, error) {
		extractorCalls.Add(1)
		return extract.Result{}, nil
	}

	_, err := svc.Upload(context.Background(), UploadInput{
		Name: "huge.txt",
		Size: validate.MaxFileSize + 1,
		Data: []byte("small body, oversized declaration"),
	})
	if !errors.Is(err, validate.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if got := extractorCalls.Load(); got != 0 {
		t.Fatalf("validation must gate extraction, extractor ran %d times", got)
	}
}

func TestUploadUnsupportedType(t *testing.T) {
	svc := newTestService(t, archive.NewMemoryStore())

	png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	_, err := svc.Upload(context.Background(), UploadInput{Name: "image.png", Data: png})
	if !errors.Is(err, validate.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadRejectsTraversalName(t *testing.T) {
	svc := newTestService(t, archive.NewMemoryStore())

	_, err := svc.Upload(context.Background(), UploadInput{
		Name: "../../etc/passwd",
		Data: []byte("text"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadMetadataFailureSkipsBlob(t *testing.T) {
	store := &flakyStore{MemoryStore: archive.NewMemoryStore(), failAddDocument: true}
	svc := newTestService(t, store)

	_, err := svc.Upload(context.Background(), UploadInput{Name: "a.txt", Data: []byte("text")})
	var serr *archive.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if got := store.storeBlobCalls.Load(); got != 0 {
		t.Fatalf("blob write must not run after metadata failure, ran %d times", got)
	}
}

func TestUploadBlobFailureIsDegradedNotFatal(t *testing.T) {
	store := &flakyStore{MemoryStore: archive.NewMemoryStore(), failStoreBlob: true}
	svc := newTestService(t, store)

	out, err := svc.Upload(context.Background(), UploadInput{Name: "a.txt", Data: []byte("text")})
	if err != nil {
		t.Fatalf("expected degraded upload to succeed, got %v", err)
	}
	if !out.Degraded {
		t.Fatal("expected degraded flag")
	}
	if out.Token == "" {
		t.Fatal("expected token for degraded upload")
	}

	// Document remains queryable; the payload stays permanently absent.
	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != out.Document.ID {
		t.Fatalf("expected degraded document listed, got %+v", docs)
	}
	blob, err := svc.FileFor(context.Background(), out.Document.ID)
	if err != nil {
		t.Fatalf("file for: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob for degraded document, got %+v", blob)
	}
}

func TestFileForUnknownDocument(t *testing.T) {
	svc := newTestService(t, archive.NewMemoryStore())

	_, err := svc.FileFor(context.Background(), 404)
	if !archive.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestListByTypeFilters(t *testing.T) {
	svc := newTestService(t, archive.NewMemoryStore())

	if _, err := svc.Upload(context.Background(), UploadInput{Name: "a.txt", Data: []byte("first")}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Upload(context.Background(), UploadInput{Name: "b.txt", Data: []byte("second")}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	txts, err := svc.ListByType(context.Background(), archive.TypeTXT)
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(txts) != 2 {
		t.Fatalf("expected 2 txt documents, got %d", len(txts))
	}
	pdfs, err := svc.ListByType(context.Background(), archive.TypePDF)
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(pdfs) != 0 {
		t.Fatalf("expected no pdf documents, got %d", len(pdfs))
	}
}
