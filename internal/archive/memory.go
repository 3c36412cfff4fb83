package archive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the in-memory archive used when no database is configured
// and by tests. Semantics mirror the durable backends, including the
// degraded-available blob model.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	docs   []Document
	blobs  map[int64]FileBlob

	openOnce  sync.Once
	initCount int

	clock uploadClock
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{blobs: make(map[int64]FileBlob), nextID: 1}
	s.clock.now = time.Now
	return s
}

// Open initializes the store exactly once; subsequent calls are no-ops.
func (s *MemoryStore) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.openOnce.Do(func() {
		s.mu.Lock()
		s.initCount++
		s.mu.Unlock()
	})
	return nil
}

// InitCount reports how many times schema initialization ran.
func (s *MemoryStore) InitCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initCount
}

// AddDocument assigns the next id and insertion timestamp and appends the
// record.
func (s *MemoryStore) AddDocument(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !doc.Type.Valid() {
		return Document{}, storageErr(KindTxAborted, "add document", fmt.Errorf("unknown document type %q", doc.Type))
	}
	doc.UploadedAt = s.clock.next()

	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = s.nextID
	s.nextID++
	s.docs = append(s.docs, doc)
	return doc, nil
}

// StoreBlob records the payload for a document id.
func (s *MemoryStore) StoreBlob(ctx context.Context, blob FileBlob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[blob.DocumentID]; exists {
		return storageErr(KindTxAborted, "store blob", fmt.Errorf("blob for document %d already stored", blob.DocumentID))
	}
	s.blobs[blob.DocumentID] = blob
	return nil
}

// AllDocuments returns every record in insertion order.
func (s *MemoryStore) AllDocuments(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

// DocumentsByType filters records by type, insertion order preserved.
func (s *MemoryStore) DocumentsByType(ctx context.Context, typ DocumentType) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.docs {
		if doc.Type == typ {
			out = append(out, doc)
		}
	}
	return out, nil
}

// DocumentsByUploadDate filters records whose UploadedAt falls in [from, to).
// Insertion order and upload-date order coincide here because timestamps are
// monotonic per store instance.
func (s *MemoryStore) DocumentsByUploadDate(ctx context.Context, from, to time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.docs {
		if !doc.UploadedAt.Before(from) && doc.UploadedAt.Before(to) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// GetDocument fetches one record by id.
func (s *MemoryStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return Document{}, storageErr(KindNotFound, "get document", fmt.Errorf("document %d", id))
}

// GetBlob fetches the payload for a document id; nil when never stored.
func (s *MemoryStore) GetBlob(ctx context.Context, id int64) (*FileBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[id]
	if !ok {
		return nil, nil
	}
	out := blob
	return &out, nil
}

var _ Store = (*MemoryStore)(nil)
