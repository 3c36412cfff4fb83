package archive

import (
	"context"
	"sync"
	"time"
)

// Store is the two-collection document archive: small searchable metadata
// records in one collection, raw file payloads in another, linked by the
// store-assigned document id.
//
// AddDocument and StoreBlob are deliberately independent operations. A blob
// write that fails after the metadata insert leaves the document
// degraded-available: its text stays queryable while GetBlob resolves to nil.
// No operation is retried by the store.
type Store interface {
	// Open is idempotent and memoized: the first call initializes the
	// schema, concurrent first calls serialize so initialization runs
	// exactly once, and later calls reuse the same connection.
	Open(ctx context.Context) error

	// AddDocument inserts a metadata record and returns it with the
	// assigned id and insertion timestamp. The blob collection is not
	// touched.
	AddDocument(ctx context.Context, doc Document) (Document, error)

	// StoreBlob inserts the raw payload keyed by blob.DocumentID.
	StoreBlob(ctx context.Context, blob FileBlob) error

	// AllDocuments returns every metadata record in insertion order.
	AllDocuments(ctx context.Context) ([]Document, error)

	// DocumentsByType returns records of one type, insertion order,
	// served by the type index.
	DocumentsByType(ctx context.Context, typ DocumentType) ([]Document, error)

	// DocumentsByUploadDate returns records whose UploadedAt falls in
	// [from, to), ordered by upload date, served by the upload-date index.
	DocumentsByUploadDate(ctx context.Context, from, to time.Time) ([]Document, error)

	// GetDocument fetches one record; absence is a KindNotFound error.
	GetDocument(ctx context.Context, id int64) (Document, error)

	// GetBlob fetches the payload for a document id. A nil blob with a
	// nil error means the blob was never stored or its write failed;
	// callers must treat that as a normal degraded state.
	GetBlob(ctx context.Context, id int64) (*FileBlob, error)
}

// uploadClock assigns insertion timestamps that are strictly monotonic per
// store instance, even when the wall clock stalls or steps backward.
type uploadClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *uploadClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
