package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite3 "modernc.org/sqlite"
)

// schemaVersion is the archive schema generation recorded in the SQLite
// user_version pragma. Bump it together with a migration step in initSchema.
const schemaVersion = 1

// sqliteFull is the SQLITE_FULL primary result code (database or disk full).
const sqliteFull = 13

// sqliteTimeLayout is fixed-width: timestamps are compared and ordered as
// TEXT, so every value must have the full nine fraction digits for
// lexicographic order to match chronological order. RFC3339Nano would trim
// trailing zeros and break range comparisons on whole-second bounds.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the default archive backend: a single local database file
// holding both collections. It uses the pure-Go modernc.org/sqlite driver.
type SQLiteStore struct {
	path string

	openOnce sync.Once
	openErr  error
	db       *sql.DB

	clock uploadClock
}

// NewSQLiteStore prepares a store backed by the database file at path.
// The file and schema are created lazily on the first Open.
func NewSQLiteStore(path string) *SQLiteStore {
	s := &SQLiteStore{path: path}
	s.clock.now = time.Now
	return s
}

// Open opens the database and runs schema initialization exactly once.
// Concurrent callers block on the same initialization and observe the same
// connection handle and the same error.
func (s *SQLiteStore) Open(ctx context.Context) error {
	s.openOnce.Do(func() {
		s.openErr = s.open(ctx)
	})
	return s.openErr
}

func (s *SQLiteStore) open(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return storageErr(KindSchema, "open", err)
		}
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return storageErr(KindSchema, "open", err)
	}
	// The archive shares one connection handle for the process lifetime;
	// a single writer sidesteps SQLITE_BUSY on concurrent uploads.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storageErr(KindSchema, "open", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return storageErr(KindSchema, "init", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(KindSchema, "init", err)
	}
	defer func() { _ = tx.Rollback() }()

	const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    extracted_text TEXT NOT NULL,
    uploaded_at TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    extraction_method TEXT NOT NULL DEFAULT '',
    page_count INTEGER NOT NULL DEFAULT 0,
    language TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents (type);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at);
CREATE TABLE IF NOT EXISTS files (
    document_id INTEGER PRIMARY KEY,
    payload BLOB NOT NULL,
    name TEXT NOT NULL,
    mime_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    last_modified TEXT NOT NULL DEFAULT ''
);`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return storageErr(KindSchema, "init", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return storageErr(KindSchema, "init", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(KindSchema, "init", err)
	}
	return nil
}

// AddDocument inserts a metadata record and returns it with the assigned id
// and insertion timestamp.
func (s *SQLiteStore) AddDocument(ctx context.Context, doc Document) (Document, error) {
	if err := s.Open(ctx); err != nil {
		return Document{}, err
	}
	if !doc.Type.Valid() {
		return Document{}, storageErr(KindTxAborted, "add document", fmt.Errorf("unknown document type %q", doc.Type))
	}

	doc.UploadedAt = s.clock.next()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO documents (name, type, extracted_text, uploaded_at, file_size, extraction_method, page_count, language)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Name,
		string(doc.Type),
		doc.ExtractedText,
		doc.UploadedAt.Format(sqliteTimeLayout),
		doc.FileSize,
		doc.Metadata.ExtractionMethod,
		doc.Metadata.PageCount,
		doc.Metadata.Language,
	)
	if err != nil {
		return Document{}, classifySQLite("add document", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Document{}, storageErr(KindTxAborted, "add document", err)
	}
	doc.ID = id
	return doc, nil
}

// StoreBlob inserts the raw payload for a document. It never touches the
// metadata collection.
func (s *SQLiteStore) StoreBlob(ctx context.Context, blob FileBlob) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	lastModified := ""
	if !blob.LastModified.IsZero() {
		lastModified = blob.LastModified.UTC().Format(sqliteTimeLayout)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO files (document_id, payload, name, mime_type, size, last_modified)
VALUES (?, ?, ?, ?, ?, ?)`,
		blob.DocumentID,
		blob.Payload,
		blob.Name,
		blob.MimeType,
		blob.Size,
		lastModified,
	)
	if err != nil {
		return classifySQLite("store blob", err)
	}
	return nil
}

// AllDocuments returns every record in insertion order.
func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, "all documents", selectDocuments+` ORDER BY id`)
}

// DocumentsByType filters on the type index, insertion order within the type.
func (s *SQLiteStore) DocumentsByType(ctx context.Context, typ DocumentType) ([]Document, error) {
	return s.queryDocuments(ctx, "documents by type", selectDocuments+` WHERE type = ? ORDER BY id`, string(typ))
}

// DocumentsByUploadDate filters on the upload-date index over [from, to).
func (s *SQLiteStore) DocumentsByUploadDate(ctx context.Context, from, to time.Time) ([]Document, error) {
	return s.queryDocuments(ctx, "documents by upload date",
		selectDocuments+` WHERE uploaded_at >= ? AND uploaded_at < ? ORDER BY uploaded_at`,
		from.UTC().Format(sqliteTimeLayout),
		to.UTC().Format(sqliteTimeLayout),
	)
}

const selectDocuments = `
SELECT id, name, type, extracted_text, uploaded_at, file_size, extraction_method, page_count, language
FROM documents`

func (s *SQLiteStore) queryDocuments(ctx context.Context, op, query string, args ...any) ([]Document, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLite(op, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, storageErr(KindTxAborted, op, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc        Document
		typ        string
		uploadedAt string
	)
	if err := row.Scan(
		&doc.ID,
		&doc.Name,
		&typ,
		&doc.ExtractedText,
		&uploadedAt,
		&doc.FileSize,
		&doc.Metadata.ExtractionMethod,
		&doc.Metadata.PageCount,
		&doc.Metadata.Language,
	); err != nil {
		return Document{}, err
	}
	doc.Type = DocumentType(typ)
	ts, err := time.Parse(sqliteTimeLayout, uploadedAt)
	if err != nil {
		return Document{}, fmt.Errorf("parse uploaded_at: %w", err)
	}
	doc.UploadedAt = ts
	return doc, nil
}

// GetDocument fetches one record by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	if err := s.Open(ctx); err != nil {
		return Document{}, err
	}
	row := s.db.QueryRowContext(ctx, selectDocuments+` WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, storageErr(KindNotFound, "get document", err)
		}
		return Document{}, classifySQLite("get document", err)
	}
	return doc, nil
}

// GetBlob fetches the payload for a document id. Absence is not an error.
func (s *SQLiteStore) GetBlob(ctx context.Context, id int64) (*FileBlob, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	var (
		blob         FileBlob
		lastModified string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT document_id, payload, name, mime_type, size, last_modified
FROM files WHERE document_id = ?`, id).Scan(
		&blob.DocumentID,
		&blob.Payload,
		&blob.Name,
		&blob.MimeType,
		&blob.Size,
		&lastModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classifySQLite("get blob", err)
	}
	if lastModified != "" {
		if ts, perr := time.Parse(sqliteTimeLayout, lastModified); perr == nil {
			blob.LastModified = ts
		}
	}
	return &blob, nil
}

// Close releases the underlying connection. The server never calls this; it
// exists for tests and short-lived tools.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func classifySQLite(op string, err error) *StorageError {
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code()&0xff == sqliteFull {
			return storageErr(KindQuota, op, err)
		}
	}
	return storageErr(KindTxAborted, op, err)
}

var _ Store = (*SQLiteStore)(nil)
