package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	storagedb "docarchive-backend/internal/shared/storage/db"
)

// PostgresStore is the server-deployment archive backend. Schema
// initialization is delegated to the embedded goose migrations, whose version
// table doubles as the schema version record.
type PostgresStore struct {
	db *sql.DB

	openOnce sync.Once
	openErr  error

	clock uploadClock
}

// NewPostgresStore wraps an already-connected database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	s := &PostgresStore{db: db}
	s.clock.now = time.Now
	return s
}

// Open verifies connectivity and applies pending migrations exactly once.
func (s *PostgresStore) Open(ctx context.Context) error {
	s.openOnce.Do(func() {
		if s.db == nil {
			s.openErr = storageErr(KindSchema, "open", fmt.Errorf("nil database handle"))
			return
		}
		if err := s.db.PingContext(ctx); err != nil {
			s.openErr = storageErr(KindSchema, "open", err)
			return
		}
		if err := storagedb.RunMigrations(ctx, s.db); err != nil {
			s.openErr = storageErr(KindSchema, "open", err)
		}
	})
	return s.openErr
}

// AddDocument inserts a metadata record and returns it with the assigned id
// and insertion timestamp.
func (s *PostgresStore) AddDocument(ctx context.Context, doc Document) (Document, error) {
	if err := s.Open(ctx); err != nil {
		return Document{}, err
	}
	if !doc.Type.Valid() {
		return Document{}, storageErr(KindTxAborted, "add document", fmt.Errorf("unknown document type %q", doc.Type))
	}

	doc.UploadedAt = s.clock.next()
	err := s.db.QueryRowContext(ctx, `
INSERT INTO documents (name, type, extracted_text, uploaded_at, file_size, extraction_method, page_count, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		doc.Name,
		string(doc.Type),
		doc.ExtractedText,
		doc.UploadedAt,
		doc.FileSize,
		doc.Metadata.ExtractionMethod,
		doc.Metadata.PageCount,
		doc.Metadata.Language,
	).Scan(&doc.ID)
	if err != nil {
		return Document{}, classifyPG("add document", err)
	}
	return doc, nil
}

// StoreBlob inserts the raw payload for a document.
func (s *PostgresStore) StoreBlob(ctx context.Context, blob FileBlob) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	var lastModified sql.NullTime
	if !blob.LastModified.IsZero() {
		lastModified = sql.NullTime{Time: blob.LastModified.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO files (document_id, payload, name, mime_type, size, last_modified)
VALUES ($1, $2, $3, $4, $5, $6)`,
		blob.DocumentID,
		blob.Payload,
		blob.Name,
		blob.MimeType,
		blob.Size,
		lastModified,
	)
	if err != nil {
		return classifyPG("store blob", err)
	}
	return nil
}

const selectDocumentsPG = `
SELECT id, name, type, extracted_text, uploaded_at, file_size, extraction_method, page_count, language
FROM documents`

// AllDocuments returns every record in insertion order.
func (s *PostgresStore) AllDocuments(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, "all documents", selectDocumentsPG+` ORDER BY id`)
}

// DocumentsByType filters on the type index.
func (s *PostgresStore) DocumentsByType(ctx context.Context, typ DocumentType) ([]Document, error) {
	return s.queryDocuments(ctx, "documents by type", selectDocumentsPG+` WHERE type = $1 ORDER BY id`, string(typ))
}

// DocumentsByUploadDate filters on the upload-date index over [from, to).
func (s *PostgresStore) DocumentsByUploadDate(ctx context.Context, from, to time.Time) ([]Document, error) {
	return s.queryDocuments(ctx, "documents by upload date",
		selectDocumentsPG+` WHERE uploaded_at >= $1 AND uploaded_at < $2 ORDER BY uploaded_at`,
		from.UTC(), to.UTC(),
	)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, op, query string, args ...any) ([]Document, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPG(op, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocumentPG(rows)
		if err != nil {
			return nil, storageErr(KindTxAborted, op, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPG(op, err)
	}
	return out, nil
}

func scanDocumentPG(row rowScanner) (Document, error) {
	var (
		doc Document
		typ string
	)
	if err := row.Scan(
		&doc.ID,
		&doc.Name,
		&typ,
		&doc.ExtractedText,
		&doc.UploadedAt,
		&doc.FileSize,
		&doc.Metadata.ExtractionMethod,
		&doc.Metadata.PageCount,
		&doc.Metadata.Language,
	); err != nil {
		return Document{}, err
	}
	doc.Type = DocumentType(typ)
	return doc, nil
}

// GetDocument fetches one record by id.
func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	if err := s.Open(ctx); err != nil {
		return Document{}, err
	}
	row := s.db.QueryRowContext(ctx, selectDocumentsPG+` WHERE id = $1`, id)
	doc, err := scanDocumentPG(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, storageErr(KindNotFound, "get document", err)
		}
		return Document{}, classifyPG("get document", err)
	}
	return doc, nil
}

// GetBlob fetches the payload for a document id. Absence is not an error.
func (s *PostgresStore) GetBlob(ctx context.Context, id int64) (*FileBlob, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	var (
		blob         FileBlob
		lastModified sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
SELECT document_id, payload, name, mime_type, size, last_modified
FROM files WHERE document_id = $1`, id).Scan(
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
		return nil, classifyPG("get blob", err)
	}
	if lastModified.Valid {
		blob.LastModified = lastModified.Time
	}
	return &blob, nil
}

func classifyPG(op string, err error) *StorageError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "53100" || pgErr.Code == "53200" || pgErr.Code == "53300":
			return storageErr(KindQuota, op, err)
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return storageErr(KindTxAborted, op, err)
		case strings.HasPrefix(pgErr.Code, "42"):
			return storageErr(KindSchema, op, err)
		}
	}
	return storageErr(KindTxAborted, op, err)
}

var _ Store = (*PostgresStore)(nil)
