// Package extract turns validated payloads into text using a type-specific
// method. Extraction is all-or-nothing per document: any failure means no
// text is persisted.
package extract

import (
	"bytes"
	"context"
	"fmt"

	"docarchive-backend/internal/archive"
)

// Method names recorded in document metadata.
const (
	MethodPDF = "pdf"
	MethodTXT = "txt"
)

// Result is the outcome of one successful extraction.
type Result struct {
	Text string
	// PageCount is the structural page count reported by the parser;
	// zero for types without pages.
	PageCount int
	Method    string
}

// Func is the extraction entry point signature, injectable for tests.
type Func func(ctx context.Context, data []byte, typ archive.DocumentType) (Result, error)

// Extract dispatches on the detected document type.
func Extract(ctx context.Context, data []byte, typ archive.DocumentType) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	switch typ {
	case archive.TypeTXT:
		return Result{Text: string(data), Method: MethodTXT}, nil
	case archive.TypePDF:
		return extractPDF(ctx, data)
	default:
		return Result{}, fmt.Errorf("no extraction method for type %q", typ)
	}
}

func extractPDF(ctx context.Context, data []byte) (Result, error) {
	src, err := newPDFSource(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	text, err := assemble(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("extract pdf: %w", err)
	}
	return Result{Text: text, PageCount: src.numPages(), Method: MethodPDF}, nil
}
