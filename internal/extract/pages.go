package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// maxPageWorkers bounds how many page extractions are in flight at once.
const maxPageWorkers = 4

// pageSource yields per-page text for a paged document. Page numbers are
// 1-based.
type pageSource interface {
	numPages() int
	pageText(ctx context.Context, page int) (string, error)
}

// assemble gathers page texts concurrently and joins them with a newline in
// ascending page order. Results are slotted by page index, so the output
// order never depends on which page finishes first.
func assemble(ctx context.Context, src pageSource) (string, error) {
	n := src.numPages()
	if n == 0 {
		return "", nil
	}

	texts := make([]string, n)
	errs := make([]error, n)
	sem := make(chan struct{}, maxPageWorkers)

	var wg sync.WaitGroup
	for page := 1; page <= n; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			texts[page-1], errs[page-1] = src.pageText(ctx, page)
		}(page)
	}
	wg.Wait()

	for page, err := range errs {
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page+1, err)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// pdfSource reads pages through a ledongthuc/pdf reader. Page decoding is
// serialized behind a mutex; the reader shares parser state across pages, so
// page work interleaves rather than truly running in parallel.
type pdfSource struct {
	mu sync.Mutex
	r  *pdf.Reader
	n  int
}

func newPDFSource(ra io.ReaderAt, size int64) (*pdfSource, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	return &pdfSource{r: r, n: r.NumPage()}, nil
}

func (s *pdfSource) numPages() int { return s.n }

// pageText joins the page's non-blank text items with single spaces. The pdf
// package panics on malformed content streams, so decoding is fenced with a
// recover that surfaces the panic as an extraction error.
func (s *pdfSource) pageText(ctx context.Context, page int) (text string, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page content: %v", rec)
		}
	}()

	p := s.r.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("missing page object")
	}

	var fragments []string
	for _, item := range p.Content().Text {
		if strings.TrimSpace(item.S) == "" {
			continue
		}
		fragments = append(fragments, item.S)
	}
	return strings.Join(fragments, " "), nil
}
