package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"docarchive-backend/internal/archive"
)

// fakeSource completes pages in reverse order: page 1 takes the longest.
type fakeSource struct {
	pages   []string
	failOn  int
	failErr error
}

func (f *fakeSource) numPages() int { return len(f.pages) }

func (f *fakeSource) pageText(ctx context.Context, page int) (string, error) {
	time.Sleep(time.Duration(len(f.pages)-page) * 10 * time.Millisecond)
	if page == f.failOn {
		return "", f.failErr
	}
	return f.pages[page-1], nil
}

func TestAssembleOrdersPagesDespiteCompletionOrder(t *testing.T) {
	src := &fakeSource{pages: []string{"A", "B", "C"}}
	got, err := assemble(context.Background(), src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got != "A\nB\nC" {
		t.Fatalf("expected pages joined in ascending order, got %q", got)
	}
}

func TestAssembleEmptySource(t *testing.T) {
	got, err := assemble(context.Background(), &fakeSource{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text for zero pages, got %q", got)
	}
}

func TestAssemblePageFailureNamesPage(t *testing.T) {
	src := &fakeSource{
		pages:   []string{"A", "B", "C"},
		failOn:  2,
		failErr: errors.New("boom"),
	}
	_, err := assemble(context.Background(), src)
	if err == nil {
		t.Fatal("expected page failure to fail the whole extraction")
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Fatalf("expected failing page in error, got %v", err)
	}
}

func TestExtractTXTPassthrough(t *testing.T) {
	res, err := Extract(context.Background(), []byte("line one\nline two"), archive.TypeTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "line one\nline two" {
		t.Fatalf("expected byte-for-byte passthrough, got %q", res.Text)
	}
	if res.Method != MethodTXT {
		t.Fatalf("expected method txt, got %q", res.Method)
	}
	if res.PageCount != 0 {
		t.Fatalf("expected no page count for txt, got %d", res.PageCount)
	}
}

func TestExtractUnknownTypeFails(t *testing.T) {
	if _, err := Extract(context.Background(), []byte("data"), archive.DocumentType("docx")); err == nil {
		t.Fatal("expected error for type without an extraction method")
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Extract(ctx, []byte("hi"), archive.TypeTXT); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractCorruptPDFFails(t *testing.T) {
	data := []byte("%PDF-1.4\nthis is not a real pdf body")
	if _, err := Extract(context.Background(), data, archive.TypePDF); err == nil {
		t.Fatal("expected corrupt pdf to fail extraction")
	}
}

func TestExtractTwoPagePDF(t *testing.T) {
	data := buildPDF(t, []string{"Hello", "World"})

	res, err := Extract(context.Background(), data, archive.TypePDF)
	if err != nil {
		t.Fatalf("extract pdf: %v", err)
	}
	if res.Text != "Hello\nWorld" {
		t.Fatalf("expected per-page text joined by newline, got %q", res.Text)
	}
	if res.PageCount != 2 {
		t.Fatalf("expected structural page count 2, got %d", res.PageCount)
	}
	if res.Method != MethodPDF {
		t.Fatalf("expected method pdf, got %q", res.Method)
	}
}

// buildPDF writes a minimal one-font PDF with one text line per page, with
// xref offsets computed from the generated bytes.
func buildPDF(t *testing.T, pageTexts []string) []byte {
	t.Helper()

	n := len(pageTexts)
	// Object layout: 1 catalog, 2 pages, 3 font, then per page i:
	// 4+2i page object, 5+2i content stream.
	pageObj := func(i int) int { return 4 + 2*i }
	contentObj := func(i int) int { return 5 + 2*i }
	total := 3 + 2*n

	kids := make([]string, n)
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}

	var buf bytes.Buffer
	offsets := make([]int, total+1)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pageTexts {
		writeObj(pageObj(i), fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentObj(i)))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		writeObj(contentObj(i), fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= total; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xrefStart)

	return buf.Bytes()
}
