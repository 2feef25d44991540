package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// TestNewDocument tests creating a document from PDF data
func TestNewDocument(t *testing.T) {
	doc, err := New(createMinimalPDF(1))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	if doc.Version == "" {
		t.Error("Document version should not be empty")
	}
}

// TestInvalidPDF tests handling of invalid PDF data
func TestInvalidPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not pdf", []byte("This is not a PDF file")},
		{"invalid header", []byte("%PDF-")},
		{"truncated", createMinimalPDF(1)[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.data)
			if err == nil {
				t.Error("Expected error for invalid PDF data")
			}
		})
	}
}

// TestPageCount tests page tree walking
func TestPageCount(t *testing.T) {
	for _, count := range []int{1, 3, 5} {
		doc, err := New(createMinimalPDF(count))
		if err != nil {
			t.Fatalf("Failed to create %d-page document: %v", count, err)
		}
		if got := doc.PageCount(); got != count {
			t.Errorf("Expected %d pages, got %d", count, got)
		}
		doc.Close()
	}
}

// TestPageGeometry tests MediaBox and rotation handling
func TestPageGeometry(t *testing.T) {
	doc, err := New(createMinimalPDF(1))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Failed to get page: %v", err)
	}
	if page.Width() != 612 || page.Height() != 792 {
		t.Errorf("Expected 612x792, got %fx%f", page.Width(), page.Height())
	}
}

// TestRotatedPage tests that /Rotate 90 swaps the reported dimensions
func TestRotatedPage(t *testing.T) {
	doc, err := New(createRotatedPDF(90))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Failed to get page: %v", err)
	}
	if page.Width() != 792 || page.Height() != 612 {
		t.Errorf("Expected swapped 792x612, got %fx%f", page.Width(), page.Height())
	}
}

// TestPageOutOfRange tests index validation
func TestPageOutOfRange(t *testing.T) {
	doc, err := New(createMinimalPDF(2))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	for _, index := range []int{-1, 2, 1000} {
		if _, err := doc.Page(index); err == nil {
			t.Errorf("Expected error for page index %d", index)
		}
	}
}

// TestPageContents tests content stream retrieval
func TestPageContents(t *testing.T) {
	doc, err := New(createMinimalPDF(1))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("Failed to get page: %v", err)
	}
	contents, err := page.Contents()
	if err != nil {
		t.Fatalf("Failed to get contents: %v", err)
	}
	if !bytes.Contains(contents, []byte("cm")) {
		t.Errorf("Content stream missing expected operator: %q", contents)
	}
}

// TestEncryptedDocument tests that encrypted PDFs are rejected
func TestEncryptedDocument(t *testing.T) {
	_, err := New(createEncryptedPDF())
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("Expected ErrEncrypted, got %v", err)
	}
}

// TestRectangle tests rectangle operations
func TestRectangle(t *testing.T) {
	r := Rectangle{LLX: 0, LLY: 0, URX: 612, URY: 792}

	if r.Width() != 612 {
		t.Errorf("Expected width 612, got %f", r.Width())
	}
	if r.Height() != 792 {
		t.Errorf("Expected height 792, got %f", r.Height())
	}
}

// pdfBuilder accumulates numbered objects and writes the xref table.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets []int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{}
	b.buf.WriteString("%PDF-1.4\n")
	b.buf.WriteString("%\xe2\xe3\xcf\xd3\n") // binary marker
	return b
}

// add writes the next numbered object and returns its object number.
func (b *pdfBuilder) add(body string) int {
	b.offsets = append(b.offsets, b.buf.Len())
	num := len(b.offsets)
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return num
}

func (b *pdfBuilder) finish(trailerExtra string) []byte {
	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\n", len(b.offsets)+1, trailerExtra)
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", xref)
	return b.buf.Bytes()
}

// createMinimalPDF builds a valid PDF with the given number of letter-size
// pages, each with a trivial content stream.
func createMinimalPDF(pageCount int) []byte {
	b := newPDFBuilder()
	b.add("<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pageCount; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+i)
	}
	b.add(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pageCount))

	for i := 0; i < pageCount; i++ {
		b.add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R >>",
			3+pageCount+i))
	}
	content := "q\n1 0 0 1 72 720 cm\nQ\n"
	for i := 0; i < pageCount; i++ {
		b.add(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}
	return b.finish("")
}

// createRotatedPDF builds a one-page PDF with the given /Rotate value.
func createRotatedPDF(rotation int) []byte {
	b := newPDFBuilder()
	b.add("<< /Type /Catalog /Pages 2 0 R >>")
	b.add("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Rotate %d >>", rotation))
	return b.finish("")
}

// createEncryptedPDF builds a PDF whose trailer carries an /Encrypt entry.
func createEncryptedPDF() []byte {
	b := newPDFBuilder()
	b.add("<< /Type /Catalog /Pages 2 0 R >>")
	b.add("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.add("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	b.add("<< /Filter /Standard /V 1 /R 2 >>")
	return b.finish(" /Encrypt 4 0 R")
}
