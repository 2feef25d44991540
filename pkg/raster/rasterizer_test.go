package raster

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// TestInitializeCleanupRefCount tests that N initializes need N cleanups
func TestInitializeCleanupRefCount(t *testing.T) {
	base := refCount()

	for i := 0; i < 3; i++ {
		if err := Initialize(); err != nil {
			t.Fatalf("Initialize %d: %v", i, err)
		}
	}
	if got := refCount(); got != base+3 {
		t.Errorf("refCount: got %d, want %d", got, base+3)
	}

	for i := 0; i < 3; i++ {
		Cleanup()
	}
	if got := refCount(); got != base {
		t.Errorf("refCount after cleanup: got %d, want %d", got, base)
	}

	if base == 0 {
		// Extra cleanups must not underflow or break a later Initialize.
		Cleanup()
		Cleanup()
		if got := refCount(); got != 0 {
			t.Errorf("refCount after extra cleanups: got %d", got)
		}
		if err := Initialize(); err != nil {
			t.Fatalf("Initialize after extra cleanups: %v", err)
		}
		Cleanup()
	}
}

// TestLoadRequiresInitialize tests the engine guard
func TestLoadRequiresInitialize(t *testing.T) {
	if refCount() != 0 {
		t.Skip("engine held by another test")
	}
	r := NewRasterizer(false)
	if _, err := r.LoadDocument(renderablePDF(1)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

// TestLoadCorruptDocument tests that bad bytes fail with a coded load error
func TestLoadCorruptDocument(t *testing.T) {
	r := newTestRasterizer(t, false)

	_, err := r.LoadDocument([]byte("certainly not a PDF"))
	var loadErr *DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected DocumentLoadError, got %v", err)
	}
	if loadErr.Code != CodeFormat {
		t.Errorf("Code: got %v, want %v", loadErr.Code, CodeFormat)
	}
	if LastError() != CodeFormat {
		t.Errorf("LastError: got %v, want %v", LastError(), CodeFormat)
	}
}

// TestLoadEncryptedDocument tests the password error code
func TestLoadEncryptedDocument(t *testing.T) {
	r := newTestRasterizer(t, false)

	_, err := r.LoadDocument(encryptedPDF())
	var loadErr *DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected DocumentLoadError, got %v", err)
	}
	if loadErr.Code != CodePassword {
		t.Errorf("Code: got %v, want %v", loadErr.Code, CodePassword)
	}
}

// TestPageCountAndSizes tests document geometry queries
func TestPageCountAndSizes(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 3)

	count, err := doc.PageCount()
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if count != 3 {
		t.Errorf("PageCount: got %d, want 3", count)
	}

	w, h, err := doc.PageSize(0)
	if err != nil {
		t.Fatalf("PageSize: %v", err)
	}
	if w != 612 || h != 792 {
		t.Errorf("PageSize: got %fx%f", w, h)
	}

	sizes, err := doc.PageSizes()
	if err != nil {
		t.Fatalf("PageSizes: %v", err)
	}
	if len(sizes) != 3 {
		t.Errorf("PageSizes: got %d entries", len(sizes))
	}
}

// TestEmptyDocumentPageCount tests that a zero-page document loads but
// reports ErrEmptyDocument
func TestEmptyDocumentPageCount(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 0)
	defer doc.Close()

	if _, err := doc.PageCount(); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("PageCount: got %v, want ErrEmptyDocument", err)
	}
}

// TestDocumentClosed tests use-after-close detection
func TestDocumentClosed(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)

	doc.Close()
	doc.Close() // idempotent

	if _, err := doc.PageCount(); !errors.Is(err, ErrDocumentClosed) {
		t.Errorf("PageCount after close: got %v", err)
	}
	if _, err := r.RenderPage(doc, 0, RenderParams{Width: 100, Height: 100}); !errors.Is(err, ErrDocumentClosed) {
		t.Errorf("RenderPage after close: got %v", err)
	}
}

// TestRenderAspectFit tests that the rendered buffer fits the box and keeps
// the page's aspect ratio within rounding error
func TestRenderAspectFit(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	for _, box := range [][2]int{{1000, 1000}, {200, 800}, {791, 612}} {
		buf, err := r.RenderPage(doc, 0, RenderParams{Width: box[0], Height: box[1]})
		if err != nil {
			t.Fatalf("render %v: %v", box, err)
		}
		if buf.Width > box[0] || buf.Height > box[1] {
			t.Errorf("box %v: buffer %dx%d exceeds box", box, buf.Width, buf.Height)
		}
		pageAspect := 612.0 / 792.0
		bufAspect := float64(buf.Width) / float64(buf.Height)
		// One pixel of rounding slack on the shorter axis.
		tolerance := 1.0 / float64(buf.Height)
		if diff := bufAspect - pageAspect; diff > tolerance || diff < -tolerance {
			t.Errorf("box %v: aspect %f deviates from %f", box, bufAspect, pageAspect)
		}
		r.CleanupRenderedPage(buf)
	}
}

// TestRenderStretchToFit tests exact-size rendering
func TestRenderStretchToFit(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	buf, err := r.RenderPage(doc, 0, RenderParams{Width: 300, Height: 300, StretchToFit: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	defer r.CleanupRenderedPage(buf)
	if buf.Width != 300 || buf.Height != 300 {
		t.Errorf("got %dx%d, want 300x300", buf.Width, buf.Height)
	}
	if buf.Stride != 300*4 {
		t.Errorf("stride: got %d", buf.Stride)
	}
}

// TestRenderBackgroundFill tests that untouched pixels carry the background
func TestRenderBackgroundFill(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	buf, err := r.RenderPage(doc, 0, RenderParams{Width: 50, Height: 50})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	defer r.CleanupRenderedPage(buf)

	// Default background is opaque white; pixels are BGRA.
	for i := 0; i < 4; i++ {
		if buf.Pixels[i] != 255 {
			t.Fatalf("pixel byte %d: got %d, want 255", i, buf.Pixels[i])
		}
	}
}

// TestRenderCacheIdempotence tests that cache hits return the same buffer
func TestRenderCacheIdempotence(t *testing.T) {
	r := newTestRasterizer(t, true)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	params := RenderParams{Width: 400, Height: 400}
	first, err := r.RenderPage(doc, 0, params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.RenderPage(doc, 0, params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Error("Expected the cached buffer on the second render")
	}
	if first.Owner() != OwnerCache {
		t.Errorf("owner: got %v", first.Owner())
	}
	if r.CachedPages() != 1 {
		t.Errorf("CachedPages: got %d", r.CachedPages())
	}

	// A different size is a different cache key.
	third, err := r.RenderPage(doc, 0, RenderParams{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if third == first {
		t.Error("Different size must not share a cache entry")
	}
	if r.CachedPages() != 2 {
		t.Errorf("CachedPages: got %d", r.CachedPages())
	}
}

// TestRenderWithoutCache tests that disabling the cache forces fresh renders
func TestRenderWithoutCache(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	params := RenderParams{Width: 400, Height: 400}
	first, err := r.RenderPage(doc, 0, params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.RenderPage(doc, 0, params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first == second {
		t.Error("Expected a fresh buffer with caching disabled")
	}
	if first.Owner() != OwnerCaller {
		t.Errorf("owner: got %v", first.Owner())
	}
	r.CleanupRenderedPage(first)
	r.CleanupRenderedPage(second)
	if !first.Destroyed() || !second.Destroyed() {
		t.Error("Caller-owned buffers should be destroyed by CleanupRenderedPage")
	}
}

// TestCleanupRenderedPageOwnership tests that cache-owned buffers survive
func TestCleanupRenderedPageOwnership(t *testing.T) {
	r := newTestRasterizer(t, true)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	buf, err := r.RenderPage(doc, 0, RenderParams{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	r.CleanupRenderedPage(buf)
	if buf.Destroyed() {
		t.Error("Cache-owned buffer must survive CleanupRenderedPage")
	}
	r.ClearCache()
	if !buf.Destroyed() {
		t.Error("ClearCache must destroy cached buffers")
	}
}

// TestSetCachingDisableClears tests that disabling the cache destroys entries
func TestSetCachingDisableClears(t *testing.T) {
	r := newTestRasterizer(t, true)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	buf, err := r.RenderPage(doc, 0, RenderParams{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	r.SetCaching(false)
	if !buf.Destroyed() {
		t.Error("Disabling the cache must destroy cached buffers")
	}
	if r.CachedPages() != 0 {
		t.Errorf("CachedPages: got %d", r.CachedPages())
	}
}

// TestPreRenderPages tests batch pre-rendering into the cache
func TestPreRenderPages(t *testing.T) {
	r := newTestRasterizer(t, true)
	doc := loadTestDoc(t, r, 4)
	defer doc.Close()

	params := RenderParams{Width: 150, Height: 150}
	if err := r.PreRenderPages(doc, []int{0, 1, 2, 3}, params); err != nil {
		t.Fatalf("PreRenderPages: %v", err)
	}
	if r.CachedPages() != 4 {
		t.Errorf("CachedPages: got %d, want 4", r.CachedPages())
	}

	// Renders after pre-rendering are cache hits.
	buf, err := r.RenderPage(doc, 2, params)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.Owner() != OwnerCache {
		t.Error("Expected a cache-owned buffer")
	}
}

// TestPreRenderPagesDisabled tests the no-op path
func TestPreRenderPagesDisabled(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 2)
	defer doc.Close()

	if err := r.PreRenderPages(doc, []int{0, 1}, RenderParams{Width: 100, Height: 100}); err != nil {
		t.Fatalf("PreRenderPages: %v", err)
	}
	if r.CachedPages() != 0 {
		t.Errorf("CachedPages: got %d, want 0", r.CachedPages())
	}
}

// TestInvalidRenderTarget tests size validation
func TestInvalidRenderTarget(t *testing.T) {
	r := newTestRasterizer(t, false)
	doc := loadTestDoc(t, r, 1)
	defer doc.Close()

	if _, err := r.RenderPage(doc, 0, RenderParams{Width: 0, Height: 100}); err == nil {
		t.Error("Expected error for zero width")
	}
	if _, err := r.RenderPage(doc, 0, RenderParams{Width: 100, Height: -1}); err == nil {
		t.Error("Expected error for negative height")
	}
}

// newTestRasterizer returns an initialized rasterizer torn down with the test.
func newTestRasterizer(t *testing.T, caching bool) *Rasterizer {
	t.Helper()
	r := NewRasterizer(caching)
	if err := r.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(r.Cleanup)
	return r
}

func loadTestDoc(t *testing.T, r *Rasterizer, pages int) *Document {
	t.Helper()
	doc, err := r.LoadDocument(renderablePDF(pages))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	return doc
}

// renderablePDF builds a small valid PDF with the given number of pages.
func renderablePDF(pageCount int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pageCount; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+i)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pageCount))

	for i := 0; i < pageCount; i++ {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R >>",
			3+pageCount+i))
	}
	content := "q\n0 0 0 rg\n72 72 468 648 re\nf\nQ\n"
	for i := 0; i < pageCount; i++ {
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\n", len(offsets)+1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// encryptedPDF builds a PDF whose trailer names an /Encrypt dictionary.
func encryptedPDF() []byte {
	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj("<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	writeObj("<< /Filter /Standard /V 1 /R 2 >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Encrypt 4 0 R >>\n", len(offsets)+1)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}
