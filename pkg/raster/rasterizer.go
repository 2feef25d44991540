package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"go.uber.org/zap"

	"github.com/novvoo/go-winprint/internal/logging"
	"github.com/novvoo/go-winprint/pkg/pdf"
)

// ErrDocumentClosed is returned when a destroyed document handle is used.
var ErrDocumentClosed = errors.New("raster: document is closed")

// ErrEmptyDocument is returned for documents with zero pages.
var ErrEmptyDocument = errors.New("raster: document has no pages")

// DocumentLoadError reports a document the engine rejected, carrying the
// engine's error code.
type DocumentLoadError struct {
	Code Code
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("raster: document load failed (%s)", e.Code)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// PageLoadError reports a page that failed to load or render.
type PageLoadError struct {
	Index int
	Err   error
}

func (e *PageLoadError) Error() string {
	return fmt.Sprintf("raster: page %d failed to render", e.Index)
}

func (e *PageLoadError) Unwrap() error { return e.Err }

// Document is a handle to a loaded PDF. It owns page count and geometry and
// must be closed exactly once; use after Close fails with ErrDocumentClosed.
type Document struct {
	mu     sync.Mutex
	inner  *pdf.Document
	closed bool
}

// PageCount returns the number of pages, or ErrEmptyDocument for zero.
func (d *Document) PageCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrDocumentClosed
	}
	n := d.inner.PageCount()
	if n == 0 {
		return 0, ErrEmptyDocument
	}
	return n, nil
}

// PageSize returns the page's width and height in points (1/72 inch).
func (d *Document) PageSize(index int) (width, height float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, 0, ErrDocumentClosed
	}
	page, err := d.inner.Page(index)
	if err != nil {
		return 0, 0, &PageLoadError{Index: index, Err: err}
	}
	return page.Width(), page.Height(), nil
}

// PageSizes returns the geometry of every page in points.
func (d *Document) PageSizes() ([][2]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDocumentClosed
	}
	sizes := make([][2]float64, d.inner.PageCount())
	for i, p := range d.inner.Pages {
		sizes[i] = [2]float64{p.Width(), p.Height()}
	}
	return sizes, nil
}

// Close destroys the document handle. Safe to call more than once.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.inner.Close()
	d.closed = true
}

func (d *Document) page(index int) (*pdf.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDocumentClosed
	}
	return d.inner.Page(index)
}

// RenderParams controls one page render.
//
// The zero value keeps aspect ratio and paints an opaque white background,
// which is what printing wants.
type RenderParams struct {
	Width  int
	Height int
	// StretchToFit disables aspect-ratio preservation and renders exactly
	// Width×Height.
	StretchToFit bool
	// Background fills the buffer before drawing. A zero value means opaque
	// white; pages with transparency must not show undefined pixels.
	Background color.RGBA
}

func (p RenderParams) background() color.RGBA {
	if p.Background == (color.RGBA{}) {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return p.Background
}

// Rasterizer renders document pages to BGRA buffers, optionally caching
// results by (page, width, height). Each Rasterizer holds engine references
// acquired with Initialize and released with Cleanup.
type Rasterizer struct {
	mu      sync.Mutex
	refs    int
	caching bool
	cache   *pageCache
	log     *zap.Logger
}

// NewRasterizer returns a rasterizer. When caching is enabled, rendered
// buffers are owned by the cache and reused for identical requests.
func NewRasterizer(caching bool) *Rasterizer {
	return &Rasterizer{
		caching: caching,
		cache:   newPageCache(),
		log:     logging.Scope("raster"),
	}
}

// Initialize acquires an engine reference for this rasterizer.
func (r *Rasterizer) Initialize() error {
	if err := Initialize(); err != nil {
		return err
	}
	r.mu.Lock()
	r.refs++
	r.mu.Unlock()
	return nil
}

// Cleanup clears this rasterizer's cache and releases one engine reference.
// Calling it more often than Initialize is safe.
func (r *Rasterizer) Cleanup() {
	r.cache.Clear()
	r.mu.Lock()
	held := r.refs > 0
	if held {
		r.refs--
	}
	r.mu.Unlock()
	if held {
		Cleanup()
	}
}

// SetCaching enables or disables the page cache. Disabling destroys all
// cached buffers.
func (r *Rasterizer) SetCaching(enabled bool) {
	r.mu.Lock()
	r.caching = enabled
	r.mu.Unlock()
	if !enabled {
		r.cache.Clear()
	}
}

// CachingEnabled reports whether the page cache is active.
func (r *Rasterizer) CachingEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caching
}

// LoadDocument parses PDF bytes into a document handle. The engine must be
// initialized first.
func (r *Rasterizer) LoadDocument(data []byte) (*Document, error) {
	if !initialized() {
		return nil, ErrNotInitialized
	}
	defer logging.Timer(r.log, "load document", zap.Int("bytes", len(data)))()

	inner, err := pdf.New(data)
	if err != nil {
		code := CodeFormat
		if errors.Is(err, pdf.ErrEncrypted) {
			code = CodePassword
		}
		setLastError(code)
		return nil, &DocumentLoadError{Code: code, Err: err}
	}
	return &Document{inner: inner}, nil
}

// RenderPage rasterizes one page into a BGRA buffer sized for params. With
// caching enabled, an existing entry for (index, width, height) is returned
// unchanged; otherwise the result is rendered and, when caching, stored.
func (r *Rasterizer) RenderPage(doc *Document, index int, params RenderParams) (*Buffer, error) {
	if !initialized() {
		return nil, ErrNotInitialized
	}
	if params.Width <= 0 || params.Height <= 0 {
		return nil, fmt.Errorf("raster: invalid render target %dx%d", params.Width, params.Height)
	}

	key := cacheKey{page: index, width: params.Width, height: params.Height}
	if r.CachingEnabled() {
		if buf, ok := r.cache.Get(key); ok {
			return buf, nil
		}
	}

	buf, err := r.renderUncached(doc, index, params)
	if err != nil {
		return nil, err
	}
	if r.CachingEnabled() {
		r.cache.Put(key, buf)
	}
	return buf, nil
}

// renderUncached always produces a fresh caller-owned buffer.
func (r *Rasterizer) renderUncached(doc *Document, index int, params RenderParams) (*Buffer, error) {
	page, err := doc.page(index)
	if err != nil {
		if errors.Is(err, ErrDocumentClosed) {
			return nil, err
		}
		setLastError(CodePage)
		return nil, &PageLoadError{Index: index, Err: err}
	}
	defer logging.Timer(r.log, "render page",
		zap.Int("page", index), zap.Int("width", params.Width), zap.Int("height", params.Height))()

	w, h := params.Width, params.Height
	if !params.StretchToFit {
		w, h = fitToBox(page.Width(), page.Height(), params.Width, params.Height)
	}

	buf := newBuffer(w, h)

	// Fill before drawing so pages with transparency never show undefined
	// background.
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := params.background()
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = bg.R
		img.Pix[i+1] = bg.G
		img.Pix[i+2] = bg.B
		img.Pix[i+3] = bg.A
	}

	if err := renderPage(page, img); err != nil {
		// The buffer must not leak on the error path.
		buf.Destroy()
		setLastError(CodePage)
		return nil, &PageLoadError{Index: index, Err: err}
	}
	buf.fromRGBA(img)
	return buf, nil
}

// fitToBox computes the largest size at most boxW×boxH that preserves the
// page's aspect ratio.
func fitToBox(pageW, pageH float64, boxW, boxH int) (int, int) {
	if pageW <= 0 || pageH <= 0 {
		return boxW, boxH
	}
	pageAspect := pageW / pageH
	boxAspect := float64(boxW) / float64(boxH)

	var w, h int
	if pageAspect > boxAspect {
		w = boxW
		h = int(float64(boxW) / pageAspect)
	} else {
		h = boxH
		w = int(float64(boxH) * pageAspect)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// CleanupRenderedPage destroys a buffer that is not resident in the cache.
// Cache-owned buffers are left alone; ClearCache releases those.
func (r *Rasterizer) CleanupRenderedPage(buf *Buffer) {
	if buf == nil || buf.Destroyed() || buf.Owner() == OwnerCache {
		return
	}
	buf.Destroy()
}

// ClearCache destroys every cached buffer and empties the cache.
func (r *Rasterizer) ClearCache() {
	r.cache.Clear()
}

// CachedPages returns the number of cached buffers; used by callers deciding
// whether a pre-render pass is worthwhile.
func (r *Rasterizer) CachedPages() int {
	return r.cache.Len()
}

// PreRenderPages renders the given pages into the cache ahead of use. Pages
// already cached for the same size are skipped. Renders run concurrently;
// the document must stay open until PreRenderPages returns. A no-op when
// caching is disabled.
func (r *Rasterizer) PreRenderPages(doc *Document, indices []int, params RenderParams) error {
	if !r.CachingEnabled() {
		return nil
	}
	if !initialized() {
		return ErrNotInitialized
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, index := range indices {
		key := cacheKey{page: index, width: params.Width, height: params.Height}
		if r.cache.Contains(key) {
			continue
		}
		wg.Add(1)
		go func(index int, key cacheKey) {
			defer wg.Done()
			buf, err := r.renderUncached(doc, index, params)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			r.cache.Put(key, buf)
		}(index, key)
	}
	wg.Wait()
	return firstErr
}
