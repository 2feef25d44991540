package winspool

import (
	"go.uber.org/zap"

	"github.com/novvoo/go-winprint/internal/logging"
	"github.com/novvoo/go-winprint/pkg/printer"
	"github.com/novvoo/go-winprint/pkg/raster"
)

// metersPerInch39 converts DPI to the pixels-per-meter field of bitmap
// metadata, truncated as the format expects.
const metersPerInch39 = 39.37

// Backend prints through the Windows spooler and GDI.
type Backend struct {
	api API
	log *zap.Logger
}

// New returns a Backend over the given spooler API.
func New(api API) *Backend {
	return &Backend{api: api, log: logging.Scope("winspool")}
}

// Name implements printer.Backend.
func (b *Backend) Name() string { return "winspool" }

// Directory implements printer.Backend.
func (b *Backend) Directory() printer.Directory { return NewDirectory(b.api) }

// Print implements printer.Backend. It resolves the target device, builds a
// configuration record (or collects one interactively), and drives the
// StartDoc/StartPage/draw/EndPage/EndDoc protocol with one rasterized bitmap
// per page per copy.
func (b *Backend) Print(data []byte, docName, device string, opts *printer.Options) error {
	if device == "" {
		name, err := b.api.DefaultPrinter()
		if err != nil {
			return &printer.DeviceOpenError{Device: device, Err: err}
		}
		if name == "" {
			return printer.ErrNoDefaultDevice
		}
		device = name
	} else {
		ok, err := NewDirectory(b.api).DeviceExists(device)
		if err != nil {
			return err
		}
		if !ok {
			return printer.ErrDeviceNotFound
		}
	}

	j := &job{
		api:     b.api,
		device:  device,
		docName: docName,
		opts:    opts,
		copies:  opts.EffectiveCopies(),
		log:     b.log.With(zap.String("device", device)),
	}
	if opts != nil {
		j.pages = opts.Pages
		j.collate = opts.Collate
	}

	if opts != nil && opts.ShowDialog {
		res, err := ShowDialog(b.api, device, j.copies)
		if err != nil {
			return err
		}
		if res.Cancelled {
			return nil
		}
		defer res.Free()
		if res.Device != "" {
			j.device = res.Device
		}
		j.copies = res.Copies
		if !res.AllPages {
			j.pages = printer.PageRange{From: res.FromPage, To: res.ToPage}
		}
		// The dialog configured and owns the device context; Free releases it.
		j.dc = res.DC
		j.dialogDC = true
	} else {
		dm, err := ResolveDevMode(b.api, device, opts)
		if err != nil {
			return err
		}
		dc, err := b.api.CreateDC(device, dm)
		if err != nil {
			return &printer.DeviceOpenError{Device: device, Err: err}
		}
		j.dc = dc
		defer b.api.DeleteDC(dc)
	}

	return j.run(data)
}

// jobState tracks the job protocol so transitions stay well ordered.
type jobState int

const (
	stateIdle jobState = iota
	stateContextOpen
	stateDocStarted
	statePageActive
)

type job struct {
	api      API
	device   string
	docName  string
	opts     *printer.Options
	copies   int
	pages    printer.PageRange
	collate  bool
	dc       DC
	dialogDC bool
	state    jobState
	log      *zap.Logger
}

// run rasterizes and spools the document. The engine reference is always
// released, the document always closed, and a started spooler job always
// ended, whatever fails in between.
func (j *job) run(data []byte) error {
	j.state = stateContextOpen
	defer logging.Timer(j.log, "print job", zap.String("doc", j.docName))()

	ras := raster.NewRasterizer(j.opts == nil || !j.opts.DisableCache)
	if err := ras.Initialize(); err != nil {
		return err
	}
	defer ras.Cleanup()

	doc, err := ras.LoadDocument(data)
	if err != nil {
		return err
	}
	defer doc.Close()

	total, err := doc.PageCount()
	if err != nil {
		return err
	}
	indices := pageIndices(total, j.pages)
	if len(indices) == 0 {
		// Requested range is entirely outside the document: nothing to
		// print, and no reason to open an empty spooler job.
		j.log.Info("page range selects no pages", zap.Int("pages", total))
		return nil
	}

	pageW := j.api.DeviceCaps(j.dc, HorzRes)
	pageH := j.api.DeviceCaps(j.dc, VertRes)
	dpiX := j.api.DeviceCaps(j.dc, LogPixelsX)
	dpiY := j.api.DeviceCaps(j.dc, LogPixelsY)
	if pageW <= 0 || pageH <= 0 || dpiX <= 0 || dpiY <= 0 {
		return &printer.DeviceOpenError{Device: j.device, Err: printer.ErrUnsupportedDevice}
	}

	quality := int(j.opts.EffectiveQuality())
	// pixels = inches × DPI, truncated; inches come from the printable area
	// at the device's own resolution.
	renderW := pageW * quality / dpiX
	renderH := pageH * quality / dpiY
	ppm := int(float64(quality) * metersPerInch39)

	id, err := j.api.StartDoc(j.dc, j.docName)
	if err != nil || id <= 0 {
		return &printer.JobError{Op: printer.OpStartDocument, Device: j.device, Code: j.api.LastError()}
	}
	j.state = stateDocStarted
	j.log.Debug("document started", zap.Int("job", id),
		zap.Int("pages", len(indices)), zap.Int("copies", j.copies))

	pageErr := j.printPages(ras, doc, indices, renderW, renderH, pageW, pageH, ppm)

	// Always end the job, even after a page failure: a dangling spooler job
	// blocks the queue.
	endRes, endErr := j.api.EndDoc(j.dc)
	j.state = stateIdle
	if pageErr != nil {
		return pageErr
	}
	if endErr != nil || endRes <= 0 {
		return &printer.JobError{Op: printer.OpEndDocument, Device: j.device, Code: j.api.LastError()}
	}
	return nil
}

// printPages iterates copies × pages. Collated output repeats the whole
// document; uncollated output repeats each page in place.
func (j *job) printPages(ras *raster.Rasterizer, doc *raster.Document, indices []int, renderW, renderH, pageW, pageH, ppm int) error {
	if j.collate {
		for c := 0; c < j.copies; c++ {
			for _, index := range indices {
				if err := j.printOne(ras, doc, index, renderW, renderH, pageW, pageH, ppm); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, index := range indices {
		for c := 0; c < j.copies; c++ {
			if err := j.printOne(ras, doc, index, renderW, renderH, pageW, pageH, ppm); err != nil {
				return err
			}
		}
	}
	return nil
}

// printOne runs one StartPage/draw/EndPage cycle. The rendered buffer is
// released before returning regardless of outcome; cache-owned buffers stay
// resident for the next copy.
func (j *job) printOne(ras *raster.Rasterizer, doc *raster.Document, index, renderW, renderH, pageW, pageH, ppm int) error {
	if r, err := j.api.StartPage(j.dc); err != nil || r <= 0 {
		return &printer.JobError{Op: printer.OpStartPage, Device: j.device, Code: j.api.LastError()}
	}
	j.state = statePageActive

	buf, err := ras.RenderPage(doc, index, raster.RenderParams{Width: renderW, Height: renderH})
	if err != nil {
		j.api.EndPage(j.dc)
		j.state = stateDocStarted
		return err
	}

	// Uniform scale that fits the bitmap inside the printable area, centered.
	scale := float64(pageW) / float64(buf.Width)
	if s := float64(pageH) / float64(buf.Height); s < scale {
		scale = s
	}
	dstW := int(float64(buf.Width) * scale)
	dstH := int(float64(buf.Height) * scale)
	dstX := (pageW - dstW) / 2
	dstY := (pageH - dstH) / 2

	lines, err := j.api.StretchDIBits(j.dc, dstX, dstY, dstW, dstH, buf.Width, buf.Height, ppm, ppm, buf.Pixels)
	ras.CleanupRenderedPage(buf)
	if err != nil || lines <= 0 {
		j.api.EndPage(j.dc)
		j.state = stateDocStarted
		return &printer.JobError{Op: printer.OpDraw, Device: j.device, Code: j.api.LastError()}
	}

	if r, err := j.api.EndPage(j.dc); err != nil || r <= 0 {
		j.state = stateDocStarted
		return &printer.JobError{Op: printer.OpEndPage, Device: j.device, Code: j.api.LastError()}
	}
	j.state = stateDocStarted
	return nil
}

// pageIndices converts a 1-based inclusive range to 0-based page indices,
// clamped to the document. A zero range selects every page; a range entirely
// outside the document selects none.
func pageIndices(total int, r printer.PageRange) []int {
	from, to := 0, total-1
	if !r.IsZero() {
		from = r.From - 1
		to = r.To - 1
		if from < 0 {
			from = 0
		}
		if to > total-1 {
			to = total - 1
		}
	}
	if from > to {
		return nil
	}
	indices := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		indices = append(indices, i)
	}
	return indices
}
