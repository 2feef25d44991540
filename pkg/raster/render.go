package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/novvoo/go-winprint/pkg/pdf"
)

// matrix is a PDF transformation matrix. A point (x, y) maps to
// (a*x + c*y + e, b*x + d*y + f).
type matrix struct {
	a, b, c, d, e, f float64
}

var identity = matrix{a: 1, d: 1}

// concat returns the matrix that applies m first, then n.
func (m matrix) concat(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// scaleMagnitude approximates the uniform scale factor of m.
func (m matrix) scaleMagnitude() float64 {
	det := math.Abs(m.a*m.d - m.b*m.c)
	return math.Sqrt(det)
}

// baseMatrix maps page space (origin bottom-left, points) onto a top-down
// raster of the given pixel size, honoring the page /Rotate value.
func baseMatrix(page *pdf.Page, width, height int) matrix {
	box := page.CropBox
	pw, ph := box.Width(), box.Height()
	if pw <= 0 || ph <= 0 {
		pw, ph = 612, 792
	}
	w, h := float64(width), float64(height)

	// Translate the crop box origin to (0,0) first.
	origin := matrix{a: 1, d: 1, e: -box.LLX, f: -box.LLY}

	var m matrix
	switch page.Rotation {
	case 90:
		m = matrix{a: 0, b: h / pw, c: w / ph, d: 0}
	case 180:
		m = matrix{a: -w / pw, d: h / ph, e: w, f: 0}
	case 270:
		m = matrix{a: 0, b: -h / pw, c: -w / ph, d: 0, e: w, f: h}
	default:
		m = matrix{a: w / pw, d: -h / ph, f: h}
	}
	return origin.concat(m)
}

// gstate is the graphics state the renderer tracks.
type gstate struct {
	ctm  matrix
	fill color.RGBA
}

// textState is the live state between BT and ET.
type textState struct {
	tm       matrix // text matrix
	tlm      matrix // text line matrix
	leading  float64
	fontSize float64
	font     *truetype.Font
}

// pageRenderer rasterizes one page's content stream into an RGBA image.
// Rendering is print-oriented: no anti-alias tuning knobs, annotations
// included, unsupported constructs skipped rather than failed.
type pageRenderer struct {
	page  *pdf.Page
	dst   *image.RGBA
	state gstate
	stack []gstate
	text  textState
	fonts map[string]*truetype.Font
}

// renderPage draws the page content onto dst.
func renderPage(page *pdf.Page, dst *image.RGBA) error {
	content, err := page.Contents()
	if err != nil || len(content) == 0 {
		// A page with no content stream is legal; leave the background.
		return nil
	}
	ops, err := pdf.ParseContent(content)
	if err != nil {
		return err
	}

	r := &pageRenderer{
		page: page,
		dst:  dst,
		state: gstate{
			ctm:  baseMatrix(page, dst.Bounds().Dx(), dst.Bounds().Dy()),
			fill: color.RGBA{A: 255},
		},
		fonts: make(map[string]*truetype.Font),
	}
	r.run(ops)
	return nil
}

func (r *pageRenderer) run(ops []pdf.Operation) {
	// Pending rectangle subpaths; filled on f/F/b/B, discarded on n/S.
	var rects []pdf.Rectangle

	for _, op := range ops {
		switch op.Operator {
		case "q":
			r.stack = append(r.stack, r.state)
		case "Q":
			if n := len(r.stack); n > 0 {
				r.state = r.stack[n-1]
				r.stack = r.stack[:n-1]
			}
		case "cm":
			if len(op.Operands) == 6 {
				m := matrix{
					a: pdf.ToFloat(op.Operands[0]),
					b: pdf.ToFloat(op.Operands[1]),
					c: pdf.ToFloat(op.Operands[2]),
					d: pdf.ToFloat(op.Operands[3]),
					e: pdf.ToFloat(op.Operands[4]),
					f: pdf.ToFloat(op.Operands[5]),
				}
				r.state.ctm = m.concat(r.state.ctm)
			}

		case "re":
			if len(op.Operands) == 4 {
				x := pdf.ToFloat(op.Operands[0])
				y := pdf.ToFloat(op.Operands[1])
				w := pdf.ToFloat(op.Operands[2])
				h := pdf.ToFloat(op.Operands[3])
				rects = append(rects, pdf.Rectangle{LLX: x, LLY: y, URX: x + w, URY: y + h})
			}
		case "f", "F", "f*", "b", "b*", "B", "B*":
			for _, rect := range rects {
				r.fillRect(rect)
			}
			rects = rects[:0]
		case "n", "S", "s":
			rects = rects[:0]

		case "g", "rg", "k", "sc", "scn":
			if c, ok := operandColor(op.Operands); ok {
				r.state.fill = c
			}

		case "BT":
			r.text = textState{tm: identity, tlm: identity, fontSize: r.text.fontSize, font: r.text.font}
		case "ET":
		case "Tf":
			if len(op.Operands) == 2 {
				if name, ok := op.Operands[0].(pdf.Name); ok {
					r.text.font = r.lookupFont(string(name))
				}
				r.text.fontSize = pdf.ToFloat(op.Operands[1])
			}
		case "TL":
			if len(op.Operands) == 1 {
				r.text.leading = pdf.ToFloat(op.Operands[0])
			}
		case "Td":
			if len(op.Operands) == 2 {
				r.textMove(pdf.ToFloat(op.Operands[0]), pdf.ToFloat(op.Operands[1]))
			}
		case "TD":
			if len(op.Operands) == 2 {
				r.text.leading = -pdf.ToFloat(op.Operands[1])
				r.textMove(pdf.ToFloat(op.Operands[0]), pdf.ToFloat(op.Operands[1]))
			}
		case "Tm":
			if len(op.Operands) == 6 {
				r.text.tm = matrix{
					a: pdf.ToFloat(op.Operands[0]),
					b: pdf.ToFloat(op.Operands[1]),
					c: pdf.ToFloat(op.Operands[2]),
					d: pdf.ToFloat(op.Operands[3]),
					e: pdf.ToFloat(op.Operands[4]),
					f: pdf.ToFloat(op.Operands[5]),
				}
				r.text.tlm = r.text.tm
			}
		case "T*":
			r.textMove(0, -r.text.leading)
		case "Tj":
			if len(op.Operands) == 1 {
				if s, ok := op.Operands[0].(pdf.String); ok {
					r.showText(s.Value)
				}
			}
		case "'":
			r.textMove(0, -r.text.leading)
			if len(op.Operands) == 1 {
				if s, ok := op.Operands[0].(pdf.String); ok {
					r.showText(s.Value)
				}
			}
		case "\"":
			r.textMove(0, -r.text.leading)
			if len(op.Operands) == 3 {
				if s, ok := op.Operands[2].(pdf.String); ok {
					r.showText(s.Value)
				}
			}
		case "TJ":
			if len(op.Operands) == 1 {
				if arr, ok := op.Operands[0].(pdf.Array); ok {
					for _, item := range arr {
						switch v := item.(type) {
						case pdf.String:
							r.showText(v.Value)
						case pdf.Integer, pdf.Real:
							// Kerning adjustment in thousandths of text space.
							r.advance(-pdf.ToFloat(v) / 1000 * r.text.fontSize)
						}
					}
				}
			}

		case "Do":
			if len(op.Operands) == 1 {
				if name, ok := op.Operands[0].(pdf.Name); ok {
					r.drawXObject(string(name))
				}
			}
		}
	}
}

// fillRect paints the device-space bounding box of a page-space rectangle.
func (r *pageRenderer) fillRect(rect pdf.Rectangle) {
	x0, y0 := r.state.ctm.apply(rect.LLX, rect.LLY)
	x1, y1 := r.state.ctm.apply(rect.URX, rect.URY)
	x2, y2 := r.state.ctm.apply(rect.LLX, rect.URY)
	x3, y3 := r.state.ctm.apply(rect.URX, rect.LLY)

	minX := int(math.Floor(min4(x0, x1, x2, x3)))
	maxX := int(math.Ceil(max4(x0, x1, x2, x3)))
	minY := int(math.Floor(min4(y0, y1, y2, y3)))
	maxY := int(math.Ceil(max4(y0, y1, y2, y3)))

	dev := image.Rect(minX, minY, maxX, maxY).Intersect(r.dst.Bounds())
	if dev.Empty() {
		return
	}
	draw.Draw(r.dst, dev, image.NewUniform(r.state.fill), image.Point{}, draw.Over)
}

// textMove applies a Td displacement to the line matrix.
func (r *pageRenderer) textMove(tx, ty float64) {
	r.text.tlm = (matrix{a: 1, d: 1, e: tx, f: ty}).concat(r.text.tlm)
	r.text.tm = r.text.tlm
}

// advance shifts the text matrix along the baseline by w text-space units.
func (r *pageRenderer) advance(w float64) {
	r.text.tm = (matrix{a: 1, d: 1, e: w, f: 0}).concat(r.text.tm)
}

// showText draws a simple-font string at the current text position.
// Bytes are interpreted as Latin-1, which covers WinAnsi-encoded simple
// fonts well enough for print raster output. Composite (Type0) fonts are
// advanced but not drawn.
func (r *pageRenderer) showText(raw []byte) {
	ttf := r.text.font
	if ttf == nil {
		ttf = fallbackFont()
	}
	if ttf == nil || r.text.fontSize == 0 {
		return
	}

	trm := r.text.tm.concat(r.state.ctm)
	devSize := r.text.fontSize * trm.scaleMagnitude()
	if devSize < 1 {
		devSize = 1
	}
	x, y := trm.apply(0, 0)

	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    devSize,
		DPI:     72, // size already in device pixels
		Hinting: font.HintingFull,
	})
	defer face.Close()

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	text := string(runes)

	drawer := font.Drawer{
		Dst:  r.dst,
		Src:  image.NewUniform(r.state.fill),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	drawer.DrawString(text)

	// Advance the text matrix by the string width in text-space units.
	widthPx := float64(drawer.MeasureString(text)) / 64
	scale := trm.scaleMagnitude()
	if scale > 0 {
		r.advance(widthPx / scale)
	}
}

// lookupFont resolves and parses the named font's embedded TrueType program,
// falling back to the engine's base font.
func (r *pageRenderer) lookupFont(name string) *truetype.Font {
	if f, ok := r.fonts[name]; ok {
		return f
	}
	f := r.parseFont(name)
	if f == nil {
		f = fallbackFont()
	}
	r.fonts[name] = f
	return f
}

func (r *pageRenderer) parseFont(name string) *truetype.Font {
	dict, ok := r.page.Font(name)
	if !ok {
		return nil
	}
	doc := r.page.Document()

	descObj, err := doc.Resolve(dict.Get("FontDescriptor"))
	if err != nil {
		return nil
	}
	desc, ok := descObj.(pdf.Dictionary)
	if !ok {
		return nil
	}
	fileObj, err := doc.Resolve(desc.Get("FontFile2"))
	if err != nil {
		return nil
	}
	stream, ok := fileObj.(pdf.Stream)
	if !ok {
		return nil
	}
	data, err := stream.Decode()
	if err != nil {
		return nil
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil
	}
	return ttf
}

// drawXObject paints an image XObject through the current transform. Form
// XObjects are skipped.
func (r *pageRenderer) drawXObject(name string) {
	stream, ok := r.page.XObject(name)
	if !ok {
		return
	}
	subtype, _ := stream.Dictionary.GetName("Subtype")
	if subtype != "Image" {
		return
	}

	src := decodeImage(r.page.Document(), stream)
	if src == nil {
		return
	}

	// The unit square maps through the CTM to the destination area.
	x0, y0 := r.state.ctm.apply(0, 0)
	x1, y1 := r.state.ctm.apply(1, 1)
	x2, y2 := r.state.ctm.apply(0, 1)
	x3, y3 := r.state.ctm.apply(1, 0)

	minX := int(math.Floor(min4(x0, x1, x2, x3)))
	maxX := int(math.Ceil(max4(x0, x1, x2, x3)))
	minY := int(math.Floor(min4(y0, y1, y2, y3)))
	maxY := int(math.Ceil(max4(y0, y1, y2, y3)))

	dev := image.Rect(minX, minY, maxX, maxY)
	if dev.Empty() || dev.Intersect(r.dst.Bounds()).Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(r.dst, dev, src, src.Bounds(), draw.Over, nil)
}

// decodeImage turns an image XObject stream into an image.Image. DCT data is
// decoded as JPEG; raw samples are read for 8-bit gray and RGB. Anything else
// is skipped.
func decodeImage(doc *pdf.Document, stream pdf.Stream) image.Image {
	filter, _ := stream.Dictionary.GetName("Filter")
	if arr, ok := stream.Dictionary.GetArray("Filter"); ok && len(arr) > 0 {
		if n, ok := arr[len(arr)-1].(pdf.Name); ok {
			filter = n
		}
	}

	if filter == "DCTDecode" || filter == "DCT" {
		img, err := jpeg.Decode(bytes.NewReader(stream.Data))
		if err != nil {
			return nil
		}
		return img
	}

	data, err := stream.Decode()
	if err != nil {
		return nil
	}

	width, _ := stream.Dictionary.GetInt("Width")
	height, _ := stream.Dictionary.GetInt("Height")
	if width <= 0 || height <= 0 {
		return nil
	}
	bpc, ok := stream.Dictionary.GetInt("BitsPerComponent")
	if !ok {
		bpc = 8
	}
	if bpc != 8 {
		return nil
	}

	csObj, _ := doc.Resolve(stream.Dictionary.Get("ColorSpace"))
	cs, _ := csObj.(pdf.Name)

	w, h := int(width), int(height)
	switch cs {
	case "DeviceGray", "CalGray":
		if len(data) < w*h {
			return nil
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], data[y*w:])
		}
		return img
	case "DeviceRGB", "CalRGB":
		if len(data) < w*h*3 {
			return nil
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			img.Pix[i*4] = data[i*3]
			img.Pix[i*4+1] = data[i*3+1]
			img.Pix[i*4+2] = data[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img
	}
	return nil
}

// operandColor interprets a fill color operator's operands: 1 component is
// gray, 3 is RGB, 4 is CMYK.
func operandColor(operands []pdf.Object) (color.RGBA, bool) {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	switch len(operands) {
	case 1:
		g := clamp(pdf.ToFloat(operands[0]))
		return color.RGBA{R: g, G: g, B: g, A: 255}, true
	case 3:
		return color.RGBA{
			R: clamp(pdf.ToFloat(operands[0])),
			G: clamp(pdf.ToFloat(operands[1])),
			B: clamp(pdf.ToFloat(operands[2])),
			A: 255,
		}, true
	case 4:
		c := pdf.ToFloat(operands[0])
		m := pdf.ToFloat(operands[1])
		yy := pdf.ToFloat(operands[2])
		k := pdf.ToFloat(operands[3])
		return color.RGBA{
			R: clamp((1 - c) * (1 - k)),
			G: clamp((1 - m) * (1 - k)),
			B: clamp((1 - yy) * (1 - k)),
			A: 255,
		}, true
	}
	return color.RGBA{}, false
}

func min4(a, b, c, d float64) float64 {
	return math.Min(math.Min(a, b), math.Min(c, d))
}

func max4(a, b, c, d float64) float64 {
	return math.Max(math.Max(a, b), math.Max(c, d))
}
