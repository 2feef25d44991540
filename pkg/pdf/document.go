package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ErrEncrypted is returned when a document carries an /Encrypt dictionary.
// The print pipeline does not decrypt; callers surface this as a password
// failure.
var ErrEncrypted = errors.New("pdf: document is encrypted")

// Document is a parsed PDF file.
type Document struct {
	data    []byte
	Version string
	Trailer Dictionary
	Root    Dictionary
	Pages   []*Page

	xref    map[int]xrefEntry
	objects map[int]Object
}

type xrefEntry struct {
	Offset     int
	Generation int
	InUse      bool

	// Compressed objects live inside an object stream.
	StreamObj int
	Index     int
}

// Page is one leaf of the page tree.
type Page struct {
	doc        *Document
	Dictionary Dictionary
	Index      int // zero-based
	MediaBox   Rectangle
	CropBox    Rectangle
	Resources  Dictionary
	Rotation   int
}

// Rectangle is a PDF rectangle in points.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the rectangle width.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Open reads and parses a PDF file.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(data)
}

// New parses PDF bytes into a document.
func New(data []byte) (*Document, error) {
	d := &Document{
		data:    data,
		xref:    make(map[int]xrefEntry),
		objects: make(map[int]Object),
	}
	if err := d.parse(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) parse() error {
	if !bytes.HasPrefix(d.data, []byte("%PDF-")) {
		return fmt.Errorf("not a PDF file")
	}
	if eol := bytes.IndexAny(d.data, "\r\n"); eol > 5 {
		d.Version = string(d.data[5:eol])
	}

	start, err := d.findStartXref()
	if err != nil {
		return err
	}
	if err := d.parseXref(start, 0); err != nil {
		return err
	}

	if d.Trailer.Get("Encrypt") != nil {
		return ErrEncrypted
	}

	rootObj, err := d.Resolve(d.Trailer.Get("Root"))
	if err != nil {
		return err
	}
	root, ok := rootObj.(Dictionary)
	if !ok {
		return fmt.Errorf("missing document catalog")
	}
	d.Root = root

	return d.parsePages()
}

// findStartXref locates the startxref offset near the end of the file.
func (d *Document) findStartXref() (int, error) {
	tail := d.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}

	lex := NewLexer(tail[idx+len("startxref"):])
	tok, err := lex.Next()
	if err != nil || tok.Type != TokNumber || tok.Real {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	obj, err := parseNumber(tok)
	if err != nil {
		return 0, err
	}
	n := int(obj.(Integer))
	if n < 0 || n >= len(d.data) {
		return 0, fmt.Errorf("startxref offset %d out of bounds", n)
	}
	return n, nil
}

// parseXref dispatches between the classic table and xref stream forms,
// following Prev chains. depth bounds damaged files with Prev cycles.
func (d *Document) parseXref(offset, depth int) error {
	if depth > 32 {
		return fmt.Errorf("xref chain too deep")
	}
	pos := offset
	for pos < len(d.data) && isWhitespace(d.data[pos]) {
		pos++
	}
	if bytes.HasPrefix(d.data[pos:], []byte("xref")) {
		return d.parseXrefTable(pos, depth)
	}
	return d.parseXrefStream(pos, depth)
}

func (d *Document) parseXrefTable(offset, depth int) error {
	lex := NewLexer(d.data)
	lex.Seek(offset)
	lex.ReadLine() // "xref"

	for {
		mark := lex.Position()
		line := bytes.TrimSpace(lex.ReadLine())
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, []byte("trailer")) {
			lex.Seek(mark + bytes.Index(d.data[mark:], []byte("trailer")) + len("trailer"))
			break
		}

		fields := bytes.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("malformed xref subsection header %q", line)
		}
		start, err1 := atoi(fields[0])
		count, err2 := atoi(fields[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("malformed xref subsection header %q", line)
		}

		for i := 0; i < count; i++ {
			entry := lex.ReadLine()
			if len(entry) < 18 {
				return fmt.Errorf("short xref entry for object %d", start+i)
			}
			off, _ := atoi(bytes.TrimSpace(entry[0:10]))
			gen, _ := atoi(bytes.TrimSpace(entry[11:16]))
			num := start + i
			if _, seen := d.xref[num]; !seen {
				d.xref[num] = xrefEntry{
					Offset:     off,
					Generation: gen,
					InUse:      entry[17] == 'n',
				}
			}
		}
	}

	parser := NewParser(d.data[lex.Position():])
	trailerObj, err := parser.ParseObject()
	if err != nil {
		return fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := trailerObj.(Dictionary)
	if !ok {
		return fmt.Errorf("trailer is not a dictionary")
	}
	d.mergeTrailer(trailer)

	if prev, ok := trailer.GetInt("Prev"); ok {
		return d.parseXref(int(prev), depth+1)
	}
	return nil
}

func (d *Document) parseXrefStream(offset, depth int) error {
	parser := NewParser(d.data[offset:])
	_, _, obj, err := parser.ParseIndirectObject()
	if err != nil {
		return fmt.Errorf("xref stream at %d: %w", offset, err)
	}
	stream, ok := obj.(Stream)
	if !ok {
		return fmt.Errorf("no xref stream at offset %d", offset)
	}

	data, err := stream.Decode()
	if err != nil {
		return fmt.Errorf("xref stream: %w", err)
	}

	wArr, ok := stream.Dictionary.GetArray("W")
	if !ok || len(wArr) != 3 {
		return fmt.Errorf("xref stream missing W")
	}
	var w [3]int
	for i, o := range wArr {
		w[i] = int(ToFloat(o))
	}

	var index []int
	if idxArr, ok := stream.Dictionary.GetArray("Index"); ok {
		for _, o := range idxArr {
			index = append(index, int(ToFloat(o)))
		}
	} else if size, ok := stream.Dictionary.GetInt("Size"); ok {
		index = []int{0, int(size)}
	}

	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return fmt.Errorf("xref stream has zero entry width")
	}
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count && pos+entrySize <= len(data); j++ {
			e := data[pos : pos+entrySize]
			pos += entrySize

			typ := readField(e, 0, w[0])
			if w[0] == 0 {
				typ = 1
			}
			f2 := readField(e, w[0], w[1])
			f3 := readField(e, w[0]+w[1], w[2])

			num := start + j
			if _, seen := d.xref[num]; seen {
				continue
			}
			switch typ {
			case 0:
				d.xref[num] = xrefEntry{InUse: false}
			case 1:
				d.xref[num] = xrefEntry{Offset: f2, Generation: f3, InUse: true}
			case 2:
				d.xref[num] = xrefEntry{StreamObj: f2, Index: f3, InUse: true}
			}
		}
	}

	d.mergeTrailer(stream.Dictionary)

	if prev, ok := stream.Dictionary.GetInt("Prev"); ok {
		return d.parseXref(int(prev), depth+1)
	}
	return nil
}

// mergeTrailer keeps the newest value for each key across incremental updates.
func (d *Document) mergeTrailer(t Dictionary) {
	if d.Trailer == nil {
		d.Trailer = t
		return
	}
	for k, v := range t {
		if _, seen := d.Trailer[k]; !seen {
			d.Trailer[k] = v
		}
	}
}

func readField(data []byte, offset, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v = v<<8 | int(data[offset+i])
	}
	return v
}

func atoi(b []byte) (int, error) {
	n := 0
	if len(b) == 0 {
		return 0, fmt.Errorf("empty number")
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid digit %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// Resolve follows an indirect reference, returning non-reference objects
// unchanged.
func (d *Document) Resolve(obj Object) (Object, error) {
	ref, ok := obj.(Reference)
	if !ok {
		return obj, nil
	}
	return d.Object(ref.Number)
}

// Object loads the object with the given number, caching the result.
func (d *Document) Object(num int) (Object, error) {
	if obj, ok := d.objects[num]; ok {
		return obj, nil
	}
	entry, ok := d.xref[num]
	if !ok || !entry.InUse {
		return Null{}, nil
	}

	var obj Object
	var err error
	if entry.StreamObj > 0 {
		obj, err = d.compressedObject(entry.StreamObj, entry.Index)
	} else {
		if entry.Offset < 0 || entry.Offset >= len(d.data) {
			return nil, fmt.Errorf("object %d offset out of bounds", num)
		}
		parser := NewResolvingParser(d.data[entry.Offset:], func(r Reference) (Object, error) {
			return d.Object(r.Number)
		})
		_, _, obj, err = parser.ParseIndirectObject()
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	d.objects[num] = obj
	return obj, nil
}

// compressedObject extracts entry index from an object stream.
func (d *Document) compressedObject(streamNum, index int) (Object, error) {
	container, err := d.Object(streamNum)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamNum)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	first, ok := stream.Dictionary.GetInt("First")
	if !ok {
		return nil, fmt.Errorf("object stream %d missing First", streamNum)
	}
	n, ok := stream.Dictionary.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("object stream %d missing N", streamNum)
	}
	if index < 0 || index >= int(n) {
		return nil, fmt.Errorf("object stream index %d out of range", index)
	}

	header := NewParser(data[:first])
	offset := -1
	for i := 0; i <= index; i++ {
		if _, err := header.ParseObject(); err != nil { // object number
			return nil, err
		}
		offObj, err := header.ParseObject()
		if err != nil {
			return nil, err
		}
		if i == index {
			offset = int(ToFloat(offObj))
		}
	}
	if offset < 0 || int(first)+offset >= len(data) {
		return nil, fmt.Errorf("object stream offset out of range")
	}
	return NewParser(data[int(first)+offset:]).ParseObject()
}

// parsePages walks the page tree into a flat, zero-based page list.
func (d *Document) parsePages() error {
	pagesObj, err := d.Resolve(d.Root.Get("Pages"))
	if err != nil {
		return err
	}
	pagesDict, ok := pagesObj.(Dictionary)
	if !ok {
		return fmt.Errorf("missing page tree root")
	}
	return d.walkPages(pagesDict, inherited{}, 0)
}

// inherited carries attributes that flow down the page tree.
type inherited struct {
	resources Dictionary
	mediaBox  Rectangle
	hasBox    bool
	rotation  int
}

func (d *Document) walkPages(node Dictionary, inh inherited, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}

	if res, err := d.Resolve(node.Get("Resources")); err == nil {
		if dict, ok := res.(Dictionary); ok {
			inh.resources = dict
		}
	}
	if mb, err := d.Resolve(node.Get("MediaBox")); err == nil {
		if arr, ok := mb.(Array); ok && len(arr) == 4 {
			inh.mediaBox = toRectangle(arr)
			inh.hasBox = true
		}
	}
	if rot, ok := node.GetInt("Rotate"); ok {
		inh.rotation = ((int(rot) % 360) + 360) % 360
	}

	typ, _ := node.GetName("Type")
	if typ == "Page" || (typ == "" && node.Get("Kids") == nil) {
		page := &Page{
			doc:        d,
			Dictionary: node,
			Index:      len(d.Pages),
			Resources:  inh.resources,
			Rotation:   inh.rotation,
		}
		if inh.hasBox {
			page.MediaBox = inh.mediaBox
		} else {
			// US Letter default for files that omit MediaBox entirely.
			page.MediaBox = Rectangle{URX: 612, URY: 792}
		}
		page.CropBox = page.MediaBox
		if cb, err := d.Resolve(node.Get("CropBox")); err == nil {
			if arr, ok := cb.(Array); ok && len(arr) == 4 {
				page.CropBox = toRectangle(arr)
			}
		}
		d.Pages = append(d.Pages, page)
		return nil
	}

	kidsObj, err := d.Resolve(node.Get("Kids"))
	if err != nil {
		return err
	}
	kids, ok := kidsObj.(Array)
	if !ok {
		return fmt.Errorf("page tree node has no Kids")
	}
	for _, kidRef := range kids {
		kidObj, err := d.Resolve(kidRef)
		if err != nil {
			continue
		}
		kid, ok := kidObj.(Dictionary)
		if !ok {
			continue
		}
		if err := d.walkPages(kid, inh, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func toRectangle(arr Array) Rectangle {
	r := Rectangle{
		LLX: ToFloat(arr[0]),
		LLY: ToFloat(arr[1]),
		URX: ToFloat(arr[2]),
		URY: ToFloat(arr[3]),
	}
	// Normalize inverted boxes.
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Page returns the zero-based page, or an error when out of range.
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= len(d.Pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(d.Pages))
	}
	return d.Pages[index], nil
}

// Close releases the document's parsed state. The document must not be used
// afterwards.
func (d *Document) Close() {
	d.data = nil
	d.objects = nil
	d.xref = nil
	d.Pages = nil
}

// Width returns the page width in points, accounting for rotation.
func (p *Page) Width() float64 {
	if p.Rotation == 90 || p.Rotation == 270 {
		return p.CropBox.Height()
	}
	return p.CropBox.Width()
}

// Height returns the page height in points, accounting for rotation.
func (p *Page) Height() float64 {
	if p.Rotation == 90 || p.Rotation == 270 {
		return p.CropBox.Width()
	}
	return p.CropBox.Height()
}

// Contents returns the page's decoded content stream bytes. Multiple content
// streams are concatenated in order.
func (p *Page) Contents() ([]byte, error) {
	obj, err := p.doc.Resolve(p.Dictionary.Get("Contents"))
	if err != nil {
		return nil, err
	}
	switch contents := obj.(type) {
	case Stream:
		return contents.Decode()
	case Array:
		var buf bytes.Buffer
		for _, ref := range contents {
			sObj, err := p.doc.Resolve(ref)
			if err != nil {
				continue
			}
			if stream, ok := sObj.(Stream); ok {
				data, err := stream.Decode()
				if err != nil {
					continue
				}
				buf.Write(data)
				buf.WriteByte('\n')
			}
		}
		return buf.Bytes(), nil
	case nil, Null:
		return nil, nil
	}
	return nil, fmt.Errorf("page %d has invalid Contents", p.Index)
}

// XObject resolves a named XObject stream from the page resources.
func (p *Page) XObject(name string) (Stream, bool) {
	if p.Resources == nil {
		return Stream{}, false
	}
	xobjs, err := p.doc.Resolve(p.Resources.Get("XObject"))
	if err != nil {
		return Stream{}, false
	}
	dict, ok := xobjs.(Dictionary)
	if !ok {
		return Stream{}, false
	}
	obj, err := p.doc.Resolve(dict.Get(name))
	if err != nil {
		return Stream{}, false
	}
	stream, ok := obj.(Stream)
	return stream, ok
}

// Font resolves a named font dictionary from the page resources.
func (p *Page) Font(name string) (Dictionary, bool) {
	if p.Resources == nil {
		return nil, false
	}
	fonts, err := p.doc.Resolve(p.Resources.Get("Font"))
	if err != nil {
		return nil, false
	}
	dict, ok := fonts.(Dictionary)
	if !ok {
		return nil, false
	}
	obj, err := p.doc.Resolve(dict.Get(name))
	if err != nil {
		return nil, false
	}
	font, ok := obj.(Dictionary)
	return font, ok
}

// Document returns the owning document.
func (p *Page) Document() *Document { return p.doc }
