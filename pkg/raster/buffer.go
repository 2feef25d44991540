package raster

import (
	"image"
	"image/color"
)

// Owner tags who is responsible for destroying a buffer. Exactly one owner
// releases it: the cache for resident buffers, the caller otherwise.
type Owner int

const (
	OwnerCaller Owner = iota
	OwnerCache
)

// Buffer is a rendered page bitmap in 32-bit BGRA order, top-down rows.
type Buffer struct {
	Width  int
	Height int
	Stride int // bytes per row; always Width*4
	Pixels []byte

	owner     Owner
	destroyed bool
}

// newBuffer allocates a Width×Height BGRA buffer owned by the caller.
func newBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Pixels: make([]byte, width*height*4),
	}
}

// Owner returns the buffer's current owner tag.
func (b *Buffer) Owner() Owner { return b.owner }

// Destroyed reports whether the buffer has been released.
func (b *Buffer) Destroyed() bool { return b.destroyed }

// Destroy releases the pixel storage. Using the buffer afterwards is an error
// the pipeline guards against via Destroyed.
func (b *Buffer) Destroy() {
	b.Pixels = nil
	b.destroyed = true
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.RGBA) {
	if b.destroyed {
		return
	}
	for i := 0; i < len(b.Pixels); i += 4 {
		b.Pixels[i] = c.B
		b.Pixels[i+1] = c.G
		b.Pixels[i+2] = c.R
		b.Pixels[i+3] = c.A
	}
}

// fromRGBA converts an image.RGBA into the buffer's BGRA storage. The image
// bounds must match the buffer dimensions.
func (b *Buffer) fromRGBA(img *image.RGBA) {
	if b.destroyed {
		return
	}
	for y := 0; y < b.Height; y++ {
		src := img.Pix[y*img.Stride:]
		dst := b.Pixels[y*b.Stride:]
		for x := 0; x < b.Width; x++ {
			dst[x*4] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4]
			dst[x*4+3] = src[x*4+3]
		}
	}
}

// RGBA returns a copy of the buffer as an image.RGBA, for encoding or tests.
func (b *Buffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	if b.destroyed {
		return img
	}
	for y := 0; y < b.Height; y++ {
		src := b.Pixels[y*b.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < b.Width; x++ {
			dst[x*4] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4]
			dst[x*4+3] = src[x*4+3]
		}
	}
	return img
}
