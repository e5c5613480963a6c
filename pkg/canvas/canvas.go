// Package canvas provides the in-memory pixel buffer that partitions render
// into, the drawing primitives used by the renderers, and [Portable], the
// self-contained byte form a canvas takes when it crosses a process or
// worker boundary.
//
// A Canvas stores straight (non-premultiplied) RGBA with its origin in the
// top-left corner. All drawing is aliased: a pixel is either painted with
// the drawing colour or left alone. Writes outside the canvas are clipped
// silently.
//
// # Ownership
//
// A Canvas is not safe for concurrent use. The renderer that creates one owns
// it until it is handed to a merge; after that the caller must not touch it
// again.
package canvas

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// MaxPixels is the largest canvas area accepted, at four bytes per pixel.
// Decoded backgrounds are held to the same bound.
const MaxPixels = 1 << 27

// CheckSize returns an INVALID_SIZE error unless width x height is a
// positive area of at most MaxPixels.
func CheckSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New(errors.ErrCodeInvalidSize, "image size must be positive, got %dx%d", width, height)
	}
	if width > MaxPixels/height {
		return errors.New(errors.ErrCodeInvalidSize, "image size %dx%d exceeds %d pixels", width, height, MaxPixels)
	}
	return nil
}

// Canvas is a fixed-size RGBA pixel buffer.
type Canvas struct {
	img *image.NRGBA
}

// New returns a fully transparent canvas of the given size.
// Non-positive dimensions yield an empty canvas.
func New(width, height int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))}
}

// FromImage copies img into a new canvas of the same size. The top-left
// pixel of img becomes the canvas origin.
func FromImage(img image.Image) *Canvas {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && nrgba.Stride == 4*b.Dx() {
		dst := image.NewNRGBA(b)
		copy(dst.Pix, nrgba.Pix)
		return &Canvas{img: dst}
	}
	c := New(b.Dx(), b.Dy())
	xdraw.Draw(c.img, c.img.Bounds(), img, b.Min, xdraw.Src)
	return c
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Bounds returns the canvas rectangle, always anchored at the origin.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// SameSize reports whether c and o have identical dimensions.
func (c *Canvas) SameSize(o *Canvas) bool {
	return c.img.Rect.Size() == o.img.Rect.Size()
}

// Image exposes the backing image for encoders. Callers must treat it as
// read-only.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// At returns the pixel at (x, y); outside the canvas it is transparent.
func (c *Canvas) At(x, y int) color.NRGBA {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return color.NRGBA{}
	}
	return c.img.NRGBAAt(x, y)
}

// IsTransparent reports whether no pixel has any coverage.
func (c *Canvas) IsTransparent() bool {
	for i := 3; i < len(c.img.Pix); i += 4 {
		if c.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether c and o show the same picture. Fully transparent
// pixels compare equal regardless of their colour channels.
func (c *Canvas) Equal(o *Canvas) bool {
	if !c.SameSize(o) {
		return false
	}
	w, h := c.Width(), c.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a, b := c.img.NRGBAAt(x, y), o.img.NRGBAAt(x, y)
			if a.A == 0 && b.A == 0 {
				continue
			}
			if a != b {
				return false
			}
		}
	}
	return true
}

// Coverage returns the number of pixels with non-zero alpha.
func (c *Canvas) Coverage() int {
	n := 0
	for i := 3; i < len(c.img.Pix); i += 4 {
		if c.img.Pix[i] != 0 {
			n++
		}
	}
	return n
}
