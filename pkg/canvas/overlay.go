package canvas

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Overlay draws src over c with its top-left corner at the canvas origin.
// Opaque source pixels replace what is underneath, transparent ones leave
// it visible and partially transparent ones are blended (Porter-Duff over).
func (c *Canvas) Overlay(src image.Image) {
	if s, ok := src.(*image.NRGBA); ok {
		c.overlayNRGBA(s)
		return
	}
	xdraw.Draw(c.img, c.img.Rect, src, src.Bounds().Min, xdraw.Over)
}

// OverlayCanvas draws o over c. See Overlay.
func (c *Canvas) OverlayCanvas(o *Canvas) {
	c.overlayNRGBA(o.img)
}

// overlayNRGBA blends straight-alpha pixels directly; x/image/draw has no
// NRGBA destination fast path and would go through color.Color per pixel.
func (c *Canvas) overlayNRGBA(src *image.NRGBA) {
	sb := src.Bounds()
	w := min(c.img.Rect.Dx(), sb.Dx())
	h := min(c.img.Rect.Dy(), sb.Dy())

	for y := 0; y < h; y++ {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		di := c.img.PixOffset(0, y)
		for x := 0; x < w; x, si, di = x+1, si+4, di+4 {
			sa := uint32(src.Pix[si+3])
			switch sa {
			case 0:
				continue
			case 0xff:
				copy(c.img.Pix[di:di+4], src.Pix[si:si+4])
				continue
			}

			d := c.img.Pix[di : di+4 : di+4]
			s := src.Pix[si : si+4 : si+4]
			da := uint32(d[3]) * (0xff - sa) / 0xff
			oa := sa + da
			for k := 0; k < 3; k++ {
				d[k] = uint8((uint32(s[k])*sa + uint32(d[k])*da + oa/2) / oa)
			}
			d[3] = uint8(oa)
		}
	}
}
