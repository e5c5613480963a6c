package canvas

import (
	"image"
	"image/color"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// FillRect paints r with col. The part of r outside the canvas is ignored.
func (c *Canvas) FillRect(r image.Rectangle, col color.NRGBA) {
	r = r.Intersect(c.img.Rect)
	if r.Empty() || col.A == 0 {
		return
	}
	if col.A == 0xff {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			row := c.img.Pix[c.img.PixOffset(r.Min.X, y):c.img.PixOffset(r.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				row[i], row[i+1], row[i+2], row[i+3] = col.R, col.G, col.B, col.A
			}
		}
		return
	}
	xdraw.Draw(c.img, r, image.NewUniform(col), image.Point{}, xdraw.Over)
}

// FillSquare paints a size x size square whose top-left corner is p.
func (c *Canvas) FillSquare(p image.Point, size int, col color.NRGBA) {
	c.FillRect(image.Rectangle{Min: p, Max: p.Add(image.Pt(size, size))}, col)
}

// FillPolygon paints the interior of the closed polygon pts using the
// even-odd rule. A pixel is inside when its centre is inside. Fewer than
// three vertices enclose no area and paint nothing.
func (c *Canvas) FillPolygon(pts []image.Point, col color.NRGBA) {
	n := len(pts)
	if n < 3 {
		return
	}

	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	minY = max(minY, c.img.Rect.Min.Y)
	maxY = min(maxY, c.img.Rect.Max.Y-1)

	xs := make([]float64, 0, n)
	for y := minY; y <= maxY; y++ {
		sy := float64(y) + 0.5
		xs = xs[:0]
		for i := range pts {
			a, b := pts[i], pts[(i+1)%n]
			ay, by := float64(a.Y), float64(b.Y)
			if (ay <= sy && sy < by) || (by <= sy && sy < ay) {
				t := (sy - ay) / (by - ay)
				xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i] - 0.5))
			x1 := int(math.Ceil(xs[i+1] - 0.5))
			if x1 > x0 {
				c.FillRect(image.Rect(x0, y, x1, y+1), col)
			}
		}
	}
}

// StrokePolygon draws the closed outline of pts: every consecutive pair is
// joined and the last vertex is joined back to the first. A single vertex
// paints one pixel; an empty slice paints nothing.
func (c *Canvas) StrokePolygon(pts []image.Point, col color.NRGBA) {
	switch len(pts) {
	case 0:
		return
	case 1:
		c.setPixel(pts[0].X, pts[0].Y, col)
		return
	}
	for i := range pts {
		c.Line(pts[i], pts[(i+1)%len(pts)], col)
	}
}

// Line draws a one pixel wide segment from a to b, both ends included.
func (c *Canvas) Line(a, b image.Point, col color.NRGBA) {
	a, b, ok := c.clipLine(a, b)
	if !ok {
		return
	}

	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	x, y := a.X, a.Y
	e := dx + dy
	for {
		c.setPixel(x, y, col)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// clipLine trims the segment to the canvas grown by a one pixel margin
// (Liang-Barsky). Segments fully on the canvas are returned untouched, so
// the usual case draws exactly the Bresenham pixels of the input.
func (c *Canvas) clipLine(a, b image.Point) (image.Point, image.Point, bool) {
	r := c.img.Rect.Inset(-1)
	if a.In(r) && b.In(r) {
		return a, b, true
	}

	x0, y0 := float64(a.X), float64(a.Y)
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - float64(r.Min.X)},
		{dx, float64(r.Max.X-1) - x0},
		{-dy, y0 - float64(r.Min.Y)},
		{dy, float64(r.Max.Y-1) - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = max(t0, t)
		} else {
			t1 = min(t1, t)
		}
		if t0 > t1 {
			return a, b, false
		}
	}

	pa := image.Pt(int(math.Round(x0+t0*dx)), int(math.Round(y0+t0*dy)))
	pb := image.Pt(int(math.Round(x0+t1*dx)), int(math.Round(y0+t1*dy)))
	return pa, pb, true
}

func (c *Canvas) setPixel(x, y int, col color.NRGBA) {
	c.FillRect(image.Rect(x, y, x+1, y+1), col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
