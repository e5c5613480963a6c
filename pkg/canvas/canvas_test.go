package canvas

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/starkviz/pkg/errors"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

func painted(c *Canvas) map[image.Point]bool {
	out := map[image.Point]bool{}
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if c.At(x, y).A != 0 {
				out[image.Pt(x, y)] = true
			}
		}
	}
	return out
}

func TestNew(t *testing.T) {
	c := New(20, 10)
	if c.Width() != 20 || c.Height() != 10 {
		t.Fatalf("size = %dx%d, want 20x10", c.Width(), c.Height())
	}
	if !c.IsTransparent() {
		t.Error("new canvas should be transparent")
	}
	if New(-1, 5).Width() != 0 {
		t.Error("negative width should clamp to zero")
	}
}

func TestFillRectClips(t *testing.T) {
	c := New(10, 10)
	c.FillRect(image.Rect(8, 8, 14, 14), red)
	c.FillRect(image.Rect(-5, -5, -1, -1), red)

	if got := c.Coverage(); got != 4 {
		t.Errorf("Coverage() = %d, want 4", got)
	}
	if c.At(9, 9) != red {
		t.Errorf("At(9,9) = %v, want red", c.At(9, 9))
	}
	if c.At(12, 12) != (color.NRGBA{}) {
		t.Error("At outside the canvas should be transparent")
	}
}

func TestFillSquare(t *testing.T) {
	c := New(100, 100)
	c.FillSquare(image.Pt(50, 50), 2, red)

	want := map[image.Point]bool{
		{50, 50}: true, {51, 50}: true,
		{50, 51}: true, {51, 51}: true,
	}
	got := painted(c)
	if len(got) != len(want) {
		t.Fatalf("painted %d pixels, want %d", len(got), len(want))
	}
	for p := range want {
		if !got[p] {
			t.Errorf("pixel %v not painted", p)
		}
	}
}

func TestFillPolygon(t *testing.T) {
	tests := []struct {
		name string
		pts  []image.Point
		want int
	}{
		{"axis aligned square", []image.Point{{2, 2}, {6, 2}, {6, 6}, {2, 6}}, 16},
		{"closed ring repeats first vertex", []image.Point{{2, 2}, {6, 2}, {6, 6}, {2, 6}, {2, 2}}, 16},
		{"two vertices", []image.Point{{1, 1}, {5, 5}}, 0},
		{"empty", nil, 0},
		{"degenerate line", []image.Point{{1, 1}, {5, 1}, {9, 1}}, 0},
		{"off canvas", []image.Point{{-10, -10}, {-5, -10}, {-5, -5}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(20, 20)
			c.FillPolygon(tt.pts, red)
			if got := c.Coverage(); got != tt.want {
				t.Errorf("Coverage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFillPolygonEvenOdd(t *testing.T) {
	// Pentagram: the centre is crossed twice and stays empty.
	star := []image.Point{{50, 0}, {79, 90}, {2, 35}, {98, 35}, {21, 90}}
	c := New(100, 100)
	c.FillPolygon(star, red)

	if c.At(50, 50).A != 0 {
		t.Error("star centre should not be filled under even-odd")
	}
	if c.At(50, 10).A == 0 {
		t.Error("star tip should be filled")
	}
}

func TestStrokePolygon(t *testing.T) {
	t.Run("square outline", func(t *testing.T) {
		c := New(10, 10)
		c.StrokePolygon([]image.Point{{1, 1}, {4, 1}, {4, 4}, {1, 4}}, red)
		got := painted(c)
		if len(got) != 12 {
			t.Errorf("painted %d pixels, want 12", len(got))
		}
		if got[image.Pt(2, 2)] {
			t.Error("interior must stay empty when stroking")
		}
	})

	t.Run("single vertex", func(t *testing.T) {
		c := New(10, 10)
		c.StrokePolygon([]image.Point{{3, 3}}, red)
		if c.Coverage() != 1 || c.At(3, 3) != red {
			t.Error("single vertex should paint exactly one pixel")
		}
	})

	t.Run("empty", func(t *testing.T) {
		c := New(10, 10)
		c.StrokePolygon(nil, red)
		if !c.IsTransparent() {
			t.Error("empty polygon should paint nothing")
		}
	})

	t.Run("far away vertices", func(t *testing.T) {
		c := New(10, 10)
		c.StrokePolygon([]image.Point{{-1 << 29, 5}, {1 << 29, 5}}, red)
		for x := 0; x < 10; x++ {
			if c.At(x, 5) != red {
				t.Fatalf("At(%d,5) not painted", x)
			}
		}
		if c.Coverage() != 10 {
			t.Errorf("Coverage() = %d, want 10", c.Coverage())
		}
	})
}

func TestLineEndpoints(t *testing.T) {
	tests := []struct {
		a, b image.Point
		n    int
	}{
		{image.Pt(0, 0), image.Pt(9, 0), 10},
		{image.Pt(0, 0), image.Pt(0, 9), 10},
		{image.Pt(0, 0), image.Pt(9, 9), 10},
		{image.Pt(9, 2), image.Pt(0, 5), 10},
	}
	for _, tt := range tests {
		c := New(10, 10)
		c.Line(tt.a, tt.b, red)
		if c.At(tt.a.X, tt.a.Y) != red || c.At(tt.b.X, tt.b.Y) != red {
			t.Errorf("Line(%v, %v) must include both endpoints", tt.a, tt.b)
		}
		if got := c.Coverage(); got != tt.n {
			t.Errorf("Line(%v, %v) painted %d pixels, want %d", tt.a, tt.b, got, tt.n)
		}
	}
}

func TestOverlay(t *testing.T) {
	a := New(4, 4)
	a.FillRect(image.Rect(0, 0, 2, 4), red)
	b := New(4, 4)
	b.FillRect(image.Rect(1, 0, 3, 4), blue)

	dst := New(4, 4)
	dst.OverlayCanvas(a)
	dst.OverlayCanvas(b)

	want := []color.NRGBA{red, blue, blue, {}}
	for x, w := range want {
		if got := dst.At(x, 0); got != w {
			t.Errorf("At(%d,0) = %v, want %v", x, got, w)
		}
	}
}

func TestOverlayBlendsTranslucent(t *testing.T) {
	dst := New(1, 1)
	dst.FillRect(dst.Bounds(), blue)
	dst.OverlayCanvas(func() *Canvas {
		c := New(1, 1)
		c.FillRect(c.Bounds(), color.NRGBA{R: 255, A: 128})
		return c
	}())

	got := dst.At(0, 0)
	if got.A != 255 {
		t.Errorf("alpha = %d, want 255", got.A)
	}
	if got.R < 120 || got.R > 135 || got.B < 120 || got.B > 135 {
		t.Errorf("blend = %v, want roughly half red half blue", got)
	}
}

func TestOverlayGenericImage(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for i := range bg.Pix {
		bg.Pix[i] = 0xff
	}
	c := New(3, 3)
	c.Overlay(bg)
	if c.At(2, 2) != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("At(2,2) = %v, want opaque white", c.At(2, 2))
	}
}

func TestEqual(t *testing.T) {
	a := New(3, 3)
	b := New(3, 3)
	if !a.Equal(b) {
		t.Error("two blank canvases should be equal")
	}
	a.FillRect(image.Rect(0, 0, 1, 1), red)
	if a.Equal(b) {
		t.Error("differing canvases reported equal")
	}
	if a.Equal(New(3, 4)) {
		t.Error("different sizes reported equal")
	}

	// colour channels of fully transparent pixels are irrelevant
	b.img.Pix[0] = 99
	if !New(3, 3).Equal(b) {
		t.Error("transparent pixels should compare equal")
	}
}

func TestPortableRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	tests := []struct {
		name  string
		build func() *Canvas
	}{
		{"transparent", func() *Canvas { return New(16, 9) }},
		{"fully opaque", func() *Canvas {
			c := New(8, 8)
			c.FillRect(c.Bounds(), green)
			c.FillRect(image.Rect(2, 2, 4, 4), red)
			return c
		}},
		{"mixed shapes", func() *Canvas {
			c := New(64, 48)
			for i := 0; i < 50; i++ {
				p := image.Pt(rng.IntN(64), rng.IntN(48))
				c.FillSquare(p, 1+rng.IntN(4), RGB(rng.Uint32()))
			}
			c.StrokePolygon([]image.Point{{1, 1}, {60, 5}, {30, 40}}, blue)
			c.FillPolygon([]image.Point{{10, 10}, {20, 10}, {15, 30}}, red)
			return c
		}},
		{"translucent", func() *Canvas {
			c := New(4, 4)
			c.FillRect(image.Rect(0, 0, 2, 2), color.NRGBA{R: 10, G: 200, B: 30, A: 77})
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.build()
			p, err := Encode(orig)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if p.Len() == 0 {
				t.Fatal("Encode() produced no bytes")
			}

			raw, _ := p.MarshalBinary()
			var q Portable
			if err := q.UnmarshalBinary(raw); err != nil {
				t.Fatalf("UnmarshalBinary() error: %v", err)
			}

			got, err := q.Decode()
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !got.Equal(orig) {
				t.Error("round trip changed pixels")
			}
		})
	}
}

func TestPortableDecodeErrors(t *testing.T) {
	if _, err := (Portable{}).Decode(); !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("empty Decode() error = %v, want DECODE_ERROR", err)
	}
	var garbage Portable
	if err := garbage.UnmarshalBinary([]byte("not a png")); err != nil {
		t.Fatalf("UnmarshalBinary() error: %v", err)
	}
	if _, err := garbage.Decode(); !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("garbage Decode() error = %v, want DECODE_ERROR", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff0000", red, false},
		{"00ff00", green, false},
		{"#00f", blue, false},
		{"#11223344", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, false},
		{"red", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatColor(t *testing.T) {
	if got := FormatColor(red); got != "#ff0000" {
		t.Errorf("FormatColor(red) = %q", got)
	}
	if got := FormatColor(color.NRGBA{R: 1, G: 2, B: 3, A: 4}); got != "#01020304" {
		t.Errorf("FormatColor() = %q", got)
	}
}

func TestRGB(t *testing.T) {
	if got := RGB(0x12ab34); got != (color.NRGBA{R: 0x12, G: 0xab, B: 0x34, A: 0xff}) {
		t.Errorf("RGB() = %v", got)
	}
	if got := RGB(0xff000000); got != (color.NRGBA{A: 0xff}) {
		t.Errorf("RGB() should ignore high bits, got %v", got)
	}
}
