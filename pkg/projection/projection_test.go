package projection

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/errors"
)

func mustView(t *testing.T, opts Options) View {
	t.Helper()
	v, err := NewView(opts)
	if err != nil {
		t.Fatalf("NewView() error: %v", err)
	}
	return v
}

func squareView(t *testing.T, flip bool) View {
	return mustView(t, Options{
		Width:        100,
		Height:       100,
		Envelope:     orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}},
		FlipVertical: flip,
	})
}

func TestNewViewDefaults(t *testing.T) {
	v := squareView(t, false)

	if v.ScaleX != 10 || v.ScaleY != 10 {
		t.Errorf("scale = (%g, %g), want (10, 10)", v.ScaleX, v.ScaleY)
	}
	if v.PointSize != DefaultPointSize {
		t.Errorf("PointSize = %d, want %d", v.PointSize, DefaultPointSize)
	}
	if v.Color != (color.NRGBA{}) {
		t.Errorf("Color = %v, want the colour as given", v.Color)
	}

	custom := mustView(t, Options{
		Width: 10, Height: 10,
		Envelope:  orb.Bound{Max: orb.Point{1, 1}},
		PointSize: 4,
		Color:     color.NRGBA{B: 255, A: 255},
	})
	if custom.PointSize != 4 || custom.Color.B != 255 {
		t.Errorf("custom view lost settings: %+v", custom)
	}
}

func TestNewViewValidation(t *testing.T) {
	unit := orb.Bound{Max: orb.Point{1, 1}}
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"zero width", Options{Width: 0, Height: 10, Envelope: unit}, errors.ErrCodeInvalidSize},
		{"negative height", Options{Width: 10, Height: -1, Envelope: unit}, errors.ErrCodeInvalidSize},
		{"too many pixels", Options{Width: 1 << 31, Height: 1 << 31, Envelope: unit}, errors.ErrCodeInvalidSize},
		{"over the pixel limit", Options{Width: 60000, Height: 60000, Envelope: unit}, errors.ErrCodeInvalidSize},
		{"negative point size", Options{Width: 10, Height: 10, Envelope: unit, PointSize: -2}, errors.ErrCodeInvalidSize},
		{"empty envelope", Options{Width: 10, Height: 10}, errors.ErrCodeInvalidEnvelope},
		{"flat envelope", Options{Width: 10, Height: 10, Envelope: orb.Bound{Max: orb.Point{1, 0}}}, errors.ErrCodeInvalidEnvelope},
		{"inverted envelope", Options{Width: 10, Height: 10, Envelope: orb.Bound{Min: orb.Point{1, 1}}}, errors.ErrCodeInvalidEnvelope},
		{"infinite envelope", Options{Width: 10, Height: 10, Envelope: orb.Bound{Max: orb.Point{math.Inf(1), 1}}}, errors.ErrCodeInvalidEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewView(tt.opts)
			if err == nil {
				t.Fatal("NewView() should fail")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("NewView() code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestLinear(t *testing.T) {
	v := squareView(t, false)

	tests := []struct {
		name   string
		p      orb.Point
		want   image.Point
		wantOK bool
	}{
		{"centre", orb.Point{5, 5}, image.Pt(50, 50), true},
		{"origin", orb.Point{0, 0}, image.Pt(0, 0), true},
		{"max corner is inside", orb.Point{10, 10}, image.Pt(100, 100), true},
		{"truncates toward zero", orb.Point{1.29, 3.99}, image.Pt(12, 39), true},
		{"right of envelope", orb.Point{10.01, 5}, image.Point{}, false},
		{"below envelope", orb.Point{5, -0.01}, image.Point{}, false},
		{"NaN", orb.Point{math.NaN(), 5}, image.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := v.Project(tt.p)
			if ok != tt.wantOK {
				t.Fatalf("Project(%v) ok = %v, want %v", tt.p, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Project(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestLinearInteriorStaysOnCanvas(t *testing.T) {
	v := mustView(t, Options{
		Width:    640,
		Height:   480,
		Envelope: orb.Bound{Min: orb.Point{-12.5, 40}, Max: orb.Point{30, 61.25}},
	})
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 10000; i++ {
		// strictly inside: keep away from both borders
		x := -12.5 + 42.5*(0.0001+0.9998*rng.Float64())
		y := 40 + 21.25*(0.0001+0.9998*rng.Float64())
		p, ok := v.Project(orb.Point{x, y})
		if !ok {
			t.Fatalf("Project(%g, %g) returned no position", x, y)
		}
		if p.X < 0 || p.X >= v.Width || p.Y < 0 || p.Y >= v.Height {
			t.Fatalf("Project(%g, %g) = %v, outside %dx%d", x, y, p, v.Width, v.Height)
		}
	}
}

func TestLinearExteriorHasNoPosition(t *testing.T) {
	v := squareView(t, false)
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 1000; i++ {
		x := 10 + 0.001 + rng.Float64()*100
		y := rng.Float64()*200 - 100
		if _, ok := v.Project(orb.Point{x, y}); ok {
			t.Fatalf("Project(%g, %g) should have no position", x, y)
		}
		if _, ok := v.Project(orb.Point{y, -x}); ok {
			t.Fatalf("Project(%g, %g) should have no position", y, -x)
		}
	}
}

func TestLinearFlipReflectsAboutCentre(t *testing.T) {
	plain := squareView(t, false)
	flipped := squareView(t, true)

	for _, y := range []float64{0, 2, 2.5, 5, 7.5, 10} {
		p := orb.Point{3, y}
		a, okA := plain.Project(p)
		b, okB := flipped.Project(p)
		if !okA || !okB {
			t.Fatalf("Project(%v) should be inside", p)
		}
		if a.X != b.X {
			t.Errorf("flip changed x: %d vs %d", a.X, b.X)
		}
		if b.Y != plain.Height-a.Y {
			t.Errorf("y=%g: flipped py = %d, want %d", y, b.Y, plain.Height-a.Y)
		}
	}
}

func TestMercator(t *testing.T) {
	v := mustView(t, Options{
		Width:           1000,
		Height:          800,
		Envelope:        orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}},
		WorldProjection: true,
	})

	t.Run("left edge maps to column zero", func(t *testing.T) {
		p, ok := v.Project(orb.Point{MercatorLngLeft, 0})
		if !ok || p.X != 0 {
			t.Errorf("Project() = %v, %v; want x=0", p, ok)
		}
	})

	t.Run("bottom latitude maps to last row", func(t *testing.T) {
		p, ok := v.Project(orb.Point{0, MercatorLatBottom})
		if !ok || p.Y != v.Height {
			t.Errorf("Project() = %v, %v; want y=%d", p, ok, v.Height)
		}
	})

	t.Run("envelope is ignored", func(t *testing.T) {
		if _, ok := v.Project(orb.Point{120, 45}); !ok {
			t.Error("world policy must not clip to the envelope")
		}
	})

	t.Run("north is up", func(t *testing.T) {
		south, _ := v.Project(orb.Point{10, -30})
		north, _ := v.Project(orb.Point{10, 60})
		if north.Y >= south.Y {
			t.Errorf("north y=%d should be above south y=%d", north.Y, south.Y)
		}
	})

	t.Run("east is right", func(t *testing.T) {
		west, _ := v.Project(orb.Point{-100, 10})
		east, _ := v.Project(orb.Point{100, 10})
		if east.X <= west.X {
			t.Errorf("east x=%d should be right of west x=%d", east.X, west.X)
		}
	})

	t.Run("pole has no position", func(t *testing.T) {
		if _, ok := v.Project(orb.Point{0, 90}); ok {
			t.Error("latitude 90 projects to infinity and must report no position")
		}
	})
}

func TestMercatorDeterministic(t *testing.T) {
	v := mustView(t, Options{
		Width:           512,
		Height:          512,
		Envelope:        WorldEnvelope,
		WorldProjection: true,
	})
	rng := rand.New(rand.NewPCG(5, 6))

	for i := 0; i < 1000; i++ {
		p := orb.Point{rng.Float64()*360 - 180, rng.Float64()*160 - 80}
		a, okA := v.Project(p)
		b, okB := Mercator(v, p)
		if a != b || okA != okB {
			t.Fatalf("Mercator(%v) not deterministic: %v/%v vs %v/%v", p, a, okA, b, okB)
		}
	}
}
