// Package projection maps source coordinates to canvas pixel coordinates.
//
// A [View] carries everything a partition renderer needs to place a
// coordinate on the canvas: the image size, the visible envelope, the
// derived scale factors and the styling flags. A View is built once per
// invocation with [NewView] and then shared read-only by every partition.
//
// Two projection policies exist and the choice is fixed per View:
//
//   - Linear: the envelope is stretched onto the canvas. Coordinates outside
//     the (closed) envelope have no position and are not drawn.
//   - World: a Mercator projection of the fixed world strip
//     [MercatorLngLeft, MercatorLngRight] x [MercatorLatBottom, ...].
//     The envelope is ignored and nothing is clipped.
package projection

import (
	"image/color"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/errors"
)

// DefaultColor is the drawing colour used when none is configured (opaque red).
var DefaultColor = color.NRGBA{R: 255, A: 255}

// DefaultPointSize is the side length of a rendered point in pixels.
const DefaultPointSize = 1

// Options describes the view to build. A zero PointSize is replaced by
// [DefaultPointSize]. Color is used as given, so a fully transparent colour
// draws nothing; [DefaultColor] is applied by the option layer.
type Options struct {
	Width           int
	Height          int
	Envelope        orb.Bound
	FlipVertical    bool
	FillPolygons    bool
	WorldProjection bool
	PointSize       int
	Color           color.NRGBA
}

// View holds the immutable rendering parameters of one invocation.
// Pass it by value; nothing in this module mutates a View after NewView.
type View struct {
	Width    int
	Height   int
	Envelope orb.Bound

	// ScaleX and ScaleY are pixels per source unit, derived once from
	// Width/Height and the envelope size.
	ScaleX float64
	ScaleY float64

	FlipVertical    bool
	FillPolygons    bool
	WorldProjection bool
	PointSize       int
	Color           color.NRGBA
}

// NewView validates opts and derives the scale factors.
func NewView(opts Options) (View, error) {
	if err := canvas.CheckSize(opts.Width, opts.Height); err != nil {
		return View{}, err
	}
	if err := ValidateEnvelope(opts.Envelope); err != nil {
		return View{}, err
	}
	if opts.PointSize < 0 {
		return View{}, errors.New(errors.ErrCodeInvalidSize, "point size must be positive, got %d", opts.PointSize)
	}
	if opts.PointSize == 0 {
		opts.PointSize = DefaultPointSize
	}

	return View{
		Width:           opts.Width,
		Height:          opts.Height,
		Envelope:        opts.Envelope,
		ScaleX:          float64(opts.Width) / envelopeWidth(opts.Envelope),
		ScaleY:          float64(opts.Height) / envelopeHeight(opts.Envelope),
		FlipVertical:    opts.FlipVertical,
		FillPolygons:    opts.FillPolygons,
		WorldProjection: opts.WorldProjection,
		PointSize:       opts.PointSize,
		Color:           opts.Color,
	}, nil
}

// ValidateEnvelope checks that b is finite and has positive width and height.
func ValidateEnvelope(b orb.Bound) error {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidEnvelope, "envelope must be finite, got %v", b)
		}
	}
	if w := envelopeWidth(b); w <= 0 {
		return errors.New(errors.ErrCodeInvalidEnvelope, "envelope width must be positive, got %g", w)
	}
	if h := envelopeHeight(b); h <= 0 {
		return errors.New(errors.ErrCodeInvalidEnvelope, "envelope height must be positive, got %g", h)
	}
	return nil
}

// Bounds returns the envelope as minX, minY, maxX, maxY.
func (v View) Bounds() (minX, minY, maxX, maxY float64) {
	return v.Envelope.Min[0], v.Envelope.Min[1], v.Envelope.Max[0], v.Envelope.Max[1]
}

// WorldEnvelope is the envelope covering all longitudes and latitudes.
var WorldEnvelope = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

func envelopeWidth(b orb.Bound) float64  { return b.Max[0] - b.Min[0] }
func envelopeHeight(b orb.Bound) float64 { return b.Max[1] - b.Min[1] }
