package projection

import (
	"image"
	"math"

	"github.com/paulmach/orb"
)

// Reference frame of the world (Mercator) policy. These are policy
// constants and are never derived from the view's envelope.
const (
	MercatorLatBottom = -82.05
	MercatorLngLeft   = -180.85
	MercatorLngRight  = 180.0
)

// maxPixel bounds projected coordinates; anything further away than this
// cannot land on a canvas and is reported as having no position.
const maxPixel = 1 << 30

// Project maps p to a pixel position using the view's policy.
// The boolean is false when p has no position: outside the envelope for
// the linear policy, or not finite for either policy.
func (v View) Project(p orb.Point) (image.Point, bool) {
	if v.WorldProjection {
		return Mercator(v, p)
	}
	return Linear(v, p)
}

// Linear maps p through the envelope. The envelope is closed: points on
// its border are inside. With FlipVertical the y coordinate is reflected
// about the envelope's vertical centre before scaling.
func Linear(v View, p orb.Point) (image.Point, bool) {
	x, y := p[0], p[1]
	if math.IsNaN(x) || math.IsNaN(y) || !v.Envelope.Contains(p) {
		return image.Point{}, false
	}

	minX, minY, _, maxY := v.Bounds()
	if v.FlipVertical {
		cy := (minY + maxY) / 2
		y = cy - (y - cy)
	}

	return toPixel((x-minX)*v.ScaleX, (y-minY)*v.ScaleY)
}

// Mercator maps a longitude/latitude pair onto the fixed world strip.
// No clipping is applied; positions may fall outside the canvas.
func Mercator(v View, p orb.Point) (image.Point, bool) {
	lng, lat := p.Lon(), p.Lat()
	w, h := float64(v.Width), float64(v.Height)

	latBottomRad := MercatorLatBottom * math.Pi / 180
	latRad := lat * math.Pi / 180
	lngDelta := MercatorLngRight - MercatorLngLeft

	worldMapWidth := ((w / lngDelta) * 360) / (2 * math.Pi)
	offsetY := worldMapWidth / 2 * math.Log((1+math.Sin(latBottomRad))/(1-math.Sin(latBottomRad)))

	x := (lng - MercatorLngLeft) * (w / lngDelta)
	y := h - (worldMapWidth/2*math.Log((1+math.Sin(latRad))/(1-math.Sin(latRad))) - offsetY)

	return toPixel(x, y)
}

// toPixel truncates toward zero.
func toPixel(x, y float64) (image.Point, bool) {
	if !finite(x) || !finite(y) || math.Abs(x) > maxPixel || math.Abs(y) > maxPixel {
		return image.Point{}, false
	}
	return image.Pt(int(x), int(y)), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
