package render

import (
	"image"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/projection"
)

// Record is one spatial record of a partition. Attachment is carried for
// the caller and never inspected by the renderer.
type Record struct {
	Geometry   orb.Geometry
	Attachment any
}

// ClipMode selects how polygons with unprojectable vertices are handled.
type ClipMode string

const (
	// ClipVertex drops each vertex without a position and joins the rest.
	ClipVertex ClipMode = "vertex"
	// ClipShape drops the polygon if any vertex has no position.
	ClipShape ClipMode = "shape"
)

// ValidClipModes lists the accepted clip modes.
var ValidClipModes = map[ClipMode]bool{ClipVertex: true, ClipShape: true}

// VectorOption configures Vector.
type VectorOption func(*vectorRenderer)

// WithClipMode sets the polygon clip mode. Unknown modes keep the default.
func WithClipMode(m ClipMode) VectorOption {
	return func(r *vectorRenderer) {
		if ValidClipModes[m] {
			r.clip = m
		}
	}
}

// WithOutcomes registers fn to receive the outcome of every record.
func WithOutcomes(fn func(i int, rec Record, o Outcome)) VectorOption {
	return func(r *vectorRenderer) { r.onOutcome = fn }
}

type vectorRenderer struct {
	view      projection.View
	clip      ClipMode
	onOutcome func(int, Record, Outcome)
	pts       []image.Point
}

// Vector renders one partition of records onto a new transparent canvas of
// the view's size, in record order. It never fails: records that cannot be
// drawn are reported in the returned Stats.
func Vector(v projection.View, records []Record, opts ...VectorOption) (*canvas.Canvas, Stats) {
	r := &vectorRenderer{view: v, clip: ClipVertex}
	for _, opt := range opts {
		opt(r)
	}

	c := canvas.New(v.Width, v.Height)
	var stats Stats
	for i, rec := range records {
		o := r.draw(c, rec)
		stats.Observe(o)
		if r.onOutcome != nil {
			r.onOutcome(i, rec, o)
		}
	}
	return c, stats
}

func (r *vectorRenderer) draw(c *canvas.Canvas, rec Record) (o Outcome) {
	defer func() {
		if p := recover(); p != nil {
			o = skipped(ReasonPanic, "%v", p)
		}
	}()

	switch g := rec.Geometry.(type) {
	case orb.Point:
		return r.point(c, g)
	case orb.Polygon:
		return r.polygon(c, g)
	case nil:
		return skipped(ReasonInvalidGeometry, "record has no geometry")
	default:
		return skipped(ReasonUnsupportedGeometry, "geometry type %s", g.GeoJSONType())
	}
}

func (r *vectorRenderer) point(c *canvas.Canvas, p orb.Point) Outcome {
	pos, ok := r.view.Project(p)
	if !ok {
		return clipped()
	}
	c.FillSquare(pos, r.view.PointSize, r.view.Color)
	return drawn()
}

// polygon draws the outer ring. Holes are not rendered.
func (r *vectorRenderer) polygon(c *canvas.Canvas, poly orb.Polygon) Outcome {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return skipped(ReasonInvalidGeometry, "polygon has no outer ring")
	}

	r.pts = r.pts[:0]
	for _, vertex := range poly[0] {
		pos, ok := r.view.Project(vertex)
		if !ok {
			if r.clip == ClipShape {
				return clipped()
			}
			continue
		}
		r.pts = append(r.pts, pos)
	}
	if len(r.pts) == 0 {
		return clipped()
	}

	if r.view.FillPolygons {
		c.FillPolygon(r.pts, r.view.Color)
	} else {
		c.StrokePolygon(r.pts, r.view.Color)
	}
	return drawn()
}
