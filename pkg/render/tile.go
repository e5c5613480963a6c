package render

import (
	"image"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/projection"
)

// TileCellSize is the side length in pixels of the square painted per cell.
const TileCellSize = 5

// Tile is a dense grid of packed 0xRRGGBB values anchored in canvas pixel
// space. Values is row-major: cell (x, y) is Values[y*Width+x].
type Tile struct {
	ULX    int      `json:"ulx"`
	ULY    int      `json:"uly"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Values []uint32 `json:"values"`
}

// Value returns the packed colour of cell (x, y).
func (t Tile) Value(x, y int) uint32 {
	return t.Values[y*t.Width+x]
}

// Validate reports a problem with the tile's shape, or "" if it is usable.
func (t Tile) Validate() string {
	switch {
	case t.Width < 0 || t.Height < 0:
		return "negative tile size"
	case t.Width == 0 || t.Height == 0:
		return "empty tile"
	case t.Width > len(t.Values)/t.Height || len(t.Values) != t.Width*t.Height:
		return "value count does not match tile size"
	}
	return ""
}

// Tiles renders one partition of tiles onto a new transparent canvas of the
// view's size. Only the view's dimensions are used: tile positions are
// already in canvas space, so neither projection nor flipping applies.
//
// Cell (x, y) becomes a TileCellSize square at
// (ULX+x, ULY-(Height-y)): row 0 is the tile's bottom edge.
func Tiles(v projection.View, tiles []Tile) (*canvas.Canvas, Stats) {
	c := canvas.New(v.Width, v.Height)
	var stats Stats
	for _, t := range tiles {
		stats.Observe(drawTile(c, t))
	}
	return c, stats
}

func drawTile(c *canvas.Canvas, t Tile) (o Outcome) {
	defer func() {
		if p := recover(); p != nil {
			o = skipped(ReasonPanic, "%v", p)
		}
	}()

	if problem := t.Validate(); problem != "" {
		return skipped(ReasonInvalidTile, "%s (%dx%d, %d values)", problem, t.Width, t.Height, len(t.Values))
	}

	visible := false
	for x := 0; x < t.Width; x++ {
		for y := 0; y < t.Height; y++ {
			p := image.Pt(t.ULX+x, t.ULY-(t.Height-y))
			cell := image.Rectangle{Min: p, Max: p.Add(image.Pt(TileCellSize, TileCellSize))}
			if cell.Overlaps(c.Bounds()) {
				visible = true
			}
			c.FillRect(cell, canvas.RGB(t.Value(x, y)))
		}
	}
	if !visible {
		return clipped()
	}
	return drawn()
}
