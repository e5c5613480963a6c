// Package pipeline runs a complete render: partition rendering, reduction,
// background compositing and output encoding.
//
// It is the single entry point used by the CLI and the HTTP server, so
// defaults and validation live here and nowhere else.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	defer runner.Close()
//
//	opts := pipeline.DefaultGeometryOptions(1024, 512, pipeline.WorldEnvelope, "out/world")
//	opts.FillPolygons = true
//	ok, res := runner.VisualizeGeometries(ctx, partitions, opts)
//	if !ok {
//	    log.Fatal(res.Err)
//	}
//
// # Output failures
//
// Once the image is rendered, failing to encode or write it does not fail
// the call: the error is logged and stored in [Result.WriteErr] and the
// call still reports true. Set [Options.StrictOutput] to report false
// instead.
package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/projection"
	"github.com/matzehuels/starkviz/pkg/render"
	"github.com/matzehuels/starkviz/pkg/sink"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default image width in pixels.
	DefaultWidth = 1024

	// DefaultHeight is the default image height in pixels.
	DefaultHeight = 512

	// DefaultFormat is the default output format.
	DefaultFormat = sink.DefaultFormat

	// DefaultClipMode is the default polygon clipping mode.
	DefaultClipMode = string(render.ClipVertex)
)

// WorldEnvelope covers every longitude and latitude. It is the default
// envelope.
var WorldEnvelope = [4]float64{-180, -90, 180, 90}

// Run kinds.
const (
	KindGeometry = "geometry"
	KindTiles    = "tiles"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options holds the settings shared by both entry points.
// It supports JSON for API requests and TOML for config files.
type Options struct {
	Width  int `json:"width,omitempty" toml:"width"`
	Height int `json:"height,omitempty" toml:"height"`

	// Envelope is minX, minY, maxX, maxY in source units.
	Envelope [4]float64 `json:"envelope,omitempty" toml:"envelope"`

	// OutputPath is the file written without extension; the format is
	// appended. Empty skips writing, the encoded image is still returned.
	OutputPath string `json:"output,omitempty" toml:"output"`
	Format     string `json:"format,omitempty" toml:"format"`

	// Workers bounds concurrent partition renders (GOMAXPROCS when 0).
	Workers int `json:"workers,omitempty" toml:"workers"`

	// Transfer moves every partial through the runner's exchange in
	// portable form instead of handing it over in memory.
	Transfer bool `json:"transfer,omitempty" toml:"transfer"`

	// Refresh ignores cached renders.
	Refresh bool `json:"refresh,omitempty" toml:"refresh"`

	// StrictOutput makes encode and write failures fail the call.
	StrictOutput bool `json:"strict_output,omitempty" toml:"strict_output"`

	Logger *log.Logger `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// GeometryOptions configures VisualizeGeometries.
type GeometryOptions struct {
	Options

	FlipVertical    bool   `json:"flip,omitempty" toml:"flip"`
	FillPolygons    bool   `json:"fill,omitempty" toml:"fill"`
	WorldProjection bool   `json:"world,omitempty" toml:"world"`
	PointSize       int    `json:"point_size,omitempty" toml:"point_size"`
	Color           string `json:"color,omitempty" toml:"color"`
	ClipMode        string `json:"clip,omitempty" toml:"clip"`

	// Background is an image file path or http(s) URL drawn underneath.
	Background string `json:"background,omitempty" toml:"background"`
}

// TileOptions configures VisualizeTiles. Tiles are always written as PNG
// and never flipped or projected.
type TileOptions struct {
	Options
}

// DefaultGeometryOptions returns the plain configuration: single-pixel red
// points, outlined polygons, linear projection and no background.
func DefaultGeometryOptions(width, height int, envelope [4]float64, outputPath string) GeometryOptions {
	return GeometryOptions{
		Options: Options{
			Width:      width,
			Height:     height,
			Envelope:   envelope,
			OutputPath: outputPath,
			Format:     DefaultFormat,
		},
		PointSize: projection.DefaultPointSize,
		Color:     canvas.FormatColor(projection.DefaultColor),
		ClipMode:  DefaultClipMode,
	}
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateSize checks that the image size is positive and within
// [canvas.MaxPixels].
func ValidateSize(width, height int) error {
	return canvas.CheckSize(width, height)
}

// ValidateClipMode checks that mode names a clip mode.
func ValidateClipMode(mode string) error {
	if !render.ValidClipModes[render.ClipMode(mode)] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid clip mode: %q (must be one of: vertex, shape)", mode)
	}
	return nil
}

// ParseEnvelope parses "minX,minY,maxX,maxY".
func ParseEnvelope(s string) ([4]float64, error) {
	var env [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return env, errors.New(errors.ErrCodeInvalidEnvelope, "envelope %q needs four comma-separated numbers", s)
	}
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &env[i]); err != nil {
			return env, errors.Wrap(errors.ErrCodeInvalidEnvelope, err, "envelope %q", s)
		}
	}
	return env, nil
}

// Bound returns the envelope as an orb.Bound.
func (o *Options) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{o.Envelope[0], o.Envelope[1]}, Max: orb.Point{o.Envelope[2], o.Envelope[3]}}
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills in zero values.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Envelope == ([4]float64{}) {
		o.Envelope = WorldEnvelope
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the shared settings.
func (o *Options) Validate() error {
	if err := ValidateSize(o.Width, o.Height); err != nil {
		return err
	}
	if err := projection.ValidateEnvelope(o.Bound()); err != nil {
		return err
	}
	if err := sink.ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.OutputPath != "" {
		if err := errors.ValidateOutputPath(o.OutputPath); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// SetRenderDefaults fills in the geometry styling defaults.
func (o *GeometryOptions) SetRenderDefaults() {
	if o.PointSize == 0 {
		o.PointSize = projection.DefaultPointSize
	}
	if o.Color == "" {
		o.Color = canvas.FormatColor(projection.DefaultColor)
	}
	if o.ClipMode == "" {
		o.ClipMode = DefaultClipMode
	}
}

// ValidateAndSetDefaults applies defaults and validates every field.
// It is idempotent.
func (o *GeometryOptions) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	o.SetRenderDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	if o.PointSize < 0 {
		return errors.New(errors.ErrCodeInvalidSize, "point size must be positive, got %d", o.PointSize)
	}
	if _, err := canvas.ParseColor(o.Color); err != nil {
		return err
	}
	if err := ValidateClipMode(o.ClipMode); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// View builds the projection view. Call ValidateAndSetDefaults first.
func (o *GeometryOptions) View() (projection.View, error) {
	col, err := canvas.ParseColor(o.Color)
	if err != nil {
		return projection.View{}, err
	}
	return projection.NewView(projection.Options{
		Width:           o.Width,
		Height:          o.Height,
		Envelope:        o.Bound(),
		FlipVertical:    o.FlipVertical,
		FillPolygons:    o.FillPolygons,
		WorldProjection: o.WorldProjection,
		PointSize:       o.PointSize,
		Color:           col,
	})
}

// ValidateAndSetDefaults applies defaults and validates every field.
// Any format other than PNG is rejected. It is idempotent.
func (o *TileOptions) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if sink.NormalizeFormat(o.Format) != sink.FormatPNG {
		return errors.New(errors.ErrCodeInvalidFormat, "tiles are always written as png, got %q", o.Format)
	}
	o.Format = sink.FormatPNG
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// View builds the view for tile rendering: the size and scale factors are
// derived as usual, but tiles are never flipped or projected.
func (o *TileOptions) View() (projection.View, error) {
	return projection.NewView(projection.Options{
		Width:    o.Width,
		Height:   o.Height,
		Envelope: o.Bound(),
	})
}
