// Package composite combines partial canvases into the final image.
//
// [Merge] is the reduction primitive: it overlays b on a. The engine may
// apply it to partitions in any order and any grouping, so where two
// partitions paint the same pixel the visible colour depends on the
// reduction order. That is a property of the pipeline, not a defect, and
// callers must not rely on a particular winner.
//
// [WithBackground] places a static backdrop underneath the reduced result.
package composite

import (
	"fmt"
	"image"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/errors"
)

// ErrSizeMismatch is returned when canvases of different sizes are merged.
// It means view parameters were not held constant across partitions and
// the run must abort.
var ErrSizeMismatch = errors.New(errors.ErrCodeSizeMismatch, "canvas sizes differ")

// Merge returns a new canvas holding a with b drawn over it. Opaque pixels
// of b replace those of a; transparent pixels of b let a show through.
// The inputs are consumed and must not be used afterwards.
func Merge(a, b *canvas.Canvas) (*canvas.Canvas, error) {
	if !a.SameSize(b) {
		return nil, mismatch(a, b)
	}
	out := canvas.New(a.Width(), a.Height())
	out.OverlayCanvas(a)
	out.OverlayCanvas(b)
	return out, nil
}

// Reduce folds canvases left to right with Merge. With no input it returns
// a fully transparent canvas of the given size.
func Reduce(width, height int, canvases ...*canvas.Canvas) (*canvas.Canvas, error) {
	acc := canvas.New(width, height)
	for i, c := range canvases {
		next, err := Merge(acc, c)
		if err != nil {
			return nil, fmt.Errorf("reduce partition %d: %w", i, err)
		}
		acc = next
	}
	return acc, nil
}

// Reducer accumulates canvases as they arrive, for engines that produce
// partials as a stream rather than a slice. It is not safe for concurrent
// use.
type Reducer struct {
	acc    *canvas.Canvas
	merged int
}

// NewReducer starts a reduction with a transparent canvas of the given size.
func NewReducer(width, height int) *Reducer {
	return &Reducer{acc: canvas.New(width, height)}
}

// Add merges c into the accumulated result.
func (r *Reducer) Add(c *canvas.Canvas) error {
	next, err := Merge(r.acc, c)
	if err != nil {
		return err
	}
	r.acc = next
	r.merged++
	return nil
}

// Merged returns how many canvases have been added.
func (r *Reducer) Merged() int { return r.merged }

// Result returns the reduced canvas.
func (r *Reducer) Result() *canvas.Canvas { return r.acc }

// Loader produces a background image.
type Loader func() (image.Image, error)

// WithBackground returns a new canvas with the background drawn at the
// origin and result drawn over it. A nil loader returns result unchanged.
// A loader failure is logged and also returns result unchanged: a missing
// backdrop never fails a run.
func WithBackground(result *canvas.Canvas, load Loader, logger *log.Logger) *canvas.Canvas {
	if load == nil {
		return result
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	bg, err := safeLoad(load)
	if err != nil {
		logger.Warn("background unavailable, continuing without it", "error", err)
		return result
	}

	out := canvas.New(result.Width(), result.Height())
	out.Overlay(bg)
	out.OverlayCanvas(result)
	return out
}

func safeLoad(load Loader) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, errors.New(errors.ErrCodeDecode, "background loader panicked: %v", p)
		}
	}()
	img, err = load()
	if err == nil && img == nil {
		err = errors.New(errors.ErrCodeDecode, "background loader returned no image")
	}
	return img, err
}

func mismatch(a, b *canvas.Canvas) error {
	return errors.Wrap(errors.ErrCodeSizeMismatch, ErrSizeMismatch, "merge %dx%d with %dx%d",
		a.Width(), a.Height(), b.Width(), b.Height())
}
