package server

import (
	"net/url"
	"strconv"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/pipeline"
)

// params reads typed request parameters and keeps the first parse error.
type params struct {
	values url.Values
	bad    error
}

func newParams(v url.Values) *params { return &params{values: v} }

func (p *params) string(name, def string) string {
	if v := p.values.Get(name); v != "" {
		return v
	}
	return def
}

func (p *params) int(name string, def int) int {
	v := p.values.Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v)
		return def
	}
	return n
}

func (p *params) bool(name string, def bool) bool {
	v := p.values.Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v)
		return def
	}
	return b
}

func (p *params) fail(name, value string) {
	if p.bad == nil {
		p.bad = errors.New(errors.ErrCodeInvalidInput, "invalid value %q for parameter %s", value, name)
	}
}

// err returns the first parameter that failed to parse.
func (p *params) err() error { return p.bad }

// options reads the settings shared by every render route. Requests never
// write files and always fail on encode errors.
func (p *params) options() pipeline.Options {
	return pipeline.Options{
		Width:        p.int("width", pipeline.DefaultWidth),
		Height:       p.int("height", pipeline.DefaultHeight),
		Format:       p.string("format", ""),
		Workers:      p.int("workers", 0),
		Transfer:     p.bool("transfer", false),
		Refresh:      p.bool("refresh", false),
		StrictOutput: true,
	}
}

func (p *params) geometryOptions() (pipeline.GeometryOptions, error) {
	opts := pipeline.GeometryOptions{
		Options:         p.options(),
		FlipVertical:    p.bool("flip", false),
		FillPolygons:    p.bool("fill", false),
		WorldProjection: p.bool("world", false),
		PointSize:       p.int("point_size", 0),
		Color:           p.string("color", ""),
		ClipMode:        p.string("clip", ""),
	}
	if bbox := p.string("bbox", ""); bbox != "" {
		env, err := pipeline.ParseEnvelope(bbox)
		if err != nil {
			return opts, err
		}
		opts.Envelope = env
	}
	if bg := p.string("background", ""); bg != "" {
		if err := errors.ValidateURL(bg); err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "background must be an http(s) URL")
		}
		opts.Background = bg
	}
	return opts, nil
}
