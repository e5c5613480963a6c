package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/matzehuels/starkviz/pkg/cache"
	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/composite"
	"github.com/matzehuels/starkviz/pkg/engine"
	"github.com/matzehuels/starkviz/pkg/httputil"
	"github.com/matzehuels/starkviz/pkg/observability"
	"github.com/matzehuels/starkviz/pkg/projection"
	"github.com/matzehuels/starkviz/pkg/render"
	"github.com/matzehuels/starkviz/pkg/runlog"
	"github.com/matzehuels/starkviz/pkg/sink"
)

// Result describes one invocation.
type Result struct {
	RunID string
	Kind  string

	// Canvas is the composited image. It is nil when the image came from
	// the cache or the run failed.
	Canvas *canvas.Canvas

	// Image is the encoded output in Format.
	Image  []byte
	Format string

	// Path is the file written, empty if nothing was written.
	Path string

	// WriteErr is the encode or write failure, if any. It is set even when
	// the call reported success.
	WriteErr error

	// Err is the reason the call reported failure.
	Err error

	Partitions int
	Stats      render.Stats
	CacheHit   bool
	Timing     Timing
}

// Timing breaks down where a run spent its time.
type Timing struct {
	Map    time.Duration
	Reduce time.Duration
	Encode time.Duration
	Total  time.Duration
}

// Runner executes pipeline invocations with caching.
//
// The Runner holds no per-run state; one Runner may serve concurrent
// invocations with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Fetcher downloads remote backgrounds.
	Fetcher *httputil.Fetcher

	// Exchange carries partials for runs with Transfer set. A fresh
	// in-memory exchange is used per run when nil.
	Exchange engine.Exchange

	// Recorder receives a summary of every run.
	Recorder runlog.Recorder
}

// NewRunner creates a runner with the given cache and keyer.
// A nil cache disables caching, a nil keyer uses the default scheme and a
// nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Fetcher:  httputil.NewFetcher(c, keyer),
		Recorder: runlog.NullRecorder{},
	}
}

// VisualizeGeometries renders partitions of point and polygon records.
// It reports false only when the run itself failed; see the package
// documentation for output failures.
func (r *Runner) VisualizeGeometries(ctx context.Context, partitions [][]render.Record, opts GeometryOptions) (bool, *Result) {
	res := &Result{RunID: uuid.NewString(), Kind: KindGeometry, Partitions: len(partitions)}
	r.applyLogger(&opts.Options)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return r.invalid(ctx, res, &opts.Options, err)
	}

	view, err := opts.View()
	if err != nil {
		return r.invalid(ctx, res, &opts.Options, err)
	}
	clip := render.WithClipMode(render.ClipMode(opts.ClipMode))
	logger := opts.Logger

	return r.run(ctx, res, job{
		opts: &opts.Options,
		view: view,
		render: func(_ context.Context, i int) (*canvas.Canvas, render.Stats, error) {
			c, stats := render.Vector(view, partitions[i], clip, logSkips(logger, i))
			return c, stats, nil
		},
		hash: func() (string, error) { return hashRecords(partitions) },
		key: cache.RenderKeyOpts{
			FlipVertical:    view.FlipVertical,
			FillPolygons:    view.FillPolygons,
			WorldProjection: view.WorldProjection,
			PointSize:       view.PointSize,
			Color:           canvas.FormatColor(view.Color),
			ClipMode:        opts.ClipMode,
			Background:      opts.Background,
		},
		background: sink.BackgroundLoader(ctx, opts.Background, r.Fetcher, logger),
	})
}

// logSkips logs every record of a partition that could not be drawn, at
// debug level.
func logSkips(logger *log.Logger, partition int) render.VectorOption {
	return render.WithOutcomes(func(i int, _ render.Record, o render.Outcome) {
		if o.Status == render.StatusSkipped {
			logger.Debug("record skipped", "partition", partition, "record", i, "reason", o.Reason, "detail", o.Detail)
		}
	})
}

// VisualizeTiles renders partitions of tiles. The output is always PNG.
func (r *Runner) VisualizeTiles(ctx context.Context, partitions [][]render.Tile, opts TileOptions) (bool, *Result) {
	res := &Result{RunID: uuid.NewString(), Kind: KindTiles, Partitions: len(partitions)}
	r.applyLogger(&opts.Options)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return r.invalid(ctx, res, &opts.Options, err)
	}

	view, err := opts.View()
	if err != nil {
		return r.invalid(ctx, res, &opts.Options, err)
	}

	return r.run(ctx, res, job{
		opts: &opts.Options,
		view: view,
		render: func(_ context.Context, i int) (*canvas.Canvas, render.Stats, error) {
			c, stats := render.Tiles(view, partitions[i])
			return c, stats, nil
		},
		hash: func() (string, error) { return hashJSON(partitions) },
	})
}

type job struct {
	opts       *Options
	view       projection.View
	render     engine.RenderFunc
	hash       func() (string, error)
	key        cache.RenderKeyOpts
	background composite.Loader
}

// cacheEntry is what a cached render stores.
type cacheEntry struct {
	Stats render.Stats `json:"stats"`
	Image []byte       `json:"image"`
}

func (r *Runner) run(ctx context.Context, res *Result, j job) (bool, *Result) {
	start := time.Now()
	opts := j.opts
	logger := opts.Logger.With("run", res.RunID)
	hooks := observability.Pipeline()
	res.Format = opts.Format

	hooks.OnRunStart(ctx, res.RunID, res.Kind, res.Partitions)
	logger.Info("starting render", "kind", res.Kind, "partitions", res.Partitions,
		"size", fmt.Sprintf("%dx%d", opts.Width, opts.Height))

	key := r.renderKey(res.Kind, opts, j)
	if key != "" && !opts.Refresh {
		if entry, ok := r.cached(ctx, key); ok {
			res.Image = entry.Image
			res.Stats = entry.Stats
			res.CacheHit = true
			logger.Info("using cached render", "bytes", len(entry.Image))
		}
	}

	if !res.CacheHit {
		eng := &engine.Local{
			Workers:  opts.Workers,
			Transfer: opts.Transfer,
			Exchange: r.Exchange,
			Logger:   logger,
		}
		out, err := eng.Run(ctx, engine.Job{
			RunID:      res.RunID,
			Width:      j.view.Width,
			Height:     j.view.Height,
			Partitions: res.Partitions,
			Render:     j.render,
		})
		if err != nil {
			res.Err = fmt.Errorf("render: %w", err)
			logger.Error("render failed", "error", err)
			return r.finish(ctx, res, opts, start)
		}
		res.Stats = out.Stats
		res.Timing.Map = out.MapTime
		res.Timing.Reduce = out.ReduceTime
		logger.Info("reduced partitions", "records", out.Stats.Records, "drawn", out.Stats.Drawn,
			"clipped", out.Stats.Clipped, "skipped", out.Stats.Skipped, "duration", out.MapTime)
		if out.Stats.Skipped > 0 {
			logger.Warn("skipped records", "count", out.Stats.Skipped, "reasons", out.Stats.String())
		}
		if out.Encoded > 0 {
			logger.Debug("transferred partials", "bytes", out.Encoded)
		}

		res.Canvas = composite.WithBackground(out.Canvas, j.background, logger)

		encodeStart := time.Now()
		data, err := sink.EncodeBytes(res.Canvas.Image(), opts.Format)
		res.Timing.Encode = time.Since(encodeStart)
		if err != nil {
			r.outputFailed(res, opts, logger, err)
			return r.finish(ctx, res, opts, start)
		}
		res.Image = data
		if key != "" {
			r.store(ctx, key, cacheEntry{Stats: res.Stats, Image: data}, logger)
		}
	}

	if opts.OutputPath != "" {
		path, err := sink.WriteBytes(opts.OutputPath, opts.Format, res.Image, logger)
		if err != nil {
			r.outputFailed(res, opts, logger, err)
		} else {
			res.Path = path
		}
	}
	return r.finish(ctx, res, opts, start)
}

// outputFailed applies the output failure policy.
func (r *Runner) outputFailed(res *Result, opts *Options, logger *log.Logger, err error) {
	res.WriteErr = err
	logger.Error("output failed", "path", sink.FileName(opts.OutputPath, opts.Format), "error", err)
	if opts.StrictOutput {
		res.Err = fmt.Errorf("output: %w", err)
	}
}

func (r *Runner) invalid(ctx context.Context, res *Result, opts *Options, err error) (bool, *Result) {
	res.Err = fmt.Errorf("invalid options: %w", err)
	opts.Logger.Error("invalid options", "error", err)
	return r.finish(ctx, res, opts, time.Now())
}

func (r *Runner) finish(ctx context.Context, res *Result, opts *Options, start time.Time) (bool, *Result) {
	res.Timing.Total = time.Since(start)
	observability.Pipeline().OnRunComplete(ctx, res.RunID, res.Timing.Total, res.Err)

	run := runlog.Run{
		ID:         res.RunID,
		Kind:       res.Kind,
		Started:    start.UTC(),
		DurationMS: res.Timing.Total.Milliseconds(),
		Width:      opts.Width,
		Height:     opts.Height,
		Partitions: res.Partitions,
		Format:     res.Format,
		Output:     res.Path,
		CacheHit:   res.CacheHit,
		Stats:      res.Stats,
		Success:    res.Err == nil,
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	} else if res.WriteErr != nil {
		run.Error = res.WriteErr.Error()
	}
	if r.Recorder != nil {
		if err := r.Recorder.Record(context.WithoutCancel(ctx), run); err != nil {
			opts.Logger.Warn("failed to record run", "run", res.RunID, "error", err)
		}
	}
	return res.Err == nil, res
}

// renderKey returns the cache key for the run, or "" when caching is off
// or the input cannot be hashed.
func (r *Runner) renderKey(kind string, opts *Options, j job) string {
	if _, off := r.Cache.(cache.NullCache); off || j.hash == nil {
		return ""
	}
	inputHash, err := j.hash()
	if err != nil {
		opts.Logger.Debug("input not cacheable", "error", err)
		return ""
	}
	k := j.key
	k.Kind = kind
	k.Width = opts.Width
	k.Height = opts.Height
	k.Envelope = opts.Envelope
	k.Format = opts.Format
	return r.Keyer.RenderKey(inputHash, k)
}

func (r *Runner) cached(ctx context.Context, key string) (cacheEntry, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, key)
		return cacheEntry{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || len(entry.Image) == 0 {
		// unreadable entries are re-rendered and overwritten
		observability.Cache().OnCacheMiss(ctx, key)
		return cacheEntry{}, false
	}
	observability.Cache().OnCacheHit(ctx, key)
	return entry, true
}

func (r *Runner) store(ctx context.Context, key string, entry cacheEntry, logger *log.Logger) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err != nil {
		logger.Warn("failed to cache render", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
}

// hashRecords hashes the geometries of every partition in WKB form.
// Attachments do not influence the image and are ignored.
func hashRecords(partitions [][]render.Record) (string, error) {
	h := cache.NewHasher()
	for i, part := range partitions {
		fmt.Fprintf(h, "partition %d %d\n", i, len(part))
		for _, rec := range part {
			if rec.Geometry == nil {
				h.Write([]byte{0})
				continue
			}
			data, err := wkb.Marshal(rec.Geometry)
			if err != nil {
				return "", err
			}
			h.Write(data)
		}
	}
	return h.Sum(), nil
}

func hashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var first error
	if r.Recorder != nil {
		first = r.Recorder.Close()
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
