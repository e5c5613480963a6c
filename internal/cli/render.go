package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/starkviz/pkg/engine"
	"github.com/matzehuels/starkviz/pkg/observability"
	"github.com/matzehuels/starkviz/pkg/pipeline"
	"github.com/matzehuels/starkviz/pkg/render"
	"github.com/matzehuels/starkviz/pkg/sink"
	"github.com/matzehuels/starkviz/pkg/source"
)

// stdinName is the input argument that reads from standard input.
const stdinName = "-"

// runFlags holds the flags shared by render and tiles.
type runFlags struct {
	config     string
	partitions int
	noCache    bool
	progress   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.config, "config", "", "TOML file with default options (flags take precedence)")
	cmd.Flags().IntVarP(&f.partitions, "partitions", "p", runtime.GOMAXPROCS(0), "number of partitions to split the input into")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "show per-partition progress")
}

func registerOptions(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "output path without extension (default: input name)")
	cmd.Flags().IntVar(&opts.Width, "width", opts.Width, "image width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", opts.Height, "image height in pixels")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent partition renders (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.Transfer, "transfer", false, "move partials through the exchange in portable form")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached renders")
	cmd.Flags().BoolVar(&opts.StrictOutput, "strict", false, "fail when the image cannot be written")
}

// renderCommand creates the render command for rasterizing records.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags       runFlags
		envelope    string
		fit         bool
		explode     bool
		inputFormat string
	)
	opts := pipeline.GeometryOptions{Options: pipeline.Options{
		Width:  pipeline.DefaultWidth,
		Height: pipeline.DefaultHeight,
	}}
	opts.SetRenderDefaults()

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Rasterize points and polygons into an image",
		Long: `Rasterize points and polygons into an image.

The input is GeoJSON, WKT (one geometry per line) or CSV with latitude and
longitude columns; the format is detected from the file extension unless
--input-format is given. Use - to read standard input.

Records are split into partitions that render concurrently and are then
composited into one image. Where records in different partitions paint the
same pixel the visible colour is unspecified.

Renders are cached locally; --refresh ignores the cache.`,
		Example: `  starkviz render cities.geojson --fill --point-size 3
  starkviz render parcels.wkt --envelope 5,45,15,55 --flip -o parcels -f jpeg
  cat points.csv | starkviz render - --input-format csv --fit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.config != "" {
				if err := loadConfig(flags.config, cmd.Flags(), &opts); err != nil {
					return err
				}
			}
			if envelope != "" {
				env, err := pipeline.ParseEnvelope(envelope)
				if err != nil {
					return err
				}
				opts.Envelope = env
			}
			if err := pipeline.ValidateClipMode(opts.ClipMode); err != nil {
				return err
			}
			if inputFormat != "" {
				if err := source.ValidateFormat(inputFormat); err != nil {
					return err
				}
			}
			return c.runRender(cmd.Context(), args[0], inputFormat, opts, renderSettings{
				runFlags: flags,
				fit:      fit,
				explode:  explode,
			})
		},
	}

	flags.register(cmd)
	registerOptions(cmd, &opts.Options)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format: "+strings.Join(sink.Formats(), ", ")+" (default png)")
	cmd.Flags().StringVar(&envelope, "envelope", "", "minX,minY,maxX,maxY of the visible area (default: the whole world)")
	cmd.Flags().BoolVar(&fit, "fit", false, "fit the envelope to the input bounds")
	cmd.Flags().BoolVar(&opts.FlipVertical, "flip", false, "put the envelope's maximum y at the top")
	cmd.Flags().BoolVar(&opts.FillPolygons, "fill", false, "fill polygons instead of outlining them")
	cmd.Flags().BoolVar(&opts.WorldProjection, "world", false, "use the Web Mercator world projection")
	cmd.Flags().IntVar(&opts.PointSize, "point-size", opts.PointSize, "side of the square drawn per point, in pixels")
	cmd.Flags().StringVar(&opts.Color, "color", opts.Color, "drawing colour as #rgb, #rrggbb or #rrggbbaa")
	cmd.Flags().StringVar(&opts.ClipMode, "clip", opts.ClipMode, "polygon clipping: vertex, shape")
	cmd.Flags().StringVar(&opts.Background, "background", "", "background image file or URL")
	cmd.Flags().BoolVar(&explode, "explode", false, "split multi-geometries into one record per part")
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input format: geojson, wkt, csv (default: from extension)")

	return cmd
}

type renderSettings struct {
	runFlags
	fit     bool
	explode bool
}

// runRender reads the records and renders them.
func (c *CLI) runRender(ctx context.Context, input, inputFormat string, opts pipeline.GeometryOptions, s renderSettings) error {
	logger := c.Logger
	ctx = withLogger(ctx, logger)
	prog := newProgress(logger)

	records, err := readRecords(input, inputFormat)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	if s.explode {
		records = source.Explode(records)
	}
	prog.done("read input", "records", len(records), "format", formatLabel(input, inputFormat))

	if s.fit {
		if b, ok := source.Bound(records); ok {
			opts.Envelope = fitEnvelope(b)
			logger.Debug("fitted envelope", "envelope", opts.Envelope)
		} else {
			logger.Warn("no geometry to fit, using the default envelope")
		}
	}
	if opts.OutputPath == "" {
		opts.OutputPath = defaultOutput(input)
	}

	runner, err := c.newRunner(ctx, s.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = logger

	partitions := engine.Split(records, s.partitions)
	var (
		ok  bool
		res *pipeline.Result
	)
	err = execute(ctx, s.runFlags, len(partitions), "Rendering records...", func(ctx context.Context) bool {
		ok, res = runner.VisualizeGeometries(ctx, partitions, opts)
		return ok
	})
	if err != nil {
		return err
	}
	return report(res, ok)
}

// execute runs fn behind a spinner, or behind the partition progress view
// when requested. fn reports whether the run succeeded.
func execute(ctx context.Context, flags runFlags, partitions int, message string, fn func(context.Context) bool) error {
	if flags.progress {
		return runWithProgress(ctx, partitions, func(ctx context.Context) { fn(ctx) })
	}
	spinner := newSpinner(ctx, message, partitions)
	observability.SetPipelineHooks(spinnerHooks{s: spinner})
	defer observability.SetPipelineHooks(observability.NoopPipelineHooks{})
	spinner.Start()
	if fn(ctx) {
		spinner.Stop()
	} else {
		spinner.StopWithError("Render failed")
	}
	return ctx.Err()
}

func readRecords(input, format string) ([]render.Record, error) {
	if input != stdinName {
		return source.ReadFile(input, format)
	}
	if format == "" {
		format = source.FormatGeoJSON
	}
	return source.Read(os.Stdin, format)
}

// formatLabel names the input format for logging.
func formatLabel(input, format string) string {
	switch {
	case format != "":
		return format
	case input == stdinName:
		return source.FormatGeoJSON
	}
	return source.DetectFormat(input)
}

// defaultOutput derives the output path from the input name.
func defaultOutput(input string) string {
	if input == stdinName {
		return appName
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fitEnvelope pads b by 1% on every side. Degenerate bounds, such as a
// single point, are widened to one unit.
func fitEnvelope(b orb.Bound) [4]float64 {
	pad := 0.01 * max(b.Right()-b.Left(), b.Top()-b.Bottom())
	if pad == 0 {
		pad = 0.5
	}
	b = b.Pad(pad)
	return [4]float64{b.Left(), b.Bottom(), b.Right(), b.Top()}
}

// report prints the outcome of a run. A run whose output could not be
// written still succeeds unless --strict was given.
func report(res *pipeline.Result, ok bool) error {
	if !ok {
		printDetail("run %s", res.RunID)
		return res.Err
	}
	printSuccess("Rendered %d partitions in %s", res.Partitions, res.Timing.Total.Round(time.Millisecond))
	printStats(res.Stats, res.CacheHit)
	if res.Stats.Skipped > 0 {
		printDetail("skipped: %s", res.Stats.String())
	}
	if res.WriteErr != nil {
		printWarning("Image not written: %v", res.WriteErr)
		return nil
	}
	if res.Path != "" {
		printFile(res.Path)
	}
	return nil
}
