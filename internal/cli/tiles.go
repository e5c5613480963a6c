package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/starkviz/pkg/engine"
	"github.com/matzehuels/starkviz/pkg/pipeline"
	"github.com/matzehuels/starkviz/pkg/render"
	"github.com/matzehuels/starkviz/pkg/source"
)

// tilesCommand creates the tiles command for rasterizing pre-gridded tiles.
func (c *CLI) tilesCommand() *cobra.Command {
	var flags runFlags
	opts := pipeline.TileOptions{Options: pipeline.Options{
		Width:  pipeline.DefaultWidth,
		Height: pipeline.DefaultHeight,
	}}

	cmd := &cobra.Command{
		Use:   "tiles [file]",
		Short: "Rasterize pre-gridded tiles into a PNG",
		Long: `Rasterize pre-gridded tiles into a PNG.

The input is a JSON array of tiles:

  [{"ulx": 10, "uly": 40, "width": 2, "height": 2, "values": [16711680, 65280, 255, 16777215]}]

ulx and uly are canvas pixel coordinates; values are packed 0xRRGGBB colours
in row-major order. Every cell becomes a 5x5 pixel square. Tiles are never
projected or flipped and are always written as PNG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.config != "" {
				if err := loadConfig(flags.config, cmd.Flags(), &opts); err != nil {
					return err
				}
			}
			return c.runTiles(cmd.Context(), args[0], opts, flags)
		},
	}

	flags.register(cmd)
	registerOptions(cmd, &opts.Options)

	return cmd
}

// runTiles reads the tiles and renders them.
func (c *CLI) runTiles(ctx context.Context, input string, opts pipeline.TileOptions, flags runFlags) error {
	logger := c.Logger
	ctx = withLogger(ctx, logger)
	prog := newProgress(logger)

	tiles, err := readTiles(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	prog.done("read input", "tiles", len(tiles))

	if opts.OutputPath == "" {
		opts.OutputPath = defaultOutput(input)
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = logger

	partitions := engine.Split(tiles, flags.partitions)
	var (
		ok  bool
		res *pipeline.Result
	)
	err = execute(ctx, flags, len(partitions), "Rendering tiles...", func(ctx context.Context) bool {
		ok, res = runner.VisualizeTiles(ctx, partitions, opts)
		return ok
	})
	if err != nil {
		return err
	}
	return report(res, ok)
}

func readTiles(input string) ([]render.Tile, error) {
	if input == stdinName {
		return source.ReadTiles(os.Stdin)
	}
	return source.ReadTilesFile(input)
}
