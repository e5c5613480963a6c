package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/starkviz/internal/server"
)

// serveCommand creates the serve command for the HTTP renderer.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		partitions int
		maxBody    int64
		timeout    time.Duration
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the renderer over HTTP",
		Long: `Serve the renderer over HTTP.

Routes:
  GET  /healthz           liveness probe
  POST /v1/render         render a GeoJSON, WKT (?input=wkt) or CSV (?input=csv) body
  POST /v1/render/tiles   render a JSON array of tiles to PNG

Options are query parameters: width, height, bbox, flip, fill, world,
point_size, color, clip, format, background (URL only) and partitions.

Set ` + EnvRedisURL + ` to share the render cache between instances and
` + EnvMongoURI + ` to keep the run history in MongoDB.`,
		Example: `  starkviz serve --addr :9000
  curl -s --data-binary @cities.geojson 'localhost:9000/v1/render?width=800&height=400&fill=true' > cities.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			srv := server.New(runner, c.Logger)
			srv.Partitions = partitions
			srv.MaxBodyBytes = maxBody
			srv.Timeout = timeout

			printInfo("Serving on %s", StyleValue.Render(addr))
			printKeyValue("cache", cacheBackend(noCache))
			printKeyValue("max body", fmt.Sprintf("%d bytes", maxBody))
			printKeyValue("timeout", timeout.String())
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().IntVarP(&partitions, "partitions", "p", 0, "partitions per request (default: GOMAXPROCS)")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBodyBytes, "maximum request body in bytes")
	cmd.Flags().DurationVar(&timeout, "timeout", server.DefaultTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func cacheBackend(noCache bool) string {
	switch {
	case noCache:
		return "disabled"
	case os.Getenv(EnvRedisURL) != "":
		return "redis"
	default:
		return "file"
	}
}
