package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/starkviz/pkg/buildinfo"
	"github.com/matzehuels/starkviz/pkg/cache"
	"github.com/matzehuels/starkviz/pkg/engine"
	"github.com/matzehuels/starkviz/pkg/pipeline"
	"github.com/matzehuels/starkviz/pkg/runlog"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "starkviz"

	// runLogFile is the run history file inside the cache directory.
	runLogFile = "runs.jsonl"
)

// Environment variables that switch the CLI to shared backends.
const (
	// EnvRedisURL selects a Redis render cache and partial exchange.
	EnvRedisURL = "STARKVIZ_REDIS_URL"

	// EnvMongoURI selects a MongoDB run history.
	EnvMongoURI = "STARKVIZ_MONGO_URI"

	// EnvCacheScope namespaces cache keys so several deployments can share
	// one Redis instance or cache directory.
	EnvCacheScope = "STARKVIZ_CACHE_SCOPE"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Starkviz rasterizes spatial data into images",
		Long: `Starkviz renders points, polygons and pre-gridded tiles into raster images.

Input is split into partitions that are rendered concurrently onto
transparent canvases and composited into one image, optionally over a
background, then written as PNG, JPEG, GIF, BMP or TIFF.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.tilesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. With EnvRedisURL set the
// render cache and the partial exchange live in Redis; otherwise renders are
// cached on disk. Runs are recorded to MongoDB with EnvMongoURI set and to a
// JSON lines file in the cache directory otherwise.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, cacheKeyer(), c.Logger)
	if rc, ok := store.(*cache.RedisCache); ok {
		runner.Exchange = engine.NewRedisExchange(rc.Client(), appName+":exchange:")
	}
	runner.Recorder = c.newRecorder(ctx)
	return runner, nil
}

// cacheKeyer scopes keys by EnvCacheScope. Without a scope the default
// unscoped keys are used.
func cacheKeyer() cache.Keyer {
	if scope := os.Getenv(EnvCacheScope); scope != "" {
		return cache.NewScopedKeyer(nil, scope+":")
	}
	return nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := os.Getenv(EnvRedisURL); url != "" {
		c.Logger.Debug("using redis cache")
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: url, Prefix: appName + ":"})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newRecorder never fails: a history backend that cannot be opened only
// costs the run log.
func (c *CLI) newRecorder(ctx context.Context) runlog.Recorder {
	rec, err := openRecorder(ctx)
	if err != nil {
		c.Logger.Warn("run history disabled", "error", err)
		return runlog.NullRecorder{}
	}
	return rec
}

func openRecorder(ctx context.Context) (runlog.Recorder, error) {
	if uri := os.Getenv(EnvMongoURI); uri != "" {
		return runlog.NewMongoRecorder(ctx, runlog.MongoConfig{URI: uri})
	}
	path, err := runLogPath()
	if err != nil {
		return nil, err
	}
	return runlog.NewFileRecorder(path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/starkviz/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// runLogPath returns the local run history file.
func runLogPath() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, runLogFile), nil
}
