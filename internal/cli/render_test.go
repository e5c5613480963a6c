package cli

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/cache"
	"github.com/matzehuels/starkviz/pkg/runlog"
)

const testFeatures = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"name":"a"},"geometry":{"type":"Point","coordinates":[5,5]}},
	{"type":"Feature","properties":{"name":"b"},"geometry":{"type":"Point","coordinates":[9,9]}},
	{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[1,1],[2,2]]}}
]}`

// isolate points the cache and run history at a temporary directory and
// keeps shared backends out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv(EnvRedisURL, "")
	t.Setenv(EnvMongoURI, "")
	t.Setenv(EnvCacheScope, "")
	return dir
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func nrgba(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func recordedRuns(t *testing.T) []runlog.Run {
	t.Helper()
	path, err := runLogPath()
	if err != nil {
		t.Fatal(err)
	}
	rec, err := runlog.NewFileRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := rec.Runs()
	if err != nil {
		t.Fatal(err)
	}
	return runs
}

func TestRenderCommand(t *testing.T) {
	isolate(t)
	input := writeInput(t, "points.geojson", testFeatures)
	out := filepath.Join(t.TempDir(), "points")

	args := []string{"render", input, "-o", out, "--width", "100", "--height", "100",
		"--envelope", "0,0,10,10", "--point-size", "2", "-p", "2"}
	if err := runCLI(t, args...); err != nil {
		t.Fatalf("render error: %v", err)
	}

	img := readPNG(t, out+".png")
	if img.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Errorf("bounds = %v, want 100x100", img.Bounds())
	}
	if got := nrgba(img, 50, 50); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("At(50,50) = %v, want red", got)
	}
	if got := nrgba(img, 90, 90); got.A == 0 {
		t.Error("second point missing")
	}

	runs := recordedRuns(t)
	if len(runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs))
	}
	run := runs[0]
	if !run.Success || run.Kind != runlog.KindGeometry || run.Partitions != 2 || run.Stats.Skipped != 1 {
		t.Errorf("run = %+v", run)
	}

	t.Run("second run is cached", func(t *testing.T) {
		if err := runCLI(t, args...); err != nil {
			t.Fatalf("render error: %v", err)
		}
		runs := recordedRuns(t)
		if len(runs) != 2 || !runs[1].CacheHit {
			t.Errorf("second run should be a cache hit: %+v", runs)
		}
	})
}

func TestRenderCommandFlip(t *testing.T) {
	isolate(t)
	input := writeInput(t, "corner.wkt", "POINT (0.5 0.5)\n")
	out := filepath.Join(t.TempDir(), "corner")

	if err := runCLI(t, "render", input, "-o", out, "--width", "10", "--height", "10",
		"--envelope", "0,0,10,10", "--flip", "--no-cache"); err != nil {
		t.Fatalf("render error: %v", err)
	}
	img := readPNG(t, out+".png")
	if nrgba(img, 0, 9).A == 0 {
		t.Error("flipped output should put the minimum y at the bottom row")
	}
	if nrgba(img, 0, 0).A != 0 {
		t.Error("flipped output should leave the top row empty")
	}
}

func TestRenderCommandConfigAndFit(t *testing.T) {
	isolate(t)
	input := writeInput(t, "points.geojson", testFeatures)
	out := filepath.Join(t.TempDir(), "fitted")
	config := writeInput(t, "starkviz.toml", "width = 40\nheight = 30\ncolor = \"#0000ff\"\nformat = \"bmp\"\n")

	if err := runCLI(t, "render", input, "--config", config, "-o", out, "--fit", "--format", "png", "--no-cache"); err != nil {
		t.Fatalf("render error: %v", err)
	}
	img := readPNG(t, out+".png")
	if img.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Errorf("bounds = %v, want the configured 40x30", img.Bounds())
	}
	blue := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			if nrgba(img, x, y) == (color.NRGBA{B: 255, A: 255}) {
				blue++
			}
		}
	}
	if blue != 2 {
		t.Errorf("found %d blue pixels, want both points inside the fitted envelope", blue)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	isolate(t)
	input := writeInput(t, "points.geojson", testFeatures)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"render", filepath.Join(t.TempDir(), "none.geojson")}},
		{"bad envelope", []string{"render", input, "--envelope", "1,2"}},
		{"bad clip mode", []string{"render", input, "--clip", "edges"}},
		{"bad input format", []string{"render", input, "--input-format", "shp"}},
		{"bad format", []string{"render", input, "--format", "svg", "--no-cache"}},
		{"bad color", []string{"render", input, "--color", "red", "--no-cache"}},
		{"no args", []string{"render"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderCommandOutputFailure(t *testing.T) {
	isolate(t)
	input := writeInput(t, "points.geojson", testFeatures)
	blocker := writeInput(t, "file", "not a directory")
	out := filepath.Join(blocker, "sub", "out")

	if err := runCLI(t, "render", input, "-o", out, "--no-cache"); err != nil {
		t.Errorf("unwritable output should not fail without --strict: %v", err)
	}
	if err := runCLI(t, "render", input, "-o", out, "--no-cache", "--strict"); err == nil {
		t.Error("unwritable output should fail with --strict")
	}
}

func TestTilesCommand(t *testing.T) {
	isolate(t)
	input := writeInput(t, "tiles.json", `[{"ulx":2,"uly":10,"width":2,"height":1,"values":[16711680,255]}]`)
	out := filepath.Join(t.TempDir(), "tiles")

	if err := runCLI(t, "tiles", input, "-o", out, "--width", "20", "--height", "20"); err != nil {
		t.Fatalf("tiles error: %v", err)
	}
	img := readPNG(t, out+".png")
	// Cell (0,0) covers x 2..6 and cell (1,0) starts at x 3, so x 2 is red only.
	if got := nrgba(img, 2, 9); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("At(2,9) = %v, want red", got)
	}
	if got := nrgba(img, 7, 9); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("At(7,9) = %v, want blue", got)
	}

	runs := recordedRuns(t)
	if len(runs) != 1 || runs[0].Kind != runlog.KindTiles || runs[0].Format != "png" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestFitEnvelope(t *testing.T) {
	tests := []struct {
		name string
		b    orb.Bound
		want [4]float64
	}{
		{"box", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 50}}, [4]float64{-1, -1, 101, 51}},
		{"point", orb.Bound{Min: orb.Point{3, 4}, Max: orb.Point{3, 4}}, [4]float64{2.5, 3.5, 3.5, 4.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitEnvelope(tt.b); got != tt.want {
				t.Errorf("fitEnvelope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRunnerScopesCacheKeys(t *testing.T) {
	tests := []struct {
		name   string
		scope  string
		prefix string
	}{
		{"unscoped", "", "render:"},
		{"scoped", "team-a", "team-a:render:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(EnvCacheScope, tt.scope)

			runner, err := New(io.Discard, LogInfo).newRunner(context.Background(), false)
			if err != nil {
				t.Fatalf("newRunner() error: %v", err)
			}
			defer runner.Close()

			key := runner.Keyer.RenderKey("abc", cache.RenderKeyOpts{})
			if len(key) < len(tt.prefix) || key[:len(tt.prefix)] != tt.prefix {
				t.Errorf("RenderKey() = %q, want prefix %q", key, tt.prefix)
			}
		})
	}
}
