package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "starkviz.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func geometryFlags(opts *pipeline.GeometryOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	fs.IntVar(&opts.Width, "width", opts.Width, "")
	fs.IntVar(&opts.Height, "height", opts.Height, "")
	fs.StringVar(&opts.Color, "color", opts.Color, "")
	fs.BoolVar(&opts.FillPolygons, "fill", false, "")
	return fs
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := writeConfig(t, `
width = 10
height = 20
color = "#00ff00"
fill = true
envelope = [0.0, 0.0, 10.0, 5.0]
point_size = 3
clip = "shape"
`)

	opts := pipeline.GeometryOptions{Options: pipeline.Options{Width: 1, Height: 1}}
	fs := geometryFlags(&opts)
	if err := fs.Parse([]string{"--width=50", "--fill=false"}); err != nil {
		t.Fatal(err)
	}

	if err := loadConfig(path, fs, &opts); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if opts.Width != 50 {
		t.Errorf("Width = %d, want the flag value 50", opts.Width)
	}
	if opts.FillPolygons {
		t.Error("FillPolygons should keep the explicit --fill=false")
	}
	if opts.Height != 20 || opts.Color != "#00ff00" || opts.PointSize != 3 || opts.ClipMode != "shape" {
		t.Errorf("file values not applied: %+v", opts)
	}
	if opts.Envelope != [4]float64{0, 0, 10, 5} {
		t.Errorf("Envelope = %v", opts.Envelope)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "widht = 10\n"},
		{"bad syntax", "width = \n"},
		{"wrong type", "width = \"wide\"\n"},
		{"short envelope", "envelope = [1.0, 2.0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts pipeline.GeometryOptions
			err := loadConfig(writeConfig(t, tt.content), geometryFlags(&opts), &opts)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("loadConfig() error = %v, want INVALID_INPUT", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		var opts pipeline.GeometryOptions
		if err := loadConfig(filepath.Join(t.TempDir(), "none.toml"), geometryFlags(&opts), &opts); err == nil {
			t.Error("loadConfig() should fail for a missing file")
		}
	})
}
