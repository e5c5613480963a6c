// Package sink encodes the final canvas into a raster file and decodes
// background images.
//
// Supported output formats are png, jpeg (alias jpg), gif, bmp and tiff.
// Background images may additionally be webp. Output files are named
// "<path>.<format>".
package sink

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatJPG  = "jpg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// DefaultFormat is used when no format is requested.
const DefaultFormat = FormatPNG

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 90

type encodeFunc func(io.Writer, image.Image) error

var encoders = map[string]encodeFunc{
	FormatPNG: png.Encode,
	FormatJPEG: func(w io.Writer, m image.Image) error {
		return jpeg.Encode(w, m, &jpeg.Options{Quality: JPEGQuality})
	},
	FormatGIF: func(w io.Writer, m image.Image) error {
		return gif.Encode(w, m, &gif.Options{NumColors: 256})
	},
	FormatBMP: bmp.Encode,
	FormatTIFF: func(w io.Writer, m image.Image) error {
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	},
}

// ValidFormats is the set of accepted output format names.
var ValidFormats = map[string]bool{
	FormatPNG: true, FormatJPEG: true, FormatJPG: true,
	FormatGIF: true, FormatBMP: true, FormatTIFF: true,
}

// Formats lists the accepted format names in sorted order.
func Formats() []string {
	out := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// NormalizeFormat lowercases format, strips a leading dot and maps aliases
// to their canonical encoder. An empty format becomes DefaultFormat.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "":
		return DefaultFormat
	case FormatJPG:
		return FormatJPEG
	case "tif":
		return FormatTIFF
	}
	return f
}

// ValidateFormat checks that format names a supported encoder.
func ValidateFormat(format string) error {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" || f == "tif" {
		return nil
	}
	if err := errors.ValidateFormatName(f); err != nil {
		return err
	}
	if !ValidFormats[f] {
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported output format %q (must be one of: %s)",
			format, strings.Join(Formats(), ", "))
	}
	return nil
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch NormalizeFormat(format) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	}
	return "image/png"
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	f := NormalizeFormat(format)
	if err := encoders[f](w, img); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode %s", f)
	}
	return nil
}

// FileName returns the file written for outputPath and format. The format
// is appended verbatim, as the caller requested it.
func FileName(outputPath, format string) string {
	if format == "" {
		format = DefaultFormat
	}
	return outputPath + "." + format
}

// EncodeBytes returns img encoded in the given format.
func EncodeBytes(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes img into FileName(outputPath, format) and returns the
// path written. Parent directories are created as needed.
func WriteFile(outputPath, format string, img image.Image, logger *log.Logger) (string, error) {
	if err := errors.ValidateOutputPath(outputPath); err != nil {
		return "", err
	}
	data, err := EncodeBytes(img, format)
	if err != nil {
		return "", err
	}
	return WriteBytes(outputPath, format, data, logger)
}

// WriteBytes writes already encoded image data to FileName(outputPath,
// format) and returns the path written.
func WriteBytes(outputPath, format string, data []byte, logger *log.Logger) (string, error) {
	if err := errors.ValidateOutputPath(outputPath); err != nil {
		return "", err
	}
	if err := ValidateFormat(format); err != nil {
		return "", err
	}
	name := FileName(outputPath, format)
	if logger != nil {
		logger.Info("write to file", "path", name, "format", NormalizeFormat(format), "size", len(data))
	}

	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
		}
	}
	f, err := os.Create(name)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "create %s", name)
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(data); err != nil {
		f.Close()
		return "", errors.Wrap(errors.ErrCodeIO, err, "write %s", name)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", errors.Wrap(errors.ErrCodeIO, err, "write %s", name)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "close %s", name)
	}
	return name, nil
}

// sizeString is used in log lines.
func sizeString(img image.Image) string {
	b := img.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}
