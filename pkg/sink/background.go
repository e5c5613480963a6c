package sink

import (
	"bytes"
	"context"
	"image"
	"os"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/webp" // decode-only format; the others register through their encoders

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/errors"
)

// Downloader fetches remote resources. *httputil.Fetcher satisfies it.
type Downloader interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Decode reads an image in any registered format. The header is checked
// first: images larger than [canvas.MaxPixels] are refused before their
// pixels are allocated.
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeDecode, err, "decode image header")
	}
	if err := canvas.CheckSize(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeDecode, err, "decode image")
	}
	return img, format, nil
}

// LoadFile decodes the image at path.
func LoadFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read background")
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read background")
	}
	img, _, err := Decode(data)
	return img, err
}

// BackgroundLoader returns a function that loads location, which may be a
// file path or an http(s) URL. Remote locations need a Downloader; without
// one they fail to load. An empty location returns nil (no background).
func BackgroundLoader(ctx context.Context, location string, dl Downloader, logger *log.Logger) func() (image.Image, error) {
	if location == "" {
		return nil
	}
	return func() (image.Image, error) {
		if !errors.IsURL(location) {
			img, err := LoadFile(location)
			if err == nil && logger != nil {
				logger.Debug("loaded background", "path", location, "size", sizeString(img))
			}
			return img, err
		}
		if dl == nil {
			return nil, errors.New(errors.ErrCodeUnsupported, "remote background %q needs a downloader", location)
		}
		data, err := dl.Get(ctx, location)
		if err != nil {
			return nil, err
		}
		img, format, err := Decode(data)
		if err == nil && logger != nil {
			logger.Debug("downloaded background", "url", location, "format", format, "size", sizeString(img))
		}
		return img, err
	}
}
