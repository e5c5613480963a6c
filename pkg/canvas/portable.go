package canvas

import (
	"bytes"
	"image"
	"image/png"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// Portable is the transfer form of a Canvas: a self-contained lossless PNG
// stream. It is what moves between workers and the reducing process; a
// canvas that never leaves its process is never encoded.
//
// The round trip is pixel-exact for straight-alpha pixels, which is all
// this package ever produces.
type Portable struct {
	data []byte
}

var portableEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Encode wraps c for transfer. The canvas is not modified.
func Encode(c *Canvas) (Portable, error) {
	var buf bytes.Buffer
	if err := portableEncoder.Encode(&buf, c.img); err != nil {
		return Portable{}, errors.Wrap(errors.ErrCodeEncode, err, "encode %dx%d canvas", c.Width(), c.Height())
	}
	return Portable{data: buf.Bytes()}, nil
}

// Len returns the size of the encoded stream in bytes.
func (p Portable) Len() int { return len(p.data) }

// Decode rebuilds the canvas. PNG stores fully opaque images without an
// alpha channel, so non-NRGBA results are converted back.
func (p Portable) Decode() (*Canvas, error) {
	if len(p.data) == 0 {
		return nil, errors.New(errors.ErrCodeDecode, "empty portable canvas")
	}
	img, err := png.Decode(bytes.NewReader(p.data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode portable canvas")
	}
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return &Canvas{img: nrgba}, nil
	}
	return FromImage(img), nil
}

// MarshalBinary returns the encoded stream. The slice is shared with p.
func (p Portable) MarshalBinary() ([]byte, error) {
	return p.data, nil
}

// UnmarshalBinary takes a copy of a stream received from another worker.
// The stream is only checked when decoded.
func (p *Portable) UnmarshalBinary(b []byte) error {
	p.data = append([]byte(nil), b...)
	return nil
}
