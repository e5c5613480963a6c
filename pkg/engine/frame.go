package engine

import (
	"encoding/binary"
	"encoding/json"

	"github.com/matzehuels/starkviz/pkg/canvas"
	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// Partial is one rendered partition in transfer form.
type Partial struct {
	Partition int
	Canvas    canvas.Portable
	Stats     render.Stats
}

type frameHeader struct {
	Partition int          `json:"partition"`
	Stats     render.Stats `json:"stats"`
}

// maxHeader bounds the JSON header of a frame.
const maxHeader = 1 << 20

// EncodeFrame serialises p as a 4-byte big-endian header length, the JSON
// header, then the PNG stream.
func EncodeFrame(p Partial) ([]byte, error) {
	hdr, err := json.Marshal(frameHeader{Partition: p.Partition, Stats: p.Stats})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "encode frame header")
	}
	body, err := p.Canvas.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "encode frame body")
	}
	out := make([]byte, 4, 4+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

// DecodeFrame is the inverse of EncodeFrame. The canvas is copied out of
// data.
func DecodeFrame(data []byte) (Partial, error) {
	if len(data) < 4 {
		return Partial{}, errors.New(errors.ErrCodeDecode, "frame too short (%d bytes)", len(data))
	}
	n := binary.BigEndian.Uint32(data)
	if n > maxHeader || int(n) > len(data)-4 {
		return Partial{}, errors.New(errors.ErrCodeDecode, "frame header length %d out of range", n)
	}
	var hdr frameHeader
	if err := json.Unmarshal(data[4:4+n], &hdr); err != nil {
		return Partial{}, errors.Wrap(errors.ErrCodeDecode, err, "decode frame header")
	}
	p := Partial{Partition: hdr.Partition, Stats: hdr.Stats}
	if err := p.Canvas.UnmarshalBinary(data[4+n:]); err != nil {
		return Partial{}, errors.Wrap(errors.ErrCodeDecode, err, "decode frame body")
	}
	return p, nil
}
