package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// maxLine bounds a single WKT line.
const maxLine = 16 << 20

// ReadWKT reads one WKT geometry per line.
func ReadWKT(r io.Reader) ([]render.Record, error) {
	var records []render.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		g, err := wkt.Unmarshal(text)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "line %d", line)
		}
		records = append(records, render.Record{Geometry: g, Attachment: line})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read wkt")
	}
	return records, nil
}
