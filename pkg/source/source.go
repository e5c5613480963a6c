// Package source reads spatial records and tiles from files.
//
// Supported record formats:
//
//   - GeoJSON: a FeatureCollection, a single Feature or a bare geometry.
//     Feature properties become the record attachment.
//   - WKT: one geometry per line. Blank lines and lines starting with '#'
//     are ignored; the attachment is the 1-based line number.
//   - CSV: points from latitude and longitude columns, detected by header
//     name. The other columns become the attachment.
//
// Tiles are read from a JSON array of {ulx, uly, width, height, values}.
package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// Record formats.
const (
	FormatGeoJSON = "geojson"
	FormatWKT     = "wkt"
	FormatCSV     = "csv"
)

// ValidFormats is the set of supported record formats.
var ValidFormats = map[string]bool{
	FormatGeoJSON: true,
	FormatWKT:     true,
	FormatCSV:     true,
}

// DetectFormat guesses the record format from a file name.
// Unknown extensions are assumed to be GeoJSON.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wkt", ".txt":
		return FormatWKT
	case ".csv", ".tsv":
		return FormatCSV
	}
	return FormatGeoJSON
}

// ValidateFormat checks that format names a record format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid input format: %q (must be one of: geojson, wkt, csv)", format)
	}
	return nil
}

// Read parses records in the given format.
func Read(r io.Reader, format string) ([]render.Record, error) {
	switch format {
	case FormatGeoJSON:
		return ReadGeoJSON(r)
	case FormatWKT:
		return ReadWKT(r)
	case FormatCSV:
		return ReadCSV(r)
	}
	return nil, ValidateFormat(format)
}

// ReadFile reads records from path. An empty format is detected from the
// file name.
func ReadFile(path, format string) ([]render.Record, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data), format)
}

// ReadTilesFile reads tiles from path.
func ReadTilesFile(path string) ([]render.Tile, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ReadTiles(bytes.NewReader(data))
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	return data, nil
}

// Bound returns the bounding box of every record with a geometry and
// false when there is none.
func Bound(records []render.Record) (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, rec := range records {
		if rec.Geometry == nil {
			continue
		}
		gb := rec.Geometry.Bound()
		if !found {
			b, found = gb, true
			continue
		}
		b = b.Union(gb)
	}
	return b, found
}

// Explode replaces multi-geometries and collections by their members, so
// that MultiPoint and MultiPolygon records draw as points and polygons.
// Members share the attachment of their parent.
func Explode(records []render.Record) []render.Record {
	out := make([]render.Record, 0, len(records))
	var add func(g orb.Geometry, att any)
	add = func(g orb.Geometry, att any) {
		switch g := g.(type) {
		case orb.MultiPoint:
			for _, p := range g {
				out = append(out, render.Record{Geometry: p, Attachment: att})
			}
		case orb.MultiPolygon:
			for _, p := range g {
				out = append(out, render.Record{Geometry: p, Attachment: att})
			}
		case orb.Collection:
			for _, member := range g {
				add(member, att)
			}
		default:
			out = append(out, render.Record{Geometry: g, Attachment: att})
		}
	}
	for _, rec := range records {
		add(rec.Geometry, rec.Attachment)
	}
	return out
}
