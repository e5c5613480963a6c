package source

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// Header names recognised as coordinate columns, case-insensitively.
var (
	latColumns = map[string]bool{"lat": true, "latitude": true, "y": true}
	lonColumns = map[string]bool{"lon": true, "lng": true, "long": true, "longitude": true, "x": true}
)

// ReadCSV reads points from a CSV file with a header row. Rows whose
// coordinates do not parse are skipped. The delimiter is a comma, or a tab
// when the header contains tabs but no commas.
func ReadCSV(r io.Reader) ([]render.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read csv")
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.ContainsRune(first, '\t') && !bytes.ContainsRune(first, ',') {
		cr.Comma = '\t'
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeDecode, "empty csv")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read csv header")
	}

	latIdx, lonIdx := -1, -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if latColumns[h] && latIdx == -1 {
			latIdx = i
		}
		if lonColumns[h] && lonIdx == -1 {
			lonIdx = i
		}
	}
	if latIdx == -1 || lonIdx == -1 {
		return nil, errors.New(errors.ErrCodeDecode, "csv: latitude/longitude columns not found in %v", header)
	}

	var records []render.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "read csv")
		}
		if latIdx >= len(row) || lonIdx >= len(row) {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[lonIdx]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		attrs := make(map[string]string, len(row))
		for i, v := range row {
			if i != latIdx && i != lonIdx && i < len(header) {
				attrs[header[i]] = v
			}
		}
		records = append(records, render.Record{Geometry: orb.Point{lon, lat}, Attachment: attrs})
	}
	return records, nil
}
