package source

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// ReadGeoJSON reads a FeatureCollection, a Feature or a bare geometry.
func ReadGeoJSON(r io.Reader) ([]render.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read geojson")
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode geojson")
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode feature collection")
		}
		records := make([]render.Record, 0, len(fc.Features))
		for _, f := range fc.Features {
			records = append(records, featureRecord(f))
		}
		return records, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode feature")
		}
		return []render.Record{featureRecord(f)}, nil
	case "":
		return nil, errors.New(errors.ErrCodeDecode, "geojson object has no type")
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode %s geometry", head.Type)
	}
	return []render.Record{{Geometry: g.Geometry()}}, nil
}

func featureRecord(f *geojson.Feature) render.Record {
	return render.Record{Geometry: f.Geometry, Attachment: f.Properties}
}
