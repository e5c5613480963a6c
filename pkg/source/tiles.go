package source

import (
	"encoding/json"
	"io"

	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/render"
)

// ReadTiles decodes a JSON array of tiles. Tiles with inconsistent sizes
// are returned as they are; the renderer reports and skips them.
func ReadTiles(r io.Reader) ([]render.Tile, error) {
	var tiles []render.Tile
	if err := json.NewDecoder(r).Decode(&tiles); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode tiles")
	}
	return tiles, nil
}
