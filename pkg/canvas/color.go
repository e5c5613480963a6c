package canvas

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// RGB decodes a packed 0xRRGGBB value into an opaque colour. Bits above the
// low 24 are ignored.
func RGB(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// ParseColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA" (the "#" is optional).
// Colours without an alpha component are opaque.
func ParseColor(s string) (color.NRGBA, error) {
	if err := errors.ValidateHexColor(s); err != nil {
		return color.NRGBA{}, err
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.Wrap(errors.ErrCodeInvalidColor, err, "parse colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatColor renders c as "#RRGGBB", or "#RRGGBBAA" when not opaque.
func FormatColor(c color.NRGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#'}
	for _, v := range []uint8{c.R, c.G, c.B} {
		b = append(b, digits[v>>4], digits[v&0xf])
	}
	if c.A != 0xff {
		b = append(b, digits[c.A>>4], digits[c.A&0xf])
	}
	return string(b)
}
