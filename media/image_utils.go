package media

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	// decoders for every format a card image may arrive in
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ExportFilename names a download the way the shell always has.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("%s%d%s", ExportFilePrefix, t.UnixMilli(), ExportFileExtension)
}
