package media

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/opentype"
)

// caption sizes in desk units (rendered at 72 dpi, so 1 unit = 1 px)
const (
	TitleFontSize = 24
	DateFontSize  = 16
)

// Fonts holds the two caption faces. faces are not safe for concurrent use;
// the compositor serialises access.
type Fonts struct {
	Title font.Face
	Date  font.Face
}

// LoadFonts parses the TTF/OTF at path, or the bundled Go Medium Italic when
// path is empty. a handwriting face such as Caveat can be dropped in via config.
func LoadFonts(path string) (*Fonts, error) {
	data := gomediumitalic.TTF
	if path != "" {
		custom, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read caption font %s: %w", path, err)
		}
		data = custom
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption font: %w", err)
	}

	title, err := newFace(parsed, TitleFontSize)
	if err != nil {
		return nil, err
	}
	date, err := newFace(parsed, DateFontSize)
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.Printf("media.fonts: Loaded caption font from %s", path)
	}
	return &Fonts{Title: title, Date: date}, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %.0fpx caption face: %w", size, err)
	}
	return face, nil
}
