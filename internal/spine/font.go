package spine

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FontSource records which fallback tier supplied the spine font.
type FontSource int

const (
	// FontConfigured is the TTF named in the export configuration.
	FontConfigured FontSource = iota
	// FontEmbedded is the bundled Go Bold TrueType font.
	FontEmbedded
	// FontBuiltin is the fixed-size bitmap face; it cannot be scaled.
	FontBuiltin
)

func (s FontSource) String() string {
	switch s {
	case FontConfigured:
		return "configured"
	case FontEmbedded:
		return "embedded"
	case FontBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("FontSource(%d)", int(s))
	}
}

// typeface is a loaded font that can produce faces at any pixel size.
type typeface struct {
	font   *opentype.Font
	source FontSource
}

// loadTypeface tries path, then the embedded TTF, then the bitmap face.
// It never fails; each fallback step adds a warning.
func loadTypeface(path string) (typeface, []string) {
	var warnings []string

	if path != "" {
		f, err := parseFontFile(path)
		if err == nil {
			return typeface{font: f, source: FontConfigured}, nil
		}
		warnings = append(warnings, fmt.Sprintf("spine font %s unavailable, using embedded font: %v", path, err))
	}

	f, err := opentype.Parse(gobold.TTF)
	if err == nil {
		return typeface{font: f, source: FontEmbedded}, warnings
	}
	warnings = append(warnings, fmt.Sprintf("embedded font unavailable, using built-in bitmap font: %v", err))
	return typeface{source: FontBuiltin}, warnings
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return opentype.Parse(data)
}

// face returns a face rendering sizePx pixels per em. The bitmap tier ignores
// the size.
func (t typeface) face(sizePx float64) (font.Face, error) {
	if t.font == nil {
		return basicfont.Face7x13, nil
	}
	return opentype.NewFace(t.font, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (t typeface) scalable() bool { return t.font != nil }
