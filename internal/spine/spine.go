// Package spine renders the strip between the back and front cover.
package spine

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

const (
	maxFontPx       = 72
	minFontPx       = 6
	fontWidthRatio  = 0.6
	fontShrinkStep  = 0.9
	textSeparator   = "  ·  "
	// asciiSeparator replaces textSeparator for the bitmap face, which has
	// no glyph for U+00B7.
	asciiSeparator  = "  -  "
	inkLuminanceCut = 140
)

var (
	darkInk  = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
	lightInk = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Options configures spine generation.
type Options struct {
	// FontPath is the preferred TTF; empty skips straight to the embedded font.
	FontPath string
	Logger   *slog.Logger
}

// Result is a generated spine.
type Result struct {
	Image *image.NRGBA
	// Data is Image encoded as PNG at kdp.DPI.
	Data []byte

	Verdict  kdp.SpineTextVerdict
	HasText  bool
	Font     FontSource
	Warnings []string
}

// Generate builds the spine for layout from the front cover image bytes.
func Generate(frontCover []byte, layout kdp.Layout, title, author string, opts Options) (*Result, error) {
	front, err := raster.Decode(frontCover, "front cover")
	if err != nil {
		return nil, err
	}
	res, err := GenerateImage(front, layout, title, author, opts)
	if err != nil {
		return nil, err
	}
	res.Data, err = raster.EncodePNG(res.Image, kdp.DPI)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spine: %w", err)
	}
	return res, nil
}

// GenerateImage is Generate on an already decoded front cover. Result.Data is
// left empty.
func GenerateImage(front image.Image, layout kdp.Layout, title, author string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bg := raster.DominantColorFadedImage(front)
	res := &Result{Verdict: layout.SpineText}
	if layout.SpineTextMessage != "" && layout.SpineText.Allowed() {
		res.Warnings = append(res.Warnings, layout.SpineTextMessage)
	}

	if !layout.SpineText.Allowed() {
		logger.Debug("spine too narrow for text, drawing gradient",
			"spine_width_in", layout.SpineWidthIn,
			"spine_width_px", layout.SpineWidthPx,
		)
		res.Image = Gradient(layout.SpineWidthPx, layout.SpineHeightPx, bg)
		return res, nil
	}

	tf, warnings := loadTypeface(opts.FontPath)
	res.Font = tf.source
	res.Warnings = append(res.Warnings, warnings...)
	for _, w := range warnings {
		logger.Warn("spine font fallback", "detail", w)
	}

	img, err := renderText(tf, spineText(title, author, separatorFor(tf)), layout, bg)
	if err != nil {
		return nil, err
	}
	res.Image = img
	res.HasText = true
	return res, nil
}

func separatorFor(tf faceSource) string {
	if tf.scalable() {
		return textSeparator
	}
	return asciiSeparator
}

func spineText(title, author, sep string) string {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	switch {
	case title == "":
		return author
	case author == "":
		return title
	}
	return title + sep + author
}

// faceSource produces font faces at a pixel size.
type faceSource interface {
	face(sizePx float64) (font.Face, error)
	scalable() bool
}

// renderText lays the text out on a horizontal strip whose width is the
// spine height, then rotates it clockwise so the text runs top to bottom.
func renderText(tf faceSource, text string, layout kdp.Layout, bg color.NRGBA) (*image.NRGBA, error) {
	stripW := layout.SpineHeightPx
	stripH := layout.SpineWidthPx
	minMargin := layout.SpineMarginPx()

	size := math.Min(float64(stripH)*fontWidthRatio, maxFontPx)
	var (
		face         font.Face
		textW, textH int
		ascent       int
	)
	defer func() {
		if face != nil {
			face.Close()
		}
	}()
	for {
		f, err := tf.face(size)
		if err != nil {
			return nil, fmt.Errorf("failed to create spine font face: %w", err)
		}
		if face != nil {
			face.Close()
		}
		face = f
		m := f.Metrics()
		textW = font.MeasureString(f, text).Ceil()
		ascent = m.Ascent.Ceil()
		textH = ascent + m.Descent.Ceil()

		fits := textW <= stripW-2*minMargin && textH <= stripH
		if fits || !tf.scalable() || size*fontShrinkStep < minFontPx {
			break
		}
		size *= fontShrinkStep
	}

	x := (stripW - textW) / 2
	top := x
	bottom := stripW - (x + textW)
	if top < minMargin {
		return nil, &kdp.SpineMarginError{Edge: "top", MarginPx: top, MinPx: minMargin}
	}
	if bottom < minMargin {
		return nil, &kdp.SpineMarginError{Edge: "bottom", MarginPx: bottom, MinPx: minMargin}
	}
	if textH > stripH {
		return nil, &kdp.SpineMarginError{Edge: "side", MarginPx: (stripH - textH) / 2, MinPx: 0}
	}

	strip := imaging.New(stripW, stripH, bg)
	d := &font.Drawer{
		Dst:  strip,
		Src:  image.NewUniform(inkFor(bg)),
		Face: face,
		Dot:  fixed.P(x, (stripH-textH)/2+ascent),
	}
	d.DrawString(text)

	return imaging.Rotate270(strip), nil
}

func inkFor(bg color.NRGBA) color.NRGBA {
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > inkLuminanceCut {
		return darkInk
	}
	return lightInk
}

// Gradient returns a w x h image fading linearly from top (first row) to
// white (last row).
func Gradient(w, h int, top color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		ratio := 0.0
		if h > 1 {
			ratio = float64(y) / float64(h-1)
		}
		c := [4]uint8{
			lerp(top.R, 255, ratio),
			lerp(top.G, 255, ratio),
			lerp(top.B, 255, ratio),
			255,
		}
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(row[x*4:x*4+4], c[:])
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
