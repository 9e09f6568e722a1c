// Package barcode clears the area KDP prints the ISBN barcode into.
package barcode

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

const (
	fallbackWidthRatio  = 0.30
	fallbackHeightRatio = 0.20
	fallbackMarginRatio = 0.02
)

// Options describes the barcode box and where the trim edge sits relative
// to the image edge.
type Options struct {
	WidthIn  float64
	HeightIn float64
	// MarginIn is measured from the trim edge, not the image edge.
	MarginIn float64

	ImageIncludesBleeds bool
	BleedIn             float64
	// HasRightBleed is false for a back cover: the spine follows on the right.
	HasRightBleed bool
}

// DefaultOptions returns KDP's 2.0" x 1.2" box with a 0.25" margin.
func DefaultOptions() Options {
	return Options{
		WidthIn:  2.0,
		HeightIn: 1.2,
		MarginIn: 0.25,
		BleedIn:  0.125,
	}
}

// BackCoverOptions is DefaultOptions for a back cover panel that carries
// bleed on the left, top and bottom only.
func BackCoverOptions(bleedIn float64) Options {
	o := DefaultOptions()
	o.ImageIncludesBleeds = true
	o.BleedIn = bleedIn
	return o
}

// Placement is the reserved rectangle in image coordinates.
type Placement struct {
	Rect image.Rectangle
	// Fallback is set when the requested box did not fit and the
	// proportional size was used instead.
	Fallback bool
}

// Locate computes the white box for a w x h image.
func Locate(w, h int, opts Options) Placement {
	rw := px(opts.WidthIn)
	rh := px(opts.HeightIn)
	margin := px(opts.MarginIn)

	var right, bottom int
	if opts.ImageIncludesBleeds {
		bleed := kdp.InchesToPx(opts.BleedIn, kdp.DPI)
		bottom = bleed
		if opts.HasRightBleed {
			right = bleed
		}
	}

	x1 := w - right - margin
	y1 := h - bottom - margin
	r := image.Rect(x1-rw, y1-rh, x1, y1)
	if rw > 0 && rh > 0 && r.In(image.Rect(0, 0, w, h)) {
		return Placement{Rect: r}
	}

	rw = min(rw, int(float64(w)*fallbackWidthRatio))
	rh = min(rh, int(float64(h)*fallbackHeightRatio))
	margin = int(float64(w) * fallbackMarginRatio)
	x1 = w - margin
	y1 = h - margin
	r = image.Rect(max(x1-rw, 0), max(y1-rh, 0), max(x1, 0), max(y1, 0))
	return Placement{Rect: r, Fallback: true}
}

// Reserve returns a copy of img with the barcode box painted white.
func Reserve(img image.Image, opts Options) (*image.NRGBA, Placement) {
	w, h := raster.Size(img)
	p := Locate(w, h, opts)
	if p.Rect.Empty() {
		return imaging.Clone(img), p
	}
	white := imaging.New(p.Rect.Dx(), p.Rect.Dy(), color.White)
	b := img.Bounds()
	return imaging.Paste(img, white, p.Rect.Min.Add(b.Min)), p
}

// AddBarcodeSpace decodes data, reserves the barcode box and re-encodes the
// result as PNG at kdp.DPI. Only undecodable input is an error.
func AddBarcodeSpace(data []byte, opts Options) ([]byte, Placement, error) {
	img, err := raster.Decode(data, "barcode input")
	if err != nil {
		return nil, Placement{}, err
	}
	out, p := Reserve(img, opts)
	enc, err := raster.EncodePNG(out, kdp.DPI)
	if err != nil {
		return nil, p, fmt.Errorf("failed to encode image: %w", err)
	}
	return enc, p, nil
}

func px(inches float64) int {
	return int(math.Round(inches * kdp.DPI))
}
