// Package raster holds the image primitives shared by the cover and interior
// assemblers: guarded decoding, print encoders and color-space normalization.
package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/yuanying/kdpbook/internal/kdp"
)

// DefaultMaxPixels caps the decoded size of a single layer. A full 8.5x11
// wraparound cover at 300 DPI is about 17 megapixels.
const DefaultMaxPixels = 200 * 1000 * 1000

// Decode decodes data after checking its header against DefaultMaxPixels.
// Failures are returned as *kdp.DecodeError naming source.
func Decode(data []byte, source string) (image.Image, error) {
	return DecodeLimit(data, source, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel cap; maxPixels <= 0 disables it.
func DecodeLimit(data []byte, source string, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, &kdp.DecodeError{Source: source, Err: fmt.Errorf("empty image data")}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &kdp.DecodeError{Source: source, Err: err}
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if maxPixels > 0 && pixels > uint64(maxPixels) {
		return nil, &kdp.DecodeError{
			Source: source,
			Err:    fmt.Errorf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &kdp.DecodeError{Source: source, Err: err}
	}
	return img, nil
}

// Size returns the dimensions of img.
func Size(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
