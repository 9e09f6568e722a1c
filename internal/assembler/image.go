package assembler

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

// decodeLayer decodes image bytes with the assembler's pixel cap.
func (a *Assembler) decodeLayer(name string, data []byte) (image.Image, error) {
	return raster.DecodeLimit(data, name, a.maxPixels)
}

// fitLayer normalizes img to opaque RGB and resizes it to exactly w x h when
// its size differs. Only covers and interior pages are fitted; the spine is
// checked with checkLayer instead.
func fitLayer(logger *slog.Logger, name string, img image.Image, w, h int) *image.NRGBA {
	rgb := raster.EnsureRGB(img)
	gw, gh := raster.Size(rgb)
	if gw == w && gh == h {
		return rgb
	}
	logger.Info("resizing layer",
		"layer", name,
		"from", fmt.Sprintf("%dx%d", gw, gh),
		"to", fmt.Sprintf("%dx%d", w, h),
	)
	return imaging.Resize(rgb, w, h, imaging.Lanczos)
}

// checkLayer rejects an image whose size is not exactly w x h.
func checkLayer(name string, img image.Image, w, h int) error {
	gw, gh := raster.Size(img)
	if gw != w || gh != h {
		return &kdp.DimensionError{Layer: name, WantW: w, WantH: h, GotW: gw, GotH: gh}
	}
	return nil
}
