package assembler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"github.com/yuanying/kdpbook/internal/barcode"
	"github.com/yuanying/kdpbook/internal/book"
	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
	"github.com/yuanying/kdpbook/internal/spine"
)

// CoverResult is an assembled paperback cover.
type CoverResult struct {
	PDF    []byte
	Layout kdp.Layout
	// ColorMode is the color space of the embedded raster.
	ColorMode kdp.ColorMode
	Spine     *spine.Result
	// Barcode is nil when the barcode box was not reserved.
	Barcode *barcode.Placement
	// Raster is the composed cover in ColorMode: *image.CMYK or *image.NRGBA.
	Raster   image.Image
	Warnings []string
}

// AssembleCover composes back cover, spine and front cover into one
// full-bleed raster and wraps it in a single-page PDF whose page size is the
// physical cover size.
func (a *Assembler) AssembleCover(ebook *book.Ebook, backCover, frontCover []byte) (*CoverResult, error) {
	// Bounds are checked before any pixel work.
	if err := a.cfg.ValidatePageCount(ebook.PageCount); err != nil {
		return nil, err
	}

	layout, err := kdp.NewLayout(a.cfg, ebook.PageCount)
	if err != nil {
		return nil, err
	}
	logger := a.logger.With(
		"page_count", ebook.PageCount,
		"paper_type", a.cfg.PaperType.String(),
	)
	logger.Debug("cover layout",
		"full_cover_px", fmt.Sprintf("%dx%d", layout.FullCoverWidthPx, layout.FullCoverHeightPx),
		"spine_width_px", layout.SpineWidthPx,
		"spine_text", layout.SpineText.String(),
	)

	res := &CoverResult{Layout: layout, ColorMode: a.cfg.CoverColorMode}

	front, err := a.decodeLayer("front cover", frontCover)
	if err != nil {
		return nil, err
	}
	back, err := a.decodeLayer("back cover", backCover)
	if err != nil {
		return nil, err
	}

	sp, err := spine.GenerateImage(front, layout, ebook.Title, ebook.Author, spine.Options{
		FontPath: a.cfg.SpineFont,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate spine: %w", err)
	}
	res.Spine = sp
	res.Warnings = append(res.Warnings, sp.Warnings...)

	panelW, panelH := layout.CoverPanelWidthPx(), layout.SpineHeightPx
	backRGB := fitLayer(logger, "back cover", back, panelW, panelH)
	frontRGB := fitLayer(logger, "front cover", front, panelW, panelH)
	spineRGB := raster.EnsureRGB(sp.Image)
	if err := checkLayer("spine", spineRGB, layout.SpineWidthPx, layout.SpineHeightPx); err != nil {
		return nil, err
	}

	if a.cfg.IncludeBarcode {
		var p barcode.Placement
		backRGB, p = barcode.Reserve(backRGB, barcode.BackCoverOptions(a.cfg.BleedSize))
		res.Barcode = &p
		if p.Fallback {
			msg := fmt.Sprintf("barcode box did not fit the %dx%d back cover, reserved %v instead", panelW, panelH, p.Rect)
			logger.Warn("barcode fallback", "rect", p.Rect.String())
			res.Warnings = append(res.Warnings, msg)
		}
	}

	canvas := imaging.New(layout.FullCoverWidthPx, layout.FullCoverHeightPx, color.White)
	canvas = imaging.Paste(canvas, backRGB, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, spineRGB, image.Pt(layout.SpineX(), 0))
	canvas = imaging.Paste(canvas, frontRGB, image.Pt(layout.FrontX(), 0))

	if a.cfg.CoverColorMode == kdp.ColorCMYK {
		cmyk, warn := raster.EnsureCMYK(canvas, a.cfg.ICCCMYKProfile, a.cfg.ICCRGBProfile)
		if warn != nil {
			logger.Warn("cmyk conversion degraded", "reason", warn.Reason, "error", warn.Err)
			res.Warnings = append(res.Warnings, warn.String())
		}
		res.Raster = cmyk
		res.PDF, err = writeCMYKPDF(canvas, cmyk)
	} else {
		res.Raster = canvas
		var pngData []byte
		if pngData, err = raster.EncodePNG(canvas, kdp.DPI); err != nil {
			return nil, err
		}
		res.PDF, err = writePDF([]io.Reader{bytes.NewReader(pngData)}, layout.FullCoverWidthPx, layout.FullCoverHeightPx)
	}
	if err != nil {
		return nil, err
	}

	if err := a.cfg.ValidatePageCount(ebook.PageCount); err != nil {
		return nil, err
	}
	logger.Info("cover assembled",
		"width_in", layout.FullCoverWidthIn,
		"height_in", layout.FullCoverHeightIn,
		"color_mode", string(res.ColorMode),
		"pdf_bytes", len(res.PDF),
	)
	return res, nil
}
