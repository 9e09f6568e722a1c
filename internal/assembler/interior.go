package assembler

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"github.com/yuanying/kdpbook/internal/book"
	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

// MinInteriorPages is the interior length that auto-padding fills up to,
// regardless of paper type.
const MinInteriorPages = 24

// InteriorOptions controls interior assembly.
type InteriorOptions struct {
	// AutoPad appends blank white pages until the interior has
	// MinInteriorPages pages.
	AutoPad bool
}

// DefaultInteriorOptions enables auto-padding.
func DefaultInteriorOptions() InteriorOptions {
	return InteriorOptions{AutoPad: true}
}

// InteriorResult is an assembled interior.
type InteriorResult struct {
	PDF []byte
	// PageWidthPx and PageHeightPx are the trim size plus bleed on every side.
	PageWidthPx  int
	PageHeightPx int
	// InteriorPages counts the emitted pages, padding included.
	InteriorPages int
	// PageCount is InteriorPages plus the front and back cover.
	PageCount   int
	PaddedPages int
	Warnings    []string
}

// AssembleInterior converts the ebook's content pages (pages_meta without
// its first and last entry) into a multi-page RGB PDF.
func (a *Assembler) AssembleInterior(ebook *book.Ebook, opts InteriorOptions) (*InteriorResult, error) {
	pages, err := ebook.InteriorPages()
	if err != nil {
		return nil, err
	}

	bleed := kdp.InchesToPx(a.cfg.BleedSize, kdp.DPI)
	res := &InteriorResult{
		PageWidthPx:  kdp.InchesToPx(a.cfg.TrimWidth, kdp.DPI) + 2*bleed,
		PageHeightPx: kdp.InchesToPx(a.cfg.TrimHeight, kdp.DPI) + 2*bleed,
	}
	logger := a.logger.With("paper_type", a.cfg.PaperType.String())

	images := make([]io.Reader, 0, max(len(pages), MinInteriorPages))
	for _, p := range pages {
		name := fmt.Sprintf("page %d", p.PageNumber)
		img, err := a.decodeLayer(name, p.ImageData)
		if err != nil {
			return nil, err
		}
		fitted := fitLayer(logger, name, img, res.PageWidthPx, res.PageHeightPx)
		data, err := raster.EncodePNG(fitted, kdp.DPI)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		images = append(images, bytes.NewReader(data))
	}

	if opts.AutoPad && len(images) < MinInteriorPages {
		blank, err := raster.EncodePNG(imaging.New(res.PageWidthPx, res.PageHeightPx, color.White), kdp.DPI)
		if err != nil {
			return nil, fmt.Errorf("failed to encode blank page: %w", err)
		}
		res.PaddedPages = MinInteriorPages - len(images)
		for i := 0; i < res.PaddedPages; i++ {
			images = append(images, bytes.NewReader(blank))
		}
		msg := fmt.Sprintf("interior padded from %d to %d pages with %d blank pages", len(pages), len(images), res.PaddedPages)
		logger.Warn("interior padded", "content_pages", len(pages), "padded_pages", res.PaddedPages)
		res.Warnings = append(res.Warnings, msg)
	}

	res.InteriorPages = len(images)
	res.PageCount = res.InteriorPages + 2
	if err := a.cfg.ValidatePageCount(res.InteriorPages); err != nil {
		return nil, err
	}

	res.PDF, err = writePDF(images, res.PageWidthPx, res.PageHeightPx)
	if err != nil {
		return nil, err
	}
	logger.Info("interior assembled",
		"pages", res.InteriorPages,
		"padded_pages", res.PaddedPages,
		"pdf_bytes", len(res.PDF),
	)
	return res, nil
}
