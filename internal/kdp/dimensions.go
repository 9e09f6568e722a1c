package kdp

import "math"

// DPI is the print resolution KDP requires for every raster layer.
const DPI = 300

// InchesToPx converts inches to a pixel count at dpi, rounded to the nearest
// even number. Even counts keep bleed and spine placement symmetric.
func InchesToPx(inches float64, dpi int) int {
	return int(math.RoundToEven(inches*float64(dpi)/2)) * 2
}

// PxToInches converts a pixel count at DPI back to inches.
func PxToInches(px int) float64 {
	return float64(px) / DPI
}

// Layout is the pixel geometry of one paperback, computed once and shared by
// every component that produces or checks an image layer.
type Layout struct {
	PaperType PaperType
	PageCount int

	TrimWidthPx       int
	TrimHeightPx      int
	BleedPx           int
	SpineWidthPx      int
	SpineHeightPx     int
	FullCoverWidthPx  int
	FullCoverHeightPx int

	SpineWidthIn     float64
	SpineText        SpineTextVerdict
	SpineTextMessage string

	// FullCoverWidthIn is the ideal physical width before pixel rounding.
	FullCoverWidthIn  float64
	FullCoverHeightIn float64
}

// NewLayout computes the cover and page geometry for pageCount pages.
func NewLayout(cfg ExportConfig, pageCount int) (Layout, error) {
	spineIn, err := SpineWidth(pageCount, cfg.PaperType)
	if err != nil {
		return Layout{}, err
	}
	verdict, msg := ClassifySpine(spineIn)

	l := Layout{
		PaperType:        cfg.PaperType,
		PageCount:        pageCount,
		TrimWidthPx:      InchesToPx(cfg.TrimWidth, DPI),
		TrimHeightPx:     InchesToPx(cfg.TrimHeight, DPI),
		BleedPx:          InchesToPx(cfg.BleedSize, DPI),
		SpineWidthPx:     InchesToPx(spineIn, DPI),
		SpineWidthIn:     spineIn,
		SpineText:        verdict,
		SpineTextMessage: msg,
	}
	l.SpineHeightPx = l.TrimHeightPx + 2*l.BleedPx
	l.FullCoverWidthPx = 2*l.BleedPx + 2*l.TrimWidthPx + l.SpineWidthPx
	l.FullCoverHeightPx = l.SpineHeightPx
	l.FullCoverWidthIn = 2*cfg.BleedSize + 2*cfg.TrimWidth + spineIn
	l.FullCoverHeightIn = cfg.TrimHeight + 2*cfg.BleedSize
	return l, nil
}

// CoverPanelWidthPx is the width of the back or front cover layer: trim plus
// the single outer bleed.
func (l Layout) CoverPanelWidthPx() int { return l.BleedPx + l.TrimWidthPx }

// PageWidthPx is the width of an interior page including bleed on both sides.
func (l Layout) PageWidthPx() int { return l.TrimWidthPx + 2*l.BleedPx }

// PageHeightPx is the height of an interior page including bleed.
func (l Layout) PageHeightPx() int { return l.TrimHeightPx + 2*l.BleedPx }

// SpineX is the x offset of the spine on the full cover.
func (l Layout) SpineX() int { return l.BleedPx + l.TrimWidthPx }

// FrontX is the x offset of the front cover on the full cover.
func (l Layout) FrontX() int { return l.SpineX() + l.SpineWidthPx }

// SpineMarginPx is the minimum distance between spine text and the spine's
// top and bottom edges.
func (l Layout) SpineMarginPx() int { return InchesToPx(MinSpineMargin, DPI) }
