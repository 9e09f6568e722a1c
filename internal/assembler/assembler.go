// Package assembler builds the KDP paperback print files: a single-page
// cover PDF (back, spine and front with bleed) and a multi-page interior PDF.
package assembler

import (
	"log/slog"

	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

// Options configures an Assembler.
type Options struct {
	Config kdp.ExportConfig
	Logger *slog.Logger
	// MaxPixels caps decoded input images (width * height). Zero means
	// raster.DefaultMaxPixels.
	MaxPixels int
}

// Assembler turns an ebook and its cover images into print files. It holds
// no mutable state and is safe for concurrent use.
type Assembler struct {
	cfg       kdp.ExportConfig
	logger    *slog.Logger
	maxPixels int
}

// New creates an Assembler.
func New(opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = raster.DefaultMaxPixels
	}
	return &Assembler{
		cfg:       opts.Config,
		logger:    logger,
		maxPixels: maxPixels,
	}
}

// Config returns the export configuration the assembler was built with.
func (a *Assembler) Config() kdp.ExportConfig {
	return a.cfg
}
