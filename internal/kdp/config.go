package kdp

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// ColorMode is the color space of the emitted cover raster.
type ColorMode string

const (
	ColorCMYK ColorMode = "cmyk"
	ColorRGB  ColorMode = "rgb"
)

// PageBounds is the permitted page-count range for a paper type.
type PageBounds struct {
	Min int `yaml:"min_pages" toml:"min_pages"`
	Max int `yaml:"max_pages" toml:"max_pages"`
}

// ExportSettings holds raw export values as they appear in a config file or
// on the command line. Catalog.NewExportConfig validates them.
type ExportSettings struct {
	TrimSize       []float64 `yaml:"trim_size" toml:"trim_size"`
	BleedSize      float64   `yaml:"bleed_size" toml:"bleed_size"`
	PaperType      string    `yaml:"paper_type" toml:"paper_type"`
	CoverFinish    string    `yaml:"cover_finish" toml:"cover_finish"`
	IncludeBarcode *bool     `yaml:"include_barcode" toml:"include_barcode"`
	CoverColorMode string    `yaml:"cover_color_mode" toml:"cover_color_mode"`
	ICCRGBProfile  string    `yaml:"icc_rgb_profile" toml:"icc_rgb_profile"`
	ICCCMYKProfile string    `yaml:"icc_cmyk_profile" toml:"icc_cmyk_profile"`
	SpineFont      string    `yaml:"spine_font" toml:"spine_font"`
}

// Catalog is the external configuration: export defaults plus the value sets
// that paper type and cover finish must belong to.
type Catalog struct {
	Export        ExportSettings        `yaml:"export" toml:"export"`
	PaperTypes    map[string]PageBounds `yaml:"paper_types" toml:"paper_types"`
	CoverFinishes []string              `yaml:"cover_finishes" toml:"cover_finishes"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a YAML (.yaml, .yml) or TOML (.toml) catalog. Sections
// missing from the file are taken from the embedded defaults. An empty path
// returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	defaults, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var c Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	c.normalize(defaults)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize(defaults *Catalog) {
	if len(c.PaperTypes) == 0 {
		c.PaperTypes = defaults.PaperTypes
	}
	if len(c.CoverFinishes) == 0 {
		c.CoverFinishes = defaults.CoverFinishes
	}

	d := defaults.Export
	e := &c.Export
	if len(e.TrimSize) == 0 {
		e.TrimSize = d.TrimSize
	}
	if e.BleedSize == 0 {
		e.BleedSize = d.BleedSize
	}
	if e.PaperType == "" {
		e.PaperType = d.PaperType
	}
	if e.CoverFinish == "" {
		e.CoverFinish = d.CoverFinish
	}
	if e.IncludeBarcode == nil {
		e.IncludeBarcode = d.IncludeBarcode
	}
	if e.CoverColorMode == "" {
		e.CoverColorMode = d.CoverColorMode
	}
}

func (c *Catalog) validate() error {
	if len(c.PaperTypes) == 0 {
		return fmt.Errorf("%w: no paper types configured", ErrConfig)
	}
	for name, b := range c.PaperTypes {
		if _, err := ParsePaperType(name); err != nil {
			return err
		}
		if b.Min <= 0 || b.Max < b.Min {
			return fmt.Errorf("%w: paper type %s has invalid page bounds %d-%d", ErrConfig, name, b.Min, b.Max)
		}
	}
	if len(c.CoverFinishes) == 0 {
		return fmt.Errorf("%w: no cover finishes configured", ErrConfig)
	}
	for _, name := range c.CoverFinishes {
		if _, err := ParseCoverFinish(name); err != nil {
			return err
		}
	}
	return nil
}

// EnabledPaperTypes returns the configured paper type names, sorted.
func (c *Catalog) EnabledPaperTypes() []string {
	names := make([]string, 0, len(c.PaperTypes))
	for name := range c.PaperTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bounds returns the page bounds configured for paper.
func (c *Catalog) Bounds(paper PaperType) (PageBounds, error) {
	b, ok := c.PaperTypes[paper.String()]
	if !ok {
		return PageBounds{}, &ConfigError{Field: "paper_type", Value: paper.String(), Allowed: c.EnabledPaperTypes()}
	}
	return b, nil
}

// ExportConfig is a validated, immutable description of one publishing job.
type ExportConfig struct {
	TrimWidth  float64
	TrimHeight float64
	BleedSize  float64

	PaperType      PaperType
	CoverFinish    CoverFinish
	IncludeBarcode bool
	CoverColorMode ColorMode

	ICCRGBProfile  string
	ICCCMYKProfile string
	SpineFont      string

	Bounds PageBounds
}

// DefaultExportConfig validates the catalog's own export defaults.
func (c *Catalog) DefaultExportConfig() (ExportConfig, error) {
	return c.NewExportConfig(c.Export)
}

// NewExportConfig validates s against the catalog. Paper type and cover
// finish must be enabled in the catalog.
func (c *Catalog) NewExportConfig(s ExportSettings) (ExportConfig, error) {
	if len(s.TrimSize) != 2 || s.TrimSize[0] <= 0 || s.TrimSize[1] <= 0 {
		return ExportConfig{}, &ConfigError{Field: "trim_size", Value: fmt.Sprint(s.TrimSize)}
	}
	if s.BleedSize <= 0 {
		return ExportConfig{}, &ConfigError{Field: "bleed_size", Value: fmt.Sprint(s.BleedSize)}
	}

	paper, err := ParsePaperType(s.PaperType)
	if err != nil {
		return ExportConfig{}, err
	}
	bounds, err := c.Bounds(paper)
	if err != nil {
		return ExportConfig{}, err
	}

	finish, err := ParseCoverFinish(s.CoverFinish)
	if err != nil {
		return ExportConfig{}, err
	}
	if !c.finishEnabled(finish) {
		return ExportConfig{}, &ConfigError{Field: "cover_finish", Value: s.CoverFinish, Allowed: c.CoverFinishes}
	}

	mode := ColorMode(strings.ToLower(strings.TrimSpace(s.CoverColorMode)))
	switch mode {
	case "":
		mode = ColorCMYK
	case ColorCMYK, ColorRGB:
	default:
		return ExportConfig{}, &ConfigError{Field: "cover_color_mode", Value: s.CoverColorMode, Allowed: []string{string(ColorCMYK), string(ColorRGB)}}
	}

	includeBarcode := true
	if s.IncludeBarcode != nil {
		includeBarcode = *s.IncludeBarcode
	}

	return ExportConfig{
		TrimWidth:      s.TrimSize[0],
		TrimHeight:     s.TrimSize[1],
		BleedSize:      s.BleedSize,
		PaperType:      paper,
		CoverFinish:    finish,
		IncludeBarcode: includeBarcode,
		CoverColorMode: mode,
		ICCRGBProfile:  s.ICCRGBProfile,
		ICCCMYKProfile: s.ICCCMYKProfile,
		SpineFont:      s.SpineFont,
		Bounds:         bounds,
	}, nil
}

func (c *Catalog) finishEnabled(f CoverFinish) bool {
	for _, name := range c.CoverFinishes {
		if strings.EqualFold(strings.TrimSpace(name), f.String()) {
			return true
		}
	}
	return false
}

// ValidatePageCount checks n against the paper type's page bounds.
func (c ExportConfig) ValidatePageCount(n int) error {
	if n < c.Bounds.Min || n > c.Bounds.Max {
		return &PageCountError{PaperType: c.PaperType, Count: n, Min: c.Bounds.Min, Max: c.Bounds.Max}
	}
	return nil
}
