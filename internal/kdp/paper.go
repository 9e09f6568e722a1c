package kdp

import (
	"fmt"
	"strings"
)

// PaperType is the interior paper stock. It determines spine thickness per
// page and the permitted page-count range.
type PaperType int

const (
	PremiumColor PaperType = iota + 1
	StandardColor
	White
	Cream
)

// AllPaperTypes lists every paper type in declaration order.
var AllPaperTypes = []PaperType{PremiumColor, StandardColor, White, Cream}

func (p PaperType) String() string {
	switch p {
	case PremiumColor:
		return "premium_color"
	case StandardColor:
		return "standard_color"
	case White:
		return "white"
	case Cream:
		return "cream"
	default:
		return fmt.Sprintf("PaperType(%d)", int(p))
	}
}

// ParsePaperType maps a configuration string to a PaperType.
func ParsePaperType(s string) (PaperType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, p := range AllPaperTypes {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, &ConfigError{Field: "paper_type", Value: s, Allowed: paperTypeNames(AllPaperTypes)}
}

// InchesPerPage returns the sheet thickness KDP uses for spine width.
func (p PaperType) InchesPerPage() (float64, error) {
	switch p {
	case PremiumColor:
		return 0.002347, nil
	case StandardColor:
		return 0.002252, nil
	case White:
		return 0.002252, nil
	case Cream:
		return 0.0025, nil
	}
	return 0, &ConfigError{Field: "paper_type", Value: p.String(), Allowed: paperTypeNames(AllPaperTypes)}
}

// MarshalText implements encoding.TextMarshaler.
func (p PaperType) MarshalText() ([]byte, error) {
	if _, err := p.InchesPerPage(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PaperType) UnmarshalText(b []byte) error {
	v, err := ParsePaperType(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func paperTypeNames(types []PaperType) []string {
	names := make([]string, len(types))
	for i, p := range types {
		names[i] = p.String()
	}
	return names
}

// CoverFinish is the laminate applied to the printed cover.
type CoverFinish int

const (
	Matte CoverFinish = iota + 1
	Glossy
)

// AllCoverFinishes lists every cover finish in declaration order.
var AllCoverFinishes = []CoverFinish{Matte, Glossy}

func (f CoverFinish) String() string {
	switch f {
	case Matte:
		return "matte"
	case Glossy:
		return "glossy"
	default:
		return fmt.Sprintf("CoverFinish(%d)", int(f))
	}
}

// ParseCoverFinish maps a configuration string to a CoverFinish.
func ParseCoverFinish(s string) (CoverFinish, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, f := range AllCoverFinishes {
		if f.String() == name {
			return f, nil
		}
	}
	names := make([]string, len(AllCoverFinishes))
	for i, f := range AllCoverFinishes {
		names[i] = f.String()
	}
	return 0, &ConfigError{Field: "cover_finish", Value: s, Allowed: names}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *CoverFinish) UnmarshalText(b []byte) error {
	v, err := ParseCoverFinish(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f CoverFinish) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Spine text thresholds in inches.
const (
	MinSpineTextWidth         = 0.0625
	RecommendedSpineTextWidth = 0.08
	MinSpineMargin            = 0.0625
)

// SpineWidth returns the spine width in inches for pageCount pages of paper.
func SpineWidth(pageCount int, paper PaperType) (float64, error) {
	perPage, err := paper.InchesPerPage()
	if err != nil {
		return 0, err
	}
	return float64(pageCount) * perPage, nil
}

// SpineTextVerdict classifies whether a spine can carry text.
type SpineTextVerdict int

const (
	// SpineTooNarrow means the spine must not carry text.
	SpineTooNarrow SpineTextVerdict = iota
	// SpineBorderline means text is permitted but legibility is not guaranteed.
	SpineBorderline
	// SpineTextOK means the spine is comfortably wide enough for text.
	SpineTextOK
)

// Allowed reports whether text may be printed on the spine.
func (v SpineTextVerdict) Allowed() bool { return v != SpineTooNarrow }

func (v SpineTextVerdict) String() string {
	switch v {
	case SpineTooNarrow:
		return "too-narrow"
	case SpineBorderline:
		return "borderline"
	case SpineTextOK:
		return "ok"
	default:
		return fmt.Sprintf("SpineTextVerdict(%d)", int(v))
	}
}

// ClassifySpine applies the spine text thresholds to a width in inches.
func ClassifySpine(widthIn float64) (SpineTextVerdict, string) {
	switch {
	case widthIn < MinSpineTextWidth:
		return SpineTooNarrow, "too narrow"
	case widthIn < RecommendedSpineTextWidth:
		return SpineBorderline, fmt.Sprintf("spine width %.4f\" is below the recommended %.2f\"; text legibility is not guaranteed",
			widthIn, RecommendedSpineTextWidth)
	default:
		return SpineTextOK, ""
	}
}

// CanHaveSpineText classifies the spine for pageCount pages of paper.
func CanHaveSpineText(pageCount int, paper PaperType) (SpineTextVerdict, string, error) {
	w, err := SpineWidth(pageCount, paper)
	if err != nil {
		return SpineTooNarrow, "", err
	}
	v, msg := ClassifySpine(w)
	return v, msg, nil
}
