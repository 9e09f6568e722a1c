package kdp

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every typed error in this package matches exactly one of
// them through errors.Is.
var (
	ErrConfig         = errors.New("invalid KDP configuration")
	ErrValidation     = errors.New("KDP validation failed")
	ErrMalformedImage = errors.New("malformed image data")
)

// ConfigError reports a configuration value outside its allowed set.
type ConfigError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ConfigError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// DimensionError reports an image layer whose pixel size does not match the layout.
type DimensionError struct {
	Layer        string
	WantW, WantH int
	GotW, GotH   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s dimensions %dx%d do not match expected %dx%d", e.Layer, e.GotW, e.GotH, e.WantW, e.WantH)
}

func (e *DimensionError) Is(target error) bool { return target == ErrValidation }

// PageCountError reports a page count outside the paper type's permitted range.
type PageCountError struct {
	PaperType PaperType
	Count     int
	Min, Max  int
}

// Bound names the violated limit: "minimum" or "maximum".
func (e *PageCountError) Bound() string {
	if e.Count < e.Min {
		return "minimum"
	}
	return "maximum"
}

func (e *PageCountError) Error() string {
	limit := e.Max
	if e.Bound() == "minimum" {
		limit = e.Min
	}
	return fmt.Sprintf("page count %d violates %s %d for %s paper (allowed %d-%d)",
		e.Count, e.Bound(), limit, e.PaperType, e.Min, e.Max)
}

func (e *PageCountError) Is(target error) bool { return target == ErrValidation }

// SpineMarginError reports spine text closer to a spine edge than KDP allows.
type SpineMarginError struct {
	Edge     string
	MarginPx int
	MinPx    int
}

func (e *SpineMarginError) Error() string {
	return fmt.Sprintf("spine text %s margin %dpx is below the %dpx minimum", e.Edge, e.MarginPx, e.MinPx)
}

func (e *SpineMarginError) Is(target error) bool { return target == ErrValidation }

// DecodeError wraps a failure to decode image bytes.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedImage }

// ConversionWarning describes a recoverable degradation: the operation
// finished with a documented fallback. It is returned as a value, never as an
// error.
type ConversionWarning struct {
	Op     string
	Reason string
	Err    error
}

func (w *ConversionWarning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s: %v", w.Op, w.Reason, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.Op, w.Reason)
}
