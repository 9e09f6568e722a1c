// Package book holds the ebook model the assemblers read from.
package book

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yuanying/kdpbook/internal/kdp"
)

var (
	ErrNoPages      = errors.New("ebook has no pages_meta entries")
	ErrMissingImage = errors.New("page has no image data")
)

// PageMeta is one entry of the ordered pages_meta list. The first entry is
// the front cover and the last one the back cover.
type PageMeta struct {
	PageNumber      int    `json:"page_number" yaml:"page_number"`
	Title           string `json:"title" yaml:"title"`
	ImageFormat     string `json:"image_format" yaml:"image_format"`
	ImageDataBase64 string `json:"image_data_base64" yaml:"image_data_base64"`
}

// Structure is the generated book structure
type Structure struct {
	PagesMeta []PageMeta `json:"pages_meta" yaml:"pages_meta"`
}

// Ebook is a generated coloring book. It is read-only to the assemblers.
type Ebook struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author" yaml:"author"`
	PageCount int       `json:"page_count" yaml:"page_count"`
	Structure Structure `json:"structure_json" yaml:"structure_json"`
}

// AssembledPage is a pages_meta entry with its image decoded.
type AssembledPage struct {
	PageNumber  int
	Title       string
	ImageData   []byte
	ImageFormat string
}

// Load reads an ebook manifest. Files ending in .yaml or .yml are YAML,
// anything else is JSON.
func Load(path string) (*Ebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ebook: %w", err)
	}

	var eb Ebook
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &eb)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&eb)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse ebook %s: %w", path, err)
	}
	if eb.PageCount == 0 {
		eb.PageCount = len(eb.Structure.PagesMeta)
	}
	return &eb, nil
}

// Pages decodes every pages_meta entry in order.
func (e *Ebook) Pages() ([]AssembledPage, error) {
	if len(e.Structure.PagesMeta) == 0 {
		return nil, ErrNoPages
	}
	pages := make([]AssembledPage, 0, len(e.Structure.PagesMeta))
	for i, m := range e.Structure.PagesMeta {
		p, err := m.decode()
		if err != nil {
			return nil, fmt.Errorf("pages_meta[%d]: %w", i, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// InteriorPages decodes pages_meta without its first (front cover) and last
// (back cover) entries.
func (e *Ebook) InteriorPages() ([]AssembledPage, error) {
	n := len(e.Structure.PagesMeta)
	if n == 0 {
		return nil, ErrNoPages
	}
	if n <= 2 {
		return nil, nil
	}
	inner := Ebook{Structure: Structure{PagesMeta: e.Structure.PagesMeta[1 : n-1]}}
	return inner.Pages()
}

func (m PageMeta) decode() (AssembledPage, error) {
	raw := strings.TrimSpace(m.ImageDataBase64)
	// tolerate data URIs
	if strings.HasPrefix(raw, "data:") {
		if i := strings.IndexByte(raw, ','); i >= 0 {
			raw = raw[i+1:]
		}
	}
	if raw == "" {
		return AssembledPage{}, fmt.Errorf("page %d: %w", m.PageNumber, ErrMissingImage)
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return AssembledPage{}, &kdp.DecodeError{Source: fmt.Sprintf("page %d base64", m.PageNumber), Err: err}
	}
	format := strings.ToUpper(m.ImageFormat)
	if format == "" {
		format = "PNG"
	}
	return AssembledPage{
		PageNumber:  m.PageNumber,
		Title:       m.Title,
		ImageData:   data,
		ImageFormat: format,
	}, nil
}

// Encode fills ImageDataBase64 from raw image bytes.
func (m *PageMeta) Encode(data []byte) {
	m.ImageDataBase64 = base64.StdEncoding.EncodeToString(data)
}
