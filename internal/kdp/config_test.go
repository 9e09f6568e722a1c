package kdp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cfg := mustDefaultConfig(t)

	if cfg.TrimWidth != 8.0 || cfg.TrimHeight != 10.0 {
		t.Fatalf("trim = %vx%v, want 8x10", cfg.TrimWidth, cfg.TrimHeight)
	}
	if cfg.BleedSize != 0.125 {
		t.Fatalf("BleedSize = %v, want 0.125", cfg.BleedSize)
	}
	if cfg.PaperType != PremiumColor {
		t.Fatalf("PaperType = %s, want premium_color", cfg.PaperType)
	}
	if cfg.CoverFinish != Matte {
		t.Fatalf("CoverFinish = %s, want matte", cfg.CoverFinish)
	}
	if !cfg.IncludeBarcode {
		t.Fatal("IncludeBarcode = false, want true")
	}
	if cfg.CoverColorMode != ColorCMYK {
		t.Fatalf("CoverColorMode = %q, want cmyk", cfg.CoverColorMode)
	}
	if cfg.Bounds != (PageBounds{Min: 24, Max: 828}) {
		t.Fatalf("Bounds = %+v, want 24-828", cfg.Bounds)
	}
}

func TestNewExportConfig_InvalidValues(t *testing.T) {
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ExportSettings)
	}{
		{"unknown paper", func(s *ExportSettings) { s.PaperType = "newsprint" }},
		{"unknown finish", func(s *ExportSettings) { s.CoverFinish = "satin" }},
		{"zero trim", func(s *ExportSettings) { s.TrimSize = []float64{0, 10} }},
		{"missing trim height", func(s *ExportSettings) { s.TrimSize = []float64{8} }},
		{"negative bleed", func(s *ExportSettings) { s.BleedSize = -0.1 }},
		{"unknown color mode", func(s *ExportSettings) { s.CoverColorMode = "lab" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cat.Export
			s.TrimSize = append([]float64(nil), cat.Export.TrimSize...)
			tt.mutate(&s)
			_, err := cat.NewExportConfig(s)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("NewExportConfig() error = %v, want *ConfigError", err)
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatal("ConfigError should match ErrConfig")
			}
		})
	}
}

func TestNewExportConfig_DisabledByCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kdp.yaml")
	writeFile(t, path, `
paper_types:
  cream: {min_pages: 24, max_pages: 600}
cover_finishes: [glossy]
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	s := cat.Export
	s.PaperType = "cream"
	s.CoverFinish = "glossy"
	cfg, err := cat.NewExportConfig(s)
	if err != nil {
		t.Fatalf("NewExportConfig() error = %v", err)
	}
	if cfg.Bounds.Max != 600 {
		t.Fatalf("Bounds.Max = %d, want 600", cfg.Bounds.Max)
	}

	// premium_color is a known paper type but not enabled by this catalog.
	if _, err := cat.DefaultExportConfig(); !errors.Is(err, ErrConfig) {
		t.Fatalf("DefaultExportConfig() error = %v, want ErrConfig", err)
	}

	s.CoverFinish = "matte"
	if _, err := cat.NewExportConfig(s); !errors.Is(err, ErrConfig) {
		t.Fatalf("matte finish error = %v, want ErrConfig", err)
	}
}

func TestLoadCatalog_YAMLAndTOMLAgree(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "kdp.yaml")
	tomlPath := filepath.Join(dir, "kdp.toml")

	writeFile(t, yamlPath, `
export:
  trim_size: [8.5, 11]
  bleed_size: 0.125
  paper_type: white
  cover_finish: glossy
  include_barcode: false
paper_types:
  white: {min_pages: 24, max_pages: 828}
cover_finishes: [matte, glossy]
`)
	writeFile(t, tomlPath, `
paper_types = { white = { min_pages = 24, max_pages = 828 } }
cover_finishes = ["matte", "glossy"]

[export]
trim_size = [8.5, 11.0]
bleed_size = 0.125
paper_type = "white"
cover_finish = "glossy"
include_barcode = false
`)

	var got []ExportConfig
	for _, p := range []string{yamlPath, tomlPath} {
		cat, err := LoadCatalog(p)
		if err != nil {
			t.Fatalf("LoadCatalog(%s) error = %v", filepath.Base(p), err)
		}
		cfg, err := cat.DefaultExportConfig()
		if err != nil {
			t.Fatalf("DefaultExportConfig(%s) error = %v", filepath.Base(p), err)
		}
		got = append(got, cfg)
	}

	if got[0] != got[1] {
		t.Fatalf("YAML config %+v != TOML config %+v", got[0], got[1])
	}
	if got[0].IncludeBarcode {
		t.Fatal("IncludeBarcode = true, want false")
	}
	if got[0].CoverColorMode != ColorCMYK {
		t.Fatalf("CoverColorMode = %q, want default cmyk", got[0].CoverColorMode)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "paper_types:\n  newsprint: {min_pages: 24, max_pages: 100}\n")
	if _, err := LoadCatalog(bad); !errors.Is(err, ErrConfig) {
		t.Fatalf("unknown paper type error = %v, want ErrConfig", err)
	}

	bounds := filepath.Join(dir, "bounds.yaml")
	writeFile(t, bounds, "paper_types:\n  cream: {min_pages: 100, max_pages: 24}\n")
	if _, err := LoadCatalog(bounds); !errors.Is(err, ErrConfig) {
		t.Fatalf("inverted bounds error = %v, want ErrConfig", err)
	}

	ext := filepath.Join(dir, "kdp.json")
	writeFile(t, ext, "{}")
	if _, err := LoadCatalog(ext); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestParsePaperType(t *testing.T) {
	for _, p := range AllPaperTypes {
		got, err := ParsePaperType(p.String())
		if err != nil || got != p {
			t.Fatalf("ParsePaperType(%q) = %v, %v", p.String(), got, err)
		}
	}
	if got, err := ParsePaperType(" Cream "); err != nil || got != Cream {
		t.Fatalf("ParsePaperType(\" Cream \") = %v, %v", got, err)
	}
	if _, err := ParsePaperType("glossy"); !errors.Is(err, ErrConfig) {
		t.Fatalf("ParsePaperType(glossy) error = %v, want ErrConfig", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
