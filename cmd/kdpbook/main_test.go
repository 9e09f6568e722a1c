package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hhrutter/tiff"

	"github.com/yuanying/kdpbook/internal/book"
	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

func readCLIOptionsForTest(t *testing.T, flagArgs ...string) (*cliOptions, error) {
	t.Helper()
	t.Setenv(configEnv, "")
	cmd := newRootCmd()
	if err := cmd.ParseFlags(flagArgs); err != nil {
		return nil, err
	}
	return readCLIOptions(cmd, nil)
}

func TestReadCLIOptions_Defaults(t *testing.T) {
	opts, err := readCLIOptionsForTest(t)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	e := opts.Export
	if e.TrimWidth != 8 || e.TrimHeight != 10 || e.BleedSize != 0.125 {
		t.Fatalf("trim/bleed = %vx%v/%v, want 8x10/0.125", e.TrimWidth, e.TrimHeight, e.BleedSize)
	}
	if e.PaperType != kdp.PremiumColor || e.CoverFinish != kdp.Matte {
		t.Fatalf("PaperType = %v, CoverFinish = %v", e.PaperType, e.CoverFinish)
	}
	if !e.IncludeBarcode || e.CoverColorMode != kdp.ColorCMYK {
		t.Fatalf("IncludeBarcode = %v, CoverColorMode = %q", e.IncludeBarcode, e.CoverColorMode)
	}
	if e.Bounds != (kdp.PageBounds{Min: 24, Max: 828}) {
		t.Fatalf("Bounds = %+v", e.Bounds)
	}
	if opts.JobID == "" {
		t.Fatal("JobID is empty")
	}
	if opts.Logger == nil {
		t.Fatal("Logger is nil, want non-nil")
	}
	if !opts.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Logger should be enabled at INFO level by default")
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should not be enabled at DEBUG level by default")
	}
}

func TestReadCLIOptions_CustomFlags(t *testing.T) {
	opts, err := readCLIOptionsForTest(t,
		"--paper", "cream",
		"--finish", "glossy",
		"--trim", "6x9",
		"--bleed", "0.2",
		"--no-barcode",
		"--rgb-cover",
		"--spine-font", "/fonts/Spine.ttf",
		"--icc-cmyk", "/icc/coated.icc",
		"--icc-rgb", "/icc/display.icc",
		"--verbose",
	)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	e := opts.Export
	if e.PaperType != kdp.Cream || e.CoverFinish != kdp.Glossy {
		t.Fatalf("PaperType = %v, CoverFinish = %v", e.PaperType, e.CoverFinish)
	}
	if e.TrimWidth != 6 || e.TrimHeight != 9 || e.BleedSize != 0.2 {
		t.Fatalf("trim/bleed = %vx%v/%v", e.TrimWidth, e.TrimHeight, e.BleedSize)
	}
	if e.IncludeBarcode {
		t.Fatal("IncludeBarcode = true, want false")
	}
	if e.CoverColorMode != kdp.ColorRGB {
		t.Fatalf("CoverColorMode = %q, want rgb", e.CoverColorMode)
	}
	if e.SpineFont != "/fonts/Spine.ttf" || e.ICCCMYKProfile != "/icc/coated.icc" {
		t.Fatalf("SpineFont = %q, ICCCMYKProfile = %q", e.SpineFont, e.ICCCMYKProfile)
	}
	if e.ICCRGBProfile != "/icc/display.icc" {
		t.Fatalf("ICCRGBProfile = %q", e.ICCRGBProfile)
	}
	// --verbose overrides log-level to debug
	if !opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should be enabled at DEBUG level when --verbose is set")
	}
}

func TestReadCLIOptions_InvalidFlags(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--log-level", "trace"}, "--log-level"},
		{[]string{"--log-format", "yaml"}, "--log-format"},
		{[]string{"--trim", "6by9"}, "--trim"},
		{[]string{"--trim", "0x9"}, "--trim"},
		{[]string{"--bleed", "0"}, "--bleed"},
	}
	for _, tt := range tests {
		_, err := readCLIOptionsForTest(t, tt.args...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("args %v: expected %s validation error, got %v", tt.args, tt.want, err)
		}
	}
}

func TestReadCLIOptions_UnknownPaperType(t *testing.T) {
	_, err := readCLIOptionsForTest(t, "--paper", "vellum")
	if !errors.Is(err, kdp.ErrConfig) {
		t.Fatalf("readCLIOptions() error = %v, want ErrConfig", err)
	}
}

func TestReadCLIOptions_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdp.toml")
	config := `
[export]
trim_size = [6.0, 9.0]
paper_type = "white"
cover_color_mode = "rgb"

[paper_types.white]
min_pages = 32
max_pages = 700
`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	opts, err := readCLIOptionsForTest(t, "--config", path)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	e := opts.Export
	if e.PaperType != kdp.White || e.TrimWidth != 6 || e.CoverColorMode != kdp.ColorRGB {
		t.Fatalf("Export = %+v", e)
	}
	if e.Bounds != (kdp.PageBounds{Min: 32, Max: 700}) {
		t.Fatalf("Bounds = %+v, want 32-700", e.Bounds)
	}
	// the file only enables white paper
	if _, err := readCLIOptionsForTest(t, "--config", path, "--paper", "cream"); !errors.Is(err, kdp.ErrConfig) {
		t.Fatalf("cream with white-only catalog: error = %v, want ErrConfig", err)
	}
}

func TestReadCLIOptions_ConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kdp.yaml")
	if err := os.WriteFile(path, []byte("export:\n  paper_type: standard_color\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(configEnv, path)

	cmd := newRootCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	opts, err := readCLIOptions(cmd, nil)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if opts.ConfigPath != path || opts.Export.PaperType != kdp.StandardColor {
		t.Fatalf("ConfigPath = %q, PaperType = %v", opts.ConfigPath, opts.Export.PaperType)
	}
}

func TestBuildLogger_FormatNormalization(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "info", "JSON")
	logger.Info("test message")
	// JSON format should produce JSON output (starts with '{')
	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Fatalf("expected JSON output for format 'JSON', got: %s", output)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input, suffix, ext string
		want               string
	}{
		{"./books/zoo.json", "cover", "pdf", "./books/zoo-cover.pdf"},
		{"./books/zoo.yaml", "interior", "pdf", "./books/zoo-interior.pdf"},
		{"back.png", "barcode", "png", "back-barcode.png"},
		{"zoo", "", "pdf", "zoo.pdf"},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.input, tt.suffix, tt.ext); got != tt.want {
			t.Fatalf("defaultOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseTrim(t *testing.T) {
	w, h, err := parseTrim(" 8.5 X 11 ")
	if err != nil || w != 8.5 || h != 11 {
		t.Fatalf("parseTrim() = %v, %v, %v", w, h, err)
	}
}

func TestGeometryCommand(t *testing.T) {
	t.Setenv(configEnv, "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"geometry", "--pages", "100"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"premium_color", "70x3076", "4946x3076", "2476x3076"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("geometry output missing %q:\n%s", want, out.String())
		}
	}
}

func TestGeometryCommand_OutOfBounds(t *testing.T) {
	t.Setenv(configEnv, "")
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"geometry", "--pages", "900"})
	err := cmd.Execute()
	var pe *kdp.PageCountError
	if !errors.As(err, &pe) || pe.Bound() != "maximum" {
		t.Fatalf("Execute() error = %v, want maximum PageCountError", err)
	}
}

func TestCoverAndInteriorCommands(t *testing.T) {
	t.Setenv(configEnv, "")
	dir := t.TempDir()
	bookPath := writeBook(t, dir, 26)

	for _, sub := range []string{"cover", "interior"} {
		var errOut bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(&errOut)
		cmd.SetArgs([]string{sub, "--book", bookPath, "--trim", "1x1.5"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%s: Execute() error = %v\n%s", sub, err, errOut.String())
		}

		output := filepath.Join(dir, "zoo-"+sub+".pdf")
		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("%s: ReadFile() error = %v", sub, err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Fatalf("%s: output is not a PDF", sub)
		}
		if !strings.Contains(errOut.String(), "wrote output") {
			t.Fatalf("%s: missing output log:\n%s", sub, errOut.String())
		}
	}
}

func TestCoverCommand_TIFF(t *testing.T) {
	t.Setenv(configEnv, "")
	dir := t.TempDir()
	bookPath := writeBook(t, dir, 26)
	tiffPath := filepath.Join(dir, "out", "cover.tiff")

	var errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"cover", "--book", bookPath, "--trim", "1x1.5", "--tiff", tiffPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, errOut.String())
	}

	data, err := os.ReadFile(tiffPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := raster.TIFFDensity(data); got != kdp.DPI {
		t.Fatalf("TIFFDensity() = %d, want %d", got, kdp.DPI)
	}
	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("tiff.DecodeConfig() error = %v", err)
	}
	if cfg.ColorModel != color.CMYKModel || cfg.Height != 526 {
		t.Fatalf("tiff = %dx%d %T, want CMYK 526 px high", cfg.Width, cfg.Height, cfg.ColorModel)
	}
	if _, err := os.Stat(filepath.Join(dir, "zoo-cover.pdf")); err != nil {
		t.Fatalf("cover pdf missing: %v", err)
	}
}

func TestBarcodeCommand(t *testing.T) {
	t.Setenv(configEnv, "")
	dir := t.TempDir()
	input := filepath.Join(dir, "back.png")
	if err := os.WriteFile(input, mustEncodePNG(t, makeSolidNRGBA(2550, 2550, color.NRGBA{R: 10, G: 20, B: 30, A: 255})), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"barcode", input})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "back-barcode.png"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	r, g, b, _ := img.At(2000, 2200).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("barcode box pixel = %d,%d,%d, want white", r, g, b)
	}
}

func writeBook(t *testing.T, dir string, pages int) string {
	t.Helper()
	eb := book.Ebook{Title: "Zoo", Author: "Ann", PageCount: pages}
	for i := 0; i < pages; i++ {
		m := book.PageMeta{PageNumber: i + 1, ImageFormat: "PNG"}
		shade := uint8(30 + i*7)
		m.Encode(mustEncodePNG(t, makeSolidNRGBA(60, 90, color.NRGBA{R: shade, G: 120, B: 200 - shade/2, A: 255})))
		eb.Structure.PagesMeta = append(eb.Structure.PagesMeta, m)
	}
	data, err := json.Marshal(eb)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	path := filepath.Join(dir, "zoo.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}
