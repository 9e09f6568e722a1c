package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yuanying/kdpbook/internal/kdp"
)

const configEnv = "KDPBOOK_CONFIG"

type cliOptions struct {
	ConfigPath string
	Catalog    *kdp.Catalog
	Export     kdp.ExportConfig
	JobID      string
	Logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kdpbook",
		Short: "Assemble print-ready KDP paperback covers and interiors",
		Long: `kdpbook turns an illustrated ebook (a JSON or YAML page list with
base64 images) into the files Kindle Direct Publishing expects for a
paperback: a single-page full-bleed cover PDF with spine and barcode box,
and a multi-page interior PDF at 300 DPI.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional
			_ = godotenv.Load()
		},
	}

	f := cmd.PersistentFlags()
	f.String("config", "", "Config file (.yaml, .yml or .toml); defaults to $"+configEnv)
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
	f.BoolP("verbose", "v", false, "Shorthand for --log-level debug")
	f.String("paper", "", "Paper type override: premium_color, standard_color, white, cream")
	f.String("finish", "", "Cover finish override: matte or glossy")
	f.String("trim", "", "Trim size override in inches, WIDTHxHEIGHT (e.g. 8x10)")
	f.Float64("bleed", 0, "Bleed override in inches")
	f.Bool("no-barcode", false, "Do not reserve the barcode box on the back cover")
	f.Bool("rgb-cover", false, "Emit the cover in RGB instead of CMYK")
	f.String("spine-font", "", "TrueType/OpenType font for spine text")
	f.String("icc-cmyk", "", "ICC output profile for the CMYK cover conversion")
	f.String("icc-rgb", "", "ICC profile of the source images (default: sRGB)")

	cmd.AddCommand(
		newCoverCmd(),
		newInteriorCmd(),
		newSpineCmd(),
		newBarcodeCmd(),
		newGeometryCmd(),
	)
	return cmd
}

// readCLIOptions resolves the catalog, the export config with flag overrides
// applied, and the logger.
func readCLIOptions(cmd *cobra.Command, args []string) (*cliOptions, error) {
	flags := cmd.Flags()

	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	verbose, _ := flags.GetBool("verbose")
	if _, err := parseLogLevel(logLevel); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	switch strings.ToLower(logFormat) {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be text or json", logFormat)
	}
	if verbose {
		logLevel = "debug"
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = os.Getenv(configEnv)
	}
	catalog, err := kdp.LoadCatalog(configPath)
	if err != nil {
		return nil, err
	}

	settings := catalog.Export
	if v, _ := flags.GetString("paper"); v != "" {
		settings.PaperType = v
	}
	if v, _ := flags.GetString("finish"); v != "" {
		settings.CoverFinish = v
	}
	if v, _ := flags.GetString("trim"); v != "" {
		w, h, err := parseTrim(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --trim: %w", err)
		}
		settings.TrimSize = []float64{w, h}
	}
	if flags.Changed("bleed") {
		bleed, _ := flags.GetFloat64("bleed")
		if bleed <= 0 {
			return nil, fmt.Errorf("invalid --bleed %v: must be positive", bleed)
		}
		settings.BleedSize = bleed
	}
	if v, _ := flags.GetBool("no-barcode"); v {
		off := false
		settings.IncludeBarcode = &off
	}
	if v, _ := flags.GetBool("rgb-cover"); v {
		settings.CoverColorMode = string(kdp.ColorRGB)
	}
	if v, _ := flags.GetString("spine-font"); v != "" {
		settings.SpineFont = v
	}
	if v, _ := flags.GetString("icc-cmyk"); v != "" {
		settings.ICCCMYKProfile = v
	}
	if v, _ := flags.GetString("icc-rgb"); v != "" {
		settings.ICCRGBProfile = v
	}

	export, err := catalog.NewExportConfig(settings)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	logger := buildLogger(cmd.ErrOrStderr(), logLevel, logFormat).With("job_id", jobID)
	return &cliOptions{
		ConfigPath: configPath,
		Catalog:    catalog,
		Export:     export,
		JobID:      jobID,
		Logger:     logger,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseTrim parses "WIDTHxHEIGHT" in inches.
func parseTrim(s string) (float64, float64, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("width %q: %w", parts[0], err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("height %q: %w", parts[1], err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%q must be positive", s)
	}
	return w, h, nil
}

// defaultOutputPath derives "<dir>/<name>-<suffix>.<ext>" from the input path.
func defaultOutputPath(inputPath, suffix, ext string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	if suffix != "" {
		base += "-" + suffix
	}
	return base + "." + ext
}

func writeOutput(logger *slog.Logger, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("wrote output", "path", path, "size", humanize.Bytes(uint64(len(data))))
	return nil
}
