package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuanying/kdpbook/internal/assembler"
	"github.com/yuanying/kdpbook/internal/barcode"
	"github.com/yuanying/kdpbook/internal/book"
	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
	"github.com/yuanying/kdpbook/internal/spine"
)

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover",
		Short: "Assemble the full paperback cover PDF",
		Long: `Assemble back cover, spine and front cover into one full-bleed PDF page.
Without --front/--back the first and last pages of the book are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			bookPath, _ := cmd.Flags().GetString("book")
			frontPath, _ := cmd.Flags().GetString("front")
			backPath, _ := cmd.Flags().GetString("back")
			output, _ := cmd.Flags().GetString("output")
			tiffPath, _ := cmd.Flags().GetString("tiff")
			if output == "" {
				output = defaultOutputPath(bookPath, "cover", "pdf")
			}

			eb, err := book.Load(bookPath)
			if err != nil {
				return err
			}
			front, back, err := coverImages(eb, frontPath, backPath)
			if err != nil {
				return err
			}

			a := assembler.New(assembler.Options{Config: opts.Export, Logger: opts.Logger})
			res, err := a.AssembleCover(eb, back, front)
			if err != nil {
				return fmt.Errorf("cover assembly failed: %w", err)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if tiffPath != "" {
				data, err := raster.EncodeTIFF(res.Raster, kdp.DPI)
				if err != nil {
					return err
				}
				if err := writeOutput(opts.Logger, tiffPath, data); err != nil {
					return err
				}
			}
			return writeOutput(opts.Logger, output, res.PDF)
		},
	}
	cmd.Flags().String("book", "", "Ebook JSON or YAML file")
	cmd.Flags().String("front", "", "Front cover image (default: first page of the book)")
	cmd.Flags().String("back", "", "Back cover image (default: last page of the book)")
	cmd.Flags().StringP("output", "o", "", "Output PDF (default: <book>-cover.pdf)")
	cmd.Flags().String("tiff", "", "Also write the composed cover as a 300 DPI TIFF")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

// coverImages reads the cover files, falling back to the book's first and
// last page.
func coverImages(eb *book.Ebook, frontPath, backPath string) ([]byte, []byte, error) {
	var pages []book.AssembledPage
	load := func(path string, first bool) ([]byte, error) {
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read cover image: %w", err)
			}
			return data, nil
		}
		if pages == nil {
			var err error
			if pages, err = eb.Pages(); err != nil {
				return nil, err
			}
		}
		if len(pages) == 0 {
			return nil, book.ErrNoPages
		}
		if first {
			return pages[0].ImageData, nil
		}
		return pages[len(pages)-1].ImageData, nil
	}

	front, err := load(frontPath, true)
	if err != nil {
		return nil, nil, err
	}
	back, err := load(backPath, false)
	if err != nil {
		return nil, nil, err
	}
	return front, back, nil
}

func newInteriorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interior",
		Short: "Assemble the interior PDF from the book's content pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			bookPath, _ := cmd.Flags().GetString("book")
			output, _ := cmd.Flags().GetString("output")
			noPad, _ := cmd.Flags().GetBool("no-pad")
			if output == "" {
				output = defaultOutputPath(bookPath, "interior", "pdf")
			}

			eb, err := book.Load(bookPath)
			if err != nil {
				return err
			}
			a := assembler.New(assembler.Options{Config: opts.Export, Logger: opts.Logger})
			iopts := assembler.DefaultInteriorOptions()
			iopts.AutoPad = !noPad
			res, err := a.AssembleInterior(eb, iopts)
			if err != nil {
				return fmt.Errorf("interior assembly failed: %w", err)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			if res.PageCount != eb.PageCount {
				opts.Logger.Warn("page_count differs from assembled interior",
					"book_page_count", eb.PageCount,
					"assembled_page_count", res.PageCount,
				)
			}
			return writeOutput(opts.Logger, output, res.PDF)
		},
	}
	cmd.Flags().String("book", "", "Ebook JSON or YAML file")
	cmd.Flags().StringP("output", "o", "", "Output PDF (default: <book>-interior.pdf)")
	cmd.Flags().Bool("no-pad", false, "Fail instead of padding a short interior with blank pages")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func newSpineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spine",
		Short: "Render the spine image as a 300 DPI PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			bookPath, _ := cmd.Flags().GetString("book")
			frontPath, _ := cmd.Flags().GetString("front")
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = defaultOutputPath(bookPath, "spine", "png")
			}

			eb, err := book.Load(bookPath)
			if err != nil {
				return err
			}
			front, _, err := coverImages(eb, frontPath, frontPath)
			if err != nil {
				return err
			}
			layout, err := kdp.NewLayout(opts.Export, eb.PageCount)
			if err != nil {
				return err
			}
			res, err := spine.Generate(front, layout, eb.Title, eb.Author, spine.Options{
				FontPath: opts.Export.SpineFont,
				Logger:   opts.Logger,
			})
			if err != nil {
				return fmt.Errorf("spine generation failed: %w", err)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			return writeOutput(opts.Logger, output, res.Data)
		},
	}
	cmd.Flags().String("book", "", "Ebook JSON or YAML file")
	cmd.Flags().String("front", "", "Front cover image (default: first page of the book)")
	cmd.Flags().StringP("output", "o", "", "Output PNG (default: <book>-spine.png)")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func newBarcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barcode <image>",
		Short: "Reserve the white barcode box on a back cover image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			bleeds, _ := cmd.Flags().GetBool("bleeds")
			rightBleed, _ := cmd.Flags().GetBool("right-bleed")
			if output == "" {
				output = defaultOutputPath(args[0], "barcode", "png")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			bopts := barcode.DefaultOptions()
			bopts.BleedIn = opts.Export.BleedSize
			bopts.ImageIncludesBleeds = bleeds
			bopts.HasRightBleed = rightBleed
			out, p, err := barcode.AddBarcodeSpace(data, bopts)
			if err != nil {
				return err
			}
			if p.Fallback {
				opts.Logger.Warn("barcode box did not fit, reserved a smaller box", "rect", p.Rect.String())
			}
			return writeOutput(opts.Logger, output, out)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output PNG (default: <image>-barcode.png)")
	cmd.Flags().Bool("bleeds", false, "The image includes bleed margins")
	cmd.Flags().Bool("right-bleed", false, "The image has a bleed on its right edge")
	return cmd
}

func newGeometryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Print the cover and page geometry for a page count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			pages, _ := cmd.Flags().GetInt("pages")
			if pages <= 0 {
				return errors.New("--pages must be positive")
			}
			if err := opts.Export.ValidatePageCount(pages); err != nil {
				return err
			}
			layout, err := kdp.NewLayout(opts.Export, pages)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderGeometry(opts.Export, layout))
			return nil
		},
	}
	cmd.Flags().Int("pages", 0, "Total page count including covers")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}
