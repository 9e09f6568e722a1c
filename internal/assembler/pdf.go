package assembler

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/yuanying/kdpbook/internal/kdp"
	"github.com/yuanying/kdpbook/internal/raster"
)

var disableConfigDir sync.Once

// writePDF places one image per page, in order. Every page measures exactly
// widthPx x heightPx at kdp.DPI and the image fills it.
func writePDF(images []io.Reader, widthPx, heightPx int) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to write")
	}
	disableConfigDir.Do(api.DisableConfigDir)

	imp := pdfcpu.DefaultImportConfig()
	imp.DPI = kdp.DPI
	imp.Pos = types.Center
	imp.Scale = 1.0
	imp.ScaleAbs = false
	imp.UserDim = true
	imp.PageDim = &types.Dim{Width: pxToPoints(widthPx), Height: pxToPoints(heightPx)}

	conf := model.NewDefaultConfiguration()
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, images, imp, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu import failed: %w", err)
	}
	return buf.Bytes(), nil
}

// writeCMYKPDF writes a single-page PDF for cmyk. The page is laid out from
// the same-sized RGB raster, then the image XObject samples are replaced by
// the CMYK samples as an 8-bit DeviceCMYK Flate stream. pdfcpu's importer
// only reads rasters through image.Decode, and the registered TIFF decoder
// rejects CMYK.
func writeCMYKPDF(rgb *image.NRGBA, cmyk *image.CMYK) ([]byte, error) {
	w, h := raster.Size(cmyk)
	if rw, rh := raster.Size(rgb); rw != w || rh != h {
		return nil, &kdp.DimensionError{Layer: "cmyk cover", WantW: rw, WantH: rh, GotW: w, GotH: h}
	}

	layout, err := raster.EncodePNG(rgb, kdp.DPI)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	base, err := writePDF([]io.Reader{bytes.NewReader(layout)}, w, h)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadContext(bytes.NewReader(base), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read cover pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to read cover pdf: %w", err)
	}

	ref, sd, err := pageImage(ctx, 1)
	if err != nil {
		return nil, err
	}

	sd.Dict["ColorSpace"] = types.Name("DeviceCMYK")
	sd.Dict["BitsPerComponent"] = types.Integer(8)
	sd.Dict["Filter"] = types.Name(filter.Flate)
	delete(sd.Dict, "DecodeParms")
	delete(sd.Dict, "SMask")
	delete(sd.Dict, "Decode")
	sd.FilterPipeline = []types.PDFFilter{{Name: filter.Flate}}
	sd.Content = cmykSamples(cmyk)
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode cmyk samples: %w", err)
	}

	entry, found := ctx.FindTableEntryForIndRef(&ref)
	if !found {
		return nil, fmt.Errorf("cover image object %v not in xref table", ref)
	}
	entry.Object = *sd

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write cover pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// pageImage returns the first image XObject on page pageNum.
func pageImage(ctx *model.Context, pageNum int) (types.IndirectRef, *types.StreamDict, error) {
	pageDict, _, _, err := ctx.PageDict(pageNum, false)
	if err != nil {
		return types.IndirectRef{}, nil, err
	}
	resObj, found := pageDict.Find("Resources")
	if !found {
		return types.IndirectRef{}, nil, fmt.Errorf("page %d has no resources", pageNum)
	}
	res, err := ctx.Dereference(resObj)
	if err != nil {
		return types.IndirectRef{}, nil, err
	}
	resources, _ := res.(types.Dict)
	xo, found := resources.Find("XObject")
	if !found {
		return types.IndirectRef{}, nil, fmt.Errorf("page %d has no XObjects", pageNum)
	}
	xobj, err := ctx.Dereference(xo)
	if err != nil {
		return types.IndirectRef{}, nil, err
	}
	xobjects, _ := xobj.(types.Dict)
	for _, v := range xobjects {
		ref, ok := v.(types.IndirectRef)
		if !ok {
			continue
		}
		obj, err := ctx.Dereference(ref)
		if err != nil {
			return types.IndirectRef{}, nil, err
		}
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.NameEntry("Subtype"); st != nil && *st == "Image" {
			return ref, &sd, nil
		}
	}
	return types.IndirectRef{}, nil, fmt.Errorf("page %d has no image", pageNum)
}

// cmykSamples returns the pixel rows of img without stride padding.
func cmykSamples(img *image.CMYK) []byte {
	w, h := raster.Size(img)
	if img.Rect.Min == (image.Point{}) && img.Stride == 4*w {
		return img.Pix[:4*w*h]
	}
	out := make([]byte, 0, 4*w*h)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[i:i+4*w]...)
	}
	return out
}

// pxToPoints converts a pixel length at kdp.DPI to PDF points.
func pxToPoints(px int) float64 {
	return float64(px) * 72 / kdp.DPI
}
