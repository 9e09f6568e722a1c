package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"math"

	"github.com/hhrutter/tiff"
)

// pngHeaderLen is the signature plus the IHDR chunk, which the PNG format
// requires to come first.
const pngHeaderLen = 8 + 4 + 4 + 13 + 4

// EncodePNG encodes img as PNG and records dpi in a pHYs chunk so that
// downstream tools see the print resolution.
func EncodePNG(img image.Image, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	if dpi <= 0 {
		return buf.Bytes(), nil
	}
	return insertPHYs(buf.Bytes(), dpi)
}

func insertPHYs(data []byte, dpi int) ([]byte, error) {
	if len(data) < pngHeaderLen || string(data[12:16]) != "IHDR" {
		return nil, fmt.Errorf("png encode failed: missing IHDR chunk")
	}

	ppm := uint32(math.Round(float64(dpi) / 0.0254))
	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1 // unit: meter
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:pngHeaderLen]...)
	out = append(out, chunk...)
	out = append(out, data[pngHeaderLen:]...)
	return out, nil
}

// PNGDensity returns the DPI stored in a PNG pHYs chunk, or 0 if absent.
func PNGDensity(data []byte) int {
	pos := 8
	for pos+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		body := pos + 8
		if body+n > len(data) {
			return 0
		}
		switch typ {
		case "pHYs":
			if n < 9 || data[body+8] != 1 {
				return 0
			}
			ppm := binary.BigEndian.Uint32(data[body : body+4])
			return int(math.Round(float64(ppm) * 0.0254))
		case "IDAT", "IEND":
			return 0
		}
		pos = body + n + 4
	}
	return 0
}

// EncodeTIFF encodes img as an uncompressed TIFF at dpi. *image.CMYK is
// written with a separated (CMYK) photometric interpretation.
func EncodeTIFF(img image.Image, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("tiff encode failed: %w", err)
	}
	data := buf.Bytes()
	if dpi <= 0 {
		return data, nil
	}
	if err := setTIFFResolution(data, uint32(dpi)); err != nil {
		return nil, fmt.Errorf("tiff encode failed: %w", err)
	}
	return data, nil
}

const (
	tiffTagXResolution    = 282
	tiffTagYResolution    = 283
	tiffTagResolutionUnit = 296
	tiffTypeShort         = 3
	tiffTypeRational      = 5
	tiffResPerInch        = 2
)

// tiffEntry is one IFD0 entry: tag, field type and the offset of its value
// field within the file.
type tiffEntry struct {
	tag, typ uint16
	value    int
}

// tiffEntries lists the IFD0 entries of a TIFF file.
func tiffEntries(data []byte) (binary.ByteOrder, []tiffEntry, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("tiff header truncated")
	}
	var order binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("not a tiff file")
	}
	ifd := int(order.Uint32(data[4:8]))
	if ifd+2 > len(data) {
		return nil, nil, fmt.Errorf("tiff ifd out of range")
	}
	n := int(order.Uint16(data[ifd : ifd+2]))
	if ifd+2+12*n > len(data) {
		return nil, nil, fmt.Errorf("tiff ifd truncated")
	}
	entries := make([]tiffEntry, 0, n)
	for i := 0; i < n; i++ {
		e := ifd + 2 + 12*i
		entries = append(entries, tiffEntry{
			tag:   order.Uint16(data[e : e+2]),
			typ:   order.Uint16(data[e+2 : e+4]),
			value: e + 8,
		})
	}
	return order, entries, nil
}

// setTIFFResolution rewrites the X/YResolution rationals in place to dpi/1
// and the resolution unit to inches.
func setTIFFResolution(data []byte, dpi uint32) error {
	order, entries, err := tiffEntries(data)
	if err != nil {
		return err
	}
	found := 0
	for _, e := range entries {
		switch {
		case (e.tag == tiffTagXResolution || e.tag == tiffTagYResolution) && e.typ == tiffTypeRational:
			off := int(order.Uint32(data[e.value : e.value+4]))
			if off+8 > len(data) {
				return fmt.Errorf("tiff resolution out of range")
			}
			order.PutUint32(data[off:off+4], dpi)
			order.PutUint32(data[off+4:off+8], 1)
			found++
		case e.tag == tiffTagResolutionUnit && e.typ == tiffTypeShort:
			order.PutUint16(data[e.value:e.value+2], tiffResPerInch)
		}
	}
	if found != 2 {
		return fmt.Errorf("tiff has no resolution tags")
	}
	return nil
}

// TIFFDensity returns the horizontal DPI recorded in a TIFF, or 0 if absent
// or not in inches.
func TIFFDensity(data []byte) int {
	order, entries, err := tiffEntries(data)
	if err != nil {
		return 0
	}
	density, inches := 0, false
	for _, e := range entries {
		switch {
		case e.tag == tiffTagXResolution && e.typ == tiffTypeRational:
			off := int(order.Uint32(data[e.value : e.value+4]))
			if off+8 > len(data) {
				return 0
			}
			num, den := order.Uint32(data[off:off+4]), order.Uint32(data[off+4:off+8])
			if den == 0 {
				return 0
			}
			density = int(math.Round(float64(num) / float64(den)))
		case e.tag == tiffTagResolutionUnit && e.typ == tiffTypeShort:
			inches = order.Uint16(data[e.value:e.value+2]) == tiffResPerInch
		}
	}
	if !inches {
		return 0
	}
	return density
}
