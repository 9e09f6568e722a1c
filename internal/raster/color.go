package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/yuanying/kdpbook/internal/kdp"
)

// Dominant color extraction parameters.
const (
	dominantSampleSize = 150
	fadeSaturation     = 0.80
	fadeValue          = 0.85
	fadeMinChannel     = 10
	fadeMaxChannel     = 245
)

// NeutralGray is returned when an image has no extractable colors.
var NeutralGray = color.NRGBA{R: 200, G: 200, B: 200, A: 255}

// EnsureRGB returns img as an opaque *image.NRGBA. An opaque NRGBA input is
// returned unchanged; any other model is composited over white, so
// transparent areas become white rather than black.
func EnsureRGB(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) && n.Opaque() {
		return n
	}
	w, h := Size(img)
	bg := imaging.New(w, h, color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// EnsureCMYK converts img to CMYK through the ICC output profile at
// cmykProfile. The source RGB is read through the ICC profile at rgbProfile,
// or as sRGB when rgbProfile is empty. When no transform is possible it falls
// back to the built-in conversion and reports why in the returned warning. A
// nil warning means the ICC transform was applied (or the input already was
// CMYK).
func EnsureCMYK(img image.Image, cmykProfile, rgbProfile string) (*image.CMYK, *kdp.ConversionWarning) {
	if c, ok := img.(*image.CMYK); ok {
		return c, nil
	}
	rgb := EnsureRGB(img)

	if cmykProfile == "" {
		return naiveCMYK(rgb), &kdp.ConversionWarning{Op: "cmyk", Reason: "no ICC CMYK profile configured, used built-in conversion"}
	}
	out, err := iccCMYK(rgb, cmykProfile, rgbProfile)
	if err != nil {
		return naiveCMYK(rgb), &kdp.ConversionWarning{Op: "cmyk", Reason: "ICC conversion failed, used built-in conversion", Err: err}
	}
	return out, nil
}

func naiveCMYK(src *image.NRGBA) *image.CMYK {
	w, h := Size(src)
	dst := image.NewCMYK(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * dst.Stride
		for x := 0; x < w; x++ {
			c, m, ye, k := color.RGBToCMYK(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			dst.Pix[di] = c
			dst.Pix[di+1] = m
			dst.Pix[di+2] = ye
			dst.Pix[di+3] = k
			si += 4
			di += 4
		}
	}
	return dst
}

// DominantColorFaded returns the most frequent color of the image in data,
// muted for use as a spine background.
func DominantColorFaded(data []byte) (color.NRGBA, error) {
	img, err := Decode(data, "front cover")
	if err != nil {
		return color.NRGBA{}, err
	}
	return DominantColorFadedImage(img), nil
}

// DominantColorFadedImage is DominantColorFaded on a decoded image.
func DominantColorFadedImage(img image.Image) color.NRGBA {
	w, h := Size(img)
	if w == 0 || h == 0 {
		return NeutralGray
	}

	small := imaging.Resize(img, dominantSampleSize, dominantSampleSize, imaging.NearestNeighbor)
	counts := make(map[uint32]int)
	for i := 0; i+3 < len(small.Pix); i += 4 {
		// Composite over white as EnsureRGB would.
		a := uint32(small.Pix[i+3])
		r := (uint32(small.Pix[i])*a + 255*(255-a)) / 255
		g := (uint32(small.Pix[i+1])*a + 255*(255-a)) / 255
		b := (uint32(small.Pix[i+2])*a + 255*(255-a)) / 255
		counts[r<<16|g<<8|b]++
	}
	if len(counts) == 0 {
		return NeutralGray
	}

	var best uint32
	bestCount := -1
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < best) {
			best, bestCount = key, n
		}
	}

	hh, s, v := rgbToHSV(float64(best>>16&0xff)/255, float64(best>>8&0xff)/255, float64(best&0xff)/255)
	r, g, b := hsvToRGB(hh, s*fadeSaturation, v*fadeValue)
	return color.NRGBA{
		R: clampChannel(int(r * 255)),
		G: clampChannel(int(g * 255)),
		B: clampChannel(int(b * 255)),
		A: 255,
	}
}

func clampChannel(v int) uint8 {
	if v < fadeMinChannel {
		return fadeMinChannel
	}
	if v > fadeMaxChannel {
		return fadeMaxChannel
	}
	return uint8(v)
}

// rgbToHSV converts components in [0,1]; hue is in [0,1).
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	v = maxc
	if maxc == minc {
		return 0, 0, v
	}
	s = (maxc - minc) / maxc
	rc := (maxc - r) / (maxc - minc)
	gc := (maxc - g) / (maxc - minc)
	bc := (maxc - b) / (maxc - minc)
	switch {
	case r == maxc:
		h = bc - gc
	case g == maxc:
		h = 2.0 + rc - bc
	default:
		h = 4.0 + gc - rc
	}
	h = math.Mod(h/6.0, 1.0)
	if h < 0 {
		h += 1.0
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6.0)
	f := h*6.0 - i
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
