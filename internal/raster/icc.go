package raster

import (
	"fmt"
	"image"
	"math"
	"os"

	"seehuhn.de/go/icc"
)

// iccCMYK converts src to the device space of the CMYK output profile at
// cmykPath with the perceptual intent. Source colors are read through the RGB
// profile at rgbPath, or as sRGB when rgbPath is empty. Each distinct source
// color is transformed once.
func iccCMYK(src *image.NRGBA, cmykPath, rgbPath string) (out *image.CMYK, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("icc transform panicked: %v", r)
		}
	}()

	cmykProfile, err := loadProfile(cmykPath, icc.CMYKSpace)
	if err != nil {
		return nil, err
	}
	toDevice, err := icc.NewTransform(cmykProfile, icc.PCSToDevice, icc.Perceptual)
	if err != nil {
		return nil, fmt.Errorf("ICC profile %s: %w", cmykPath, err)
	}

	toPCS := srgbToXYZD50
	if rgbPath != "" {
		rgbProfile, err := loadProfile(rgbPath, icc.RGBSpace)
		if err != nil {
			return nil, err
		}
		fromDevice, err := icc.NewTransform(rgbProfile, icc.DeviceToPCS, icc.Perceptual)
		if err != nil {
			return nil, fmt.Errorf("ICC profile %s: %w", rgbPath, err)
		}
		toPCS = func(r, g, b uint8) (float64, float64, float64) {
			return fromDevice.ToXYZ([]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255})
		}
	}

	convert := func(r, g, b uint8) ([4]uint8, error) {
		var c [4]uint8
		dev := toDevice.FromXYZ(toPCS(r, g, b))
		if len(dev) != 4 {
			return c, fmt.Errorf("ICC profile %s yields %d channels, want 4", cmykPath, len(dev))
		}
		for i := range c {
			c[i] = unitToByte(dev[i])
		}
		return c, nil
	}
	// white decides the channel count before the pixel loop
	white, err := convert(255, 255, 255)
	if err != nil {
		return nil, err
	}

	w, h := Size(src)
	out = image.NewCMYK(image.Rect(0, 0, w, h))
	cache := map[uint32][4]uint8{0xffffff: white}
	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * out.Stride
		for x := 0; x < w; x++ {
			r, g, b := src.Pix[si], src.Pix[si+1], src.Pix[si+2]
			key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
			c, ok := cache[key]
			if !ok {
				c, _ = convert(r, g, b)
				cache[key] = c
			}
			copy(out.Pix[di:di+4], c[:])
			si += 4
			di += 4
		}
	}
	return out, nil
}

// loadProfile reads and decodes the ICC profile at path and checks that its
// device color space is want.
func loadProfile(path string, want icc.ColorSpace) (*icc.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ICC profile: %w", err)
	}
	profile, err := icc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ICC profile %s: %w", path, err)
	}
	if profile.ColorSpace != want {
		return nil, fmt.Errorf("ICC profile %s has color space %v, want %v", path, profile.ColorSpace, want)
	}
	return profile, nil
}

// srgbToXYZD50 maps 8-bit sRGB to CIE XYZ relative to the D50 PCS white,
// using the Bradford-adapted sRGB matrix.
func srgbToXYZD50(r, g, b uint8) (float64, float64, float64) {
	lr := srgbLinear(r)
	lg := srgbLinear(g)
	lb := srgbLinear(b)
	X := 0.4360747*lr + 0.3850649*lg + 0.1430804*lb
	Y := 0.2225045*lr + 0.7168786*lg + 0.0606169*lb
	Z := 0.0139322*lr + 0.0971045*lg + 0.7141733*lb
	return X, Y, Z
}

func srgbLinear(v uint8) float64 {
	c := float64(v) / 255
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func unitToByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(v * 255))
}
