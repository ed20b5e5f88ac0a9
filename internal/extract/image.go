package extract

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
)

const (
	minImageWidth  = 100
	minImageHeight = 100

	// Images whose grayscale standard deviation falls below this are flat
	// fills (spacers, rules, backgrounds) and carry no retrievable content.
	minLumaStdDev = 5.0
)

// ValidImage reports whether raw image bytes are worth sending to the
// captioning collaborator. Undecodable, tiny, or flat images are rejected;
// rejection skips that single image, it never fails the surrounding document.
func ValidImage(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}

	bounds := img.Bounds()
	if bounds.Dx() < minImageWidth || bounds.Dy() < minImageHeight {
		return false
	}

	return lumaStdDev(img) >= minLumaStdDev
}

// lumaStdDev samples the image on a coarse grid and returns the standard
// deviation of its 8-bit grayscale values.
func lumaStdDev(img image.Image) float64 {
	bounds := img.Bounds()

	const grid = 32
	stepX := max(bounds.Dx()/grid, 1)
	stepY := max(bounds.Dy()/grid, 1)

	var sum, sumSq float64
	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, scaled from 16-bit channels to 8-bit.
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			sum += luma
			sumSq += luma * luma
			n++
		}
	}
	if n == 0 {
		return 0
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
