package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// prepareLabel boosts printed text before tesseract sees it: grayscale,
// contrast, sharpen, upscale small photos, then a global threshold around the
// mean luminance.
func prepareLabel(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 900 {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}
	return binarize(gray, meanLuma(gray)-10)
}

// binarize maps every pixel at or below threshold to black, the rest to white.
func binarize(img *image.NRGBA, threshold int) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if luma(c) <= threshold {
			return color.NRGBA{0, 0, 0, c.A}
		}
		return color.NRGBA{255, 255, 255, c.A}
	})
}

func meanLuma(img *image.NRGBA) int {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	total := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		total += luma(color.NRGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], 255})
	}
	return total / n
}

func luma(c color.NRGBA) int {
	return (int(c.R) + int(c.G) + int(c.B)) / 3
}
