package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultBudgetBytes is the encoded size the compressor aims for. OCR
	// providers reject large uploads, so receipts get squeezed under this.
	DefaultBudgetBytes = 900 * 1024

	startQuality    = 85
	qualityStep     = 10
	minQuality      = 10
	downscaleFactor = 0.7
)

// flatten draws the image onto a white background so alpha-channel formats
// (PNG screenshots, mostly) survive JPEG encoding without black artifacts.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}

// downscale shrinks the image dimensions by downscaleFactor
func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w := int(float64(bounds.Dx()) * downscaleFactor)
	h := int(float64(bounds.Dy()) * downscaleFactor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, bounds, xdraw.Over, nil)
	return out
}

// CompressToBudget re-encodes an image as JPEG, stepping the quality down
// from 85 in steps of 10 until the encoded size fits the byte budget or the
// next step would drop below the quality floor of 10. No encoding ever runs
// below the floor. When an attempt lands at more than twice the budget the
// dimensions are also shrunk by 0.7x before the next attempt. This is best
// effort: the last encoding is returned even if it is still over budget.
func CompressToBudget(img image.Image, budget int) ([]byte, error) {
	if budget <= 0 {
		budget = DefaultBudgetBytes
	}

	current := image.Image(flatten(img))

	var encoded []byte
	for quality := startQuality; ; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, current, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg at quality %d: %w", quality, err)
		}
		encoded = buf.Bytes()

		if len(encoded) <= budget || quality-qualityStep < minQuality {
			break
		}

		if len(encoded) > 2*budget {
			current = downscale(current)
		}
	}

	return encoded, nil
}
