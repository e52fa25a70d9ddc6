package output

import (
	"image"

	"golang.org/x/image/draw"
)

// Fit scales img down so it is at most maxWidth pixels wide, keeping its
// aspect ratio. Images already small enough, and maxWidth <= 0, are
// returned unchanged.
func Fit(img *image.RGBA, maxWidth int) *image.RGBA {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
