package postprocess

import (
	"image"
	"math"

	"github.com/swdee/go-yolodetect/preprocess"
)

// Rescale maps a rectangle in Model input space back to original image pixel
// coordinates.  The padding applied during preprocessing is anchored to the
// top left so only a uniform scale is needed.  The result is not clamped to
// the image bounds.
func Rescale(r Rect, g preprocess.Geometry) image.Rectangle {

	scale := float64(g.Scale())

	x := int(math.Round(float64(r.X) * scale))
	y := int(math.Round(float64(r.Y) * scale))
	w := int(math.Round(float64(r.Width) * scale))
	h := int(math.Round(float64(r.Height) * scale))

	return image.Rectangle{
		Min: image.Pt(x, y),
		Max: image.Pt(x+w, y+h),
	}
}

// ClampRect restricts the rectangle corners to lie within [0,width] x
// [0,height]
func ClampRect(r image.Rectangle, width, height int) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(clampInt(r.Min.X, 0, width), clampInt(r.Min.Y, 0, height)),
		Max: image.Pt(clampInt(r.Max.X, 0, width), clampInt(r.Max.Y, 0, height)),
	}
}

// clampInt restricts val to be within the range lo and hi
func clampInt(val, lo, hi int) int {

	if val < lo {
		return lo
	}

	if val > hi {
		return hi
	}

	return val
}
