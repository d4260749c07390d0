package yolodetect

import (
	"github.com/swdee/go-yolodetect/render"
	"gocv.io/x/gocv"
)

// annotateLineThickness is the line width of drawn bounding boxes
const annotateLineThickness = 2

// Annotate draws the detections of res onto img, which must be the original
// image the detection was run on.  Only detections whose class label is in
// highlight are drawn, an empty highlight draws every detection.  The number
// of boxes drawn is returned.
func Annotate(img *gocv.Mat, res *Result, highlight []string) int {

	if res == nil || img == nil || img.Empty() {
		return 0
	}

	var hl render.Highlight

	if len(highlight) > 0 {
		hl = render.NewHighlight(res.ClassNames, highlight...)
	}

	return render.DetectionBoxes(img, res.Detections, res.ClassNames, hl,
		render.DefaultFont(), annotateLineThickness)
}
