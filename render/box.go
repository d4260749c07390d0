package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-yolodetect/postprocess/result"
	"gocv.io/x/gocv"
)

// Highlight maps the class labels to draw onto the color to draw them in.
// Detections of classes missing from the map are not drawn.
type Highlight map[string]color.RGBA

// NewHighlight returns a Highlight for the given labels with colors taken
// from the class palette keyed by each label's class index.  Labels that are
// not in classNames are ignored.
func NewHighlight(classNames []string, labels ...string) Highlight {

	h := make(Highlight, len(labels))

	for _, label := range labels {
		for i, name := range classNames {
			if name == label {
				h[label] = ClassColor(i)
				break
			}
		}
	}

	return h
}

// ClassColor returns the palette color used for the given class index
func ClassColor(class int) color.RGBA {

	if class < 0 {
		class = -class
	}

	return classColors[class%len(classColors)]
}

// DetectionBoxes renders the bounding boxes and labels of the detected
// objects onto img.  When highlight is nil every detection is drawn using its
// class palette color, otherwise only the detections whose label is in
// highlight are drawn.  Detections with a class outside classNames are
// skipped.  The number of boxes drawn is returned.
func DetectionBoxes(img *gocv.Mat, dets []result.BoxDetection,
	classNames []string, highlight Highlight, font Font, lineThickness int) int {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {

		if det.Class < 0 || det.Class >= len(classNames) {
			continue
		}

		label := classNames[det.Class]
		useClr := ClassColor(det.Class)

		if highlight != nil {
			clr, ok := highlight[label]

			if !ok {
				continue
			}

			useClr = clr
		}

		// draw rectangle around detected object
		gocv.Rectangle(img, det.Rect(), useClr, lineThickness)

		// create text for label
		text := fmt.Sprintf("%s %.2f", label, det.Confidence)
		boxLabels = append(boxLabels, newBoxLabel(det, text, useClr, font, lineThickness))
	}

	// draw all precalculated box labels so they are the top most layer on the
	// image and don't get overlapped by neighbouring box lines
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}

	return len(boxLabels)
}

// boxLabel holds the details for rendering the text label of a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel calculates the placement of the text label above the box
func newBoxLabel(det result.BoxDetection, text string, clr color.RGBA,
	font Font, lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (det.XMin + det.XMax) / 2

	case Right:
		centerX = det.XMax - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = det.XMin + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	// Adjust the label position so the text is centered horizontally
	labelPosition := image.Pt(centerX-textSize.X/2, det.YMin-font.BottomPad)

	// create box for placing text on
	bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
		det.YMin-textSize.Y-font.TopPad-font.BottomPad,
		centerX+textSize.X/2+font.RightPad, det.YMin)

	return boxLabel{
		rect:    bRect,
		clr:     clr,
		text:    text,
		textPos: labelPosition,
	}
}
