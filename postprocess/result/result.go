package result

import "image"

// DetectionResult is implemented by the post processors to return the
// detections found
type DetectionResult interface {
	GetDetectResults() []BoxDetection
}

// BoxDetection defines the attributes of a single object detected, with the
// bounding box given in original image pixel coordinates
type BoxDetection struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
	// Class is the index into the Model's class names of the detected object
	Class int `json:"class"`
	// Confidence is the score of the object detected in the range [0,1]
	Confidence float32 `json:"conf"`
	// ID is a unique ID assigned to the detection result
	ID int64 `json:"id"`
}

// Rect returns the bounding box as an image.Rectangle
func (b BoxDetection) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}
