package postprocess

import "errors"

// ErrMalformedOutput is returned when an output tensor does not have the
// layout the decoder expects
var ErrMalformedOutput = errors.New("malformed output tensor")

// RawCandidate is a single anchor decoded from the output tensor that passed
// the confidence floor, with its box in Model input space
type RawCandidate struct {
	// CX is the box center x coordinate
	CX float32
	// CY is the box center y coordinate
	CY float32
	// W is the box width
	W float32
	// H is the box height
	H float32
	// Class is the index of the highest scoring class
	Class int
	// Confidence is the score of the highest scoring class
	Confidence float32
}

// Rect is an axis aligned rectangle in Model input space given by its top
// left corner and size
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Rect converts the candidate center based box to a top left based Rect
func (c RawCandidate) Rect() Rect {
	return Rect{
		X:      c.CX - c.W/2,
		Y:      c.CY - c.H/2,
		Width:  c.W,
		Height: c.H,
	}
}
