package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage is returned when the source image has no area
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidInputSize is returned when the model input size is not positive
	ErrInvalidInputSize = errors.New("invalid model input size")
)

// Geometry records the dimensions used to prepare an image for the Model so
// detections can be mapped back to the original image afterwards
type Geometry struct {
	// OriginalWidth is the width of the source image
	OriginalWidth int
	// OriginalHeight is the height of the source image
	OriginalHeight int
	// ModelSide is the side of the square padded canvas, being the larger of
	// the source width and height
	ModelSide int
	// InputSize is the square side length fed to the network
	InputSize int
}

// NewGeometry returns the Geometry for a source image of the given size
// being fed to a Model with a square input of inputSize
func NewGeometry(srcWidth, srcHeight, inputSize int) (Geometry, error) {

	if srcWidth <= 0 || srcHeight <= 0 {
		return Geometry{}, fmt.Errorf("%w: image has zero area (%dx%d)",
			ErrInvalidImage, srcWidth, srcHeight)
	}

	if inputSize <= 0 {
		return Geometry{}, fmt.Errorf("%w: %d", ErrInvalidInputSize, inputSize)
	}

	return Geometry{
		OriginalWidth:  srcWidth,
		OriginalHeight: srcHeight,
		ModelSide:      max(srcWidth, srcHeight),
		InputSize:      inputSize,
	}, nil
}

// Scale returns the factor to multiply Model input space coordinates by to
// get original image coordinates.  Padding is anchored at the top left so no
// offset is needed.
func (g Geometry) Scale() float32 {
	return float32(g.ModelSide) / float32(g.InputSize)
}
