package postprocess

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-yolodetect/preprocess"
)

func TestRescale(t *testing.T) {

	box := RawCandidate{CX: 50, CY: 50, W: 20, H: 20}.Rect()

	tests := []struct {
		name      string
		modelSide int
		inputSize int
		expected  image.Rectangle
	}{
		{"unit scale", 640, 640, image.Rect(40, 40, 60, 60)},
		{"double scale", 1280, 640, image.Rect(80, 80, 120, 120)},
		{"half scale", 320, 640, image.Rect(20, 20, 30, 30)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := preprocess.Geometry{
				OriginalWidth:  tc.modelSide,
				OriginalHeight: tc.modelSide,
				ModelSide:      tc.modelSide,
				InputSize:      tc.inputSize,
			}

			got := Rescale(box, g)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRescaleXYWH(t *testing.T) {

	g := preprocess.Geometry{OriginalWidth: 1280, OriginalHeight: 900, ModelSide: 1280, InputSize: 640}
	got := Rescale(RawCandidate{CX: 50, CY: 50, W: 20, H: 20}.Rect(), g)

	assert.Equal(t, 80, got.Min.X)
	assert.Equal(t, 80, got.Min.Y)
	assert.Equal(t, 40, got.Dx())
	assert.Equal(t, 40, got.Dy())
}

func TestRescaleRounding(t *testing.T) {

	// scale 1.5, 10.5*1.5 = 15.75 and 3*1.5 = 4.5 rounds half away from zero
	g := preprocess.Geometry{ModelSide: 960, InputSize: 640}
	got := Rescale(Rect{X: 10.5, Y: -3, Width: 3, Height: 1}, g)

	assert.Equal(t, image.Rect(16, -5, 21, -3), got)
}

func TestClampRect(t *testing.T) {

	r := ClampRect(image.Rect(-10, 5, 700, 500), 640, 480)
	assert.Equal(t, image.Rect(0, 5, 640, 480), r)

	inside := image.Rect(10, 10, 20, 20)
	assert.Equal(t, inside, ClampRect(inside, 640, 480))
}
