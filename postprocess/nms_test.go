package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {

	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.InDelta(t, 0.0, IoU(a, Rect{X: 10, Y: 0, Width: 10, Height: 10}), 1e-6)
	assert.InDelta(t, 0.0, IoU(a, Rect{X: 50, Y: 50, Width: 5, Height: 5}), 1e-6)
	// half overlap: intersection 50, union 150
	assert.InDelta(t, 1.0/3.0, IoU(a, Rect{X: 5, Y: 0, Width: 10, Height: 10}), 1e-6)
	// degenerate boxes never divide by zero
	assert.Equal(t, float32(0), IoU(Rect{}, Rect{}))
}

func TestSuppressCrossClass(t *testing.T) {

	cands := []RawCandidate{
		{CX: 101, CY: 100, W: 50, H: 50, Class: 1, Confidence: 0.6},
		{CX: 100, CY: 100, W: 50, H: 50, Class: 0, Confidence: 0.9},
	}

	assert.Equal(t, []int{1}, Suppress(cands, 0.5, 0.5))
}

func TestSuppressThresholds(t *testing.T) {

	cands := []RawCandidate{
		{CX: 10, CY: 10, W: 10, H: 10, Confidence: 0.5},
		{CX: 100, CY: 100, W: 10, H: 10, Confidence: 0.51},
		{CX: 200, CY: 200, W: 10, H: 10, Confidence: 0.7},
	}

	// confidence equal to the threshold is dropped
	assert.Equal(t, []int{2, 1}, Suppress(cands, 0.5, 0.5))
	assert.Empty(t, Suppress(cands, 0.9, 0.5))
	assert.Empty(t, Suppress(nil, 0.5, 0.5))
}

func TestSuppressOverlapBoundary(t *testing.T) {

	// IoU of these two boxes is exactly 1/3
	cands := []RawCandidate{
		{CX: 5, CY: 5, W: 10, H: 10, Confidence: 0.9},
		{CX: 10, CY: 5, W: 10, H: 10, Confidence: 0.8},
	}

	iou := IoU(cands[0].Rect(), cands[1].Rect())

	// a box is only suppressed when IoU is strictly greater than the threshold
	assert.Equal(t, []int{0, 1}, Suppress(cands, 0.1, iou))
	assert.Equal(t, []int{0}, Suppress(cands, 0.1, iou-0.01))
}

func TestSuppressTiesAreDeterministic(t *testing.T) {

	cands := []RawCandidate{
		{CX: 100, CY: 100, W: 50, H: 50, Confidence: 0.8},
		{CX: 102, CY: 100, W: 50, H: 50, Confidence: 0.8},
	}

	for i := 0; i < 10; i++ {
		assert.Equal(t, []int{0}, Suppress(cands, 0.5, 0.5))
	}
}

func TestSuppressInvariants(t *testing.T) {

	// a grid of overlapping boxes with varying confidences
	var cands []RawCandidate

	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			cands = append(cands, RawCandidate{
				CX:         float32(i*7 + 20),
				CY:         float32(j*9 + 20),
				W:          float32(20 + (i+j)%7),
				H:          float32(18 + (i*j)%5),
				Class:      (i + j) % 3,
				Confidence: 0.3 + float32((i*13+j*7)%70)/100,
			})
		}
	}

	const overlap = 0.45
	keep := Suppress(cands, 0.5, overlap)

	assert.LessOrEqual(t, len(keep), len(cands))

	for i := 0; i < len(keep); i++ {
		assert.Greater(t, cands[keep[i]].Confidence, float32(0.5))

		for j := i + 1; j < len(keep); j++ {
			iou := IoU(cands[keep[i]].Rect(), cands[keep[j]].Rect())
			assert.LessOrEqual(t, iou, float32(overlap))
		}
	}
}
