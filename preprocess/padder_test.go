package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestPadderPrepare(t *testing.T) {

	tests := []struct {
		srcWidth     int
		srcHeight    int
		inputSize    int
		expectedSide int
	}{
		{1280, 720, 640, 1280},
		{800, 1000, 640, 1000},
		{800, 800, 640, 800},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)

		padder, err := NewPadder(tc.srcWidth, tc.srcHeight, tc.inputSize)
		require.NoError(t, err)

		ts, geom, err := padder.Prepare(img)
		require.NoError(t, err)

		assert.Equal(t, []int{1, 3, tc.inputSize, tc.inputSize}, ts.Shape())
		assert.Equal(t, tc.expectedSide, geom.ModelSide,
			"model side for src (%d, %d)", tc.srcWidth, tc.srcHeight)

		img.Close()
		padder.Close()
	}
}

func TestPadderPadResizeTopLeft(t *testing.T) {

	// white 200x100 source so the lower half of the square is padding
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0),
		100, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	padder, err := NewPadder(200, 100, 64)
	require.NoError(t, err)
	defer padder.Close()

	dest := gocv.NewMat()
	defer dest.Close()

	require.NoError(t, padder.PadResize(img, &dest))

	assert.Equal(t, 64, dest.Rows())
	assert.Equal(t, 64, dest.Cols())

	assert.Equal(t, uint8(255), dest.GetVecbAt(2, 2)[0])
	assert.Equal(t, uint8(0), dest.GetVecbAt(60, 2)[0])
}

func TestPadderGrayscale(t *testing.T) {

	img := gocv.NewMatWithSize(50, 80, gocv.MatTypeCV8UC1)
	defer img.Close()

	padder, err := NewPadder(80, 50, 32)
	require.NoError(t, err)
	defer padder.Close()

	ts, _, err := padder.Prepare(img)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 32, 32}, ts.Shape())
}

func TestPadderSizeMismatch(t *testing.T) {

	img := gocv.NewMatWithSize(50, 80, gocv.MatTypeCV8UC3)
	defer img.Close()

	padder, err := NewPadder(100, 50, 32)
	require.NoError(t, err)
	defer padder.Close()

	_, _, err = padder.Prepare(img)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = NewPadder(0, 0, 32)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestPadderPrepareValues(t *testing.T) {

	// pure blue BGR source, 4 wide and 2 high, so rows 2 and 3 of the square
	// are padding and no resampling happens with an input size of 4
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0),
		2, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	padder, err := NewPadder(4, 2, 4)
	require.NoError(t, err)
	defer padder.Close()

	ts, geom, err := padder.Prepare(img)
	require.NoError(t, err)
	assert.Equal(t, 4, geom.ModelSide)

	at := func(c, y, x int) float32 {
		v, err := ts.At(0, c, y, x)
		require.NoError(t, err)
		return v
	}

	// channel order is RGB so blue lands in channel 2, scaled to [0,1]
	assert.InDelta(t, 0.0, at(0, 0, 0), 1e-6)
	assert.InDelta(t, 0.0, at(1, 0, 0), 1e-6)
	assert.InDelta(t, 1.0, at(2, 0, 0), 1e-6)
	assert.InDelta(t, 1.0, at(2, 1, 3), 1e-6)

	// bottom left is zero padding in every channel
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 0.0, at(c, 3, 0), 1e-6)
	}
}
