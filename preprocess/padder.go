package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-yolodetect/tensor"
	"gocv.io/x/gocv"
)

var black = color.RGBA{R: 0, G: 0, B: 0, A: 0}

// Padder defines the struct used for padding an image to a square canvas
// and scaling it to the Model's input tensor size
type Padder struct {
	// geom holds the source and destination dimensions
	geom Geometry
	// padMat is the square canvas the source image is copied onto
	padMat gocv.Mat
	// bgrMat is used when the source needs color conversion to 3 channels
	bgrMat gocv.Mat
}

// NewPadder returns a Padder used for preparing a source image of the given
// dimensions for a Model with a square input of inputSize
func NewPadder(srcWidth, srcHeight, inputSize int) (*Padder, error) {

	geom, err := NewGeometry(srcWidth, srcHeight, inputSize)

	if err != nil {
		return nil, err
	}

	return &Padder{
		geom:   geom,
		padMat: gocv.NewMat(),
		bgrMat: gocv.NewMat(),
	}, nil
}

// Close frees memory allocated during the padding process
func (p *Padder) Close() error {

	if err := p.padMat.Close(); err != nil {
		return err
	}

	return p.bgrMat.Close()
}

// Geometry returns the dimensions used by the Padder
func (p *Padder) Geometry() Geometry {
	return p.geom
}

// pad copies the source image into the top left corner of a zero filled
// square canvas of side ModelSide.  There is no centering, the border is only
// added to the bottom and right edges.
func (p *Padder) pad(src gocv.Mat) (gocv.Mat, error) {

	if src.Cols() != p.geom.OriginalWidth || src.Rows() != p.geom.OriginalHeight {
		return gocv.Mat{}, fmt.Errorf("%w: padder prepared for %dx%d, got %dx%d",
			ErrInvalidImage, p.geom.OriginalWidth, p.geom.OriginalHeight,
			src.Cols(), src.Rows())
	}

	// the network expects 3 channel input
	switch src.Channels() {
	case 3:
	case 1:
		gocv.CvtColor(src, &p.bgrMat, gocv.ColorGrayToBGR)
		src = p.bgrMat
	case 4:
		gocv.CvtColor(src, &p.bgrMat, gocv.ColorBGRAToBGR)
		src = p.bgrMat
	default:
		return gocv.Mat{}, fmt.Errorf("%w: unsupported channel count %d",
			ErrInvalidImage, src.Channels())
	}

	side := p.geom.ModelSide

	gocv.CopyMakeBorder(src, &p.padMat, 0, side-src.Rows(), 0, side-src.Cols(),
		gocv.BorderConstant, black)

	return p.padMat, nil
}

// PadResize pads the source image to a square and resizes it to the Model
// input size, writing the result to dest
func (p *Padder) PadResize(src gocv.Mat, dest *gocv.Mat) error {

	padded, err := p.pad(src)

	if err != nil {
		return err
	}

	size := p.geom.InputSize
	gocv.Resize(padded, dest, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)

	return nil
}

// Prepare pads and resizes the BGR source image and converts it into a
// normalized NCHW float32 input tensor with RGB channel order and shape
// [1, 3, InputSize, InputSize]
func (p *Padder) Prepare(src gocv.Mat) (*tensor.Tensor, Geometry, error) {

	padded, err := p.pad(src)

	if err != nil {
		return nil, Geometry{}, err
	}

	size := p.geom.InputSize

	// blob creation resizes the canvas, scales to [0,1] and swaps BGR to RGB
	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()

	if err != nil {
		return nil, Geometry{}, fmt.Errorf("error getting blob data: %w", err)
	}

	// copy out of C memory as the blob is released on return
	buf := make([]float32, len(data))
	copy(buf, data)

	t, err := tensor.New([]int{1, 3, size, size}, buf)

	if err != nil {
		return nil, Geometry{}, err
	}

	return t, p.geom, nil
}
