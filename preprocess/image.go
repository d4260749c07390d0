package preprocess

import (
	"image"

	"github.com/swdee/go-yolodetect/tensor"
	"golang.org/x/image/draw"
)

// PrepareImage is the pure Go equivalent of Padder.Prepare for images that
// have already been decoded with the standard library.  The image is copied
// to the top left of a black square canvas, scaled to inputSize with bilinear
// interpolation and returned as a normalized RGB NCHW tensor.
func PrepareImage(img image.Image, inputSize int) (*tensor.Tensor, Geometry, error) {

	b := img.Bounds()

	geom, err := NewGeometry(b.Dx(), b.Dy(), inputSize)

	if err != nil {
		return nil, Geometry{}, err
	}

	side := geom.ModelSide
	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	plane := inputSize * inputSize
	buf := make([]float32, 3*plane)

	for y := 0; y < inputSize; y++ {
		row := scaled.Pix[y*scaled.Stride:]

		for x := 0; x < inputSize; x++ {
			px := row[x*4:]
			pos := y*inputSize + x

			buf[pos] = float32(px[0]) / 255.0
			buf[plane+pos] = float32(px[1]) / 255.0
			buf[2*plane+pos] = float32(px[2]) / 255.0
		}
	}

	t, err := tensor.New([]int{1, 3, inputSize, inputSize}, buf)

	if err != nil {
		return nil, Geometry{}, err
	}

	return t, geom, nil
}
