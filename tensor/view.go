package tensor

import "fmt"

// View3 is a bounds checked accessor over a rank 3 tensor.  The dimensions
// are validated once when the view is created so the hot loops in output
// decoding only pay for the stride multiplication.
type View3 struct {
	D0, D1, D2 int
	s0, s1     int
	data       []float32
}

// View3 returns a rank 3 view of the tensor
func (t *Tensor) View3() (View3, error) {

	if len(t.shape) != 3 {
		return View3{}, fmt.Errorf("%w: expected rank 3, got shape %v", ErrShape, t.shape)
	}

	return View3{
		D0:   t.shape[0],
		D1:   t.shape[1],
		D2:   t.shape[2],
		s0:   t.strides[0],
		s1:   t.strides[1],
		data: t.data,
	}, nil
}

// At returns the element at [i][j][k].  Indexes outside the view dimensions
// panic with a descriptive message rather than reading a neighbouring row.
func (v View3) At(i, j, k int) float32 {

	if uint(i) >= uint(v.D0) || uint(j) >= uint(v.D1) || uint(k) >= uint(v.D2) {
		panic(fmt.Sprintf("tensor: index [%d %d %d] out of range [%d %d %d]",
			i, j, k, v.D0, v.D1, v.D2))
	}

	return v.data[i*v.s0+j*v.s1+k]
}
