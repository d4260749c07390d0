package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a tensor shape does not match its data or the
// view requested from it
var ErrShape = errors.New("tensor shape mismatch")

// Tensor is a dense float32 tensor stored in a flat row-major buffer.  Element
// positions are resolved with explicit stride arithmetic so that callers never
// index into the buffer directly.
type Tensor struct {
	// shape is the size of each dimension
	shape []int
	// strides is the number of elements to step over for each dimension
	strides []int
	// data is the flat row-major buffer
	data []float32
}

// New returns a Tensor of the given shape backed by data.  The data slice is
// not copied, its length must equal the product of the shape dimensions.
func New(shape []int, data []float32) (*Tensor, error) {

	size, err := volume(shape)

	if err != nil {
		return nil, err
	}

	if len(data) != size {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d",
			ErrShape, shape, size, len(data))
	}

	t := &Tensor{
		shape: append([]int(nil), shape...),
		data:  data,
	}

	t.strides = rowMajorStrides(t.shape)

	return t, nil
}

// Zeros returns a zero filled Tensor of the given shape
func Zeros(shape ...int) (*Tensor, error) {

	size, err := volume(shape)

	if err != nil {
		return nil, err
	}

	return New(shape, make([]float32, size))
}

// volume calculates the number of elements described by shape
func volume(shape []int) (int, error) {

	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrShape)
	}

	size := 1

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		size *= d
	}

	return size, nil
}

// rowMajorStrides calculates the element strides for a C ordered layout
func rowMajorStrides(shape []int) []int {

	strides := make([]int, len(shape))
	step := 1

	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}

	return strides
}

// Shape returns a copy of the tensor dimensions
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of dimensions
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of elements
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the underlying flat buffer
func (t *Tensor) Data() []float32 {
	return t.data
}

// offset converts a multi dimensional index into a flat buffer position
func (t *Tensor) offset(idx []int) (int, error) {

	if len(idx) != len(t.shape) {
		return 0, fmt.Errorf("%w: index rank %d for tensor rank %d",
			ErrShape, len(idx), len(t.shape))
	}

	off := 0

	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			return 0, fmt.Errorf("index %d out of range [0,%d) on dimension %d",
				v, t.shape[i], i)
		}
		off += v * t.strides[i]
	}

	return off, nil
}

// At returns the element at the given index
func (t *Tensor) At(idx ...int) (float32, error) {

	off, err := t.offset(idx)

	if err != nil {
		return 0, err
	}

	return t.data[off], nil
}

// Set stores val at the given index
func (t *Tensor) Set(val float32, idx ...int) error {

	off, err := t.offset(idx)

	if err != nil {
		return err
	}

	t.data[off] = val
	return nil
}

// String returns a short description of the tensor
func (t *Tensor) String() string {
	return fmt.Sprintf("tensor%v", t.shape)
}
