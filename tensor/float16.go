package tensor

import (
	"encoding/binary"
	"fmt"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// FromFloat16 returns a float32 Tensor converted from half precision bit
// patterns, as produced by models exported with FP16 outputs
func FromFloat16(shape []int, bits []uint16) (*Tensor, error) {

	data := make([]float32, len(bits))

	for i, b := range bits {
		data[i] = f16LookupTable[b]
	}

	return New(shape, data)
}

// FromFloat16Bytes is the same as FromFloat16 but reads the half precision
// values from a little endian byte buffer
func FromFloat16Bytes(shape []int, buf []byte) (*Tensor, error) {

	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("%w: float16 buffer has odd length %d", ErrShape, len(buf))
	}

	bits := make([]uint16, len(buf)/2)

	for i := range bits {
		bits[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}

	return FromFloat16(shape, bits)
}

// Float16Bytes returns the Tensor data converted to half precision in a
// little endian byte buffer, for networks taking FP16 inputs
func (t *Tensor) Float16Bytes() []byte {

	buf := make([]byte, len(t.data)*2)

	for i, v := range t.data {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}

	return buf
}
