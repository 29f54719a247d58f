package face

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Descriptor is a fixed-length numeric vector summarising a detected face,
// produced by the external encoding service. The dlib ResNet model emits
// 128 dimensions, but nothing here depends on that length beyond both
// sides of a comparison agreeing on it.
type Descriptor []float64

// EncodeDescriptor serialises a descriptor for storage as a byte column.
// Layout: each component as a big-endian IEEE 754 double.
func EncodeDescriptor(d Descriptor) []byte {
	buf := make([]byte, 8*len(d))
	for i, v := range d {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeDescriptor restores a stored descriptor. A length not divisible by
// eight means the stored value is corrupt, which is an infrastructure
// fault rather than a match failure.
func DecodeDescriptor(b []byte) (Descriptor, error) {
	if len(b) == 0 || len(b)%8 != 0 {
		return nil, fmt.Errorf("corrupt descriptor: %d bytes", len(b))
	}
	d := make(Descriptor, len(b)/8)
	for i := range d {
		d[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
	}
	return d, nil
}

// Distance returns the Euclidean distance between two descriptors.
// Descriptors of different lengths are never the same person.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
