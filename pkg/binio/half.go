package binio

import "github.com/x448/float16"

// HalfToFloat32 widens an IEEE 754 binary16 bit pattern to float32. The
// conversion is exact for every binary16 value, subnormals included.
func HalfToFloat32(h uint16) float32 {
	return float16.Frombits(h).Float32()
}

// Float32ToHalf narrows f to binary16 with round-to-nearest-even.
func Float32ToHalf(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}
