package utils

import (
	"math"
	"strconv"
)

// ParseHexUint32 parses a hexadecimal token into a 32-bit word.
func ParseHexUint32(s string) (uint32, error) {
	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(val), nil
}

// Float32FromBits reinterprets a 32-bit word as an IEEE-754 float,
// preserving sign, NaN payloads and negative zero exactly.
func Float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

// BitsFromFloat32 is the inverse of Float32FromBits.
func BitsFromFloat32(f float32) uint32 {
	return math.Float32bits(f)
}
