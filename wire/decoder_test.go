package wire

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameValid(t *testing.T) {
	line := "00000123,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000"

	rec, err := DecodeFrame(line)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x123), rec.Timestamp)
	assert.Equal(t, float32(10.0), rec.Temp) // 41200000
	assert.Equal(t, float32(1.0), rec.Gx)    // 3F800000
	assert.Equal(t, float32(1.0), rec.Gy)
	assert.Equal(t, float32(1.0), rec.Gz)
	assert.Equal(t, float32(1.0), rec.Ax)
	assert.Equal(t, float32(1.0), rec.Ay)
	assert.Equal(t, float32(1.0), rec.Az)
}

func TestDecodeFrameBitPatterns(t *testing.T) {
	line := "00000001,40A00000,40400000,C0000000,00000000,3F800000,BF800000,80000000"

	rec, err := DecodeFrame(line)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), rec.Timestamp)
	assert.Equal(t, float32(5.0), rec.Temp)  // 40A00000
	assert.Equal(t, float32(3.0), rec.Gx)    // 40400000
	assert.Equal(t, float32(-2.0), rec.Gy)   // C0000000
	assert.Equal(t, float32(0.0), rec.Gz)    // 00000000
	assert.Equal(t, float32(1.0), rec.Ax)    // 3F800000
	assert.Equal(t, float32(-1.0), rec.Ay)   // BF800000
	assert.Equal(t, uint32(0x80000000), math.Float32bits(rec.Az), "negative zero must survive bit-exact")
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	// formatting the bit pattern of f and re-decoding must bit-equal f,
	// including negative zero and NaN payloads
	values := []float32{
		0, 1, -1, 5.0, 0.1, -273.15,
		float32(math.Inf(1)), float32(math.Inf(-1)),
		math.Float32frombits(0x80000000), // -0.0
		math.Float32frombits(0x7FC00001), // NaN with payload
		math.Float32frombits(0x7F800001), // signaling NaN
	}

	for _, f := range values {
		bits := math.Float32bits(f)
		line := fmt.Sprintf("0000002A,%08X,%08X,%08X,%08X,%08X,%08X,%08X",
			bits, bits, bits, bits, bits, bits, bits)

		rec, err := DecodeFrame(line)
		require.NoError(t, err, "value %08X", bits)

		assert.Equal(t, bits, math.Float32bits(rec.Temp), "temp bits for %08X", bits)
		assert.Equal(t, bits, math.Float32bits(rec.Gx))
		assert.Equal(t, bits, math.Float32bits(rec.Az))
	}
}

func TestDecodeFrameSystemTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	rec, err := DecodeFrame("00000000,00000000,00000000,00000000,00000000,00000000,00000000,00000000")
	after := time.Now().UnixMilli()

	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.SystemTimestamp, before)
	assert.LessOrEqual(t, rec.SystemTimestamp, after)
}

func TestDecodeFrameInvalid(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantField string
	}{
		{
			name:      "too few tokens",
			line:      "00000123,41200000",
			wantField: "frame",
		},
		{
			name:      "too many tokens",
			line:      "00000123,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000",
			wantField: "frame",
		},
		{
			name:      "empty line",
			line:      "",
			wantField: "frame",
		},
		{
			name:      "bad hex in counter",
			line:      "NOTAHEX,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000",
			wantField: "timestamp",
		},
		{
			name:      "bad hex in gyro",
			line:      "00000123,41200000,3F800000,ZZZZZZZZ,3F800000,3F800000,3F800000,3F800000",
			wantField: "gy",
		},
		{
			name:      "bad hex in accel",
			line:      "00000123,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,XX",
			wantField: "az",
		},
		{
			name:      "token exceeds 32 bits",
			line:      "100000000,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000",
			wantField: "timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.line)
			require.Error(t, err)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.wantField, decodeErr.Field)
		})
	}
}

func TestDecodeFrameTrimsWhitespace(t *testing.T) {
	rec, err := DecodeFrame("  00000005,41200000,3F800000,3F800000,3F800000,3F800000,3F800000,3F800000\t")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), rec.Timestamp)
}
