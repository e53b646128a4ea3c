package telemetry

import "fmt"

// Record is one decoded sensor sample. Timestamp is the device-local
// counter (wraps at 2^32, not wall-clock); SystemTimestamp is stamped at
// decode time in milliseconds since epoch. Records are immutable once built.
type Record struct {
	Timestamp       uint32  `json:"timestamp"`
	Temp            float32 `json:"temp"`
	Gx              float32 `json:"gx"`
	Gy              float32 `json:"gy"`
	Gz              float32 `json:"gz"`
	Ax              float32 `json:"ax"`
	Ay              float32 `json:"ay"`
	Az              float32 `json:"az"`
	SystemTimestamp int64   `json:"system_timestamp"`
}

// Batch is an ordered group of records transferred as a unit between
// pipeline stages. Ownership moves with the value; the sender must not
// touch a batch after handing it off.
type Batch []Record

// Compression names a parquet codec configuration.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionLz4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
	CompressionBrotli Compression = "brotli"
)

// ParseCompression maps an algorithm name to its Compression value.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case CompressionNone, CompressionSnappy, CompressionGzip,
		CompressionLz4, CompressionZstd, CompressionBrotli:
		return Compression(s), nil
	}
	return "", fmt.Errorf("unknown compression type: %s", s)
}
