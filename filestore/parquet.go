package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"sensorcap/telemetry"
	"sensorcap/utils"
)

// codecs is the closed lookup table from algorithm name to parquet
// codec. Adding a codec means adding a row here; worker logic never
// changes.
var codecs = map[telemetry.Compression]compress.Compression{
	telemetry.CompressionNone:   compress.Codecs.Uncompressed,
	telemetry.CompressionSnappy: compress.Codecs.Snappy,
	telemetry.CompressionGzip:   compress.Codecs.Gzip,
	telemetry.CompressionLz4:    compress.Codecs.Lz4,
	telemetry.CompressionZstd:   compress.Codecs.Zstd,
	telemetry.CompressionBrotli: compress.Codecs.Brotli,
}

// ParquetWriter persists telemetry records as a compressed columnar
// file. Rows are staged in an Arrow record builder and written to the
// file one record batch per Flush, so at most one batch is lost on an
// ungraceful crash. The column order is fixed and never changes.
type ParquetWriter struct {
	schema      *arrow.Schema
	compression compress.Compression
	file        *os.File
	writer      *pqarrow.FileWriter
	bldr        *array.RecordBuilder
	path        string
	staged      int
	rows        int64
}

// NewParquetWriter creates the output directory if needed and opens the
// first output file, named {prefix}_{YYYYMMDD_HHMMSS}.parquet. The runID
// is stamped into the file's schema metadata.
func NewParquetWriter(outputDir, prefix string, compression telemetry.Compression, runID string) (*ParquetWriter, error) {
	codec, ok := codecs[compression]
	if !ok {
		return nil, fmt.Errorf("unknown compression type: %s", compression)
	}

	md := arrow.NewMetadata([]string{"run_id"}, []string{runID})
	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
			{Name: "temp", Type: arrow.PrimitiveTypes.Float32},
			{Name: "gx", Type: arrow.PrimitiveTypes.Float32},
			{Name: "gy", Type: arrow.PrimitiveTypes.Float32},
			{Name: "gz", Type: arrow.PrimitiveTypes.Float32},
			{Name: "ax", Type: arrow.PrimitiveTypes.Float32},
			{Name: "ay", Type: arrow.PrimitiveTypes.Float32},
			{Name: "az", Type: arrow.PrimitiveTypes.Float32},
			{Name: "system_timestamp", Type: arrow.PrimitiveTypes.Int64},
		},
		&md,
	)

	w := &ParquetWriter{
		schema:      schema,
		compression: codec,
		bldr:        array.NewRecordBuilder(memory.NewGoAllocator(), schema),
	}

	if err := w.open(outputDir, prefix); err != nil {
		w.bldr.Release()
		return nil, err
	}
	return w, nil
}

func (w *ParquetWriter) open(outputDir, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filename := fmt.Sprintf("%s_%s.parquet", prefix, utils.FileTimestamp(utils.NowUTC()))
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(w.compression),
		parquet.WithDictionaryDefault(false),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(w.schema, file, writerProps, arrowProps)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create parquet writer for %s: %w", path, err)
	}

	w.file = file
	w.writer = writer
	w.path = path
	w.rows = 0
	return nil
}

// Append stages one record. It does not touch the file; call Flush to
// make the staged rows durable.
func (w *ParquetWriter) Append(rec telemetry.Record) {
	w.bldr.Field(0).(*array.Int64Builder).Append(int64(rec.Timestamp))
	w.bldr.Field(1).(*array.Float32Builder).Append(rec.Temp)
	w.bldr.Field(2).(*array.Float32Builder).Append(rec.Gx)
	w.bldr.Field(3).(*array.Float32Builder).Append(rec.Gy)
	w.bldr.Field(4).(*array.Float32Builder).Append(rec.Gz)
	w.bldr.Field(5).(*array.Float32Builder).Append(rec.Ax)
	w.bldr.Field(6).(*array.Float32Builder).Append(rec.Ay)
	w.bldr.Field(7).(*array.Float32Builder).Append(rec.Az)
	w.bldr.Field(8).(*array.Int64Builder).Append(rec.SystemTimestamp)
	w.staged++
}

// Flush writes all staged rows to the current file as one record batch.
// No-op when nothing is staged.
func (w *ParquetWriter) Flush() error {
	if w.staged == 0 {
		return nil
	}

	rec := w.bldr.NewRecord()
	defer rec.Release()

	if err := w.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch to %s: %w", w.path, err)
	}

	w.rows += int64(w.staged)
	w.staged = 0
	return nil
}

// Rotate flushes and finalizes the current file, then opens a new one
// timestamped at the rotation instant. The flush happens before the old
// handle closes, which happens before the new handle opens; no data is
// dropped across a rotation.
func (w *ParquetWriter) Rotate(outputDir, prefix string) error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close parquet writer for %s: %w", w.path, err)
	}
	// pqarrow.FileWriter.Close already closes the underlying sink, so
	// only a distinct close failure is an error here.
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close file %s: %w", w.path, err)
	}
	return w.open(outputDir, prefix)
}

// Close flushes staged rows and finalizes the file. The writer is
// unusable afterwards.
func (w *ParquetWriter) Close() error {
	flushErr := w.Flush()
	w.bldr.Release()

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close parquet writer for %s: %w", w.path, err)
	}
	// pqarrow.FileWriter.Close already closes the underlying sink, so
	// only a distinct close failure is an error here.
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close file %s: %w", w.path, err)
	}
	return flushErr
}

// Path returns the path of the file currently being written.
func (w *ParquetWriter) Path() string {
	return w.path
}

// Rows returns how many rows have been flushed to the current file.
func (w *ParquetWriter) Rows() int64 {
	return w.rows
}
