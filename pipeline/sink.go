package pipeline

import (
	"context"
	"fmt"
	"time"

	"sensorcap/logger"
	"sensorcap/telemetry"
)

// rotationPoll bounds the channel wait so rotation deadlines are
// checked even when no batches arrive.
const rotationPoll = 100 * time.Millisecond

// ColumnarWriter is the sink worker's view of the columnar storage
// layer. filestore.ParquetWriter satisfies it.
type ColumnarWriter interface {
	Append(rec telemetry.Record)
	Flush() error
	Rotate(outputDir, prefix string) error
	Close() error
	Path() string
}

// SinkWorker consumes batches from the channel and makes them durable.
// Every received batch is appended record by record and flushed once,
// so an ungraceful crash loses at most one batch. Rotation is purely
// wall-clock driven and independent of data volume.
//
// The worker moves through three phases: running (receiving batches and
// checking the rotation deadline), draining (cancellation observed or
// producer gone, remaining batches written out), closed (final flush
// and close done). The close step is unconditional; it runs even when
// the loop exits on an error, so a file is never left unfinalized on a
// normal shutdown path.
type SinkWorker struct {
	writer      ColumnarWriter
	in          <-chan telemetry.Batch
	rotateEvery time.Duration
	outputDir   string
	prefix      string
	log         *logger.Logger

	lastRotation time.Time
	written      int64
}

func NewSinkWorker(writer ColumnarWriter, in <-chan telemetry.Batch, rotateEvery time.Duration, outputDir, prefix string) *SinkWorker {
	return &SinkWorker{
		writer:      writer,
		in:          in,
		rotateEvery: rotateEvery,
		outputDir:   outputDir,
		prefix:      prefix,
		log:         logger.L(),
	}
}

// Written reports how many records the sink has flushed so far.
func (w *SinkWorker) Written() int64 {
	return w.written
}

// Run processes batches until the context is cancelled or the batch
// channel is closed, then drains and closes the writer. A writer
// failure is fatal: it is returned after the close attempt so the
// caller can terminate the process rather than lose data silently.
func (w *SinkWorker) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := w.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finalize output: %w", cerr)
		}
		w.log.Info("Sink worker closed", map[string]interface{}{
			"records_written": w.written,
		})
	}()

	w.log.Info("Sink worker started", map[string]interface{}{
		"output": w.writer.Path(),
	})

	ticker := time.NewTicker(rotationPoll)
	defer ticker.Stop()
	w.lastRotation = time.Now()

	for {
		if err := w.maybeRotate(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return w.drain()
		case batch, ok := <-w.in:
			if !ok {
				// producer exited; deferred close flushes the rest
				return nil
			}
			if err := w.writeBatch(batch); err != nil {
				return err
			}
		case <-ticker.C:
			// fall through to the rotation check
		}
	}
}

// maybeRotate rotates the output file when the deadline has elapsed.
// A zero interval disables rotation entirely.
func (w *SinkWorker) maybeRotate() error {
	if w.rotateEvery == 0 || time.Since(w.lastRotation) < w.rotateEvery {
		return nil
	}

	old := w.writer.Path()
	if err := w.writer.Rotate(w.outputDir, w.prefix); err != nil {
		return fmt.Errorf("failed to rotate output file: %w", err)
	}
	w.lastRotation = time.Now()

	w.log.Info("Rotated output file", map[string]interface{}{
		"closed": old,
		"opened": w.writer.Path(),
	})
	return nil
}

func (w *SinkWorker) writeBatch(batch telemetry.Batch) error {
	for _, rec := range batch {
		w.writer.Append(rec)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush batch: %w", err)
	}

	w.written += int64(len(batch))
	w.log.Debug("Flushed batch", map[string]interface{}{
		"records":       len(batch),
		"total_written": w.written,
		"output":        w.writer.Path(),
	})
	return nil
}

// drain writes out every batch still in flight. The producer closes the
// channel after sending its final partial batch, so ranging to the
// close is guaranteed to terminate and to miss nothing.
func (w *SinkWorker) drain() error {
	w.log.Info("Sink worker draining", nil)
	for batch := range w.in {
		if err := w.writeBatch(batch); err != nil {
			return err
		}
	}
	return nil
}
