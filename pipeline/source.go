package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"sensorcap/device"
	"sensorcap/logger"
	"sensorcap/publish"
	"sensorcap/telemetry"
	"sensorcap/wire"
)

const (
	readBufferSize = 4096
	readBackoff    = 100 * time.Millisecond

	// drainTimeout bounds the final hand-off during shutdown. The sink
	// keeps receiving until the channel closes, so the send normally
	// completes; the timeout only fires when the sink already exited on
	// a fatal write error and nobody will ever drain the channel.
	drainTimeout = 5 * time.Second
)

// SourceWorker owns one byte source and produces batches of decoded
// records. It polls the device with a short read timeout, feeds the
// bytes through the reassembler and decoder, and moves each full batch
// to the sink over the batch channel. A fresh batch slice is allocated
// after every hand-off; the sent batch is never touched again.
//
// Decode failures are logged and skipped; transient read errors are
// retried after a short backoff. On cancellation the remaining partial
// batch is sent before the channel is closed, so no buffered record is
// lost on shutdown.
type SourceWorker struct {
	dev       device.Source
	batchSize int
	out       chan<- telemetry.Batch
	pub       publish.Publisher
	reasm     *wire.Reassembler
	log       *logger.Logger
}

func NewSourceWorker(dev device.Source, batchSize int, pub publish.Publisher, out chan<- telemetry.Batch) *SourceWorker {
	return &SourceWorker{
		dev:       dev,
		batchSize: batchSize,
		out:       out,
		pub:       pub,
		reasm:     wire.NewReassembler(),
		log:       logger.L(),
	}
}

// Run reads until the context is cancelled or the source reports EOF.
// It always closes the batch channel on the way out; that close is the
// sink's signal that the producer is gone.
func (w *SourceWorker) Run(ctx context.Context) {
	defer close(w.out)

	w.log.Info("Source worker started", nil)

	buf := make([]byte, readBufferSize)
	batch := make(telemetry.Batch, 0, w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.flushPartial(batch)
			w.log.Info("Source worker shutting down", nil)
			return
		default:
		}

		n, err := w.dev.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.flushPartial(batch)
				w.log.Info("Byte source exhausted, source worker exiting", nil)
				return
			}
			w.log.Error("Failed to read from byte source, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			select {
			case <-time.After(readBackoff):
			case <-ctx.Done():
			}
			continue
		}
		if n == 0 {
			// poll timeout, nothing arrived
			continue
		}

		for _, frame := range w.reasm.Feed(buf[:n]) {
			rec, err := wire.DecodeFrame(frame)
			if err != nil {
				w.log.Error("Dropping malformed frame", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}

			w.pub.Publish(rec)
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				w.send(ctx, batch)
				batch = make(telemetry.Batch, 0, w.batchSize)
			}
		}
	}
}

// send hands a batch to the sink. Once cancellation is observed the
// sink is draining the channel to close, so the hand-off still happens;
// it just stops racing the rotation ticker.
func (w *SourceWorker) send(ctx context.Context, batch telemetry.Batch) {
	select {
	case w.out <- batch:
	case <-ctx.Done():
		sendFinal(w.out, batch, w.log)
	}
}

func (w *SourceWorker) flushPartial(batch telemetry.Batch) {
	if len(batch) == 0 {
		return
	}
	w.log.Info("Flushing partial batch on shutdown", map[string]interface{}{
		"records": len(batch),
	})
	sendFinal(w.out, batch, w.log)
}

// sendFinal delivers a batch during shutdown. It blocks until the sink
// takes it; a full channel at cancellation just means the sink is busy
// inside a flush, not that it is gone. Only a sink that died on a write
// error leaves the channel undrained, and the timeout unwedges that.
func sendFinal(out chan<- telemetry.Batch, batch telemetry.Batch, log *logger.Logger) {
	select {
	case out <- batch:
	case <-time.After(drainTimeout):
		log.Error("Sink not draining during shutdown, dropping batch", map[string]interface{}{
			"records": len(batch),
		})
	}
}

// SimulatedWorker synthesizes records on a fixed cadence, for running
// the pipeline without hardware. It honors the same batching and drain
// contract as the live source worker.
type SimulatedWorker struct {
	interval  time.Duration
	batchSize int
	out       chan<- telemetry.Batch
	pub       publish.Publisher
	log       *logger.Logger
}

func NewSimulatedWorker(interval time.Duration, batchSize int, pub publish.Publisher, out chan<- telemetry.Batch) *SimulatedWorker {
	return &SimulatedWorker{
		interval:  interval,
		batchSize: batchSize,
		out:       out,
		pub:       pub,
		log:       logger.L(),
	}
}

func (w *SimulatedWorker) Run(ctx context.Context) {
	defer close(w.out)

	w.log.Info("Simulated source worker started", map[string]interface{}{
		"interval": w.interval.String(),
	})

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	batch := make(telemetry.Batch, 0, w.batchSize)
	var counter uint32

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				w.log.Info("Flushing partial batch on shutdown", map[string]interface{}{
					"records": len(batch),
				})
				sendFinal(w.out, batch, w.log)
			}
			w.log.Info("Simulated source worker shutting down", nil)
			return
		case <-ticker.C:
			rec := SimulatedRecord(counter)
			counter++

			w.pub.Publish(rec)
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				select {
				case w.out <- batch:
				case <-ctx.Done():
					continue
				}
				batch = make(telemetry.Batch, 0, w.batchSize)
			}
		}
	}
}

// SimulatedRecord builds the i-th synthetic sample.
func SimulatedRecord(i uint32) telemetry.Record {
	f := float32(i)
	return telemetry.Record{
		Timestamp:       i,
		Temp:            25.0 + f*0.1,
		Gx:              0.1 * f,
		Gy:              0.2 * f,
		Gz:              0.3 * f,
		Ax:              1.0 * f,
		Ay:              1.1 * f,
		Az:              1.2 * f,
		SystemTimestamp: time.Now().UnixMilli(),
	}
}
