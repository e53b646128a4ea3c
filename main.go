package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"sensorcap/config"
	"sensorcap/device"
	"sensorcap/filestore"
	"sensorcap/logger"
	"sensorcap/pipeline"
	"sensorcap/publish"
	"sensorcap/telemetry"
)

// simulatedInterval is the generation cadence of the simulated source.
const simulatedInterval = 100 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.GetLogger()
	log.SetLevel(cfg.LogLevel)

	runID := uuid.NewString()
	summary := cfg.Summary()
	summary["run_id"] = runID
	log.Info("Starting sensor capture", summary)

	compression, err := telemetry.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	writer, err := filestore.NewParquetWriter(cfg.OutputDir, cfg.Prefix, compression, runID)
	if err != nil {
		return err
	}

	pub := publish.Disabled()
	if cfg.NATSURL != "" {
		natsPub, err := publish.NewNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			writer.Close()
			return err
		}
		pub = natsPub
	}
	defer pub.Close()

	// SIGINT/SIGTERM request cooperative shutdown; both workers observe
	// the same context at their poll points.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan telemetry.Batch, 8)
	sink := pipeline.NewSinkWorker(writer, batches,
		time.Duration(cfg.RotateMinutes)*time.Minute, cfg.OutputDir, cfg.Prefix)

	var wg sync.WaitGroup
	var sinkErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		// a sink failure takes the source down with it
		defer cancel()
		sinkErr = sink.Run(ctx)
	}()

	if cfg.Simulate {
		source := pipeline.NewSimulatedWorker(simulatedInterval, cfg.BufferSize, pub, batches)
		wg.Add(1)
		go func() {
			defer wg.Done()
			source.Run(ctx)
		}()
	} else {
		dev, err := device.Open(cfg.Port, cfg.BaudRate)
		if err != nil {
			// the source never started, so the sink's close signal
			// has to come from here
			cancel()
			close(batches)
			wg.Wait()
			return err
		}
		source := pipeline.NewSourceWorker(dev, cfg.BufferSize, pub, batches)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer dev.Close()
			source.Run(ctx)
		}()
	}

	wg.Wait()

	if sinkErr != nil {
		return fmt.Errorf("sink worker failed: %w", sinkErr)
	}

	log.Info("Shutdown complete", map[string]interface{}{
		"records_written": sink.Written(),
	})
	return nil
}
