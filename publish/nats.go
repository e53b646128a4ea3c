package publish

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"sensorcap/logger"
	"sensorcap/telemetry"
)

// Publisher mirrors decoded records to live consumers. Publishing is
// best-effort and must never block or fail the durability path.
type Publisher interface {
	Publish(rec telemetry.Record)
	Close()
}

type noop struct{}

func (noop) Publish(telemetry.Record) {}
func (noop) Close()                   {}

// Disabled returns a publisher that drops everything.
func Disabled() Publisher {
	return noop{}
}

// NATSPublisher publishes each record as JSON on a fixed subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *logger.Logger

	published uint64
	failed    uint64
}

// NewNATS connects to the given NATS URL. Connection failure is a
// startup error; publish failures later are only logged.
func NewNATS(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("sensorcap"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	log := logger.L()
	log.Info("Connected to NATS for live record fan-out", map[string]interface{}{
		"url":     url,
		"subject": subject,
	})

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		log:     log,
	}, nil
}

func (p *NATSPublisher) Publish(rec telemetry.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		atomic.AddUint64(&p.failed, 1)
		p.log.Error("Failed to marshal record for publish", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		atomic.AddUint64(&p.failed, 1)
		p.log.Error("Failed to publish record", map[string]interface{}{
			"error":   err.Error(),
			"subject": p.subject,
		})
		return
	}
	atomic.AddUint64(&p.published, 1)
}

// Published reports how many records were successfully handed to NATS.
func (p *NATSPublisher) Published() uint64 {
	return atomic.LoadUint64(&p.published)
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Flush(); err != nil {
		p.log.Error("Failed to flush NATS connection", map[string]interface{}{
			"error": err.Error(),
		})
	}
	p.conn.Close()

	p.log.Info("NATS publisher closed", map[string]interface{}{
		"published": atomic.LoadUint64(&p.published),
		"failed":    atomic.LoadUint64(&p.failed),
	})
}
