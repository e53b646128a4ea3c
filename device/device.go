package device

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds every blocking read so the source worker stays
// responsive to cancellation even when no data is flowing.
const readTimeout = 100 * time.Millisecond

// Source is a byte stream producer. Read fills buf with whatever is
// available and returns the count; a poll timeout is not an error and
// yields zero bytes.
type Source interface {
	Read(buf []byte) (int, error)
	Close() error
}

// Open opens a serial port at the given baud rate (8N1). Failure to
// open is fatal to startup; the caller should not retry.
func Open(portName string, baudRate int) (Source, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return port, nil
}
