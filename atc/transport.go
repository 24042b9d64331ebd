package atc

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=atc

import (
	"context"
	"time"
)

// Transport is an established, bidirectional byte stream to an AT device,
// consumed one complete line at a time.
//
// A Transport is assumed to be already connected. Typical implementations
// are serial ports, TCP connections to emulators, or in-memory fakes used
// for testing.
type Transport interface {
	// ReadLine blocks until a complete line is available (line terminator
	// stripped, except for tokens such as the input prompt that carry no
	// terminator) or until poll elapses, in which case it returns
	// ErrReadIdle. Bounding the read lets the caller re-check its own
	// lifecycle at a known interval. Any error other than ErrReadIdle is
	// treated as a permanent transport failure.
	ReadLine(poll time.Duration) (string, error)

	// Write sends raw bytes, atomically with respect to other writers.
	// The caller supplies the full request including its terminator.
	Write(p []byte) error

	// Close releases the underlying connection.
	Close() error
}

// Dialer opens a Transport to an AT device.
//
// Dialer abstracts how the connection is created (serial port, TCP-based
// emulator, test double) and is used during client construction only. Once
// a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation and deadlines provided by the context.
	Dial(ctx context.Context) (Transport, error)
}
