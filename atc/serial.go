package atc

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/atgw/at"
)

// SerialDialer opens an AT device over a local serial port using
// go.bug.st/serial.
type SerialDialer struct {
	PortName string
	BaudRate int
}

// Dial opens and configures the port. The context is not consulted after
// the blocking open returns; serial opens are fast or fail outright.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{BaudRate: d.BaudRate}
	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return &serialTransport{port: port}, nil
}

// serialTransport assembles the port's byte stream into protocol tokens
// using at.Splitter. Reads are bounded by the port's read timeout so a
// quiet device yields ErrReadIdle instead of blocking forever.
type serialTransport struct {
	port serial.Port
	buf  []byte
}

func (t *serialTransport) ReadLine(poll time.Duration) (string, error) {
	deadline := time.Now().Add(poll)
	for {
		if token, ok := t.nextToken(); ok {
			return token, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrReadIdle
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("set read timeout: %w", err)
		}

		chunk := make([]byte, 256)
		n, err := t.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			// Read timeout expired with no data.
			return "", ErrReadIdle
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

// nextToken pops one complete token off the accumulation buffer, if any.
func (t *serialTransport) nextToken() (string, bool) {
	advance, token, _ := at.Splitter(t.buf, false)
	if advance == 0 {
		return "", false
	}
	t.buf = t.buf[advance:]
	return string(token), true
}

func (t *serialTransport) Write(p []byte) error {
	if _, err := t.port.Write(p); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
