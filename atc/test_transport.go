package atc

import (
	"context"
	"io"
	"sync"
	"time"
)

// TestTransport is a scriptable Transport for tests. Lines queued with
// FeedLine become readable in order; ReadLine honors the poll timeout the
// way a real serial port would, so the reader loop behaves as in
// production. It also implements Dialer, returning itself.
//
// Exported for use by tests of packages that embed the client.
type TestTransport struct {
	mu       sync.Mutex
	lines    chan string
	written  chan []byte
	failure  error
	writeErr error
	closed   bool
}

// NewTestTransport creates an idle test transport.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		lines:   make(chan string, 32),
		written: make(chan []byte, 32),
	}
}

// Dial implements Dialer.
func (t *TestTransport) Dial(ctx context.Context) (Transport, error) {
	return t, nil
}

func (t *TestTransport) ReadLine(poll time.Duration) (string, error) {
	t.mu.Lock()
	failure := t.failure
	t.mu.Unlock()
	if failure != nil {
		return "", failure
	}

	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-time.After(poll):
		return "", ErrReadIdle
	}
}

func (t *TestTransport) Write(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	buf := append([]byte(nil), p...)
	select {
	case t.written <- buf:
	default:
	}
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.lines)
	return nil
}

// FeedLine queues a line for the reader, as if the device had sent it.
func (t *TestTransport) FeedLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.lines <- line
	}
}

// Written exposes everything passed to Write, in order. Tests typically
// receive from it to synchronize feeding a response with the command having
// been sent.
func (t *TestTransport) Written() <-chan []byte {
	return t.written
}

// Fail puts the transport into a permanent failure state: subsequent reads
// return err.
func (t *TestTransport) Fail(err error) {
	t.mu.Lock()
	t.failure = err
	t.mu.Unlock()
}

// FailWrites makes subsequent writes return err.
func (t *TestTransport) FailWrites(err error) {
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}
