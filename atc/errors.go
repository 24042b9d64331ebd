package atc

import "errors"

var (
	// ErrNoDialer is returned when a Client is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the device.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when the configured Dialer produced a
	// nil Transport.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrNotRunning is returned by Send when the client was never started,
	// or was stopped before the command could be issued.
	ErrNotRunning = errors.New("client not running")

	// ErrBusy is returned by Send while another command is still awaiting
	// its response. Only one command may be in flight at a time; callers
	// that want queuing must serialize above the client.
	ErrBusy = errors.New("client busy")

	// ErrInvalidPattern is returned when a Pattern is built with an empty
	// name or pattern, or a Regex pattern that does not compile. Pattern
	// problems always surface at construction time, never at match time.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrNilCallback is returned when an Event is registered without a
	// callback.
	ErrNilCallback = errors.New("event has no callback")

	// ErrAlreadyClosed is returned when Close is called on a Client that
	// has already been closed.
	ErrAlreadyClosed = errors.New("client already closed")

	// ErrReadIdle is returned by Transport.ReadLine when no complete line
	// arrived within the poll interval. The reader loop treats it as "try
	// again"; any other read error is a permanent transport failure.
	ErrReadIdle = errors.New("no complete line within poll interval")
)
