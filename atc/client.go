// Package atc implements a client engine for the AT command protocol: it
// writes command strings to a line-oriented transport, waits for a line
// matching each command's success or error patterns (racing the command's
// timeout), and concurrently watches the same stream for unsolicited lines
// that trigger registered events.
package atc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Client is an AT command client.
//
// One background reader goroutine owns all transport reads between Start
// and Stop; it offers every received line to the in-flight command first
// and then to the registered events. Send, AddEvent, RemoveEvent and the
// hook setters are safe to call concurrently with the reader and with each
// other. At most one command may be in flight at a time.
type Client struct {
	transport Transport
	poll      time.Duration
	log       *slog.Logger

	events eventRegistry

	// mu guards the running/closed state, the active command slot and the
	// hooks. It is never held across a transport call or a callback.
	mu      sync.Mutex
	running bool
	closed  bool
	current *inflight
	stop    chan struct{}
	done    chan struct{}

	onResponse      func(Command, Outcome)
	onCallbackError func(name string, recovered any)

	lastMu  sync.Mutex
	lastCmd Command
	lastOut Outcome
	lastSet bool
}

// New dials the transport through config.Dialer and returns a stopped
// client. Call Start before sending commands.
func New(ctx context.Context, config Config) (*Client, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial transport: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Client{
		transport: transport,
		poll:      config.PollTimeout,
		log:       config.Logger,
	}, nil
}

// Start launches the background reader. It is idempotent: starting a
// running client is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.closed {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.readLoop(c.stop, c.done)
}

// Stop signals the reader to exit after its current poll and waits for it.
// Any command still in flight resolves to StatusTimeout so its sender is
// never left blocked. Stop does not close the transport (see Close) and is
// a no-op on a stopped client.
//
// Stop must not be called from an event callback: it waits for the reader
// goroutine the callback is running on.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	c.resolveCurrent(Outcome{Status: StatusTimeout})
	<-done
}

// Close stops the reader and closes the transport. The client cannot be
// reused afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.closed = true
	c.mu.Unlock()

	c.Stop()
	return c.transport.Close()
}

// Send writes cmd's request to the transport and blocks until the command
// resolves: a line matching its success or error patterns, its timeout
// firing, or the client stopping. A timeout is reported as an Outcome
// status, not an error — the absence of a response is protocol information.
//
// Send fails fast with ErrBusy while another command is awaiting its
// response and with ErrNotRunning when the reader is not running; it never
// queues. A transport write failure is returned as an error and frees the
// command slot.
func (c *Client) Send(cmd Command) (Outcome, error) {
	if cmd.Request == "" {
		return Outcome{}, fmt.Errorf("command %q has an empty request", cmd.Name)
	}
	if cmd.Success.pattern == "" {
		return Outcome{}, fmt.Errorf("%w: command %q has no success pattern", ErrInvalidPattern, cmd.Name)
	}

	fl := newInflight(cmd)

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return Outcome{}, ErrNotRunning
	}
	if c.current != nil {
		cur := c.current.cmd.Name
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %s awaiting response", ErrBusy, cur)
	}
	c.current = fl
	c.mu.Unlock()

	c.log.Debug("sending command", "command", cmd.Name, "request", strings.TrimSpace(cmd.Request))
	if err := c.transport.Write([]byte(cmd.Request)); err != nil {
		c.mu.Lock()
		if c.current == fl {
			c.current = nil
		}
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("write command %q: %w", cmd.Name, err)
	}
	fl.arm(c.expire)

	out := <-fl.outcome
	return out, nil
}

// AddEvent registers e. An existing event with the same name is replaced.
// Events may be registered before Start and while the reader is running.
func (c *Client) AddEvent(e Event) error {
	if e.Name == "" {
		return fmt.Errorf("%w: event has empty name", ErrInvalidPattern)
	}
	if e.Pattern.pattern == "" {
		return fmt.Errorf("%w: event %q has no pattern", ErrInvalidPattern, e.Name)
	}
	if e.Callback == nil {
		return fmt.Errorf("%w: %s", ErrNilCallback, e.Name)
	}
	c.events.add(e)
	return nil
}

// RemoveEvent unregisters the event with the given name; removing an
// unknown name is a no-op.
func (c *Client) RemoveEvent(name string) {
	c.events.remove(name)
}

// SetOnResponse installs a hook invoked once per resolved command, after
// resolution, with the same information Send returns. It exists for callers
// that want push-style notification in addition to the blocking return.
func (c *Client) SetOnResponse(hook func(Command, Outcome)) {
	c.mu.Lock()
	c.onResponse = hook
	c.mu.Unlock()
}

// SetOnCallbackError installs a hook invoked when an event callback or
// response hook panics. The panic is always recovered and logged; the hook
// is additional reporting.
func (c *Client) SetOnCallbackError(hook func(name string, recovered any)) {
	c.mu.Lock()
	c.onCallbackError = hook
	c.mu.Unlock()
}

// Last returns the most recently resolved command and its outcome. The
// third return is false until the first command resolves.
func (c *Client) Last() (Command, Outcome, bool) {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	return c.lastCmd, c.lastOut, c.lastSet
}

// readLoop is the only reader of the transport. Lines are processed
// strictly in arrival order: each is offered to the in-flight command
// first, and a line consumed as a command response is never also matched
// against events. Unconsumed lines fan out to every matching registered
// event in registration order.
func (c *Client) readLoop(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		line, err := c.transport.ReadLine(c.poll)
		if err != nil {
			if errors.Is(err, ErrReadIdle) {
				continue
			}
			c.fail(err)
			return
		}

		// Lines read after Stop are discarded.
		select {
		case <-stop:
			return
		default:
		}
		if line == "" {
			continue
		}
		c.dispatch(line)
	}
}

// dispatch routes one received line: in-flight command first, events after.
func (c *Client) dispatch(line string) {
	c.mu.Lock()
	fl := c.current
	c.mu.Unlock()

	if fl != nil {
		if out, ok := fl.offer(line); ok {
			c.mu.Lock()
			still := c.current == fl
			if still {
				c.current = nil
			}
			c.mu.Unlock()
			if still {
				c.finish(fl, out)
			}
			// The line was a command response either way; late matches on
			// an already-resolved command are dropped, not replayed as
			// events.
			return
		}
	}

	for _, m := range c.events.matchAll(line) {
		event, match := m.event, m.match
		c.log.Debug("event matched", "event", event.Name, "line", strings.TrimSpace(line))
		c.safeInvoke("event "+event.Name, func() {
			event.Callback(match, line)
		})
	}
}

// expire is the command timer's target: it resolves fl to StatusTimeout
// unless a matching line won the race first.
func (c *Client) expire(fl *inflight) {
	c.mu.Lock()
	if c.current != fl {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()
	c.finish(fl, Outcome{Status: StatusTimeout})
}

// fail handles a permanent transport failure: the in-flight command, if
// any, resolves to StatusTimeout carrying the failure, and the client stops
// accepting commands.
func (c *Client) fail(err error) {
	c.log.Error("transport failed, reader exiting", "error", err)
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.resolveCurrent(Outcome{Status: StatusTimeout, Err: err})
}

// resolveCurrent takes whatever command is in flight and finishes it.
func (c *Client) resolveCurrent(out Outcome) {
	c.mu.Lock()
	fl := c.current
	c.current = nil
	c.mu.Unlock()
	if fl != nil {
		c.finish(fl, out)
	}
}

// finish delivers the outcome to the blocked sender, records it and runs
// the response hook. Callers must have already removed fl from the active
// slot; finish on a lost race is a no-op.
func (c *Client) finish(fl *inflight, out Outcome) {
	if !fl.resolve(out) {
		return
	}
	c.log.Debug("command resolved", "command", fl.cmd.Name, "outcome", out.String())

	c.lastMu.Lock()
	c.lastCmd, c.lastOut, c.lastSet = fl.cmd, out, true
	c.lastMu.Unlock()

	c.mu.Lock()
	hook := c.onResponse
	c.mu.Unlock()
	if hook != nil {
		c.safeInvoke("response hook "+fl.cmd.Name, func() {
			hook(fl.cmd, out)
		})
	}
}

// safeInvoke runs fn, recovering a panic so a misbehaving callback cannot
// kill the reader loop or starve other events on the same line.
func (c *Client) safeInvoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("callback panicked", "callback", name, "panic", r)
			c.mu.Lock()
			hook := c.onCallbackError
			c.mu.Unlock()
			if hook != nil {
				hook(name, r)
			}
		}
	}()
	fn()
}
