package atc

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal result of a sent command.
type Status int

const (
	// StatusSuccess means a line matching the command's success pattern
	// arrived before any error pattern and before the timeout.
	StatusSuccess Status = iota
	// StatusError means a line matching one of the command's error
	// patterns arrived first.
	StatusError
	// StatusTimeout means no terminating line arrived within the command's
	// timeout, or the client stopped while the command was in flight.
	// Timing out is an expected protocol outcome, not an error.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Command describes an AT command and the responses that terminate it.
// The request string is written verbatim, terminator included. A Command is
// a value: construct it once and send it as often as needed.
type Command struct {
	Name    string
	Request string
	// Success terminates the command with StatusSuccess. It is checked
	// before the error patterns on every received line.
	Success Pattern
	// Errors terminate the command with StatusError; they are checked in
	// order. A nil or empty slice never matches.
	Errors []Pattern
	// Timeout bounds the wait for a terminating response. Zero disables
	// the timer entirely: the command waits indefinitely, which is a
	// deliberate configuration for interactive or prompted commands.
	Timeout time.Duration
}

func (c Command) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %s: request %q, success %v, timeout %v",
		c.Name, strings.TrimSpace(c.Request), c.Success, c.Timeout)
	for _, e := range c.Errors {
		fmt.Fprintf(&b, ", error %v", e)
	}
	return b.String()
}

// Recurrence describes how often an event may fire.
type Recurrence int

const (
	// OneTime events fire on at most one matching line and are then
	// removed from the registry.
	OneTime Recurrence = iota
	// Recurring events fire on every matching line until removed.
	Recurring
)

func (r Recurrence) String() string {
	switch r {
	case OneTime:
		return "one-time"
	case Recurring:
		return "recurring"
	default:
		return fmt.Sprintf("Recurrence(%d)", int(r))
	}
}

// Event describes an unsolicited line of interest. When a received line
// matches Pattern and is not consumed by an in-flight command, Callback is
// invoked with the matched substring and the full line.
//
// Callbacks run on the client's reader goroutine and stall subsequent
// reads until they return; long-running work should be handed off.
type Event struct {
	Name       string
	Pattern    Pattern
	Callback   func(match, line string)
	Recurrence Recurrence
}

func (e Event) String() string {
	return fmt.Sprintf("event %s: %v, %v", e.Name, e.Pattern, e.Recurrence)
}

// Outcome is what a resolved command produced. Exactly one Outcome is
// delivered per successful Send call.
type Outcome struct {
	Status Status
	// Response is the success or error pattern that matched, nil when the
	// command timed out.
	Response *Pattern
	// Match is the substring the pattern matched; Line is the full line it
	// was found in. Both are empty on timeout.
	Match string
	Line  string
	// Err carries the transport failure that forced a timeout resolution,
	// if any. It is nil for ordinary timer expiry.
	Err error
}

func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%v (transport: %v)", o.Status, o.Err)
	case o.Response != nil:
		return fmt.Sprintf("%v: %s matched %q", o.Status, o.Response.Name(), strings.TrimSpace(o.Match))
	default:
		return o.Status.String()
	}
}
