package atc

import (
	"sync"
	"time"
)

// inflight tracks a single outstanding command from write to resolution.
//
// Resolution is exactly-once: a matching line, the timer firing, a
// transport failure and Stop all race for it, the first wins and the rest
// are no-ops. The client serializes the race by removing the inflight from
// its active slot under the client mutex before finishing it; the once is
// the final guarantee that at most one Outcome ever reaches the channel.
type inflight struct {
	cmd     Command
	outcome chan Outcome
	timer   *time.Timer
	once    sync.Once
}

func newInflight(cmd Command) *inflight {
	return &inflight{cmd: cmd, outcome: make(chan Outcome, 1)}
}

// arm starts the command timer. A zero timeout arms nothing: the command
// waits indefinitely.
func (f *inflight) arm(expire func(*inflight)) {
	if f.cmd.Timeout <= 0 {
		return
	}
	f.timer = time.AfterFunc(f.cmd.Timeout, func() { expire(f) })
}

// offer checks line against the command's success pattern first, then its
// error patterns in order. It returns the terminal outcome and true when
// the line resolves the command.
func (f *inflight) offer(line string) (Outcome, bool) {
	if m, ok := f.cmd.Success.Match(line); ok {
		rsp := f.cmd.Success
		return Outcome{Status: StatusSuccess, Response: &rsp, Match: m, Line: line}, true
	}
	for _, e := range f.cmd.Errors {
		if m, ok := e.Match(line); ok {
			rsp := e
			return Outcome{Status: StatusError, Response: &rsp, Match: m, Line: line}, true
		}
	}
	return Outcome{}, false
}

// resolve delivers out to the waiting sender. Only the first call has any
// effect; it reports whether this call won.
func (f *inflight) resolve(out Outcome) bool {
	won := false
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.outcome <- out
		won = true
	})
	return won
}
