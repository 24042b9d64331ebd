package atc

import "sync"

// eventRegistry holds registered events in registration order. It owns its
// synchronization: every method is safe to call concurrently with the
// reader loop, and matchAll never observes a half-mutated list.
type eventRegistry struct {
	mu     sync.Mutex
	events []Event
}

// eventMatch pairs a matched event with the substring its pattern matched.
type eventMatch struct {
	event Event
	match string
}

// add registers e. An existing event with the same name is replaced in
// place, keeping its registration slot.
func (r *eventRegistry) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.events {
		if old.Name == e.Name {
			r.events[i] = e
			return
		}
	}
	r.events = append(r.events, e)
}

// remove unregisters the event with the given name, if present.
func (r *eventRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.Name == name {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return
		}
	}
}

// matchAll evaluates every registered event against line, in registration
// order, and returns all matches. Matching OneTime events are removed
// before matchAll returns, so their callbacks can fire at most once even
// when racing a concurrent add or remove. Callbacks are NOT invoked here;
// the caller runs them outside the lock.
func (r *eventRegistry) matchAll(line string) []eventMatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []eventMatch
	kept := r.events[:0]
	for _, e := range r.events {
		if m, ok := e.Pattern.Match(line); ok {
			matches = append(matches, eventMatch{event: e, match: m})
			if e.Recurrence == OneTime {
				continue
			}
		}
		kept = append(kept, e)
	}
	r.events = kept
	return matches
}

// len reports the number of registered events.
func (r *eventRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
