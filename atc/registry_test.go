package atc

import (
	"sync"
	"testing"
)

func testEvent(name, pattern string, rec Recurrence, fired *[]string) Event {
	return Event{
		Name:       name,
		Pattern:    MustPattern(name, pattern, Exact),
		Recurrence: rec,
		Callback:   func(match, line string) { *fired = append(*fired, name) },
	}
}

func TestRegistryAddReplacesByName(t *testing.T) {
	var r eventRegistry
	var fired []string

	r.add(testEvent("ready", "READY", Recurring, &fired))
	r.add(testEvent("publish", "+MQTTPUBLISH:", Recurring, &fired))
	r.add(testEvent("ready", "DEVICE READY", Recurring, &fired))

	if r.len() != 2 {
		t.Fatalf("expected 2 events after replacement, got %d", r.len())
	}
	if got := r.matchAll("READY"); len(got) != 0 {
		t.Error("replaced pattern should no longer match")
	}
	got := r.matchAll("DEVICE READY")
	if len(got) != 1 || got[0].event.Name != "ready" {
		t.Fatalf("expected replacement to match, got %v", got)
	}
}

func TestRegistryMatchAllOrderAndMultiMatch(t *testing.T) {
	var r eventRegistry
	var fired []string

	r.add(testEvent("first", "READY", Recurring, &fired))
	r.add(testEvent("second", "READY", Recurring, &fired))
	r.add(testEvent("other", "RING", Recurring, &fired))

	got := r.matchAll("READY\r\n")
	if len(got) != 2 {
		t.Fatalf("expected both matching events, got %d", len(got))
	}
	if got[0].event.Name != "first" || got[1].event.Name != "second" {
		t.Errorf("matches out of registration order: %v, %v", got[0].event.Name, got[1].event.Name)
	}
}

func TestRegistryOneTimeRemovedBeforeCallback(t *testing.T) {
	var r eventRegistry
	var fired []string

	r.add(testEvent("once", "READY", OneTime, &fired))

	if got := r.matchAll("READY\r\n"); len(got) != 1 {
		t.Fatalf("expected one match, got %d", len(got))
	}
	// Removed atomically with the first match: a second identical line
	// finds nothing, before any callback has even run.
	if got := r.matchAll("READY\r\n"); len(got) != 0 {
		t.Error("one-time event matched twice")
	}
	if r.len() != 0 {
		t.Errorf("expected empty registry, got %d entries", r.len())
	}
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	var r eventRegistry
	var fired []string

	r.add(testEvent("ready", "READY", Recurring, &fired))
	r.remove("missing")
	if r.len() != 1 {
		t.Errorf("removing an unknown name must not disturb the registry")
	}
}

// Concurrent mutation against matchAll must never yield a half-mutated
// view. Run with -race.
func TestRegistryConcurrentAccess(t *testing.T) {
	var r eventRegistry
	var fired []string
	r.add(testEvent("keep", "READY", Recurring, &fired))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.add(testEvent("churn", "RING", Recurring, &fired))
			r.remove("churn")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, m := range r.matchAll("READY RING") {
				if m.event.Name != "keep" && m.event.Name != "churn" {
					t.Errorf("unexpected event %q", m.event.Name)
					return
				}
			}
		}
	}()
	wg.Wait()

	if got := r.matchAll("READY"); len(got) != 1 || got[0].event.Name != "keep" {
		t.Errorf("stable event lost during churn: %v", got)
	}
}
