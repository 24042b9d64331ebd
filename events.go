package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"i4.energy/across/atgw/atc"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// EventMessage is the wire form of a matched unsolicited line, fanned out
// to websocket subscribers and the MQTT event topic.
type EventMessage struct {
	Event string    `json:"event"`
	Match string    `json:"match"`
	Line  string    `json:"line"`
	At    time.Time `json:"at"`
}

// eventHub fans matched event lines out to websocket subscribers.
type eventHub struct {
	logger *slog.Logger
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
}

func newEventHub(logger *slog.Logger) *eventHub {
	return &eventHub{logger: logger, conns: map[*websocket.Conn]bool{}}
}

// handleWS upgrades the request and registers the connection for
// broadcasts.
func (h *eventHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	h.logger.Info("event subscriber connected", "remote", conn.RemoteAddr())

	// Inbound messages are discarded; the read loop exists to notice the
	// peer going away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *eventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// broadcast sends msg to every connected subscriber, dropping connections
// that refuse it.
func (h *eventHub) broadcast(msg EventMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode event", "event", msg.Event, "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("dropping event subscriber", "remote", c.RemoteAddr(), "error", err)
			h.drop(c)
		}
	}
}

// registerEvents turns the configured event declarations into recurring
// client events whose matches are delivered to every sink.
func registerEvents(client *atc.Client, configs []EventConfig, sinks ...func(EventMessage)) error {
	for _, ec := range configs {
		rule, err := parseRule(ec.Rule)
		if err != nil {
			return fmt.Errorf("event %q: %w", ec.Name, err)
		}
		pattern, err := atc.NewPattern(ec.Name, ec.Pattern, rule)
		if err != nil {
			return fmt.Errorf("event %q: %w", ec.Name, err)
		}

		name := ec.Name
		err = client.AddEvent(atc.Event{
			Name:       name,
			Pattern:    pattern,
			Recurrence: atc.Recurring,
			Callback: func(match, line string) {
				msg := EventMessage{Event: name, Match: match, Line: line, At: time.Now().UTC()}
				for _, sink := range sinks {
					sink(msg)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("register event %q: %w", ec.Name, err)
		}
	}
	return nil
}
