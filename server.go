package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"i4.energy/across/atgw/atc"
)

// commander is the slice of the AT client the request surfaces need.
type commander interface {
	Send(cmd atc.Command) (atc.Outcome, error)
}

// Server handles incoming HTTP requests for interacting with the
// configured AT client
type Server struct {
	Logger *slog.Logger
	Client commander
	Hub    *eventHub
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /events", s.Hub.handleWS)
	mux.ServeHTTP(w, r)
}

// CommandRequest is the wire form of an AT command descriptor.
type CommandRequest struct {
	Name    string           `json:"name"`
	Request string           `json:"request"`
	Success PatternRequest   `json:"success"`
	Errors  []PatternRequest `json:"errors,omitempty"`
	// TimeoutMS of zero waits indefinitely for a terminating response.
	TimeoutMS int `json:"timeout_ms,omitempty"`
}

// PatternRequest is the wire form of a named pattern.
type PatternRequest struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Rule    string `json:"rule,omitempty"` // "exact" (default) or "regex"
}

// CommandResponse reports a resolved command back to the caller.
type CommandResponse struct {
	Status string `json:"status"`
	// Response is the name of the pattern that matched, if any
	Response string `json:"response,omitempty"`
	Match    string `json:"match,omitempty"`
	Line     string `json:"line,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (p PatternRequest) pattern() (atc.Pattern, error) {
	rule, err := parseRule(p.Rule)
	if err != nil {
		return atc.Pattern{}, err
	}
	return atc.NewPattern(p.Name, p.Pattern, rule)
}

func (c CommandRequest) command() (atc.Command, error) {
	success, err := c.Success.pattern()
	if err != nil {
		return atc.Command{}, fmt.Errorf("success: %w", err)
	}
	cmd := atc.Command{
		Name:    c.Name,
		Request: c.Request,
		Success: success,
		Timeout: time.Duration(c.TimeoutMS) * time.Millisecond,
	}
	for i, e := range c.Errors {
		p, err := e.pattern()
		if err != nil {
			return atc.Command{}, fmt.Errorf("errors[%d]: %w", i, err)
		}
		cmd.Errors = append(cmd.Errors, p)
	}
	return cmd, nil
}

// parseRule maps the wire rule names onto a MatchRule.
func parseRule(s string) (atc.MatchRule, error) {
	switch s {
	case "", "exact":
		return atc.Exact, nil
	case "regex":
		return atc.Regex, nil
	default:
		return 0, fmt.Errorf("unknown match rule %q", s)
	}
}

func outcomeResponse(out atc.Outcome) CommandResponse {
	resp := CommandResponse{
		Status: out.Status.String(),
		Match:  out.Match,
		Line:   out.Line,
	}
	if out.Response != nil {
		resp.Response = out.Response.Name()
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)

}

// handleCommand executes one AT command described by the request body and
// reports its outcome
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd, err := req.command()
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.Client.Send(cmd)
	switch {
	case errors.Is(err, atc.ErrBusy):
		s.sendError(w, "another command is in flight", http.StatusConflict)
		return
	case errors.Is(err, atc.ErrNotRunning):
		s.sendError(w, "client is not running", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.Logger.Error("command failed", "command", cmd.Name, "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.Logger.Info("command resolved", "command", cmd.Name, "outcome", out.String())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcomeResponse(out))
}
