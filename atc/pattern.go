package atc

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchRule selects how a Pattern is searched for inside received text.
type MatchRule int

const (
	// Exact treats the pattern as a literal, case-sensitive substring.
	Exact MatchRule = iota
	// Regex treats the pattern as a regular expression.
	Regex
)

func (r MatchRule) String() string {
	switch r {
	case Exact:
		return "exact"
	case Regex:
		return "regex"
	default:
		return fmt.Sprintf("MatchRule(%d)", int(r))
	}
}

// Pattern is a named string pattern plus its matching rule. Patterns
// describe the responses that terminate a command and the unsolicited lines
// that trigger events. A Pattern is immutable after construction; build one
// with NewPattern or MustPattern.
type Pattern struct {
	name    string
	pattern string
	rule    MatchRule
	re      *regexp.Regexp
}

// NewPattern builds a Pattern. Name and pattern must be non-empty, and a
// Regex pattern must compile; violations return ErrInvalidPattern here so
// that matching itself can never fail. Regular expressions are compiled in
// single-line mode: "." also matches the CR/LF bytes a protocol pattern
// such as "OK\r\n" drags along.
func NewPattern(name, pattern string, rule MatchRule) (Pattern, error) {
	if name == "" {
		return Pattern{}, fmt.Errorf("%w: empty name", ErrInvalidPattern)
	}
	if pattern == "" {
		return Pattern{}, fmt.Errorf("%w: %q has an empty pattern", ErrInvalidPattern, name)
	}

	p := Pattern{name: name, pattern: pattern, rule: rule}
	if rule == Regex {
		re, err := regexp.Compile("(?s)" + pattern)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, name, err)
		}
		p.re = re
	}
	return p, nil
}

// MustPattern is like NewPattern but panics on an invalid pattern. Intended
// for package-level pattern declarations.
func MustPattern(name, pattern string, rule MatchRule) Pattern {
	p, err := NewPattern(name, pattern, rule)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the pattern's identifying name.
func (p Pattern) Name() string { return p.name }

// Rule returns the pattern's matching rule.
func (p Pattern) Rule() MatchRule { return p.rule }

func (p Pattern) String() string {
	return fmt.Sprintf("%s (%s %q)", p.name, p.rule, p.pattern)
}

// Match searches for the pattern in text. For Exact rules the returned
// match is the pattern itself; for Regex rules it is the leftmost text
// matched by the whole expression, not a sub-capture. A zero-value Pattern
// matches nothing.
func (p Pattern) Match(text string) (string, bool) {
	switch {
	case p.pattern == "":
		return "", false
	case p.rule == Regex:
		m := p.re.FindString(text)
		return m, m != ""
	default:
		if strings.Contains(text, p.pattern) {
			return p.pattern, true
		}
		return "", false
	}
}
