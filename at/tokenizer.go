package at

import (
	"bufio"
	"bytes"
)

// Splitter tokenizes the byte stream coming back from an AT device. It has
// the signature of bufio.SplitFunc so it can be used with bufio.Scanner, and
// it can equally be called directly with atEOF=false to pop complete tokens
// off an accumulation buffer.
//
// Tokens are CRLF-terminated lines (terminator stripped) plus the input
// prompt ("> "), which is a complete token on its own even though no CRLF
// follows it. Prompted commands (AT+CMGS, AT+CIPSEND) rely on this.
//
// Important: Splitter assumes "No Echo" mode (ATE0). With echo enabled the
// command echo arrives as an ordinary line token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match input prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	// Incomplete line: with more data pending, ask for it; at EOF flush
	// whatever is left as the final token.
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
