package main

import (
	"time"

	"i4.energy/across/atgw/at"
	"i4.energy/across/atgw/atc"
)

// Patterns for the final responses every AT-compatible device shares.
// Serial transports deliver lines with the CRLF terminator stripped, so
// the patterns carry none.
var (
	okResponse = atc.MustPattern("OK", at.OK, atc.Exact)
	cmeError   = atc.MustPattern("CME Error", `\+CME ERROR:.*`, atc.Regex)
	cmsError   = atc.MustPattern("CMS Error", `\+CMS ERROR:.*`, atc.Regex)
	// Checked last: a bare "ERROR" line is also a substring of the CME and
	// CMS forms.
	plainError = atc.MustPattern("ERROR", at.ERROR, atc.Exact)
)

var finalErrors = []atc.Pattern{cmeError, cmsError, plainError}

// initCommands is the wake-up sequence run once after the client starts:
// sanity check, echo off, verbose errors.
func initCommands(timeout time.Duration) []atc.Command {
	return []atc.Command{
		{Name: "AT Check", Request: "AT" + at.CRLF, Success: okResponse, Errors: finalErrors, Timeout: timeout},
		{Name: "Echo Off", Request: "ATE0" + at.CRLF, Success: okResponse, Errors: finalErrors, Timeout: timeout},
		{Name: "Verbose Errors", Request: "AT+CMEE=2" + at.CRLF, Success: okResponse, Errors: finalErrors, Timeout: timeout},
	}
}
