// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs

import "strconv"

// Result is the outcome of a GPRS operation.
//
// Failures reported by the modem are reported as a Result, rather than an
// error, identifying the stage that failed.
type Result int

const (
	// Ok indicates the operation succeeded.
	Ok Result = iota
	// NotAttached indicates the modem could not be attached to the APN.
	NotAttached
	// NetworkDown indicates the modem is attached but has no usable IP
	// connection.
	NetworkDown
	// SessionRejected indicates the transport session could not be opened.
	SessionRejected
	// SendFailed indicates the payload was not accepted by the modem.
	SendFailed
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case NotAttached:
		return "not attached"
	case NetworkDown:
		return "network down"
	case SessionRejected:
		return "session rejected"
	case SendFailed:
		return "send failed"
	}
	return "unknown(" + strconv.Itoa(int(r)) + ")"
}
