// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ipAddrRE    = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	deviceErrRE = regexp.MustCompile(`^\+CM[ES] ERROR: (.+)$`)
)

// addrClass is the classification of a line returned while waiting for an
// IP address.
type addrClass int

const (
	// not terminal - keep reading
	addrPending addrClass = iota
	addrAssigned
	addrError
	addrNotAttached
)

// classifyAddress classifies a line returned in response to +CIFSR.
func classifyAddress(line string) addrClass {
	line = strings.TrimSpace(line)
	if ipAddrRE.MatchString(line) {
		return addrAssigned
	}
	if line == "ERROR" {
		return addrError
	}
	if m := deviceErrRE.FindStringSubmatch(line); m != nil {
		if isOperationNotAllowed(m[1]) {
			return addrNotAttached
		}
		return addrError
	}
	return addrPending
}

// isOperationNotAllowed returns true if the CME/CMS error code indicates the
// operation is not allowed, in either numeric or textual form.
func isOperationNotAllowed(code string) bool {
	code = strings.TrimSpace(code)
	return code == "3" || strings.EqualFold(code, "operation not allowed")
}

// sessionClass is the classification of a line returned while opening a
// transport session.
type sessionClass int

const (
	// not terminal - keep reading
	sessionPending sessionClass = iota
	sessionOpen
	sessionRetry
	sessionRejected
	sessionDeactivated
)

// transportSession is the state of a single attempt to open a session.
type transportSession struct {
	host     string
	port     int
	protocol string

	// the modem reported STATE: IP STATUS before the connect result.
	ipStatusSeen bool

	// a failed attempt may be retried.
	reattempt bool
}

func (s *transportSession) openCmd() string {
	return fmt.Sprintf(`+CIPSTART="%s","%s","%d"`, s.protocol, s.host, s.port)
}

// classify classifies a line returned in response to +CIPSTART.
func (s *transportSession) classify(line string) sessionClass {
	line = strings.TrimSpace(line)
	switch line {
	case "+PDP: DEACT":
		return sessionDeactivated
	case "STATE: IP STATUS":
		s.ipStatusSeen = true
		return sessionPending
	case "CONNECT OK":
		return sessionOpen
	case "CONNECT FAIL":
		// without IP STATUS the failure is not retried
		if s.ipStatusSeen && s.reattempt {
			return sessionRetry
		}
		return sessionRejected
	case "ALREADY CONNECT":
		return sessionRejected
	}
	return sessionPending
}
