// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs

import (
	"context"

	"github.com/pkg/errors"
	"github.com/warthog618/datamodem/at"
)

// Connect opens a UDP session to the host and port.
//
// If the open stalls, or fails after the modem reported IP STATUS, the
// attachment is recovered and the open retried once.
func (m *Modem) Connect(ctx context.Context, host string, port int) (Result, error) {
	if err := m.checkAPN(); err != nil {
		return SessionRejected, err
	}
	s := transportSession{host: host, port: port, protocol: "UDP", reattempt: true}
	for {
		result, retry, err := m.open(ctx, &s)
		if err != nil || !retry {
			return result, err
		}
		m.log.Info("retrying session", "host", host, "port", port, "result", result)
		r, err := newLink(m).run(ctx, eventRecover)
		if err != nil {
			return result, err
		}
		m.log.Debug("recovered", "result", r)
		s = transportSession{host: host, port: port, protocol: s.protocol}
	}
}

// open makes a single attempt to open the session.
//
// Returns the result of the attempt and whether the attempt should be
// retried.
func (m *Modem) open(ctx context.Context, s *transportSession) (Result, bool, error) {
	if err := m.ch.WaitForNetwork(ctx); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return NetworkDown, false, ferr
		}
		return NetworkDown, false, nil
	}
	lines, err := m.command(ctx, m.cmdTimeout, s.openCmd())
	if err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return SessionRejected, false, ferr
		}
		// rejected if a session is already open, but the lines tell
		var te *at.TimeoutError
		if errors.As(err, &te) {
			lines = te.Pending
		}
		m.log.Debug("ignoring open error", "err", err)
	}
	for _, line := range lines {
		if result, retry, done := m.sessionResult(s, line); done {
			return result, retry, nil
		}
	}
	for {
		line, err := m.readLine(ctx, m.openTimeout)
		if err != nil {
			if ferr := fatal(ctx, err); ferr != nil {
				return NetworkDown, false, ferr
			}
			m.log.Info("session stalled", "err", err)
			return NetworkDown, s.reattempt, nil
		}
		if result, retry, done := m.sessionResult(s, line); done {
			return result, retry, nil
		}
	}
}

// sessionResult maps the classification of the line to the result of the
// attempt, and returns done if the line is terminal.
func (m *Modem) sessionResult(s *transportSession, line string) (result Result, retry bool, done bool) {
	switch s.classify(line) {
	case sessionOpen:
		return Ok, false, true
	case sessionRetry:
		return SessionRejected, true, true
	case sessionRejected:
		m.log.Info("session rejected", "line", line)
		return SessionRejected, false, true
	case sessionDeactivated:
		m.log.Info("context deactivated", "line", line)
		return NetworkDown, false, true
	}
	return Ok, false, false
}

// Send writes the payload to the open session.
//
// The modem must prompt for the payload within the prompt timeout, else the
// payload is not written.
func (m *Modem) Send(ctx context.Context, payload string) (Result, error) {
	_, err := m.command(ctx, m.promptTimeout, "+CIPSEND")
	if ferr := fatal(ctx, err); ferr != nil {
		return SendFailed, ferr
	}
	var te *at.TimeoutError
	if !errors.As(err, &te) || !te.Prompted() {
		m.log.Info("no prompt", "err", err)
		return SendFailed, nil
	}
	cctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()
	if _, err := m.ch.Data(cctx, payload, at.WithExpected("SEND OK")); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return SendFailed, ferr
		}
		m.log.Info("send failed", "err", err)
		return SendFailed, nil
	}
	return Ok, nil
}

// Deliver sends the payload to the host and port over UDP, then shuts the IP
// context.
//
// The connectivity is checked, and recovered if necessary, prior to opening
// the session. The returned Result identifies the stage that failed, if any.
// Errors are only returned if the APN is not defined, the modem is closed or
// the context is done.
func (m *Modem) Deliver(ctx context.Context, host string, port int, payload string) (Result, error) {
	if err := m.checkAPN(); err != nil {
		return NotAttached, err
	}
	result, err := m.CheckConnectivity(ctx)
	if err != nil || result != Ok {
		return result, err
	}
	result, err = m.Connect(ctx, host, port)
	if err != nil || result != Ok {
		return result, err
	}
	result, err = m.Send(ctx, payload)
	if err != nil || result != Ok {
		return result, err
	}
	if err := m.Disconnect(ctx); err != nil {
		m.log.Debug("ignoring disconnect error", "err", err)
	}
	return Ok, nil
}

// SendUDP sends the payload to the host and port over UDP.
//
// Returns true if the modem acknowledged the payload.
func (m *Modem) SendUDP(ctx context.Context, host string, port int, payload string) (bool, error) {
	result, err := m.Deliver(ctx, host, port, payload)
	return result == Ok, err
}
