// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package gprs provides a driver for sending data over a GPRS packet data
// connection.
//
// The driver brings the PDP context up from whatever state the modem is in,
// probes for an IP address, opens a UDP session and writes the payload, and
// recovers the attachment when the carrier drops it.
package gprs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/datamodem/at"
)

// Modem drives a GPRS capable modem through a Channel.
//
// The operations of a Modem are synchronous and must not be called
// concurrently.
type Modem struct {
	ch  Channel
	apn APN
	log *slog.Logger

	// limits on the attach cycles within a single operation
	maxActivations int
	maxRecoveries  int

	cmdTimeout        time.Duration
	activationTimeout time.Duration
	openTimeout       time.Duration
	promptTimeout     time.Duration
	sendTimeout       time.Duration
	shutTimeout       time.Duration
	bootRetryInterval time.Duration
}

// Option is a construction option for a Modem.
type Option func(*Modem)

// New creates a Modem that drives the modem via the channel.
func New(ch Channel, options ...Option) *Modem {
	m := &Modem{
		ch:                ch,
		maxActivations:    3,
		maxRecoveries:     1,
		cmdTimeout:        5 * time.Second,
		activationTimeout: 85 * time.Second,
		openTimeout:       15 * time.Second,
		promptTimeout:     time.Second,
		sendTimeout:       10 * time.Second,
		shutTimeout:       10 * time.Second,
		bootRetryInterval: time.Second,
	}
	for _, option := range options {
		option(m)
	}
	if m.log == nil {
		m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// APN is the access point the PDP context is attached to.
type APN struct {
	Name     string
	Username string
	Password string
}

// WithAPN sets the APN used to attach.
func WithAPN(apn APN) Option {
	return func(m *Modem) {
		m.apn = apn
	}
}

// WithLogger sets the logger used to report state transitions and recovery
// actions.
//
// By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(m *Modem) {
		m.log = l
	}
}

// WithMaxActivations limits the number of context activations attempted by a
// single operation.
//
// The default is 3.
func WithMaxActivations(n int) Option {
	return func(m *Modem) {
		m.maxActivations = max(n, 1)
	}
}

// WithMaxRecoveries limits the number of detach/reattach cycles performed by
// a single operation.
//
// The default is 1.
func WithMaxRecoveries(n int) Option {
	return func(m *Modem) {
		m.maxRecoveries = max(n, 0)
	}
}

// WithCommandTimeout sets the time allowed for simple commands and queries.
//
// The default is 5 seconds.
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.cmdTimeout = d
	}
}

// WithActivationTimeout sets the time allowed for the network to activate the
// PDP context, or to attach to the packet domain.
//
// The default is 85 seconds.
func WithActivationTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.activationTimeout = d
	}
}

// WithOpenTimeout sets the time allowed between lines while opening a
// session.
//
// The default is 15 seconds.
func WithOpenTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.openTimeout = d
	}
}

// WithPromptTimeout sets the time allowed for the modem to prompt for a
// payload.
//
// The default is 1 second.
func WithPromptTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.promptTimeout = d
	}
}

// WithSendTimeout sets the time allowed for the modem to acknowledge a
// payload.
//
// The default is 10 seconds.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.sendTimeout = d
	}
}

// WithShutTimeout sets the time allowed for the modem to shut the IP context.
//
// The default is 10 seconds.
func WithShutTimeout(d time.Duration) Option {
	return func(m *Modem) {
		m.shutTimeout = d
	}
}

// WithBootRetryInterval sets the period between attach attempts during Init.
//
// The default is 1 second.
func WithBootRetryInterval(d time.Duration) Option {
	return func(m *Modem) {
		m.bootRetryInterval = d
	}
}

// DefineAPN sets the APN used by subsequent operations.
func (m *Modem) DefineAPN(name, username, password string) {
	m.apn = APN{Name: name, Username: username, Password: password}
}

// APN returns the currently defined APN.
func (m *Modem) APN() APN {
	return m.apn
}

// Init initialises the modem and attaches it to the packet domain.
//
// The attach is retried until accepted, as modems commonly reject it
// immediately after power on, so the context should carry a deadline.
func (m *Modem) Init(ctx context.Context) error {
	if err := m.ch.Init(ctx); err != nil {
		return err
	}
	for {
		_, err := m.command(ctx, m.activationTimeout, "+CGATT=1")
		if err == nil {
			break
		}
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		m.log.Debug("attach rejected", "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.bootRetryInterval):
		}
	}
	// single numbering scheme: data
	_, err := m.command(ctx, m.cmdTimeout, "+CSNS=4")
	return err
}

// Disconnect shuts the IP context.
//
// Errors returned by the modem are ignored as the context may already be
// down. The only errors returned are those terminating the operation, i.e.
// the modem closing or the context being done.
func (m *Modem) Disconnect(ctx context.Context) error {
	_, err := m.command(ctx, m.shutTimeout, "+CIPSHUT", at.WithExpected("SHUT OK"))
	if err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		m.log.Debug("ignoring shut error", "err", err)
	}
	return nil
}

// command issues the command with the timeout applied.
func (m *Modem) command(ctx context.Context, d time.Duration, cmd string, options ...at.CommandOption) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return m.ch.Command(cctx, cmd, options...)
}

// readLine reads the next line with the timeout applied.
func (m *Modem) readLine(ctx context.Context, d time.Duration) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return m.ch.ReadLine(cctx)
}

func (m *Modem) checkAPN() error {
	if m.apn.Name == "" {
		return ErrInvalidConfiguration
	}
	return nil
}

func (a APN) defineCmd() string {
	return fmt.Sprintf(`+CSTT="%s","%s","%s"`, a.Name, a.Username, a.Password)
}

// fatal returns the error if it terminates the current operation, else nil.
//
// Device errors and timeouts on individual commands are not fatal, while the
// modem closing, or the operation context being done, are.
func fatal(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, at.ErrClosed) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// alreadyDefined returns true if the error returned when defining the APN
// indicates the context is already defined.
func alreadyDefined(err error) bool {
	if errors.Is(err, at.ErrError) {
		return true
	}
	var cme at.CMEError
	if errors.As(err, &cme) {
		return isOperationNotAllowed(string(cme))
	}
	var cms at.CMSError
	if errors.As(err, &cms) {
		return isOperationNotAllowed(string(cms))
	}
	return false
}

var (
	// ErrInvalidConfiguration indicates an operation requiring an APN was
	// attempted before the APN was defined.
	ErrInvalidConfiguration = errors.New("APN not defined")
)
