// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package gsm provides a driver for GSM modems.
package gsm

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/datamodem/at"
	"github.com/warthog618/datamodem/info"
)

// GSM modem decorates the AT modem with GSM specific functionality.
type GSM struct {
	*at.AT
	pollInterval time.Duration
	atOptions    []at.Option
}

// Option is a construction option for the GSM.
type Option func(*GSM)

// New creates a new GSM modem.
func New(modem io.ReadWriter, options ...Option) *GSM {
	g := &GSM{pollInterval: time.Second}
	for _, option := range options {
		option(g)
	}
	g.AT = at.New(modem, g.atOptions...)
	return g
}

// WithPollInterval sets the period between registration queries while
// waiting for the network.
//
// The default is 1 second.
func WithPollInterval(d time.Duration) Option {
	return func(g *GSM) {
		g.pollInterval = d
	}
}

// WithATOptions passes the options to the underlying AT modem.
func WithATOptions(options ...at.Option) Option {
	return func(g *GSM) {
		g.atOptions = append(g.atOptions, options...)
	}
}

// Init initialises the GSM modem.
func (g *GSM) Init(ctx context.Context) error {
	if err := g.AT.Init(ctx); err != nil {
		return err
	}
	// test GCAP response to ensure +GSM support, and modem sync.
	i, err := g.Command(ctx, "+GCAP")
	if err != nil {
		return err
	}
	capabilities := make(map[string]bool)
	for _, l := range i {
		if info.HasPrefix(l, "+GCAP") {
			for _, cap := range info.Fields(l, "+GCAP") {
				capabilities[cap] = true
			}
		}
	}
	if !capabilities["+CGSM"] {
		return ErrNotGSMCapable
	}
	// numeric extended errors, so +CME ERROR: 3 can be recognised.
	_, err = g.Command(ctx, "+CMEE=1")
	return err
}

// Query issues the command and returns the value of the corresponding info
// line.
//
// e.g. a response of "+CGATT: 1" to the "+CGATT?" command returns "1".
func (g *GSM) Query(ctx context.Context, cmd string) (string, error) {
	i, err := g.Command(ctx, cmd)
	if err != nil {
		return "", err
	}
	v, ok := info.Find(i, infoPrefix(cmd))
	if !ok {
		return "", ErrMalformedResponse
	}
	return v, nil
}

// RegistrationStatus returns the network registration status reported by
// +CREG?.
func (g *GSM) RegistrationStatus(ctx context.Context) (RegStatus, error) {
	v, err := g.Query(ctx, "+CREG?")
	if err != nil {
		return 0, err
	}
	fields := info.Split(v)
	if len(fields) < 2 {
		return 0, ErrMalformedResponse
	}
	stat, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedResponse, "stat %q", fields[1])
	}
	return RegStatus(stat), nil
}

// WaitForNetwork blocks until the modem reports it is registered with the
// network, either home or roaming.
//
// The registration status is polled until registered or the context is done.
// Errors returned by the modem while polling are ignored as the modem may not
// be ready to report registration.
func (g *GSM) WaitForNetwork(ctx context.Context) error {
	for {
		stat, err := g.RegistrationStatus(ctx)
		if err == nil && stat.Registered() {
			return nil
		}
		if errors.Is(err, at.ErrClosed) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.Closed():
			return at.ErrClosed
		case <-time.After(g.pollInterval):
		}
	}
}

// RegStatus is the network registration status, as per 3GPP TS 27.007.
type RegStatus int

const (
	// RegNotSearching indicates not registered and not searching.
	RegNotSearching RegStatus = iota
	// RegHome indicates registered on the home network.
	RegHome
	// RegSearching indicates not registered but searching.
	RegSearching
	// RegDenied indicates registration was denied.
	RegDenied
	// RegUnknown indicates an unknown registration state.
	RegUnknown
	// RegRoaming indicates registered on a roaming network.
	RegRoaming
)

// Registered returns true if the modem is registered on either the home or a
// roaming network.
func (s RegStatus) Registered() bool {
	return s == RegHome || s == RegRoaming
}

func (s RegStatus) String() string {
	switch s {
	case RegNotSearching:
		return "not searching"
	case RegHome:
		return "home"
	case RegSearching:
		return "searching"
	case RegDenied:
		return "denied"
	case RegUnknown:
		return "unknown"
	case RegRoaming:
		return "roaming"
	}
	return "invalid(" + strconv.Itoa(int(s)) + ")"
}

// infoPrefix returns the info line prefix for the command.
//
// e.g. +CGATT for +CGATT? and +CREG for +CREG=?
func infoPrefix(cmd string) string {
	if i := strings.IndexAny(cmd, "?="); i >= 0 {
		return cmd[:i]
	}
	return cmd
}

var (
	// ErrNotGSMCapable indicates that the modem does not support the GSM
	// command set, as determined from the GCAP response.
	ErrNotGSMCapable = errors.New("modem is not GSM capable")
	// ErrMalformedResponse indicates the modem returned a badly formed
	// response.
	ErrMalformedResponse = errors.New("modem returned malformed response")
)
