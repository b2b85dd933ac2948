// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs

import (
	"context"
	"strings"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
)

// link states
const (
	stateDetached   = "detached"
	stateActivating = "activating"
	stateProbing    = "probing"
	stateRecovering = "recovering"
	stateReady      = "ready"
)

// link events
const (
	eventProbe    = "probe"
	eventActivate = "activate"
	eventRecover  = "recover"
	eventAddress  = "address"
	eventFail     = "fail"
)

// link drives the PDP context from its current state to ready, or to
// detached if that is not possible.
//
// A link lives for a single operation. Each pass through activating consumes
// an activation and each pass through recovering consumes a recovery, so the
// link always terminates.
type link struct {
	m   *Modem
	fsm *fsm.FSM

	// the outcome if the link ends detached.
	result Result

	activations int
	recoveries  int

	// the most recent activation was accepted by the modem.
	activated bool

	// the APN must be defined before the next activation.
	redefine bool
}

func newLink(m *Modem) *link {
	l := &link{m: m, result: NotAttached}
	l.fsm = fsm.NewFSM(
		stateDetached,
		fsm.Events{
			{Name: eventProbe, Src: []string{stateDetached, stateActivating}, Dst: stateProbing},
			{Name: eventActivate, Src: []string{stateDetached, stateProbing, stateRecovering}, Dst: stateActivating},
			{Name: eventRecover, Src: []string{stateDetached, stateProbing}, Dst: stateRecovering},
			{Name: eventAddress, Src: []string{stateProbing}, Dst: stateReady},
			{Name: eventFail, Src: []string{stateProbing, stateActivating, stateRecovering}, Dst: stateDetached},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.log.Debug("link", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return l
}

// CheckConnectivity determines if the modem has a usable IP connection,
// attempting to recover the attachment if it does not.
func (m *Modem) CheckConnectivity(ctx context.Context) (Result, error) {
	if err := m.checkAPN(); err != nil {
		return NotAttached, err
	}
	return newLink(m).run(ctx, eventProbe)
}

// Attach defines the APN and activates the PDP context, then confirms an IP
// address has been assigned.
func (m *Modem) Attach(ctx context.Context) (Result, error) {
	if err := m.checkAPN(); err != nil {
		return NotAttached, err
	}
	l := newLink(m)
	l.redefine = true
	return l.run(ctx, eventActivate)
}

// Reconnect detaches and reattaches the modem to the packet domain, then
// performs an Attach.
//
// This is a best effort recovery - failures reported by the modem are
// returned as the Result.
func (m *Modem) Reconnect(ctx context.Context) (Result, error) {
	if err := m.checkAPN(); err != nil {
		return NotAttached, err
	}
	return newLink(m).run(ctx, eventRecover)
}

// run fires the initial event then performs the action for each state until
// the link is ready or detached.
func (l *link) run(ctx context.Context, event string) (Result, error) {
	err := l.fire(ctx, event)
	for err == nil {
		switch l.fsm.Current() {
		case stateReady:
			return Ok, nil
		case stateDetached:
			return l.result, nil
		case stateProbing:
			err = l.probe(ctx)
		case stateActivating:
			err = l.activate(ctx)
		case stateRecovering:
			err = l.reattach(ctx)
		}
	}
	return l.result, err
}

func (l *link) fire(ctx context.Context, event string) error {
	if err := l.fsm.Event(ctx, event); err != nil {
		return errors.Wrapf(err, "link %s", event)
	}
	return nil
}

// fail ends the link with the result.
func (l *link) fail(ctx context.Context, result Result) error {
	l.result = result
	return l.fire(ctx, eventFail)
}

// toActivating moves the link to activating, if activations remain, else
// ends the link with the result.
func (l *link) toActivating(ctx context.Context, exhausted Result) error {
	if l.activations >= l.m.maxActivations {
		l.m.log.Info("activation limit reached", "activations", l.activations)
		return l.fail(ctx, exhausted)
	}
	return l.fire(ctx, eventActivate)
}

// probe determines if an IP address has been assigned.
func (l *link) probe(ctx context.Context) error {
	m := l.m
	if err := m.ch.WaitForNetwork(ctx); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		return l.fail(ctx, NotAttached)
	}
	v, err := m.queryAttached(ctx)
	if err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		// state unknown - let the address decide
		m.log.Debug("attach state unknown", "err", err)
	} else if v == "0" {
		if l.recoveries >= m.maxRecoveries {
			return l.fail(ctx, NotAttached)
		}
		return l.fire(ctx, eventRecover)
	}
	if err := m.ch.Send(ctx, "+CIFSR"); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		return l.probeFailed(ctx, NetworkDown)
	}
	for {
		line, err := m.readLine(ctx, m.cmdTimeout)
		if err != nil {
			if ferr := fatal(ctx, err); ferr != nil {
				return ferr
			}
			m.log.Debug("no address", "err", err)
			return l.probeFailed(ctx, NetworkDown)
		}
		switch classifyAddress(line) {
		case addrAssigned:
			m.log.Info("address assigned", "addr", line)
			return l.fire(ctx, eventAddress)
		case addrError:
			m.log.Debug("address error", "line", line)
			return l.probeFailed(ctx, NetworkDown)
		case addrNotAttached:
			m.log.Info("not attached", "line", line)
			l.redefine = true
			return l.toActivating(ctx, NotAttached)
		}
	}
}

// probeFailed handles a probe that did not find an address.
//
// If the modem accepted the most recent activation then the activation is
// repeated, else the link ends with the result.
func (l *link) probeFailed(ctx context.Context, result Result) error {
	if l.activated {
		return l.toActivating(ctx, result)
	}
	return l.fail(ctx, result)
}

// activate defines the APN, if required, and activates the PDP context.
func (l *link) activate(ctx context.Context) error {
	m := l.m
	l.activated = false
	if l.redefine {
		l.redefine = false
		_, err := m.command(ctx, m.cmdTimeout, m.apn.defineCmd())
		if err != nil {
			if ferr := fatal(ctx, err); ferr != nil {
				return ferr
			}
			if !alreadyDefined(err) {
				m.log.Warn("APN rejected", "apn", m.apn.Name, "err", err)
				return l.fail(ctx, NotAttached)
			}
			m.log.Debug("APN already defined", "err", err)
		}
	}
	l.activations++
	if err := m.ch.WaitForNetwork(ctx); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		return l.fail(ctx, NotAttached)
	}
	if _, err := m.command(ctx, m.activationTimeout, "+CIICR"); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		m.log.Info("activation failed", "attempt", l.activations, "err", err)
		if err := m.Disconnect(ctx); err != nil {
			return err
		}
		return l.fire(ctx, eventProbe)
	}
	l.activated = true
	return l.fire(ctx, eventProbe)
}

// reattach detaches and reattaches the modem to the packet domain.
func (l *link) reattach(ctx context.Context) error {
	m := l.m
	l.recoveries++
	m.log.Info("reattaching", "recovery", l.recoveries)
	// detaching a dead attachment may itself fail
	if _, err := m.command(ctx, m.cmdTimeout, "+CGATT=0"); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		m.log.Debug("ignoring detach error", "err", err)
	}
	if _, err := m.command(ctx, m.activationTimeout, "+CGATT=1"); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return ferr
		}
		m.log.Info("attach failed", "err", err)
		return l.fail(ctx, NotAttached)
	}
	l.redefine = true
	return l.toActivating(ctx, NotAttached)
}

// queryAttached returns the packet domain attach state reported by the
// modem, "1" if attached and "0" if detached.
func (m *Modem) queryAttached(ctx context.Context) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, m.cmdTimeout)
	defer cancel()
	v, err := m.ch.Query(cctx, "+CGATT?")
	return strings.TrimSpace(v), err
}
