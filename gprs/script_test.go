// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs_test

import (
	"github.com/warthog618/datamodem/at"
	"go.uber.org/mock/gomock"
)

// script builds an ordered sequence of expected channel calls.
type script struct {
	ch    *MockChannel
	calls []any
}

func newScript(ch *MockChannel) *script {
	return &script{ch: ch}
}

func (s *script) add(c *gomock.Call) *script {
	s.calls = append(s.calls, c)
	return s
}

// Network expects a wait for network registration.
func (s *script) Network() *script {
	return s.add(s.ch.EXPECT().WaitForNetwork(gomock.Any()).Return(nil))
}

// Command expects the command, returning the info and error.
func (s *script) Command(cmd string, info []string, err error) *script {
	return s.add(s.ch.EXPECT().Command(gomock.Any(), cmd, gomock.Any()).Return(info, err))
}

// OK expects the command, which succeeds.
func (s *script) OK(cmd string) *script {
	return s.Command(cmd, nil, nil)
}

// Attached expects the attach query, returning the state.
func (s *script) Attached(state string) *script {
	return s.add(s.ch.EXPECT().Query(gomock.Any(), "+CGATT?").Return(state, nil))
}

// Send expects the command to be sent without waiting for a response.
func (s *script) Send(cmd string) *script {
	return s.add(s.ch.EXPECT().Send(gomock.Any(), cmd).Return(nil))
}

// Lines expects a ReadLine for each of the lines.
func (s *script) Lines(lines ...string) *script {
	for _, l := range lines {
		s.add(s.ch.EXPECT().ReadLine(gomock.Any()).Return(l, nil))
	}
	return s
}

// ReadTimeout expects a ReadLine that times out.
func (s *script) ReadTimeout() *script {
	return s.add(s.ch.EXPECT().ReadLine(gomock.Any()).Return("", &at.TimeoutError{}))
}

// Probe expects a probe that finds the address.
func (s *script) Probe(addr string) *script {
	return s.Network().Attached("1").Send("+CIFSR").Lines(addr)
}

// Define expects the APN to be defined, returning err.
func (s *script) Define(err error) *script {
	return s.Command(`+CSTT="internet","user","pass"`, nil, err)
}

// Activate expects the context activation, returning err.
func (s *script) Activate(err error) *script {
	return s.Network().Command("+CIICR", nil, err)
}

// Reattach expects a detach and reattach, followed by an APN definition
// and activation.
func (s *script) Reattach() *script {
	return s.OK("+CGATT=0").OK("+CGATT=1").Define(nil).Activate(nil)
}

// Open expects a UDP session to be opened, with the lines following.
func (s *script) Open(lines ...string) *script {
	return s.Network().OK(`+CIPSTART="UDP","example.com","5000"`).Lines(lines...)
}

// Prompt expects the send command to time out with the pending data.
func (s *script) Prompt(pending ...string) *script {
	return s.Command("+CIPSEND", pending, &at.TimeoutError{Pending: pending})
}

// Payload expects the payload to be written, returning err.
func (s *script) Payload(payload string, err error) *script {
	return s.add(s.ch.EXPECT().Data(gomock.Any(), payload, gomock.Any()).Return(nil, err))
}

// Shut expects the IP context to be shut.
func (s *script) Shut() *script {
	return s.OK("+CIPSHUT")
}

func (s *script) Build() []any {
	return s.calls
}
