// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

//
// End to end tests of the GPRS driver over the gsm and at packages.
//
// As with the at and gsm tests, the mockModem does not attempt to emulate a
// serial modem, it just provides the responses required to exercise the
// driver.

package gprs_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/datamodem/at"
	"github.com/warthog618/datamodem/gprs"
	"github.com/warthog618/datamodem/gsm"
	"github.com/warthog618/datamodem/trace"
	"go.uber.org/atomic"
)

const (
	cipstart = "AT+CIPSTART=\"UDP\",\"example.com\",\"5000\"\r\n"
	cipsend  = "AT+CIPSEND\r\n"
	payload  = "hello" + string(rune(26))
	cipshut  = "AT+CIPSHUT\r\n"
)

var _ gprs.Channel = (*gsm.GSM)(nil)

func baseCmdSet() map[string][]string {
	return map[string][]string{
		// for init
		string(rune(27)) + "\r\n\r\n": {"\r\n"},
		"ATZ\r\n":                      {"OK\r\n"},
		"ATE0\r\n":                     {"OK\r\n"},
		"AT+GCAP\r\n":                  {"+GCAP: +CGSM,+DS,+ES\r\n", "OK\r\n"},
		"AT+CMEE=1\r\n":                {"OK\r\n"},
		"AT+CGATT=1\r\n":               {"OK\r\n"},
		"AT+CSNS=4\r\n":                {"OK\r\n"},
		// for send
		"AT+CREG?\r\n":  {"+CREG: 0,1\r\n", "OK\r\n"},
		"AT+CGATT?\r\n": {"+CGATT: 1\r\n", "OK\r\n"},
		"AT+CIFSR\r\n":  {"\r\n10.0.0.5\r\n"},
		cipstart:        {"OK\r\n", "\r\nCONNECT OK\r\n"},
		cipsend:         {"> "},
		payload:         {"\r\nSEND OK\r\n"},
		cipshut:         {"SHUT OK\r\n"},
	}
}

func TestModemSendUDP(t *testing.T) {
	patterns := []struct {
		name     string
		key      string
		value    []string
		ok       bool
		payloads int32
		shuts    int32
	}{
		{
			"delivered",
			"",
			nil,
			true,
			1,
			1,
		},
		{
			"no prompt",
			cipsend,
			[]string{"ERROR\r\n"},
			false,
			0,
			0,
		},
		{
			"not acknowledged",
			payload,
			[]string{"\r\nSEND FAIL\r\n", "ERROR\r\n"},
			false,
			1,
			0,
		},
		{
			"rejected",
			cipstart,
			[]string{"OK\r\n", "\r\nCONNECT FAIL\r\n"},
			false,
			0,
			0,
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			cmdSet := baseCmdSet()
			if p.key != "" {
				cmdSet[p.key] = p.value
			}
			g, mm := setupModem(t, cmdSet)
			defer teardownModem(mm)
			m := gprs.New(g,
				gprs.WithAPN(apn),
				gprs.WithPromptTimeout(20*time.Millisecond),
				gprs.WithCommandTimeout(100*time.Millisecond),
			)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := m.Init(ctx)
			require.Nil(t, err)
			ok, err := m.SendUDP(ctx, host, port, "hello")
			assert.Nil(t, err)
			assert.Equal(t, p.ok, ok)
			assert.Equal(t, int32(1), mm.count(cipstart))
			assert.Equal(t, p.payloads, mm.count(payload))
			assert.Equal(t, p.shuts, mm.count(cipshut))
		}
		t.Run(p.name, f)
	}
}

func TestModemClosed(t *testing.T) {
	g, mm := setupModem(t, baseCmdSet())
	m := gprs.New(g, gprs.WithAPN(apn))
	mm.Close()
	<-g.Closed()
	ok, err := m.SendUDP(context.Background(), host, port, "hello")
	assert.ErrorIs(t, err, at.ErrClosed)
	assert.False(t, ok)
	assert.Equal(t, int32(0), mm.count(cipstart))
}

type mockModem struct {
	cmdSet map[string][]string
	// writes of each command in cmdSet
	counts map[string]*atomic.Int32
	mu     sync.Mutex
	closed bool
	// The buffer emulating characters emitted by the modem.
	r chan []byte
}

func (m *mockModem) Read(p []byte) (n int, err error) {
	data, ok := <-m.r
	if data == nil {
		return 0, at.ErrClosed
	}
	copy(p, data) // assumes p is empty
	if !ok {
		return len(data), errors.New("closed with data")
	}
	return len(data), nil
}

func (m *mockModem) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, at.ErrClosed
	}
	if c, ok := m.counts[string(p)]; ok {
		c.Inc()
	}
	v := m.cmdSet[string(p)]
	if len(v) == 0 {
		m.r <- []byte("\r\nERROR\r\n")
	} else {
		for _, l := range v {
			if len(l) == 0 {
				continue
			}
			m.r <- []byte(l)
		}
	}
	return len(p), nil
}

func (m *mockModem) count(cmd string) int32 {
	return m.counts[cmd].Load()
}

func (m *mockModem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.r)
	}
	return nil
}

func setupModem(t *testing.T, cmdSet map[string][]string) (*gsm.GSM, *mockModem) {
	mm := &mockModem{
		cmdSet: cmdSet,
		counts: make(map[string]*atomic.Int32),
		r:      make(chan []byte, 10),
	}
	for k := range cmdSet {
		mm.counts[k] = atomic.NewInt32(0)
	}
	var modem io.ReadWriter = mm
	debug := false // set to true to enable tracing of the flow to the mockModem.
	if debug {
		modem = trace.New(modem)
	}
	g := gsm.New(modem, gsm.WithPollInterval(time.Millisecond))
	require.NotNil(t, g)
	return g, mm
}

func teardownModem(m *mockModem) {
	m.Close()
}
