// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package serial_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/datamodem/serial"
)

func TestNewConfig(t *testing.T) {
	def := serial.NewConfig()
	assert.NotEmpty(t, def.Port())
	assert.Equal(t, 115200, def.Baud())

	patterns := []struct {
		name    string
		options []serial.Option
		port    string
		baud    int
	}{
		{
			"port",
			[]serial.Option{serial.WithPort("/dev/gsmmodem")},
			"/dev/gsmmodem",
			115200,
		},
		{
			"baud",
			[]serial.Option{serial.WithBaud(9600)},
			def.Port(),
			9600,
		},
		{
			"empty",
			[]serial.Option{serial.WithPort(""), serial.WithBaud(0)},
			def.Port(),
			115200,
		},
		{
			"all",
			[]serial.Option{
				serial.WithPort("/dev/ttyS1"),
				serial.WithBaud(57600),
				serial.WithReadTimeout(time.Second),
			},
			"/dev/ttyS1",
			57600,
		},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			c := serial.NewConfig(p.options...)
			assert.Equal(t, p.port, c.Port())
			assert.Equal(t, p.baud, c.Baud())
		}
		t.Run(p.name, f)
	}
}

func TestNew(t *testing.T) {
	// bogus path
	m, err := serial.New(serial.WithPort("bogusmodem"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "open bogusmodem")
	assert.Nil(t, m)
}
