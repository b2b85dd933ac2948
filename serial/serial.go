// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package serial provides a serial port, which provides the io.ReadWriter
// interface, that provides the connection between the at or gsm packages and
// the physical modem.
package serial

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Config contains the configuration of the serial port.
type Config struct {
	port        string
	baud        int
	readTimeout time.Duration
}

// Option modifies the Config used to open the port.
type Option func(*Config)

// New creates a serial port.
//
// This is currently a simple wrapper around tarm serial.
func New(options ...Option) (*serial.Port, error) {
	cfg := NewConfig(options...)
	config := &serial.Config{
		Name:        cfg.port,
		Baud:        cfg.baud,
		ReadTimeout: cfg.readTimeout,
	}
	p, err := serial.OpenPort(config)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.port)
	}
	return p, nil
}

// NewConfig returns the platform default Config modified by the options.
func NewConfig(options ...Option) Config {
	cfg := defaultConfig
	for _, option := range options {
		option(&cfg)
	}
	return cfg
}

// Port returns the name of the port to be opened.
func (c Config) Port() string {
	return c.port
}

// Baud returns the baud rate of the port.
func (c Config) Baud() int {
	return c.baud
}

// WithPort specifies the port to be opened.
//
// An empty port leaves the platform default unchanged.
func WithPort(port string) Option {
	return func(c *Config) {
		if port != "" {
			c.port = port
		}
	}
}

// WithBaud specifies the baud rate of the port.
//
// A zero baud leaves the platform default unchanged.
func WithBaud(baud int) Option {
	return func(c *Config) {
		if baud != 0 {
			c.baud = baud
		}
	}
}

// WithReadTimeout specifies the maximum time a read blocks waiting for data.
//
// The default, zero, blocks indefinitely.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.readTimeout = d
	}
}

// Ports returns the names of the serial ports available on the host.
func Ports() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "list ports")
	}
	return ports, nil
}
