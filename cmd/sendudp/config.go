// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the configuration of the modem and APN.
type Config struct {
	// Device is the path to the modem's serial port (e.g. "/dev/ttyUSB0").
	// Empty selects the platform default.
	Device string
	// Baud is the baud rate of the serial port (e.g. 115200).
	Baud int
	// APN is the access point name provided by the carrier.
	APN string
	// APNUser is the username, if any, required by the APN.
	APNUser string
	// APNPass is the password, if any, required by the APN.
	APNPass string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the options in order.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// WithDefaults applies the default configuration.
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.Baud = 115200
		c.LogLevel = "info"
		return nil
	}
}

// WithEnv loads configuration from environment variables.
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if dev := os.Getenv("MODEM_DEVICE"); dev != "" {
			c.Device = dev
		}
		if baud := os.Getenv("MODEM_BAUD"); baud != "" {
			b, err := strconv.Atoi(baud)
			if err != nil {
				return errors.Wrapf(err, "MODEM_BAUD %q", baud)
			}
			c.Baud = b
		}
		if apn := os.Getenv("MODEM_APN"); apn != "" {
			c.APN = apn
		}
		if user := os.Getenv("MODEM_APN_USER"); user != "" {
			c.APNUser = user
		}
		if pass := os.Getenv("MODEM_APN_PASS"); pass != "" {
			c.APNPass = pass
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}
		return nil
	}
}

// WithFlags loads configuration from the command line flags explicitly set
// in the flag set.
func WithFlags(fs *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "d":
				c.Device = f.Value.String()
			case "b":
				b, aerr := strconv.Atoi(f.Value.String())
				if aerr != nil {
					err = errors.Wrapf(aerr, "baud %q", f.Value.String())
					return
				}
				c.Baud = b
			case "apn":
				c.APN = f.Value.String()
			case "apn-user":
				c.APNUser = f.Value.String()
			case "apn-pass":
				c.APNPass = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			}
		})
		return err
	}
}

// Level returns the slog level corresponding to LogLevel.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
