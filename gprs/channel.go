// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package gprs

import (
	"context"

	"github.com/warthog618/datamodem/at"
)

//go:generate go tool mockgen -destination=mock_channel_test.go -package=gprs_test . Channel

// Channel is the command channel to the modem.
//
// It is satisfied by *gsm.GSM.
type Channel interface {
	// Init performs the base initialisation of the modem.
	Init(ctx context.Context) error

	// Command issues the command and waits for the status line.
	Command(ctx context.Context, cmd string, options ...at.CommandOption) ([]string, error)

	// Data writes the data, terminated by SUB, and waits for the status line.
	Data(ctx context.Context, data string, options ...at.CommandOption) ([]string, error)

	// Send writes the command without waiting for a response.
	Send(ctx context.Context, cmd string) error

	// ReadLine returns the next line received from the modem.
	ReadLine(ctx context.Context) (string, error)

	// WaitForNetwork blocks until the modem is registered on the network.
	WaitForNetwork(ctx context.Context) error

	// Query issues the command and returns the value of its info line.
	Query(ctx context.Context, cmd string) (string, error)
}
