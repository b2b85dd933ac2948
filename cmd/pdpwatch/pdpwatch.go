// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// pdpwatch watches for the PDP context being deactivated by the network, and
// reports changes in network registration.
//
// This provides an example of using indications, as well as a tool for
// diagnosing carriers that drop the packet data context.
//
// The modem device provided must support notifications, or no deactivations
// will be seen.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/warthog618/datamodem/gsm"
	"github.com/warthog618/datamodem/serial"
	"github.com/warthog618/datamodem/trace"
)

func main() {
	dev := flag.String("d", "", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	period := flag.Duration("p", 10*time.Minute, "period to watch")
	poll := flag.Duration("i", time.Minute, "registration poll interval")
	timeout := flag.Duration("t", 400*time.Millisecond, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	hex := flag.Bool("x", false, "hex dump modem interactions")
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		logger.Error("failed to open modem", "err", err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *hex {
		mio = trace.New(m, trace.WithLogger(logger), trace.WithHexMode())
	} else if *verbose {
		mio = trace.New(m, trace.WithLogger(logger))
	}
	deact := make(chan []string, 1)
	g := gsm.New(mio)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = g.Init(ctx)
	cancel()
	if err != nil {
		logger.Error("init failed", "err", err)
		return
	}
	err = g.AddIndication("+PDP:", func(info []string) {
		select {
		case deact <- info:
		default:
		}
	})
	if err != nil {
		logger.Error("failed to add indication", "err", err)
		return
	}
	ctx, cancel = context.WithTimeout(context.Background(), *period)
	defer cancel()
	go pollRegistration(ctx, logger, g, *poll, *timeout)
	for {
		select {
		case <-ctx.Done():
			logger.Info("exiting...")
			return
		case <-g.Closed():
			logger.Error("modem closed, exiting...")
			return
		case i := <-deact:
			logger.Warn("context deactivated", "info", i)
		}
	}
}

// pollRegistration polls the modem registration status and logs any change.
// This is run in parallel with the indication handling to demonstrate
// separate goroutines interacting with the modem.
func pollRegistration(ctx context.Context, logger *slog.Logger, g *gsm.GSM, poll, timeout time.Duration) {
	var last gsm.RegStatus = -1
	for {
		tctx, tcancel := context.WithTimeout(ctx, timeout)
		stat, err := g.RegistrationStatus(tctx)
		tcancel()
		switch {
		case err != nil:
			logger.Info("registration query failed", "err", err)
		case stat != last:
			logger.Info("registration", "status", stat)
			last = stat
		}
		select {
		case <-time.After(poll):
		case <-ctx.Done():
			return
		}
	}
}
