// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// sendudp sends a UDP datagram via a GPRS modem.
//
// This serves as an example of how to bring up a GPRS connection and send
// data, as well as a test that the library works with the modem.
//
// The modem and APN may be configured via environment variables
// (MODEM_DEVICE, MODEM_BAUD, MODEM_APN, MODEM_APN_USER, MODEM_APN_PASS and
// LOG_LEVEL), which are overridden by the corresponding flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/warthog618/datamodem/gprs"
	"github.com/warthog618/datamodem/gsm"
	"github.com/warthog618/datamodem/serial"
	"github.com/warthog618/datamodem/trace"
)

var version = "undefined"

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.String("d", "", "path to modem device")
	fs.Int("b", 115200, "baud rate")
	fs.String("apn", "", "access point name")
	fs.String("apn-user", "", "APN username")
	fs.String("apn-pass", "", "APN password")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	host := fs.String("host", "", "destination host")
	port := fs.Int("port", 0, "destination port")
	timeout := fs.Duration("t", 5*time.Minute, "overall timeout")
	verbose := fs.Bool("v", false, "log modem interactions")
	hex := fs.Bool("x", false, "hex dump modem interactions")
	list := fs.Bool("l", false, "list serial ports and exit")
	vsn := fs.Bool("version", false, "report version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] -host <host> -port <port> <payload>\n", os.Args[0])
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	if *list {
		listPorts()
		return
	}
	cfg, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fs))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	payload := strings.Join(fs.Args(), " ")
	if *host == "" || *port == 0 || payload == "" {
		fs.Usage()
		os.Exit(2)
	}

	p, err := serial.New(serial.WithPort(cfg.Device), serial.WithBaud(cfg.Baud))
	if err != nil {
		logger.Error("failed to open modem", "err", err)
		os.Exit(1)
	}
	defer p.Close()
	var mio io.ReadWriter = p
	if *hex {
		mio = trace.New(p, trace.WithLogger(logger), trace.WithHexMode())
	} else if *verbose {
		mio = trace.New(p, trace.WithLogger(logger))
	}
	m := gprs.New(gsm.New(mio), gprs.WithLogger(logger))
	m.DefineAPN(cfg.APN, cfg.APNUser, cfg.APNPass)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := m.Init(ctx); err != nil {
		logger.Error("init failed", "err", err)
		return
	}
	start := time.Now()
	result, err := m.Deliver(ctx, *host, *port, payload)
	if err != nil {
		logger.Error("send failed", "err", err)
		return
	}
	logger.Info("send complete", "result", result, "elapsed", time.Since(start))
	if result != gprs.Ok {
		os.Exit(1)
	}
}

func listPorts() {
	ports, err := serial.Ports()
	if err != nil {
		slog.Error("failed to list ports", "err", err)
		return
	}
	for _, p := range ports {
		fmt.Println(p)
	}
}
