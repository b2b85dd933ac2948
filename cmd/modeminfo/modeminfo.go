// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// modeminfo collects and displays information related to the modem and its
// current packet data configuration.
//
// This serves as an example of how interact with a modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/warthog618/datamodem/gsm"
	"github.com/warthog618/datamodem/serial"
	"github.com/warthog618/datamodem/trace"
)

var version = "undefined"

func main() {
	dev := flag.String("d", "", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	timeout := flag.Duration("t", 400*time.Millisecond, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		logger.Error("failed to open modem", "err", err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m, trace.WithLogger(logger))
	}
	g := gsm.New(mio)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = g.Init(ctx)
	cancel()
	if err != nil {
		logger.Error("init failed", "err", err)
		return
	}
	ctx, cancel = context.WithTimeout(context.Background(), *timeout)
	stat, err := g.RegistrationStatus(ctx)
	cancel()
	if err != nil {
		fmt.Printf("registration: %s\n", err)
	} else {
		fmt.Printf("registration: %s\n", stat)
	}
	cmds := []string{
		"I",
		"+GCAP",
		"+CGMI",
		"+CGMM",
		"+CGMR",
		"+CGSN",
		"+CSQ",
		"+CIMI",
		"+CCID",
		"+CPIN?",
		"+CREG?",
		"+CGREG?",
		"+CGATT?",
		"+CGDCONT?",
		"+CSTT?",
		"+CIPSTATUS",
		"+CIFSR",
		"+CSNS?",
		"+CEER",
	}
	for _, cmd := range cmds {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		info, err := g.Command(ctx, cmd)
		cancel()
		fmt.Println("AT" + cmd)
		if err != nil {
			fmt.Printf(" %s\n", err)
			continue
		}
		for _, l := range info {
			fmt.Printf(" %s\n", l)
		}
	}
}
