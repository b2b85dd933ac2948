// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package trace provides a decorator for io.ReadWriter that logs all reads
// and writes.
package trace

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
)

// Trace is a trace log on an io.ReadWriter.
//
// All reads and writes are written to the logger.
type Trace struct {
	rw    io.ReadWriter
	l     *slog.Logger
	level slog.Level
	hex   bool
}

// Option modifies a Trace object created by New.
type Option func(*Trace)

// New creates a new trace on the io.ReadWriter.
func New(rw io.ReadWriter, options ...Option) *Trace {
	t := &Trace{
		rw:    rw,
		level: slog.LevelInfo,
	}
	for _, option := range options {
		option(t)
	}
	if t.l == nil {
		t.l = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return t
}

// WithLogger specifies the logger to be used to log trace messages.
//
// By default traces are logged to Stdout.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trace) {
		t.l = l
	}
}

// WithLevel sets the level at which trace messages are logged.
//
// The default is slog.LevelInfo.
func WithLevel(level slog.Level) Option {
	return func(t *Trace) {
		t.level = level
	}
}

// WithHexMode logs the data as hex rather than as a string.
//
// This is useful when the payload contains binary data.
func WithHexMode() Option {
	return func(t *Trace) {
		t.hex = true
	}
}

func (t *Trace) Read(p []byte) (n int, err error) {
	n, err = t.rw.Read(p)
	if n > 0 {
		t.log("r", p[:n])
	}
	return n, err
}

func (t *Trace) Write(p []byte) (n int, err error) {
	n, err = t.rw.Write(p)
	if n > 0 {
		t.log("w", p[:n])
	}
	return n, err
}

func (t *Trace) log(dir string, p []byte) {
	data := string(p)
	if t.hex {
		data = hex.EncodeToString(p)
	}
	t.l.Log(context.Background(), t.level, dir, "data", data)
}
