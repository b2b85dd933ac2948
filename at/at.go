// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package at provides a low level driver for AT modems.
package at

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// AT represents a modem that can be managed using AT commands.
//
// Commands can be issued to the modem using the Command and Data methods.
// Where the response to a command does not follow the OK/ERROR pattern, the
// command can be written with Send and the response collected line by line
// with ReadLine.
//
// The AT closes the closed channel when the connection to the underlying
// modem is broken (Read returns EOF).
//
// When closed, all outstanding commands return ErrClosed and the state of the
// underlying modem becomes unknown.
//
// Once closed the AT cannot be re-opened - it must be recreated.
type AT struct {
	// channel for commands issued to the modem
	cmdCh chan func()

	// channel for changes to inds
	indCh chan func()

	// closed when modem is closed
	closed chan struct{}

	// channel for all lines read from the modem
	iLines chan string

	// channel for lines read from the modem after indications removed
	cLines chan string

	// the underlying modem
	modem io.ReadWriter

	// the minimum time between an escape command and the subsequent command
	escTime time.Duration

	// indications mapped by prefix
	inds map[string]indication // only modified in indLoop

	// commands issued by Init.
	initCmds []string

	// lines received while no request was active - only accessed in cmdLoop
	idle []string

	// the maximum number of idle lines held for ReadLine
	idleLines int

	// covers escGuard
	escGuardMu sync.Mutex

	// if not-nil, the time the subsequent command must wait
	escGuard <-chan time.Time
}

// Option is a construction option for an AT.
type Option func(*AT)

// New creates a new AT modem.
func New(modem io.ReadWriter, options ...Option) *AT {
	a := &AT{
		modem:     modem,
		cmdCh:     make(chan func()),
		indCh:     make(chan func()),
		iLines:    make(chan string),
		cLines:    make(chan string),
		closed:    make(chan struct{}),
		escTime:   20 * time.Millisecond,
		inds:      make(map[string]indication),
		idleLines: 16,
	}
	for _, option := range options {
		option(a)
	}
	if a.initCmds == nil {
		a.initCmds = []string{
			"Z",  // reset to factory defaults (also clears the escape from the rx buffer)
			"E0", // disable echo
		}
	}
	go lineReader(a.modem, a.iLines)
	go a.indLoop(a.indCh, a.iLines, a.cLines)
	go a.cmdLoop(a.cmdCh, a.cLines, a.closed)
	return a
}

const (
	sub = 0x1a
	esc = 0x1b
)

// WithEscTime sets the guard time for the modem.
//
// The escape time is the minimum time between an escape command being sent to
// the modem and any subsequent commands.
//
// The default guard time is 20msec.
func WithEscTime(d time.Duration) Option {
	return func(a *AT) {
		a.escTime = d
	}
}

// WithIdleLines sets the number of lines received while idle that are held
// for a subsequent ReadLine.
//
// Once the limit is reached the oldest lines are discarded.
//
// The default is 16.
func WithIdleLines(n int) Option {
	return func(a *AT) {
		a.idleLines = n
	}
}

// InfoHandler receives indication info.
type InfoHandler func([]string)

// WithIndication adds an indication during construction.
func WithIndication(prefix string, handler InfoHandler, options ...IndicationOption) Option {
	ind := newIndication(prefix, handler, options...)
	return func(a *AT) {
		a.inds[prefix] = ind
	}
}

// WithInitCmds specifies the commands issued by Init.
//
// The default commands are ATZ and ATE0.
func WithInitCmds(cmds ...string) Option {
	return func(a *AT) {
		a.initCmds = cmds
	}
}

// CommandOption alters the handling of an individual command.
type CommandOption func(*request)

// WithExpected specifies the status line that indicates successful
// completion of the command, in place of OK.
//
// This is required for commands such as +CIPSHUT, which return SHUT OK, and
// for payloads written by Data, which return SEND OK.
func WithExpected(status string) CommandOption {
	return func(r *request) {
		r.expected = status
	}
}

// Closed returns a channel which will block while the modem is not closed.
func (a *AT) Closed() <-chan struct{} {
	return a.closed
}

// Command issues the command to the modem and returns the result.
//
// The command should NOT include the AT prefix, nor <CR><LF> suffix which is
// automatically added.
//
// The return value includes the info (the lines returned by the modem between
// the command and the status line), or an error if the command did not
// complete successfully.
//
// If the context deadline expires before the status line is received then a
// *TimeoutError is returned containing any lines received up to that point.
func (a *AT) Command(ctx context.Context, cmd string, options ...CommandOption) ([]string, error) {
	req := request{
		wire:  "AT" + cmd + "\r\n",
		cmdID: parseCmdID(cmd),
	}
	for _, option := range options {
		option(&req)
	}
	return a.do(ctx, req)
}

// Data writes data to the modem, terminated by Ctrl-Z, and returns the
// result.
//
// This is the second step of a two step command, such as +CIPSEND, after the
// modem has returned the ">" prompt indicating it is ready to accept data.
//
// The modem then completes the command as per other commands, such as those
// issued by Command.
func (a *AT) Data(ctx context.Context, data string, options ...CommandOption) ([]string, error) {
	req := request{
		wire: data + string(rune(sub)),
		echo: data,
	}
	for _, option := range options {
		option(&req)
	}
	return a.do(ctx, req)
}

// Send writes the command to the modem without waiting for a response.
//
// As with Command, the AT prefix and <CR><LF> suffix are automatically added.
//
// Any lines received while idle are discarded prior to writing the command,
// and the response should be collected using ReadLine.
func (a *AT) Send(ctx context.Context, cmd string) error {
	done := make(chan error)
	cmdf := func() {
		a.waitEscGuard()
		a.idle = nil
		done <- a.write("AT" + cmd + "\r\n")
	}
	select {
	case <-a.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case a.cmdCh <- cmdf:
		return <-done
	}
}

// ReadLine returns the next non-empty line received from the modem.
//
// Lines received since the most recent Command or Send, and not yet read, are
// returned first.
//
// If the context deadline expires before a line is received then a
// *TimeoutError is returned.
func (a *AT) ReadLine(ctx context.Context) (string, error) {
	done := make(chan response)
	cmdf := func() {
		line, err := a.processRead(ctx)
		done <- response{info: []string{line}, err: err}
	}
	select {
	case <-a.closed:
		return "", ErrClosed
	case a.cmdCh <- cmdf:
		rsp := <-done
		return rsp.info[0], rsp.err
	}
}

// AddIndication adds a handler for a set of lines beginning with the prefixed
// line and the following trailing lines.
func (a *AT) AddIndication(prefix string, handler InfoHandler, options ...IndicationOption) (err error) {
	ind := newIndication(prefix, handler, options...)
	errs := make(chan error)
	indf := func() {
		if _, ok := a.inds[ind.prefix]; ok {
			errs <- ErrIndicationExists
			return
		}
		a.inds[ind.prefix] = ind
		close(errs)
	}
	select {
	case <-a.closed:
		err = ErrClosed
	case a.indCh <- indf:
		err = <-errs
	}
	return
}

// CancelIndication removes any indication corresponding to the prefix.
//
// If any such indication exists no further indications will be passed to its
// handler.
func (a *AT) CancelIndication(prefix string) {
	done := make(chan struct{})
	indf := func() {
		delete(a.inds, prefix)
		close(done)
	}
	select {
	case <-a.closed:
	case a.indCh <- indf:
		<-done
	}
}

// Init initialises the modem by escaping any outstanding data commands
// and resetting the modem to factory defaults.
//
// The Init is intended to be called after creation and before any other commands
// are issued in order to get the modem into a known state.
//
// The default init commands can be overridden by the cmds parameter.
func (a *AT) Init(ctx context.Context, cmds ...string) error {
	// escape any outstanding data mode operations then CR to flush the
	// command buffer
	a.escape([]byte("\r\n")...)

	if cmds == nil {
		cmds = a.initCmds
	}
	for _, cmd := range cmds {
		_, err := a.Command(ctx, cmd)
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return err
		default:
			return errors.Wrapf(err, "AT%s returned error", cmd)
		}
	}
	return nil
}

// do passes the request to the cmdLoop and awaits the response.
func (a *AT) do(ctx context.Context, req request) ([]string, error) {
	done := make(chan response)
	cmdf := func() {
		info, err := a.processReq(ctx, req)
		done <- response{info: info, err: err}
	}
	select {
	case <-a.closed:
		return nil, ErrClosed
	case a.cmdCh <- cmdf:
		rsp := <-done
		return rsp.info, rsp.err
	}
}

// cmdLoop is responsible for the interface to the modem.
//
// It serialises the issuing of commands and awaits the responses.
// If no command is pending then any lines received are held in the idle
// buffer, for ReadLine, until the next command is issued.
//
// The cmdLoop terminates when the downstream closes.
func (a *AT) cmdLoop(cmds chan func(), in <-chan string, out chan struct{}) {
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case line, ok := <-in:
			if !ok {
				close(out)
				return
			}
			if line == "" || a.idleLines <= 0 {
				continue
			}
			if len(a.idle) >= a.idleLines {
				a.idle = a.idle[1:]
			}
			a.idle = append(a.idle, line)
		}
	}
}

// lineReader takes lines from m and redirects them to out.
//
// lineReader exits when m closes.
func lineReader(m io.Reader, out chan string) {
	scanner := bufio.NewScanner(m)
	scanner.Split(scanLines)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out) // tell pipeline we're done - end of pipeline will close the AT.
}

// indLoop is responsible for pulling indications from the stream of lines read
// from the modem, and forwarding them to handlers.
//
// Non-indication lines are passed upstream. Indication trailing lines are
// assumed to arrive in a contiguous block immediately after the indication.
//
// indLoop exits when the in channel closes.
func (a *AT) indLoop(cmds chan func(), in <-chan string, out chan string) {
	defer close(out)
nextLine:
	for {
		select {
		case cmd := <-cmds:
			cmd()
		case line, ok := <-in:
			if !ok {
				return
			}
			for prefix, ind := range a.inds {
				if strings.HasPrefix(line, prefix) {
					n := make([]string, ind.lines)
					n[0] = line
					for i := 1; i < ind.lines; i++ {
						t, ok := <-in
						if !ok {
							return
						}
						n[i] = t
					}
					ind.handler(n)
					continue nextLine
				}
			}
			out <- line
		}
	}
}

func (a *AT) processReq(ctx context.Context, req request) (info []string, err error) {
	a.waitEscGuard()
	a.idle = nil
	err = a.write(req.wire)
	if err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			err = newTimeoutError(ctx.Err(), info)
			return
		case line, ok := <-a.cLines:
			if !ok {
				return nil, ErrClosed
			}
			if line == "" || req.isEcho(line) {
				continue
			}
			if req.expected != "" && line == req.expected {
				return
			}
			lt := parseRxLine(line, req.cmdID)
			i, done, perr := processRxLine(lt, line, req)
			if i != nil {
				info = append(info, *i)
			}
			if perr != nil {
				err = perr
				return
			}
			if done {
				return
			}
		}
	}
}

func (a *AT) processRead(ctx context.Context) (string, error) {
	if len(a.idle) > 0 {
		line := a.idle[0]
		a.idle = a.idle[1:]
		return line, nil
	}
	for {
		select {
		case <-ctx.Done():
			return "", newTimeoutError(ctx.Err(), nil)
		case line, ok := <-a.cLines:
			if !ok {
				return "", ErrClosed
			}
			if line == "" {
				continue
			}
			return line, nil
		}
	}
}

// processRxLine parses a line received from the modem and determines how it
// adds to the response for the current command.
//
// The return values are:
//  - a line of info to be added to the response (optional)
//  - a flag indicating if the command is complete.
//  - an error detected while processing the command.
func processRxLine(lt rxl, line string, req request) (info *string, done bool, err error) {
	switch lt {
	case rxlStatusOK:
		if req.expected != "" {
			// not the status the command is waiting for
			info = &line
			return
		}
		done = true
	case rxlStatusError:
		err = newError(line)
	case rxlUnknown, rxlInfo, rxlPrompt:
		info = &line
	case rxlConnect:
		info = &line
		done = true
	case rxlConnectError:
		err = ConnectError(line)
	}
	return
}

// issue an escape command
func (a *AT) escape(b ...byte) {
	cmd := append([]byte(string(rune(esc))+"\r\n"), b...)
	a.modem.Write(cmd)
	a.startEscGuard()
}

// startEscGuard starts a write guard that prevents a subsequent write within
// a short period of time (default 20ms).
func (a *AT) startEscGuard() {
	a.escGuardMu.Lock()
	a.escGuard = time.After(a.escTime)
	a.escGuardMu.Unlock()
}

// waitEscGuard waits for a write guard to allow a write to the modem.
func (a *AT) waitEscGuard() {
	a.escGuardMu.Lock()
	defer a.escGuardMu.Unlock()
	if a.escGuard == nil {
		return
	}
	for {
		select {
		case _, ok := <-a.cLines:
			if !ok {
				return
			}
		case <-a.escGuard:
			a.escGuard = nil
			return
		}
	}
}

func (a *AT) write(wire string) error {
	_, err := a.modem.Write([]byte(wire))
	return err
}

// CMEError indicates a CME Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMEError string

// CMSError indicates a CMS Error was returned by the modem.
//
// The value is the error value, in string form, which may be the numeric or
// textual, depending on the modem configuration.
type CMSError string

// ConnectError indicates an attempt to dial failed.
//
// The value of the error is the failure indication returned by the modem.
type ConnectError string

func (e CMEError) Error() string {
	return string("CME Error: " + e)
}

func (e CMSError) Error() string {
	return string("CMS Error: " + e)
}

func (e ConnectError) Error() string {
	return string("Connect: " + e)
}

// TimeoutError indicates the modem did not complete an operation before the
// context deadline expired.
//
// Pending contains any lines received from the modem before the deadline,
// such as the ">" prompt returned by a command awaiting data.
type TimeoutError struct {
	Pending []string
}

func (e *TimeoutError) Error() string {
	if len(e.Pending) == 0 {
		return "timeout"
	}
	return fmt.Sprintf("timeout with pending %q", strings.Join(e.Pending, "\n"))
}

// Unwrap allows the TimeoutError to be identified as a
// context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// Prompted returns true if the pending data begins with the ">" prompt the
// modem returns when it is ready to accept data.
func (e *TimeoutError) Prompted() bool {
	return len(e.Pending) > 0 && strings.HasPrefix(e.Pending[0], ">")
}

// newTimeoutError converts an expired deadline into a TimeoutError.
// Other context errors, i.e. cancellation, are returned unaltered.
func newTimeoutError(err error, pending []string) error {
	if err != context.DeadlineExceeded {
		return err
	}
	return &TimeoutError{Pending: pending}
}

var (
	// ErrClosed indicates an operation cannot be performed as the modem has
	// been closed.
	ErrClosed = errors.New("closed")

	// ErrError indicates the modem returned a generic AT ERROR in response to
	// an operation.
	ErrError = errors.New("ERROR")

	// ErrIndicationExists indicates there is already a indication registered
	// for a prefix.
	ErrIndicationExists = errors.New("indication exists")
)

// newError parses a line and creates an error corresponding to the content.
func newError(line string) error {
	var err error
	switch {
	case strings.HasPrefix(line, "ERROR"):
		err = ErrError
	case strings.HasPrefix(line, "+CMS ERROR:"):
		err = CMSError(strings.TrimSpace(line[11:]))
	case strings.HasPrefix(line, "+CME ERROR:"):
		err = CMEError(strings.TrimSpace(line[11:]))
	}
	return err
}

// request describes the bytes written to the modem and how the response to
// them is to be collected.
type request struct {
	// the bytes written to the modem
	wire string

	// the command identifier, used to identify info and echo lines
	cmdID string

	// if set, the status line indicating success, in place of OK.
	expected string

	// if set, data that may be echoed by the modem
	echo string
}

// isEcho returns true if the line is the data echoed back by the modem.
func (r request) isEcho(line string) bool {
	if r.echo == "" {
		return false
	}
	return strings.HasPrefix(line, r.echo) &&
		(len(line) == len(r.echo) || line[len(line)-1] == sub)
}

// response represents the result of a request operation performed on the
// modem.
//
// info is the collection of lines returned between the command and the status
// line. err corresponds to any error returned by the modem or while
// interacting with the modem.
type response struct {
	info []string
	err  error
}

// Received line types.
type rxl int

const (
	rxlUnknown rxl = iota
	rxlEchoCmdLine
	rxlInfo
	rxlStatusOK
	rxlStatusError
	rxlAsync
	rxlPrompt
	rxlConnect
	rxlConnectError
)

// indication represents an unsolicited result code (URC) from the modem, such
// as a PDP context deactivation.
//
// Indications are lines prefixed with a particular pattern, and may include a
// number of trailing lines. The matching lines are bundled into a slice and
// sent to the handler.
type indication struct {
	prefix  string
	lines   int
	handler InfoHandler
}

func newIndication(prefix string, handler InfoHandler, options ...IndicationOption) indication {
	ind := indication{
		prefix:  prefix,
		handler: handler,
		lines:   1,
	}
	for _, option := range options {
		option(&ind)
	}
	return ind
}

// IndicationOption alters the behavior of the indication.
type IndicationOption func(*indication)

// WithTrailingLines indicates the indication includes a number of lines after
// the line containing the indication.
func WithTrailingLines(l int) func(*indication) {
	return func(ind *indication) {
		ind.lines = l + 1
	}
}

// WithTrailingLine indicates the indication includes one line after the line
// containing the indication.
var WithTrailingLine = WithTrailingLines(1)

// parseCmdID returns the identifier component of the command.
//
// This is the section prior to any '=' or '?' and is generally, but not
// always, used to prefix info lines corresponding to the command.
func parseCmdID(cmdLine string) string {
	if idx := strings.IndexAny(cmdLine, "=?"); idx != -1 {
		return cmdLine[0:idx]
	}
	return cmdLine
}

// parseRxLine parses a received line and identifies the line type.
func parseRxLine(line string, cmdID string) rxl {
	switch {
	case line == "OK":
		return rxlStatusOK
	case strings.HasPrefix(line, "ERROR"),
		strings.HasPrefix(line, "+CME ERROR:"),
		strings.HasPrefix(line, "+CMS ERROR:"):
		return rxlStatusError
	case strings.HasPrefix(line, cmdID+":"):
		return rxlInfo
	case line == ">":
		return rxlPrompt
	case strings.HasPrefix(line, "AT"+cmdID):
		return rxlEchoCmdLine
	case len(cmdID) == 0 || cmdID[0] != 'D':
		// Short circuit non-ATD commands.
		// Unsolicited lines, such as those following +CIPSTART, are caught
		// here, along with other unidentified lines.
		return rxlUnknown
	case strings.HasPrefix(line, "CONNECT"):
		return rxlConnect
	case line == "BUSY",
		line == "NO ANSWER",
		line == "NO CARRIER",
		line == "NO DIALTONE":
		return rxlConnectError
	default:
		return rxlUnknown
	}
}

// scanLines is a custom line scanner for lineReader that recognises the prompt
// returned by the modem in response to data commands such as +CIPSEND.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	// handle data prompt special case - no CR at prompt
	if len(data) >= 1 && data[0] == '>' {
		i := 1
		// there may be trailing space, so swallow that...
		for ; i < len(data) && data[i] == ' '; i++ {
		}
		return i, data[0:1], nil
	}
	return bufio.ScanLines(data, atEOF)
}
