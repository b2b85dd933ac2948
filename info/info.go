// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package info provides utility functions for manipulating info lines returned
// by the modem in response to AT commands.
package info

import "strings"

// HasPrefix returns true if the line begins with the info prefix for the command.
func HasPrefix(line, cmd string) bool {
	return strings.HasPrefix(line, cmd+":")
}

// TrimPrefix removes the command  prefix, if any, and any intervening space
// from the info line.
func TrimPrefix(line, cmd string) string {
	return strings.TrimLeft(strings.TrimPrefix(line, cmd+":"), " ")
}

// Find returns the value of the first info line in lines prefixed by the
// command, and true, or "" and false if no such line exists.
func Find(lines []string, cmd string) (string, bool) {
	for _, l := range lines {
		if HasPrefix(l, cmd) {
			return TrimPrefix(l, cmd), true
		}
	}
	return "", false
}

// Fields splits the value of an info line into its comma separated fields.
//
// Each field is trimmed of surrounding space and double quotes, so
// `+CGDCONT: 1,"IP","internet"` returns ["1", "IP", "internet"] for the
// +CGDCONT command.
func Fields(line, cmd string) []string {
	return Split(TrimPrefix(line, cmd))
}

// Split splits an info value into its comma separated fields, as per Fields.
func Split(v string) []string {
	if v == "" {
		return nil
	}
	fields := strings.Split(v, ",")
	for i, f := range fields {
		fields[i] = Unquote(strings.TrimSpace(f))
	}
	return fields
}

// Unquote removes a pair of surrounding double quotes, if any, from the
// value.
func Unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
