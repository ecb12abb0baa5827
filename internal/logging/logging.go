/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package logging is a small structured diagnostic logger in the shape of
// Gravwell's ingest/log package: leveled, backed by an io.Writer, and able
// to carry RFC 5424 structured data parameters alongside a message. apathy
// only ever logs to stderr (spec.md §7's "diagnostic stream"), so this drops
// the teacher's multi-writer/relay fan-out and file rotation in favor of a
// single writer, but keeps the same Level/outputStructured shape.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
	"github.com/google/uuid"
)

// Level controls which calls are written.
type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	case FATAL:
		return "FATAL"
	}
	return "OFF"
}

// Logger writes leveled, structured diagnostic lines to a single writer.
// Safe for concurrent use; the Worker Pool may log warnings from multiple
// goroutines.
type Logger struct {
	mtx   sync.Mutex
	wtr   io.Writer
	lvl   Level
	runID string
	app   string
}

// New builds a Logger writing to wtr at level INFO, tagging every line with
// a fresh run identifier so that a user correlating stderr against several
// concurrent invocations can tell them apart.
func New(wtr io.Writer) *Logger {
	return &Logger{
		wtr:   wtr,
		lvl:   INFO,
		runID: uuid.NewString(),
		app:   "apathy",
	}
}

// NewStderr is the common case: diagnostics to os.Stderr.
func NewStderr() *Logger {
	return New(os.Stderr)
}

// SetLevel adjusts the minimum level written.
func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.lvl = lvl
}

// RunID returns the logger's run-correlation identifier.
func (l *Logger) RunID() string {
	return l.runID
}

func (l *Logger) write(lvl Level, msg string, sds ...rfc5424.SDParam) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.lvl == OFF || lvl < l.lvl {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(l.app)
	b.WriteByte('[')
	b.WriteString(lvl.String())
	b.WriteString("] run=")
	b.WriteString(l.runID)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, sd := range sds {
		fmt.Fprintf(&b, " %s=%q", sd.Name, sd.Value)
	}
	b.WriteByte('\n')
	io.WriteString(l.wtr, b.String())
}

// Debug logs at DEBUG.
func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.write(DEBUG, msg, sds...) }

// Info logs at INFO.
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam) { l.write(INFO, msg, sds...) }

// Warn logs at WARN. Used for spec.md §7's non-fatal warnings: missing
// optional fields, ambiguous inference, oversize truncation.
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam) { l.write(WARN, msg, sds...) }

// Error logs at ERROR without exiting.
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.write(ERROR, msg, sds...) }

// Fatal logs at FATAL and exits with code 1, matching spec.md §6's exit-code
// contract for any fatal error.
func (l *Logger) Fatal(msg string, sds ...rfc5424.SDParam) {
	l.FatalCode(1, msg, sds...)
}

// FatalCode is Fatal with an explicit exit code.
func (l *Logger) FatalCode(code int, msg string, sds ...rfc5424.SDParam) {
	l.write(FATAL, msg, sds...)
	os.Exit(code)
}

// SD is a tiny convenience constructor for an RFC 5424 structured-data
// parameter, saving call sites from spelling out the struct literal.
func SD(name, value string) rfc5424.SDParam {
	return rfc5424.SDParam{Name: name, Value: value}
}
