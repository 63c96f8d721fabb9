// Package diag provides the station firmware's structured diagnostic log.
//
// It is the firmware analogue of the teacher's pkg/log: leveled,
// component-prefixed, structured-field logging. Unlike the host-side
// original it has no JSON/color output modes — the only consumer is the
// USB-CDC debug console or a flash-backed ring buffer, both plain text.
// Each record is written synchronously to the sink's writer while
// holding the sink's mutex.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a diagnostic record.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fields is a set of structured key/value attributes attached to a record.
type Fields map[string]interface{}

// ParseLevel maps a -loglevel flag value to a Level, defaulting to Info
// for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Logger is a per-component diagnostic sink. The zero value is not usable;
// obtain one with Sink.With.
type Logger struct {
	mu        *sync.Mutex
	out       io.Writer
	component string
	level     Level
	now       func() time.Time
}

// Sink is shared mutable state behind every component Logger returned by
// With — all components serialize onto the same writer.
type Sink struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	now   func() time.Time
}

// NewSink creates a diagnostic sink writing to out, filtering below level.
func NewSink(out io.Writer, level Level) *Sink {
	if out == nil {
		out = os.Stderr
	}
	return &Sink{out: out, level: level, now: time.Now}
}

// With returns a Logger scoped to a firmware component ("phase", "power",
// "persist", "hwbus", ...).
func (s *Sink) With(component string) *Logger {
	return &Logger{mu: &s.mu, out: s.out, component: component, level: s.level, now: s.now}
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%s] %s", l.now().Format("15:04:05.000"), level, l.component, msg)
	if len(fields) > 0 {
		for k, v := range fields {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func (l *Logger) Debug(msg string, fields Fields) { l.log(Debug, msg, fields) }
func (l *Logger) Info(msg string, fields Fields)  { l.log(Info, msg, fields) }
func (l *Logger) Warn(msg string, fields Fields)  { l.log(Warn, msg, fields) }
func (l *Logger) Error(msg string, fields Fields) { l.log(Error, msg, fields) }

// Errorf logs an error value at Error level with a "err" field.
func (l *Logger) Errorf(msg string, err error) {
	l.log(Error, msg, Fields{"err": err})
}
