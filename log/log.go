// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log exports the logging primitives used throughout zoofs.io.
//
// The package favors a small capability set (Logger) over an inheritance
// hierarchy, with two interchangeable backends selected at Session
// construction — the stdio backend below (the package default) and the
// logrus-backed categorized-appender backend in logrus.go.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

// Logger is the interface for logging messages.
type Logger interface {
	Printf(format string, v ...interface{})
	Print(v ...interface{})
	Println(v ...interface{})
}

// Fields is structured key/value context attached to a record.
type Fields map[string]interface{}

// Level represents the level of logging, ordered from least to most
// verbose, matching the CLI's -d/--logLevel choices.
type Level int

// Levels of logging, in increasing verbosity. DisabledLevel sorts below
// ErrorLevel so that setting it drops every record.
const (
	DisabledLevel Level = iota - 1
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// ExternalLogger describes a backend that processes log records, such as
// the logrus categorized-appender in logrus.go.
type ExternalLogger interface {
	Log(Level, string)
	Flush()
}

// FieldsLogger is implemented by ExternalLogger backends that record
// Fields as structured context. Backends without it, and the stdio
// backend, receive the fields folded into the message text instead.
type FieldsLogger interface {
	LogFields(Level, string, Fields)
}

// The set of package-level loggers, one per level. Callers write
// log.Debug.Printf(...), log.Error.Println(...), and so on.
var (
	Trace   = &logger{TraceLevel}
	Debug   = &logger{DebugLevel}
	Info    = &logger{InfoLevel}
	Warning = &logger{WarningLevel}
	Error   = &logger{ErrorLevel}
)

var (
	currentLevel         = InfoLevel
	defaultLogger Logger = newDefaultLogger(os.Stderr)
	external      ExternalLogger
)

// Register connects an ExternalLogger to the default logger. This may
// only be called once, at Session construction.
func Register(e ExternalLogger) {
	if external != nil {
		panic("log: cannot register second external logger")
	}
	external = e
}

// SetOutput sets the stdio backend's destination. If w is nil, the stdio
// backend is disabled (useful once an ExternalLogger is registered).
func SetOutput(w io.Writer) {
	if w == nil {
		defaultLogger = nil
	} else {
		defaultLogger = newDefaultLogger(w)
	}
}

type logger struct {
	level Level
}

var _ Logger = (*logger)(nil)

func (l *logger) Printf(format string, v ...interface{}) {
	if l.level > currentLevel {
		return
	}
	if external != nil {
		external.Log(l.level, fmt.Sprintf(format, v...))
	}
	if defaultLogger != nil {
		defaultLogger.Printf(format, v...)
	}
}

func (l *logger) Print(v ...interface{}) {
	if l.level > currentLevel {
		return
	}
	if external != nil {
		external.Log(l.level, fmt.Sprint(v...))
	}
	if defaultLogger != nil {
		defaultLogger.Print(v...)
	}
}

func (l *logger) Println(v ...interface{}) {
	if l.level > currentLevel {
		return
	}
	if external != nil {
		external.Log(l.level, fmt.Sprintln(v...))
	}
	if defaultLogger != nil {
		defaultLogger.Println(v...)
	}
}

// PrintFields writes msg with structured context: a FieldsLogger backend
// receives the fields as-is, everything else gets them folded into the
// message text in key-sorted key=value form.
func (l *logger) PrintFields(msg string, fields Fields) {
	if l.level > currentLevel {
		return
	}
	if external != nil {
		if fl, ok := external.(FieldsLogger); ok {
			fl.LogFields(l.level, msg, fields)
		} else {
			external.Log(l.level, msg+fieldsText(fields))
		}
	}
	if defaultLogger != nil {
		defaultLogger.Print(msg + fieldsText(fields))
	}
}

func fieldsText(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// String returns the name of the level this logger writes at.
func (l *logger) String() string {
	return toString(l.level)
}

func toString(level Level) string {
	switch level {
	case ErrorLevel:
		return "ERROR"
	case WarningLevel:
		return "WARNING"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	case TraceLevel:
		return "TRACE"
	case DisabledLevel:
		return "DISABLED"
	}
	return "UNKNOWN"
}

func toLevel(level string) (Level, error) {
	switch level {
	case "ERROR":
		return ErrorLevel, nil
	case "WARNING":
		return WarningLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "DEBUG":
		return DebugLevel, nil
	case "TRACE":
		return TraceLevel, nil
	case "DISABLED":
		return DisabledLevel, nil
	}
	return InfoLevel, fmt.Errorf("log: invalid level %q", level)
}

// GetLevel returns the current logging level's name.
func GetLevel() string {
	return toString(currentLevel)
}

// SetLevel sets the current level of logging. Records at a more verbose
// level than currentLevel are dropped before reaching either backend.
func SetLevel(level string) error {
	l, err := toLevel(level)
	if err != nil {
		return err
	}
	currentLevel = l
	return nil
}

// At reports whether the named level would currently be logged.
func At(level string) bool {
	l, err := toLevel(level)
	if err != nil {
		return false
	}
	return l <= currentLevel
}

func newDefaultLogger(w io.Writer) Logger {
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}
