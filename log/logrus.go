// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"github.com/sirupsen/logrus"
)

// CategorizedAppender is an ExternalLogger backed by logrus, grounded on
// the logrus.WithFields call shape used by the reference ZooKeeper FUSE
// adapters: every record carries a "category" field (the component that
// produced it — session, fsops, symlinks, ...) instead of being folded
// into the formatted message text. Select it at Session construction with
// --logFormat=structured; the stdio backend remains the default.
type CategorizedAppender struct {
	entry *logrus.Entry
}

// NewCategorizedAppender builds a CategorizedAppender tagging every record
// with category as a structured field.
func NewCategorizedAppender(logger *logrus.Logger, category string) *CategorizedAppender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CategorizedAppender{entry: logger.WithField("category", category)}
}

// Log implements ExternalLogger.
func (c *CategorizedAppender) Log(level Level, msg string) {
	emit(c.entry, level, msg)
}

// LogFields implements FieldsLogger: the fields land as logrus structured
// fields alongside the category tag, the way each FsOps handler call
// carries its operation and store path.
func (c *CategorizedAppender) LogFields(level Level, msg string, fields Fields) {
	emit(c.entry.WithFields(logrus.Fields(fields)), level, msg)
}

func emit(entry *logrus.Entry, level Level, msg string) {
	switch level {
	case ErrorLevel:
		entry.Error(msg)
	case WarningLevel:
		entry.Warn(msg)
	case InfoLevel:
		entry.Info(msg)
	case DebugLevel:
		entry.Debug(msg)
	case TraceLevel:
		entry.Trace(msg)
	default:
		entry.Info(msg)
	}
}

// Flush implements ExternalLogger. logrus writes synchronously, so there
// is nothing to flush, but the hook point is kept so callers can swap in a
// buffered logrus.Hook-based appender without changing call sites.
func (c *CategorizedAppender) Flush() {}

var (
	_ ExternalLogger = (*CategorizedAppender)(nil)
	_ FieldsLogger   = (*CategorizedAppender)(nil)
)
