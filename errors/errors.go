// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used throughout zoofs.io.
package errors

import (
	"bytes"
	"fmt"
	"runtime"

	"zoofs.io/log"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Path is the store path of the node being accessed.
	Path string
	// Op is the operation being performed, usually the name of the
	// FsOps handler (getattr, read, write, ...).
	Op string
	// Kind is the class of error, or Other if its class is unknown or
	// irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to separate nested errors.
var Separator = ":\n\t"

// Kind defines the kind of error this is, mostly for use by systems such as
// FUSE that must act differently depending on the error.
type Kind uint8

// Kinds of errors. These map directly onto the error taxonomy of the
// filesystem operation contracts: AbsenceError, AuthError, NonEmptyError,
// StoreError, ContextError, InvalidRequest, Unsupported and PolicyDenied.
const (
	Other      Kind = iota // Unclassified error.
	Invalid                // Invalid operation for this type of item.
	Permission             // Permission denied (NOT_AUTHENTICATED).
	IO                     // External I/O error, e.g. any other store code.
	Exist                  // Item already exists.
	NotExist               // Item does not exist (NO_NODE).
	IsDir                  // Item is a directory.
	NotDir                 // Item is not a directory.
	NotEmpty               // Directory not empty (NOT_EMPTY).
	Unsupported            // Operation has no POSIX equivalent (e.g. directory rename).
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid operation"
	case Permission:
		return "permission denied"
	case IO:
		return "I/O error"
	case Exist:
		return "item already exists"
	case NotExist:
		return "item does not exist"
	case IsDir:
		return "item is a directory"
	case NotDir:
		return "item is not a directory"
	case NotEmpty:
		return "directory not empty"
	case Unsupported:
		return "operation not supported"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments. The type of each argument
// determines its meaning:
//
//	string
//		The operation, then the path, in that order of first use:
//		the first string sets Op, the second sets Path.
//	errors.Kind
//		The class of error.
//	error
//		The underlying error that triggered this one.
//
// If more than one argument of a given type is presented, only the last
// one is recorded.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	sawOp := false
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if !sawOp {
				e.Op = arg
				sawOp = true
			} else {
				e.Path = arg
			}
		case Kind:
			e.Kind = arg
		case *Error:
			cp := *arg
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Error.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplication so the
	// message won't repeat the same path or kind twice.
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Path != "" {
		b.WriteString(e.Path)
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap allows errors.Is/errors.As from the standard library to see
// through an *Error to its cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only
// this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, or Other
// otherwise.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Other
	}
	if e.Kind != Other {
		return e.Kind
	}
	if e.Err != nil {
		return KindOf(e.Err)
	}
	return Other
}

// Match reports whether err2 matches err1 exactly or is a superset: every
// field present in err1 must match the corresponding field in err2. It is
// intended for tests that only care about some fields of an error.
func Match(err1, err2 error) bool {
	e1, ok := err1.(*Error)
	if !ok {
		return err1 == err2 || (err1 != nil && err2 != nil && err1.Error() == err2.Error())
	}
	e2, ok := err2.(*Error)
	if !ok {
		return false
	}
	if e1.Path != "" && e2.Path != e1.Path {
		return false
	}
	if e1.Op != "" && e2.Op != e1.Op {
		return false
	}
	if e1.Kind != Other && e2.Kind != e1.Kind {
		return false
	}
	if e1.Err != nil {
		if e2.Err == nil {
			return false
		}
		return Match(e1.Err, e2.Err)
	}
	return true
}
