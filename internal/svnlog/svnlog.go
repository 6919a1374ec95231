// Package svnlog carries the logging and error-handling idiom shared by
// every package in this module: a small panicking-exception mechanism for
// invariant violations that should never happen given a correct driver, and
// an ordinary wrapped-error type, keyed by a stable code, for the failures
// that are an expected part of talking to a network.
package svnlog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Exception classes for the panic/recover pair below. Mirrors the teacher's
// throw/catch idiom: a goroutine may only recover an exception of the class
// it is prepared for, anything else is re-panicked.
const (
	ClassBaton    = "baton"    // baton lifetime / drive-order violation
	ClassInternal = "internal" // "can't happen" invariant failure
)

// Exception is the payload callers pass to panic(); Throw builds one.
type Exception struct {
	Class   string
	Message string
}

func (e *Exception) Error() string { return e.Message }

// Throw builds a classed exception and returns it; it does not panic
// itself, so callers write `panic(svnlog.Throw(...))`, which also tells
// the compiler that no return follows.
func Throw(class, format string, args ...interface{}) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Catch is meant to be called from a deferred recover(). If the recovered
// value is an Exception of the accepted class, it is returned for the
// caller to handle; any other class is re-panicked so it keeps unwinding
// toward a handler that does accept it.
func Catch(accept string, r interface{}) *Exception {
	if r == nil {
		return nil
	}
	if e, ok := r.(*Exception); ok {
		if e.Class == accept {
			return e
		}
	}
	panic(r)
}

// Error codes for CoreError, one per spec taxonomy category.
const (
	CodeArgument     = "argument"
	CodeProtocol     = "protocol"
	CodeAuthz        = "authorization"
	CodeOutOfDate    = "out-of-date"
	CodeConflict     = "conflict"
	CodeLock         = "lock"
	CodeNotFound     = "not-found"
	CodeUnsupported  = "unsupported-feature"
	CodeIO           = "io"
	CodeChecksum     = "checksum-mismatch"
)

// CoreError is the wire-facing error type: every failure that can result
// from a remote peer's behavior (as opposed to our own programming error)
// carries one of these, with a stable Code a caller can switch on and an
// optional wrapped cause.
type CoreError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Errorf builds a CoreError with a formatted message and no cause.
func Errorf(code, format string, args ...interface{}) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a CoreError that chains an underlying cause.
func Wrap(code string, cause error, format string, args ...interface{}) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ChecksumMismatch reports the specific "checksum mismatch" error spec.md
// §4.1 requires, naming both digests.
func ChecksumMismatch(what, expected, actual string) *CoreError {
	return Errorf(CodeChecksum, "%s: expected md5 %s, got %s", what, expected, actual)
}

// Croak logs err at Error level under the given area and returns it
// unchanged, for the common "log the failure and propagate it" callsite
// (the teacher's croak(), generalized from a package-global baton/mask to
// an injected logger and structured fields).
func Croak(logger *logrus.Logger, area string, err error) error {
	if logger != nil && err != nil {
		logger.WithField("area", area).Error(err)
	}
	return err
}

// New returns a logrus.Logger configured the way every long-lived object in
// this module expects to receive one: text formatter, info level by
// default. Callers needing debug output set logger.SetLevel themselves.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}
