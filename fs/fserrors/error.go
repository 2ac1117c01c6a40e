// Package fserrors provides errors and error handling
package fserrors

import (
	"context"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Retrier is an optional interface for error as to whether the
// operation should be retried at a high level.
//
// This should be returned from Update or Put methods as required
type Retrier interface {
	error
	Retry() bool
}

// retryError is a type of error
type retryError string

// Error interface
func (r retryError) Error() string {
	return string(r)
}

// Retry interface
func (r retryError) Retry() bool {
	return true
}

// Check interface
var _ Retrier = retryError("")

// RetryErrorf makes an error which indicates it would like to be retried
func RetryErrorf(format string, a ...interface{}) error {
	return retryError(errors.Errorf(format, a...).Error())
}

// wrappedRetryError is an error wrapped so it will satisfy the
// Retrier interface and return true
type wrappedRetryError struct {
	error
}

// Retry interface
func (err wrappedRetryError) Retry() bool {
	return true
}

// Cause returns the underlying error
func (err wrappedRetryError) Cause() error {
	return err.error
}

// Unwrap returns the underlying error
func (err wrappedRetryError) Unwrap() error {
	return err.error
}

// Check interface
var _ Retrier = wrappedRetryError{error(nil)}

// RetryError makes an error which indicates it would like to be retried
func RetryError(err error) error {
	if err == nil {
		err = errors.New("needs retry")
	}
	return wrappedRetryError{err}
}

// IsRetryError returns true if err conforms to the Retry interface
// and calling the Retry method returns true.
func IsRetryError(err error) (isRetry bool) {
	walk(err, func(err error) bool {
		if r, ok := err.(Retrier); ok {
			isRetry = r.Retry()
			return true
		}
		return false
	})
	return isRetry
}

// Fataler is an optional interface for error as to whether the
// operation should cause the entire operation to finish immediately.
type Fataler interface {
	error
	Fatal() bool
}

// wrappedFatalError is an error wrapped so it will satisfy the
// Fataler interface and return true
type wrappedFatalError struct {
	error
}

// Fatal interface
func (err wrappedFatalError) Fatal() bool {
	return true
}

// Cause returns the underlying error
func (err wrappedFatalError) Cause() error {
	return err.error
}

// Unwrap returns the underlying error
func (err wrappedFatalError) Unwrap() error {
	return err.error
}

// Check interface
var _ Fataler = wrappedFatalError{error(nil)}

// FatalError makes an error which indicates it is a fatal error and
// the run should stop.
func FatalError(err error) error {
	if err == nil {
		err = errors.New("fatal error")
	}
	return wrappedFatalError{err}
}

// IsFatalError returns true if err conforms to the Fatal interface
// and calling the Fatal method returns true.
func IsFatalError(err error) (isFatal bool) {
	walk(err, func(err error) bool {
		if r, ok := err.(Fataler); ok {
			isFatal = r.Fatal()
			return true
		}
		return false
	})
	return isFatal
}

// NoRetrier is an optional interface for error as to whether the
// operation should not be retried at a high level.
//
// If only NoRetry errors are returned in a run then the run is not
// retried.
type NoRetrier interface {
	error
	NoRetry() bool
}

// wrappedNoRetryError is an error wrapped so it will satisfy the
// NoRetrier interface and return true
type wrappedNoRetryError struct {
	error
}

// NoRetry interface
func (err wrappedNoRetryError) NoRetry() bool {
	return true
}

// Cause returns the underlying error
func (err wrappedNoRetryError) Cause() error {
	return err.error
}

// Unwrap returns the underlying error
func (err wrappedNoRetryError) Unwrap() error {
	return err.error
}

// Check interface
var _ NoRetrier = wrappedNoRetryError{error(nil)}

// NoRetryError makes an error which indicates the sync shouldn't be
// retried.
func NoRetryError(err error) error {
	return wrappedNoRetryError{err}
}

// IsNoRetryError returns true if err conforms to the NoRetry
// interface and calling the NoRetry method returns true.
func IsNoRetryError(err error) (isNoRetry bool) {
	walk(err, func(err error) bool {
		if r, ok := err.(NoRetrier); ok {
			isNoRetry = r.NoRetry()
			return true
		}
		return false
	})
	return isNoRetry
}

// Authenticater is an optional interface for error as to whether the
// credentials used for the operation were rejected and a new session
// is needed before trying again.
type Authenticater interface {
	error
	Reauthenticate() bool
}

// wrappedAuthError is an error wrapped so it will satisfy the
// Authenticater interface and return true
type wrappedAuthError struct {
	error
}

// Reauthenticate interface
func (err wrappedAuthError) Reauthenticate() bool {
	return true
}

// Cause returns the underlying error
func (err wrappedAuthError) Cause() error {
	return err.error
}

// Unwrap returns the underlying error
func (err wrappedAuthError) Unwrap() error {
	return err.error
}

// Check interface
var _ Authenticater = wrappedAuthError{error(nil)}

// AuthError makes an error which indicates the session was rejected
// and should be re-established.
func AuthError(err error) error {
	if err == nil {
		err = errors.New("authentication needed")
	}
	return wrappedAuthError{err}
}

// IsAuthError returns true if err conforms to the Authenticater
// interface and calling the Reauthenticate method returns true.
func IsAuthError(err error) (isAuth bool) {
	walk(err, func(err error) bool {
		if r, ok := err.(Authenticater); ok {
			isAuth = r.Reauthenticate()
			return true
		}
		return false
	})
	return isAuth
}

// walk calls fn on err and each error it wraps until fn returns
// true or the chain runs out
func walk(err error, fn func(error) bool) {
	for err != nil {
		if fn(err) {
			return
		}
		err = next(err)
	}
}

// next returns the error wrapped by err or nil if there isn't one
func next(err error) error {
	switch e := err.(type) {
	case interface{ Cause() error }:
		return e.Cause()
	case interface{ Unwrap() error }:
		return e.Unwrap()
	}
	return nil
}

// Cause is a souped up errors.Cause which can unwrap some standard
// library errors too.  It returns true if any of the intermediate
// errors had a Temporary() or Timeout() method which returned true.
func Cause(cause error) (retriable bool, err error) {
	walk(cause, func(c error) bool {
		// Check for net error Timeout()
		if x, ok := c.(interface {
			Timeout() bool
		}); ok && x.Timeout() {
			retriable = true
		}

		// Check for net error Temporary()
		if x, ok := c.(interface {
			Temporary() bool
		}); ok && x.Temporary() {
			retriable = true
		}
		err = c
		return false
	})
	return
}

// retriableErrorStrings is a list of phrases which when we find it
// in an error, we know it is a networking error which should be
// retried.
//
// This is incredibly ugly - if only errors.Cause worked for all
// errors and all errors were exported from the stdlib.
var retriableErrorStrings = []string{
	"use of closed network connection", // internal/poll/fd.go
	"unexpected EOF reading trailer",   // net/http/transfer.go
	"transport connection broken",      // net/http/transport.go
	"http: ContentLength=",             // net/http/transfer.go
	"server closed idle connection",    // net/http/transport.go
}

// Errors which indicate networking errors which should be retried
var retriableErrors = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	syscall.ECONNREFUSED,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ECONNABORTED,
	syscall.EAGAIN,
	syscall.EWOULDBLOCK,
	syscall.ECONNRESET,
}

// ShouldRetry looks at an error and tries to judge whether it is
// retriable.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	// If error has been marked to NoRetry then don't retry
	if IsNoRetryError(err) {
		return false
	}

	// Look for premature context cancelation
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Find root cause if available
	retriable, err := Cause(err)
	if retriable {
		return true
	}

	// Check if it is a retriable error
	for _, retriableErr := range retriableErrors {
		if err == retriableErr {
			return true
		}
	}

	// Check error strings (yuch!) too
	errString := err.Error()
	for _, phrase := range retriableErrorStrings {
		if strings.Contains(errString, phrase) {
			return true
		}
	}

	return false
}

// ShouldRetryOrRetryError returns true if err is retriable by the
// heuristics in ShouldRetry or has been explicitly marked with
// RetryError
func ShouldRetryOrRetryError(err error) bool {
	return IsRetryError(err) || ShouldRetry(err)
}
