package fserrors

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errUseOfClosedNetworkConnection = errors.New("use of closed network connection")

// make a plausible network error with the underlying errno
func makeNetErr(errno syscall.Errno) error {
	return &net.OpError{
		Op:     "write",
		Net:    "tcp",
		Source: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 123},
		Addr:   &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080},
		Err: &os.SyscallError{
			Syscall: "write",
			Err:     errno,
		},
	}
}

type myError struct{}

func (e *myError) Error() string { return "" }

func (e *myError) Temporary() bool { return true }

type errorCause struct {
	e error
}

func (e *errorCause) Error() string { return fmt.Sprintf("%#v", e) }

func (e *errorCause) Cause() error { return e.e }

func TestCause(t *testing.T) {
	e1 := &myError{}
	errPotato := errors.New("potato")

	for i, test := range []struct {
		err           error
		wantRetriable bool
		wantErr       error
	}{
		{nil, false, nil},
		{errPotato, false, errPotato},
		{errors.Wrap(errPotato, "potato"), false, errPotato},
		{fmt.Errorf("potato2: %w", errors.Wrap(errPotato, "potato")), false, errPotato},
		{errUseOfClosedNetworkConnection, false, errUseOfClosedNetworkConnection},
		{makeNetErr(syscall.EAGAIN), true, syscall.EAGAIN},
		{makeNetErr(syscall.Errno(123123123)), false, syscall.Errno(123123123)},
		{e1, true, e1},
		{&errorCause{errPotato}, false, errPotato},
		{RetryError(errPotato), false, errPotato},
	} {
		gotRetriable, gotErr := Cause(test.err)
		what := fmt.Sprintf("test #%d: %v", i, test.err)
		assert.Equal(t, test.wantErr, gotErr, what)
		assert.Equal(t, test.wantRetriable, gotRetriable, what)
	}
}

func TestShouldRetry(t *testing.T) {
	for i, test := range []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("potato"), false},
		{errors.Wrap(errUseOfClosedNetworkConnection, "connection"), true},
		{io.EOF, true},
		{io.ErrUnexpectedEOF, true},
		{makeNetErr(syscall.EAGAIN), true},
		{makeNetErr(syscall.Errno(123123123)), false},
		{&url.Error{Op: "post", URL: "/", Err: io.EOF}, true},
		{&url.Error{Op: "post", URL: "/", Err: errUseOfClosedNetworkConnection}, true},
		{
			errors.Wrap(&url.Error{
				Op:  "post",
				URL: "http://localhost/",
				Err: makeNetErr(syscall.EPIPE),
			}, "potato error"),
			true,
		},
		{
			errors.Wrap(&url.Error{
				Op:  "post",
				URL: "http://localhost/",
				Err: makeNetErr(syscall.Errno(123123123)),
			}, "listing error"),
			false,
		},
		{NoRetryError(io.EOF), false},
		{errors.Wrap(context.Canceled, "listing"), false},
	} {
		got := ShouldRetry(test.err)
		assert.Equal(t, test.want, got, fmt.Sprintf("test #%d: %v", i, test.err))
	}
}

func TestWrappers(t *testing.T) {
	errPotato := errors.New("potato")

	err := errors.Wrap(RetryError(errPotato), "copy")
	assert.True(t, IsRetryError(err))
	assert.False(t, IsFatalError(err))
	assert.True(t, ShouldRetryOrRetryError(err))
	assert.True(t, errors.Is(err, errPotato))

	err = FatalError(errPotato)
	assert.True(t, IsFatalError(err))
	assert.False(t, IsRetryError(err))

	err = errors.Wrap(NoRetryError(errPotato), "mkdir")
	assert.True(t, IsNoRetryError(err))
	assert.False(t, ShouldRetryOrRetryError(err))

	err = AuthError(errPotato)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsAuthError(errPotato))
	assert.Equal(t, "potato", err.Error())

	assert.EqualError(t, RetryError(nil), "needs retry")
	assert.EqualError(t, RetryErrorf("try %d", 2), "try 2")
	assert.False(t, IsRetryError(nil))
}
