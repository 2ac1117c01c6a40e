// Package fshttp contains the common http parts of the config, Transport and Client
package fshttp

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/rclone/drivedup/fs"
	"golang.org/x/time/rate"
)

const (
	separatorReq  = ">>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>>"
	separatorResp = "<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<"
)

// A net.Conn that sets a deadline for every Read or Write operation
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

// create a timeoutConn using the timeout
func newTimeoutConn(conn net.Conn, timeout time.Duration) (c *timeoutConn, err error) {
	c = &timeoutConn{
		Conn:    conn,
		timeout: timeout,
	}
	err = c.nudgeDeadline()
	return
}

// Nudge the deadline for an idle timeout on by c.timeout if non-zero
func (c *timeoutConn) nudgeDeadline() (err error) {
	if c.timeout == 0 {
		return nil
	}
	return c.Conn.SetDeadline(time.Now().Add(c.timeout))
}

// Read bytes doing idle timeouts
func (c *timeoutConn) Read(b []byte) (n int, err error) {
	n, err = c.Conn.Read(b)
	if n > 0 && err == nil {
		err = c.nudgeDeadline()
	}
	return n, err
}

// Write bytes doing idle timeouts
func (c *timeoutConn) Write(b []byte) (n int, err error) {
	n, err = c.Conn.Write(b)
	if n > 0 && err == nil {
		err = c.nudgeDeadline()
	}
	return n, err
}

// newLimiter returns the transaction limiter for --tpslimit or nil
func newLimiter(ci *fs.ConfigInfo) *rate.Limiter {
	if ci.TPSLimit <= 0 {
		return nil
	}
	burst := ci.TPSLimitBurst
	if burst < 1 {
		burst = 1
	}
	fs.Infof(nil, "Starting HTTP transaction limiter: max %g transactions/s with burst %d", ci.TPSLimit, burst)
	return rate.NewLimiter(rate.Limit(ci.TPSLimit), burst)
}

// Transport is our http Transport which wraps an http.Transport
//   - Sets the User Agent
//   - Limits the transactions per second
//   - Does logging
//   - Counts the responses in DefaultMetrics
type Transport struct {
	*http.Transport
	userAgent string
	limiter   *rate.Limiter
	metrics   *Metrics
	dumpAny   bool
	dumpBody  bool
	dumpAuth  bool
}

// NewTransport returns a Transport configured from the config in ctx
func NewTransport(ctx context.Context) *Transport {
	ci := fs.GetConfig(ctx)
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = http.ProxyFromEnvironment
	t.TLSHandshakeTimeout = ci.ConnectTimeout
	t.ResponseHeaderTimeout = ci.Timeout
	t.IdleConnTimeout = 60 * time.Second
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{
			Timeout:   ci.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}
		c, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return c, err
		}
		return newTimeoutConn(c, ci.Timeout)
	}
	return &Transport{
		Transport: t,
		userAgent: ci.UserAgent,
		limiter:   newLimiter(ci),
		metrics:   DefaultMetrics,
		dumpAny:   ci.DumpHeaders || ci.DumpBodies || ci.DumpAuth,
		dumpBody:  ci.DumpBodies,
		dumpAuth:  ci.DumpAuth,
	}
}

// NewClient returns an http.Client with the correct timeouts
func NewClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: NewTransport(ctx),
	}
}

// cleanAuth masks the value of the header starting authBuf within
// the first 4k of buf
func cleanAuth(buf, authBuf []byte) []byte {
	n := 4096
	if len(buf) < n {
		n = len(buf)
	}
	i := bytes.Index(buf[:n], authBuf)
	if i < 0 {
		return buf
	}
	i += len(authBuf)
	for j := 0; i < len(buf) && j < 4; j++ {
		if buf[i] == '\n' {
			break
		}
		buf[i] = 'X'
		i++
	}
	j := bytes.IndexByte(buf[i:], '\n')
	if j < 0 {
		return buf[:i]
	}
	n = copy(buf[i:], buf[i+j:])
	return buf[:i+n]
}

var authBufs = [][]byte{
	[]byte("Authorization: "),
	[]byte("X-Goog-Api-Key: "),
}

// cleanAuths gets rid of all the possible Auth headers
func cleanAuths(buf []byte) []byte {
	for _, authBuf := range authBufs {
		buf = cleanAuth(buf, authBuf)
	}
	return buf
}

// RoundTrip implements the RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if t.limiter != nil {
		if err = t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", t.userAgent)
	if t.dumpAny {
		buf, _ := httputil.DumpRequestOut(req, t.dumpBody)
		if !t.dumpAuth {
			buf = cleanAuths(buf)
		}
		fs.Debugf(nil, "%s", separatorReq)
		fs.Debugf(nil, "%s (req %p)", "HTTP REQUEST", req)
		fs.Debugf(nil, "%s", string(buf))
		fs.Debugf(nil, "%s", separatorReq)
	}
	resp, err = t.Transport.RoundTrip(req)
	if t.dumpAny {
		fs.Debugf(nil, "%s", separatorResp)
		fs.Debugf(nil, "%s (req %p)", "HTTP RESPONSE", req)
		if err != nil {
			fs.Debugf(nil, "Error: %v", err)
		} else {
			buf, _ := httputil.DumpResponse(resp, t.dumpBody)
			fs.Debugf(nil, "%s", string(buf))
		}
		fs.Debugf(nil, "%s", separatorResp)
	}
	t.metrics.onResponse(req, resp)
	return resp, err
}
