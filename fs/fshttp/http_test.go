package fshttp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rclone/drivedup/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAuth(t *testing.T) {
	for _, test := range []struct {
		in   string
		want string
	}{
		{"", ""},
		{"floo", "floo"},
		{"Authorization: ", "Authorization: "},
		{"Authorization: \n", "Authorization: \n"},
		{"Authorization: A", "Authorization: X"},
		{"Authorization: AAAA\n", "Authorization: XXXX\n"},
		{"Authorization: AAAAA", "Authorization: XXXX"},
		{"Authorization: Bearer ya29.token\nAccept: */*\n", "Authorization: XXXX\nAccept: */*\n"},
		{"Host: x\nAuthorization: Bearer ya29.token\nAccept: */*\n", "Host: x\nAuthorization: XXXX\nAccept: */*\n"},
	} {
		got := string(cleanAuth([]byte(test.in), authBufs[0]))
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestCleanAuths(t *testing.T) {
	in := "X-Goog-Api-Key: AAAAAAAAA\nAuthorization: AAAAAAAAA\nAccept: */*\n"
	want := "X-Goog-Api-Key: XXXX\nAuthorization: XXXX\nAccept: */*\n"
	assert.Equal(t, want, string(cleanAuths([]byte(in))))
}

func TestTransport(t *testing.T) {
	var gotAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprintln(w, "ok")
	}))
	defer ts.Close()

	oldMetrics := DefaultMetrics
	DefaultMetrics = NewMetrics("test")
	defer func() { DefaultMetrics = oldMetrics }()

	ctx, ci := fs.AddConfig(context.Background())
	ci.UserAgent = "drivedup/test"
	ci.DumpHeaders = true
	client := NewClient(ctx)

	resp, err := client.Get(ts.URL + "/ok")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	resp, err = client.Get(ts.URL + "/missing")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "drivedup/test", gotAgent)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.StatusCode.WithLabelValues(u.Host, "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.StatusCode.WithLabelValues(u.Host, "GET", "404")))
	assert.Len(t, DefaultMetrics.Collectors(), 1)
}

func TestTransportLimiter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	ctx, ci := fs.AddConfig(context.Background())
	ci.TPSLimit = 20
	ci.TPSLimitBurst = 1
	client := NewClient(ctx)

	start := time.Now()
	for i := 0; i < 5; i++ {
		resp, err := client.Get(ts.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestTransportLimiterCancelled(t *testing.T) {
	ctx, ci := fs.AddConfig(context.Background())
	ci.TPSLimit = 0.001
	tr := NewTransport(ctx)
	require.NotNil(t, tr.limiter)
	require.True(t, tr.limiter.Allow())

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(cctx, "GET", "http://127.0.0.1:1/", nil)
	require.NoError(t, err)
	_, err = tr.RoundTrip(req)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.Nil(t, m.Collectors())
	m.onResponse(&http.Request{URL: &url.URL{Host: "x"}}, nil)
}
