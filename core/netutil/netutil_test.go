package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	dialTimeout := &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset by peer")}
	readTimeout := &net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}

	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("boom")))
	assert.True(t, ShouldRetry(dial))
	assert.True(t, ShouldRetry(dialTimeout))
	assert.False(t, ShouldRetry(read))
	assert.False(t, ShouldRetry(readTimeout))
	assert.False(t, ShouldRetry(timeoutErr{}))
	assert.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api", Err: dial}))
	assert.False(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api", Err: readTimeout}))
	assert.False(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api", Err: errors.New("tls: bad certificate")}))
	assert.True(t, ShouldRetry(&net.DNSError{Err: "server misbehaving", IsTemporary: true}))
	assert.False(t, ShouldRetry(&net.DNSError{Err: "no such host", IsNotFound: true}))
	assert.False(t, ShouldRetry(&net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", IsNotFound: true}}))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func TestRetryTransportRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if calls.Add(1) < 3 {
			return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return okResponse("ok"), nil
	})
	client := BuildHTTPClient(ClientOptions{Base: base, Retries: 3, Backoff: time.Millisecond})

	resp, err := client.Post("http://example.invalid/v2/bot/message/reply", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`, `{"a":1}`}, bodies)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("tls: handshake failure")
	})
	tr := &RetryTransport{Base: base, MaxRetries: 3, Backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)

	_, err := tr.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryTransportGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	})
	tr := &RetryTransport{Base: base, MaxRetries: 2, Backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)

	_, err := tr.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryTransportHonoursContext(t *testing.T) {
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	})
	tr := &RetryTransport{Base: base, MaxRetries: 5, Backoff: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)

	start := time.Now()
	_, err := tr.RoundTrip(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryTransportDoesNotResendAfterHeaderTimeout(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.ReadAll(r.Body)
		select {
		case <-release:
		case <-time.After(300 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	client := BuildHTTPClient(ClientOptions{
		Base:    &http.Transport{ResponseHeaderTimeout: 50 * time.Millisecond},
		Retries: 3,
		Backoff: time.Millisecond,
	})
	resp, err := client.Post(srv.URL+"/v2/bot/message/push", "application/json", strings.NewReader(`{"to":"U1"}`))
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout awaiting response headers")
	assert.Equal(t, int32(1), hits.Load())
}
