package netutil

import (
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 10 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 500 * time.Millisecond
)

// ClientOptions tunes BuildHTTPClient. Zero values fall back to defaults.
type ClientOptions struct {
	Timeout time.Duration
	// ResponseHeaderTimeout applies to the default transport only.
	ResponseHeaderTimeout time.Duration
	Retries               int
	Backoff               time.Duration
	// Base replaces the default transport, mainly for tests.
	Base http.RoundTripper
}

// BuildHTTPClient returns an HTTP client for messaging API calls.
// Requests that failed before reaching the server are retried with a fixed
// backoff.
func BuildHTTPClient(opts ClientOptions) *http.Client {
	headerTimeout := opts.ResponseHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = defaultResponseTimeout
	}
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshake,
			ResponseHeaderTimeout: headerTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetryAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &RetryTransport{
			Base:       base,
			MaxRetries: retries,
			Backoff:    backoff,
		},
	}
}

// RetryTransport retries requests whose round trip failed with a
// transient network error. Requests with a body are retried only when
// GetBody is set.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	var (
		resp    *http.Response
		lastErr error
		attempt int
	)
	err := retry.New(
		retry.Attempts(uint(t.MaxRetries+1)),
		retry.Delay(t.Backoff),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(ShouldRetry),
	).Do(func() error {
		attempt++
		curr := req
		if attempt > 1 {
			curr = req.Clone(ctx)
			if req.Body != nil && req.Body != http.NoBody {
				if req.GetBody == nil {
					return retry.Unrecoverable(lastErr)
				}
				body, err := req.GetBody()
				if err != nil {
					return retry.Unrecoverable(err)
				}
				curr.Body = body
			}
		}
		r, err := base.RoundTrip(curr)
		if err != nil {
			lastErr = err
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
