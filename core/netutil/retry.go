// Package netutil holds the outbound HTTP plumbing shared by the LINE and
// Telegram transports.
package netutil

import (
	"errors"
	"net"
)

// ShouldRetry reports whether a failed round trip can be safely repeated.
// Only failures that happen before the request leaves the client qualify:
// dial errors and temporary DNS lookups. Read and response timeouts are never
// retried because the platform may already have acted on the request, and
// HTTP status codes are never retried because reply tokens are single-use.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
