// Package netutil holds network error helpers shared by the Telegram transport.
package netutil

import (
	"errors"
	"net"
)

type temporary interface{ Temporary() bool }

// ShouldRetry reports whether err is a transient transport failure: a timeout,
// a failed dial or an error flagged temporary. API-level errors never retry.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return true
		}
		if t, ok := opErr.Err.(temporary); ok && t.Temporary() {
			return true
		}
	}

	var t temporary
	return errors.As(err, &t) && t.Temporary()
}
