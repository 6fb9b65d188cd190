package llm

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// ErrEmptyResponse indicates the provider answered without content.
var ErrEmptyResponse = errors.New("empty response")

// FailureKind groups backend errors by the hint the user should get.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureConnection
	FailureTimeout
	FailureEmpty
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnection:
		return "connection"
	case FailureTimeout:
		return "timeout"
	case FailureEmpty:
		return "empty"
	default:
		return "other"
	}
}

// Classify maps a provider error to a FailureKind. Timeouts are checked
// before connection errors because a dial timeout is both.
func Classify(err error) FailureKind {
	if errors.Is(err, ErrEmptyResponse) {
		return FailureEmpty
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return FailureConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return FailureConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureConnection
	}
	return FailureOther
}
