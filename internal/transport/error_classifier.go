package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ClassifyNetworkError labels a transport-level error for diagnostics
// (log fields only; it never changes the retry Outcome, which is
// decided by ClassifyStatus / timeout detection).
//
// Grounded on the teacher's resilience.classifyError (same
// context/net.DNSError/net.OpError/syscall checks), trimmed to the
// categories relevant to an HTTP send against an analyzer endpoint.
func ClassifyNetworkError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, context.Canceled) {
		return "context_cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED),
			errors.Is(opErr.Err, syscall.ECONNRESET),
			errors.Is(opErr.Err, syscall.ENETUNREACH),
			errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return "network"
		default:
			return "network"
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "i/o timeout"):
		return "timeout"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return "network"
	default:
		return "unknown"
	}
}
