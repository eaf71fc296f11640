package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Failure classes reported in ProbeResult.Error. Timeouts and unreachable
// hosts are not distinguished further by callers.
const (
	ClassTimeout  = "TIMEOUT"
	ClassCanceled = "CANCELED"
	ClassNXDomain = "NXDOMAIN"
	ClassDNS      = "DNS_FAILURE"
	ClassRefused  = "CONNECTION_REFUSED"
	ClassNoRoute  = "NO_ROUTE"
	ClassReset    = "CONNECTION_RESET"
	ClassNetwork  = "NETWORK_ERROR"
)

// Classify turns a transport error into "<CLASS>: <detail>".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	return classOf(err) + ": " + err.Error()
}

func classOf(err error) string {
	var de *net.DNSError
	if errors.As(err, &de) {
		switch {
		case de.IsNotFound:
			return ClassNXDomain
		case de.IsTimeout:
			return ClassTimeout
		default:
			return ClassDNS
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, syscall.ECONNREFUSED):
		return ClassRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return ClassNoRoute
	case errors.Is(err, syscall.ECONNRESET):
		return ClassReset
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ClassTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ClassTimeout
	}
	return ClassNetwork
}
