package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind classifies a failed webhook call. Kinds are mutually exclusive.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindConnectionRefused
	KindHTTPStatus
	KindNoResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectionRefused:
		return "connection_refused"
	case KindHTTPStatus:
		return "http_status"
	case KindNoResponse:
		return "no_response"
	default:
		return "other"
	}
}

// Error is the only error type returned by Client.Post.
type Error struct {
	Kind ErrorKind
	// StatusCode and Status are set for KindHTTPStatus.
	StatusCode int
	Status     string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("webhook returned %d %s", e.StatusCode, e.Status)
	case KindConnectionRefused:
		return fmt.Sprintf("webhook endpoint not reachable: %v", e.Err)
	case KindNoResponse:
		return fmt.Sprintf("no response from webhook: %v", e.Err)
	default:
		if e.Err == nil {
			return "webhook call failed"
		}
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the underlying failure text without the kind prefix.
func (e *Error) Message() string {
	if e.Err == nil {
		return e.Error()
	}
	var uerr *url.Error
	if errors.As(e.Err, &uerr) {
		return uerr.Err.Error()
	}
	return e.Err.Error()
}

// classifyTransportError maps an error from http.Client.Do onto a kind.
func classifyTransportError(err error) *Error {
	switch {
	case isUnreachable(err):
		return &Error{Kind: KindConnectionRefused, Err: err}
	case isNoResponse(err):
		return &Error{Kind: KindNoResponse, Err: err}
	default:
		return &Error{Kind: KindOther, Err: err}
	}
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}
	return false
}

func isNoResponse(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
