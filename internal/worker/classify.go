package worker

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// ErrorClass is the failure taxonomy of spec.md §7, independent of transport.
type ErrorClass string

const (
	ClassValidation         ErrorClass = "VALIDATION"
	ClassNotFound           ErrorClass = "NOT_FOUND"
	ClassNetwork            ErrorClass = "NETWORK"
	ClassTimeout            ErrorClass = "TIMEOUT"
	ClassServer             ErrorClass = "SERVER"
	ClassClient             ErrorClass = "CLIENT"
	ClassUnauthorizedTarget ErrorClass = "UNAUTHORIZED_TARGET"
	ClassPayloadTooLarge    ErrorClass = "PAYLOAD_TOO_LARGE"
	ClassUnknown            ErrorClass = "UNKNOWN"
)

// Retryable reports whether the Queue's outer retry should re-attempt
// delivery for this class (spec.md §7).
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassNetwork, ClassTimeout, ClassServer:
		return true
	default:
		return false
	}
}

// ClassifiedError pairs a failure with its taxonomy class so the caller
// never has to re-derive it from the underlying error.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

func classify(class ErrorClass, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Err: err}
}

// classifyHTTPStatus maps an outbound response status to CLIENT or SERVER.
// Callers only invoke this for status outside [200,300) — spec.md §8's
// boundary cases (199, 300) both land here as non-2xx failures and are
// classified CLIENT since neither reaches the 500 threshold.
func classifyHTTPStatus(status int) ErrorClass {
	if status >= 500 {
		return ClassServer
	}
	return ClassClient
}

// classifyTransportError maps a net/http client error (connection refused,
// DNS failure, deadline exceeded) to NETWORK or TIMEOUT.
func classifyTransportError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ClassTimeout
	}
	return ClassNetwork
}
