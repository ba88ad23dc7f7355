package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// DownstreamError classifies calls to identity, template, and transport
// services as transient or permanent.
type DownstreamError struct {
	Target     string
	StatusCode int
	Message    string
	Transient  bool
	NotFound   bool
	Cause      error
}

func (e *DownstreamError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	if target := strings.TrimSpace(e.Target); target != "" {
		parts = append(parts, fmt.Sprintf("%s error", target))
	} else {
		parts = append(parts, "downstream error")
	}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *DownstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var downstreamErr *DownstreamError
	if errors.As(err, &downstreamErr) {
		return downstreamErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}

	return false
}

// IsNotFound reports whether the downstream service structurally reported
// that the resource does not exist, which can never succeed on retry.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var downstreamErr *DownstreamError
	if errors.As(err, &downstreamErr) {
		return downstreamErr.NotFound
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}
