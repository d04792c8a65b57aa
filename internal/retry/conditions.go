package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Condition decides whether a failed attempt should be retried.
type Condition interface {
	// ShouldRetry returns true if the attempt should be retried, given the
	// attempt error (nil when a response was received) and the upstream
	// status code (0 when none).
	ShouldRetry(err error, statusCode int) bool
}

// DefaultConditions returns the default condition set: connectivity errors,
// timeouts, and failure-like upstream statuses (5xx and 429).
func DefaultConditions() []Condition {
	return []Condition{
		OnNetworkErrors(),
		OnTimeout(),
		On5xx(),
		OnStatusCodes(429),
	}
}

// StatusCodeCondition retries on specific upstream status codes.
type StatusCodeCondition struct {
	codes map[int]bool
}

// OnStatusCodes creates a condition that retries on specific status codes.
func OnStatusCodes(statusCodes ...int) *StatusCodeCondition {
	codeMap := make(map[int]bool)
	for _, code := range statusCodes {
		codeMap[code] = true
	}
	return &StatusCodeCondition{codes: codeMap}
}

// ShouldRetry implements Condition.
func (c *StatusCodeCondition) ShouldRetry(err error, statusCode int) bool {
	return c.codes[statusCode]
}

// FiveXXCondition retries on 5xx status codes.
type FiveXXCondition struct{}

// On5xx creates a condition that retries on 5xx status codes.
func On5xx() *FiveXXCondition {
	return &FiveXXCondition{}
}

// ShouldRetry implements Condition.
func (c *FiveXXCondition) ShouldRetry(err error, statusCode int) bool {
	return statusCode >= 500 && statusCode < 600
}

// NetworkErrorCondition retries on connection-level errors.
type NetworkErrorCondition struct{}

// OnNetworkErrors creates a condition that retries on network errors.
func OnNetworkErrors() *NetworkErrorCondition {
	return &NetworkErrorCondition{}
}

// ShouldRetry implements Condition.
func (c *NetworkErrorCondition) ShouldRetry(err error, statusCode int) bool {
	if err == nil {
		return false
	}

	// Caller cancellation is never retryable.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// TimeoutCondition retries on deadline-exceeded errors.
type TimeoutCondition struct{}

// OnTimeout creates a condition that retries on timeout errors.
func OnTimeout() *TimeoutCondition {
	return &TimeoutCondition{}
}

// ShouldRetry implements Condition.
func (c *TimeoutCondition) ShouldRetry(err error, statusCode int) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	return false
}

// GRPCStatusCondition retries on specific gRPC status codes, for transports
// that speak gRPC instead of HTTP.
type GRPCStatusCondition struct {
	codes map[codes.Code]bool
}

// OnGRPCCodes creates a condition that retries on specific gRPC codes.
func OnGRPCCodes(grpcCodes ...codes.Code) *GRPCStatusCondition {
	codeMap := make(map[codes.Code]bool)
	for _, code := range grpcCodes {
		codeMap[code] = true
	}
	return &GRPCStatusCondition{codes: codeMap}
}

// RetryableGRPCCodes returns common retryable gRPC status codes.
func RetryableGRPCCodes() *GRPCStatusCondition {
	return OnGRPCCodes(
		codes.Unavailable,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.DeadlineExceeded,
	)
}

// ShouldRetry implements Condition.
func (c *GRPCStatusCondition) ShouldRetry(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return c.codes[st.Code()]
}

// CompositeCondition combines multiple conditions with OR logic.
type CompositeCondition struct {
	conditions []Condition
}

// OnAny creates a condition that retries if any of the conditions match.
func OnAny(conditions ...Condition) *CompositeCondition {
	return &CompositeCondition{conditions: conditions}
}

// ShouldRetry implements Condition.
func (c *CompositeCondition) ShouldRetry(err error, statusCode int) bool {
	for _, condition := range c.conditions {
		if condition.ShouldRetry(err, statusCode) {
			return true
		}
	}
	return false
}

// NeverCondition never retries.
type NeverCondition struct{}

// Never creates a condition that never retries.
func Never() *NeverCondition {
	return &NeverCondition{}
}

// ShouldRetry implements Condition.
func (c *NeverCondition) ShouldRetry(err error, statusCode int) bool {
	return false
}
