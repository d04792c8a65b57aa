// Package transport defines the outbound transport contract for the egress
// gateway and provides an HTTP adapter. A transport performs exactly one
// network exchange per attempt; retry and circuit breaking live above it.
package transport

import (
	"context"
)

// Request is the immutable description of one logical outbound call. It is
// constructed by the caller, consumed by the gateway, and never mutated
// after submission.
type Request struct {
	// Method is the protocol operation, e.g. an HTTP method.
	Method string

	// URL is the target endpoint.
	URL string

	// Payload is the request body, nil when there is none.
	Payload []byte

	// Headers are caller-supplied headers.
	Headers map[string]string
}

// Response is the result of a completed exchange.
type Response struct {
	// Status is the upstream status code.
	Status int

	// Data is the response body.
	Data []byte

	// Headers are the upstream response headers.
	Headers map[string]string
}

// Transport performs one network exchange for a single attempt. The context
// carries the per-attempt deadline; implementations must honor it and return
// a timeout error rather than hang. No retry or breaker logic belongs here.
type Transport interface {
	Attempt(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Attempt implements Transport.
func (f Func) Attempt(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
