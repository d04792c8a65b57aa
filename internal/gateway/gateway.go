// Package gateway orchestrates resilient outbound calls: per-destination
// circuit breaking, bounded retry with exponential backoff, and deadline
// enforcement over a pluggable transport.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avegress/internal/circuitbreaker"
	"github.com/vyrodovalexey/avegress/internal/config"
	"github.com/vyrodovalexey/avegress/internal/observability"
	"github.com/vyrodovalexey/avegress/internal/ratelimit"
	"github.com/vyrodovalexey/avegress/internal/retry"
	"github.com/vyrodovalexey/avegress/internal/timeout"
	"github.com/vyrodovalexey/avegress/internal/transport"
)

// Gateway executes outbound calls with retry, circuit breaking, rate
// limiting, and timeout enforcement. A single Gateway is safe for
// concurrent use; breakers and limiters are shared per destination across
// all calls.
type Gateway struct {
	mu        sync.RWMutex
	config    *config.Config
	transport transport.Transport
	breakers  *circuitbreaker.Registry
	limiter   *ratelimit.PerDestination
	logger    observability.Logger
	tracer    *observability.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithTracer enables span creation per call.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithBreakerRegistry replaces the breaker registry, letting callers share
// breakers across gateways or inject a pre-seeded registry in tests.
func WithBreakerRegistry(registry *circuitbreaker.Registry) Option {
	return func(g *Gateway) {
		g.breakers = registry
	}
}

// WithRateLimiter replaces the per-destination rate limiter.
func WithRateLimiter(limiter *ratelimit.PerDestination) Option {
	return func(g *Gateway) {
		g.limiter = limiter
	}
}

// New creates a Gateway over the given transport. A nil cfg uses defaults.
func New(cfg *config.Config, t transport.Transport, opts ...Option) *Gateway {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Gateway{
		config:    cfg,
		transport: t,
		logger:    observability.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breakers == nil {
		eff := g.resolve(nil)
		bc := eff.breakerConfig
		g.breakers = circuitbreaker.NewRegistry(&bc, g.logger)
	}
	if g.limiter == nil && cfg.RateLimit.Enabled {
		g.limiter = ratelimit.NewPerDestination(ratelimit.Config{
			Enabled: true,
			Rate:    cfg.RateLimit.Rate,
			Burst:   cfg.RateLimit.Burst,
		}, g.logger)
	}
	return g
}

// Breakers returns the breaker registry, for admin surfaces.
func (g *Gateway) Breakers() *circuitbreaker.Registry {
	return g.breakers
}

// UpdateConfig swaps the gateway defaults. In-flight calls keep the
// settings they resolved at start; existing breakers keep their original
// thresholds.
func (g *Gateway) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	g.mu.Lock()
	g.config = cfg
	g.mu.Unlock()
	g.logger.Info("gateway configuration updated")
}

func (g *Gateway) currentConfig() *config.Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.config
}

// Call executes an outbound request and returns the first successful
// response. Failures retry per the resolved policy until the attempt
// budget or the call deadline is exhausted; an open circuit breaker
// rejects the call without invoking the transport. All failures surface
// as a *CallError.
func (g *Gateway) Call(ctx context.Context, req *transport.Request, opts *CallOptions) (*transport.Response, error) {
	start := time.Now()
	eff := g.resolve(opts)
	key := DestinationKey(req.URL)

	callID := uuid.NewString()
	ctx = observability.ContextWithCallID(ctx, callID)
	logger := g.logger.With(
		observability.String("call_id", callID),
		observability.String("destination", key),
	)

	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.Start(ctx, "egress.call",
			trace.WithAttributes(
				attribute.String("egress.destination", key),
				attribute.String("http.method", req.Method),
			))
		defer span.End()
	}

	deadlines := timeout.New(eff.timeout,
		timeout.EffectiveAttempt(eff.timeout, eff.attemptTimeout, eff.breakerEnabled))
	callCtx, cancelCall := deadlines.CallContext(ctx)
	defer cancelCall()

	var breaker *circuitbreaker.CircuitBreaker
	if eff.breakerEnabled {
		bc := eff.breakerConfig
		breaker = g.breakers.GetOrCreateWithConfig(key, &bc)
	}

	fail := func(kind ErrorKind, attempts, status int, cause error) (*transport.Response, error) {
		cerr := newCallError(kind, key, attempts, status, cause)
		recordCall(key, kind.String(), attempts, time.Since(start).Seconds())
		if span != nil {
			span.RecordError(cerr)
			span.SetStatus(otelcodes.Error, kind.String())
		}
		logger.Warn("egress call failed",
			observability.String("kind", kind.String()),
			observability.Int("attempts", attempts),
			observability.Int("status", status),
			observability.Error(cause),
		)
		return nil, cerr
	}

	for attempt := 1; attempt <= eff.policy.MaxAttempts; attempt++ {
		if err := callCtx.Err(); err != nil {
			return fail(interruptKind(ctx), attempt-1, 0, err)
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(callCtx, key); err != nil {
				return fail(interruptKind(ctx), attempt-1, 0, err)
			}
		}

		var permit *circuitbreaker.Permit
		if breaker != nil {
			p, err := breaker.Allow()
			if err != nil {
				// A rejection consumes the attempt and is terminal:
				// retrying against an open breaker would only be
				// rejected again.
				return fail(KindBreakerOpen, attempt, 0, err)
			}
			permit = p
		}

		attemptCtx, cancelAttempt := deadlines.AttemptContext(callCtx)
		resp, err := g.transport.Attempt(attemptCtx, req)
		cancelAttempt()

		if err == nil && !failureStatus(resp.Status) {
			if breaker != nil {
				breaker.RecordOutcome(permit, circuitbreaker.OutcomeSuccess)
			}
			recordCall(key, "success", attempt, time.Since(start).Seconds())
			logger.Debug("egress call succeeded",
				observability.Int("attempt", attempt),
				observability.Int("status", resp.Status),
			)
			return resp, nil
		}

		var (
			outcome    circuitbreaker.Outcome
			kind       ErrorKind
			lastStatus int
			cause      error
		)
		switch {
		case err == nil:
			outcome = circuitbreaker.OutcomeFailure
			kind = KindUpstreamStatus
			lastStatus = resp.Status
			cause = fmt.Errorf("upstream returned status %d", resp.Status)
		case ctx.Err() == context.Canceled:
			// The attempt was abandoned by the caller; it still counts
			// as a timeout sample in the breaker window.
			outcome = circuitbreaker.OutcomeTimeout
			kind = KindCancelled
			cause = err
		case isTimeout(err):
			outcome = circuitbreaker.OutcomeTimeout
			kind = KindTimeout
			cause = err
		default:
			outcome = circuitbreaker.OutcomeFailure
			kind = KindNetwork
			cause = err
		}
		if breaker != nil {
			breaker.RecordOutcome(permit, outcome)
		}

		if kind == KindCancelled {
			return fail(kind, attempt, lastStatus, cause)
		}

		if attempt == eff.policy.MaxAttempts || !eff.policy.IsRetryable(err, lastStatus) {
			return fail(kind, attempt, lastStatus, cause)
		}

		delay := eff.policy.DelayFor(attempt + 1)
		retry.RecordAttempt(key, attempt+1)
		retry.RecordBackoff(key, delay.Seconds())
		logger.Debug("retrying egress call",
			observability.Int("failed_attempt", attempt),
			observability.Int("status", lastStatus),
			observability.Duration("backoff", delay),
			observability.Error(cause),
		)
		select {
		case <-callCtx.Done():
			return fail(interruptKind(ctx), attempt, lastStatus, callCtx.Err())
		case <-time.After(delay):
		}
	}

	// Unreachable: the loop always terminates via success or fail.
	return fail(KindNetwork, eff.policy.MaxAttempts, 0, errors.New("attempt budget exhausted"))
}

// failureStatus reports whether a received response counts as a failed
// attempt: the 5xx class plus 429.
func failureStatus(status int) bool {
	return status >= 500 || status == 429
}

// interruptKind classifies a context interruption: caller cancellation is
// distinct from a deadline firing.
func interruptKind(parent context.Context) ErrorKind {
	if parent.Err() == context.Canceled {
		return KindCancelled
	}
	return KindTimeout
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
