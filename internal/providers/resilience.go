package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/iota-uz/foundry/internal/providers/llmerrors"
	"github.com/iota-uz/foundry/pkg/logx"
)

// RetryableClient wraps an LLMClient, retrying with error-type-specific
// exponential backoff drawn from llmerrors.DefaultRetryConfigs.
type RetryableClient struct {
	client LLMClient
}

// NewRetryableClient wraps client with the default retry policy.
func NewRetryableClient(client LLMClient) *RetryableClient {
	return &RetryableClient{client: client}
}

func (r *RetryableClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			cfg := retryConfigFor(lastErr)
			delay := backoffDelay(attempt, cfg)
			select {
			case <-ctx.Done():
				return CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := r.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		cfg := retryConfigFor(err)
		if attempt >= cfg.MaxRetries {
			break
		}
		logx.Warnf("provider call failed, retrying (attempt %d/%d): %v", attempt+1, cfg.MaxRetries, err)
	}
	return CompletionResponse{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

func retryConfigFor(err error) llmerrors.RetryConfig {
	var classified *llmerrors.Error
	if errors.As(err, &classified) {
		return classified.RetryConfig()
	}
	return llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnknown]
}

func backoffDelay(attempt int, cfg llmerrors.RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay) / 5)) //nolint:gosec
		delay += jitter
	}
	return delay
}

// CircuitState is the classic three-state circuit breaker machine.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// CircuitBreakerConfig bounds the breaker's failure/recovery thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultCircuitBreakerConfig mirrors the ambient-stack's default policy.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{ //nolint:gochecknoglobals
	FailureThreshold: 5,
	SuccessThreshold: 3,
	Timeout:          30 * time.Second,
}

// CircuitBreakerError reports a call rejected because the circuit is open.
type CircuitBreakerError struct {
	State CircuitState
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker is %s", e.State)
}

// CircuitBreakerClient wraps an LLMClient (or any idempotent external
// call reachable through the LLMClient shape) with a circuit breaker.
type CircuitBreakerClient struct {
	client LLMClient
	cfg    CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewCircuitBreakerClient wraps client with cfg's breaker policy.
func NewCircuitBreakerClient(client LLMClient, cfg CircuitBreakerConfig) *CircuitBreakerClient {
	return &CircuitBreakerClient{client: client, cfg: cfg, state: CircuitClosed}
}

func (cb *CircuitBreakerClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := cb.allow(); err != nil {
		return CompletionResponse{}, err
	}
	resp, err := cb.client.Complete(ctx, req)
	cb.record(err == nil)
	return resp, err
}

func (cb *CircuitBreakerClient) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailureTime) > cb.cfg.Timeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
		} else {
			return &CircuitBreakerError{State: CircuitOpen}
		}
	}
	return nil
}

func (cb *CircuitBreakerClient) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.failureCount = 0
		if cb.state == CircuitHalfOpen {
			cb.successCount++
			if cb.successCount >= cb.cfg.SuccessThreshold {
				cb.state = CircuitClosed
			}
		}
		return
	}

	cb.lastFailureTime = time.Now()
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}
	cb.failureCount++
	if cb.failureCount >= cb.cfg.FailureThreshold {
		cb.state = CircuitOpen
	}
}

// ResilientClient composes a circuit breaker (inner) with retry (outer):
// retries see a fast rejection once the breaker trips, instead of paying
// full backoff delays against a known-down backend.
func ResilientClient(client LLMClient, retry bool, breaker CircuitBreakerConfig) LLMClient {
	wrapped := LLMClient(NewCircuitBreakerClient(client, breaker))
	if retry {
		wrapped = NewRetryableClient(wrapped)
	}
	return wrapped
}
