package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iota-uz/foundry/pkg/config"
	"github.com/iota-uz/foundry/pkg/logx"
	"github.com/iota-uz/foundry/pkg/utils"
)

// estimatePromptTokens approximates the token cost of a completion request
// using tiktoken's GPT-4 encoding as a stand-in for every provider.
func estimatePromptTokens(req CompletionRequest) int {
	var promptText string
	promptText += req.SystemPrompt + "\n"
	for _, m := range req.Messages {
		promptText += m.Content + "\n"
	}
	return utils.CountTokensSimple(promptText)
}

type acquisition struct {
	timestamp time.Time
}

// TokenBucketLimiter rate-limits LLM calls for one provider using a token
// bucket for throughput and a semaphore for concurrency.
type TokenBucketLimiter struct {
	mu sync.Mutex

	provider string

	availableTokens int
	tokensPerRefill int
	maxCapacity     int

	activeRequests int
	maxConcurrency int
	acquisitions   []*acquisition
	releaseTimeout time.Duration
	maxWait        time.Duration

	tokenLimitHits  int64
	concurrencyHits int64
}

// LimiterStats reports a limiter's current state for observability.
type LimiterStats struct {
	Provider        string
	AvailableTokens int
	MaxCapacity     int
	ActiveRequests  int
	MaxConcurrency  int
	TokenLimitHits  int64
	ConcurrencyHits int64
}

// NewTokenBucketLimiter builds a limiter from provider rate-limit policy.
// requestTimeout bounds how long a stale concurrency slot is held before
// being force-released; maxWait bounds how long Acquire will block before
// giving up.
func NewTokenBucketLimiter(provider string, limits config.ProviderLimits, requestTimeout, maxWait time.Duration) *TokenBucketLimiter {
	maxCapacity := int(float64(limits.TokensPerMinute) * config.RateLimitBufferFactor)
	if limits.Burst > 0 && limits.Burst < maxCapacity {
		maxCapacity = limits.Burst
	}

	return &TokenBucketLimiter{
		provider:        provider,
		availableTokens: maxCapacity,
		tokensPerRefill: limits.TokensPerMinute / 10,
		maxCapacity:     maxCapacity,
		maxConcurrency:  limits.MaxConcurrency,
		acquisitions:    make([]*acquisition, 0),
		releaseTimeout:  requestTimeout * 2,
		maxWait:         maxWait,
	}
}

// StartRefillTimer starts a background goroutine refilling the bucket
// every 6 seconds until ctx is cancelled.
func (l *TokenBucketLimiter) StartRefillTimer(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.refill()
			}
		}
	}()
}

// Acquire blocks until tokens are available and a concurrency slot is
// free, or ctx is cancelled, or maxWait elapses. The returned function
// must be called to release the concurrency slot.
func (l *TokenBucketLimiter) Acquire(ctx context.Context, tokens int) (func(), error) {
	firstAttempt := true
	startTime := time.Now()

	for {
		l.mu.Lock()

		if l.activeRequests >= l.maxConcurrency {
			l.cleanStaleAcquisitions()
		}

		hasTokens := l.availableTokens >= tokens
		hasSlot := l.activeRequests < l.maxConcurrency

		if hasTokens && hasSlot {
			l.availableTokens -= tokens
			l.activeRequests++

			acq := &acquisition{timestamp: time.Now()}
			l.acquisitions = append(l.acquisitions, acq)

			release := func() { l.release(acq) }
			l.mu.Unlock()
			return release, nil
		}

		if l.maxWait > 0 && time.Since(startTime) > l.maxWait {
			l.mu.Unlock()
			return nil, fmt.Errorf("rate limit acquisition timeout after %v (requested %d tokens, provider %s)",
				l.maxWait, tokens, l.provider)
		}

		if firstAttempt {
			if !hasTokens {
				l.tokenLimitHits++
				logx.Infof("ratelimit: %s token limit hit, waiting for refill (need %d, have %d)", l.provider, tokens, l.availableTokens)
			}
			if !hasSlot {
				l.concurrencyHits++
				logx.Infof("ratelimit: %s concurrency limit hit (active %d/%d)", l.provider, l.activeRequests, l.maxConcurrency)
			}
			firstAttempt = false
		}

		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
			continue
		}
	}
}

func (l *TokenBucketLimiter) release(acq *acquisition) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, a := range l.acquisitions {
		if a == acq {
			l.acquisitions = append(l.acquisitions[:i], l.acquisitions[i+1:]...)
			break
		}
	}
	l.activeRequests--
}

func (l *TokenBucketLimiter) cleanStaleAcquisitions() {
	now := time.Now()
	cleaned := 0

	valid := make([]*acquisition, 0, len(l.acquisitions))
	for _, acq := range l.acquisitions {
		if now.Sub(acq.timestamp) > l.releaseTimeout {
			cleaned++
			l.activeRequests--
		} else {
			valid = append(valid, acq)
		}
	}
	l.acquisitions = valid

	if cleaned > 0 {
		logx.Warnf("ratelimit: force-released %d stale slots for provider %s", cleaned, l.provider)
	}
}

func (l *TokenBucketLimiter) refill() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.availableTokens += l.tokensPerRefill
	if l.availableTokens > l.maxCapacity {
		l.availableTokens = l.maxCapacity
	}
}

// Stats returns a snapshot of the limiter's current counters.
func (l *TokenBucketLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LimiterStats{
		Provider:        l.provider,
		AvailableTokens: l.availableTokens,
		MaxCapacity:     l.maxCapacity,
		ActiveRequests:  l.activeRequests,
		MaxConcurrency:  l.maxConcurrency,
		TokenLimitHits:  l.tokenLimitHits,
		ConcurrencyHits: l.concurrencyHits,
	}
}

// RateLimitedClient wraps an LLMClient with a TokenBucketLimiter, blocking
// each Complete call until token budget and a concurrency slot are free.
type RateLimitedClient struct {
	client  LLMClient
	limiter *TokenBucketLimiter
}

// NewRateLimitedClient wraps client with limiter.
func NewRateLimitedClient(client LLMClient, limiter *TokenBucketLimiter) *RateLimitedClient {
	return &RateLimitedClient{client: client, limiter: limiter}
}

// Complete acquires rate-limit budget, then delegates to the wrapped client.
func (c *RateLimitedClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	tokens := estimatePromptTokens(req)

	release, err := c.limiter.Acquire(ctx, tokens)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("acquire rate limit: %w", err)
	}
	defer release()

	return c.client.Complete(ctx, req)
}
