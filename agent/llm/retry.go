package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// Retrier decorates a completer with bounded retries. Only upstream
// failures are retried; anything else is the caller's bug and returns
// immediately. Backoff doubles per attempt.
type Retrier struct {
	next     contractx.Completer
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

type RetryOption func(*Retrier)

func WithAttempts(n int) RetryOption {
	return func(r *Retrier) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) RetryOption {
	return func(r *Retrier) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// withSleep replaces the delay function. Tests use it to avoid real
// sleeps.
func withSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *Retrier) { r.sleep = fn }
}

func NewRetrier(next contractx.Completer, opts ...RetryOption) *Retrier {
	r := &Retrier{
		next:     next,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.CompletionResponse, error) {
	var lastErr error
	delay := r.backoff
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, contractx.ErrUpstream) {
			return contractx.CompletionResponse{}, err
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("completion failed upstream, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return contractx.CompletionResponse{}, err
		}
		delay *= 2
	}
	return contractx.CompletionResponse{}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
