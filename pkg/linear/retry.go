package linear

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/metrics"
)

// RetryConfig controls the retry engine. It carries no mutable state.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries uint32 `json:"max_retries" yaml:"max_retries" validate:"lte=20"`
	// InitialDelayMs is the base delay before the first retry.
	InitialDelayMs uint64 `json:"initial_delay_ms" yaml:"initial_delay_ms" validate:"gt=0"`
	// MaxDelayMs caps the exponential delay before jitter.
	MaxDelayMs uint64 `json:"max_delay_ms" yaml:"max_delay_ms" validate:"gtefield=InitialDelayMs"`
	// ExponentialBase is the growth factor per attempt.
	ExponentialBase float64 `json:"exponential_base" yaml:"exponential_base" validate:"gte=1"`
}

// DefaultRetryConfig returns default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      constants.DefaultRetryMax,
		InitialDelayMs:  constants.DefaultRetryInitialDelayMs,
		MaxDelayMs:      constants.DefaultRetryMaxDelayMs,
		ExponentialBase: constants.ExponentialBackoffBase,
	}
}

// Backoff computes jittered exponential delays. Safe for concurrent use.
type Backoff struct {
	config RetryConfig
	mutex  sync.Mutex
	rng    *rand.Rand
}

// NewBackoff creates a backoff policy. A nil source seeds from the clock.
func NewBackoff(config RetryConfig, source rand.Source) *Backoff {
	if source == nil {
		seed := uint64(time.Now().UnixNano())
		source = rand.NewPCG(seed, seed>>1|1)
	}

	return &Backoff{
		config: config,
		rng:    rand.New(source),
	}
}

// BaseDelay returns min(initial * base^attempt, max) before jitter.
func (b *Backoff) BaseDelay(attempt uint32) time.Duration {
	return time.Duration(b.baseMillis(attempt) * float64(time.Millisecond))
}

func (b *Backoff) baseMillis(attempt uint32) float64 {
	millis := float64(b.config.InitialDelayMs) * math.Pow(b.config.ExponentialBase, float64(attempt))

	maxMillis := float64(b.config.MaxDelayMs)
	if math.IsInf(millis, 0) || math.IsNaN(millis) || millis > maxMillis {
		return maxMillis
	}

	return millis
}

// DelayForAttempt returns how long to wait before the next attempt. A server
// supplied retryAfter is returned verbatim.
func (b *Backoff) DelayForAttempt(attempt uint32, retryAfter *time.Duration) time.Duration {
	if retryAfter != nil {
		return *retryAfter
	}

	base := b.baseMillis(attempt)

	b.mutex.Lock()
	unit := b.rng.Float64()
	b.mutex.Unlock()

	jitter := base * constants.BackoffJitterFraction * (2*unit - 1)

	delay := base + jitter
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay * float64(time.Millisecond))
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs operations under a RetryConfig.
type Retrier struct {
	config  RetryConfig
	backoff *Backoff
	logger  Logger
	sleep   Sleeper
	metrics *metrics.Collector
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithRetryLogger sets the diagnostic logger used to announce retries.
func WithRetryLogger(logger Logger) RetrierOption {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSleeper replaces the timer-based sleep.
func WithSleeper(sleep Sleeper) RetrierOption {
	return func(r *Retrier) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithBackoffSource seeds the jitter RNG.
func WithBackoffSource(source rand.Source) RetrierOption {
	return func(r *Retrier) {
		r.backoff = NewBackoff(r.config, source)
	}
}

// WithRetryMetrics records scheduled retries.
func WithRetryMetrics(collector *metrics.Collector) RetrierOption {
	return func(r *Retrier) {
		r.metrics = collector
	}
}

// NewRetrier creates a retrier.
func NewRetrier(config RetryConfig, opts ...RetrierOption) *Retrier {
	retrier := &Retrier{
		config:  config,
		backoff: NewBackoff(config, nil),
		logger:  NopLogger{},
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		opt(retrier)
	}

	return retrier
}

// Config returns the retry configuration.
func (r *Retrier) Config() RetryConfig {
	return r.config
}

// Do runs op under the retry policy.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := WithRetry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

// WithRetry invokes op until it succeeds, fails with a non-retryable error, or
// the attempt budget is spent. The last error is returned unchanged.
func WithRetry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := uint32(0); ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var retryable Retryable
		if attempt >= r.config.MaxRetries || !errors.As(err, &retryable) || !retryable.IsRetryable() {
			return zero, err
		}

		var hint *time.Duration
		if after, ok := retryable.RetryAfter(); ok {
			hint = &after
		}

		delay := r.backoff.DelayForAttempt(attempt, hint)

		r.logger.Warn("Retrying request", map[string]interface{}{
			"attempt":     attempt + 1,
			"max_retries": r.config.MaxRetries,
			"error":       err.Error(),
			"delay":       delay.String(),
		})
		r.metrics.RetryAttempt(KindOf(err).String())

		sleepErr := r.sleep(ctx, delay)
		if sleepErr != nil {
			return zero, sleepErr
		}
	}
}
