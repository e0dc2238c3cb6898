package model

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/actormesh/logging"
)

// RateLimited wraps a Model with a token bucket limiter so bursts of agent
// activity cannot exceed the provider's request quota.
type RateLimited struct {
	inner   Model
	limiter *rate.Limiter
}

// NewRateLimited wraps inner, allowing rps requests per second with the
// given burst size.
func NewRateLimited(inner Model, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Chat implements Model. It blocks until the limiter grants a slot or the
// context ends.
func (r *RateLimited) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Chat(ctx, messages)
}

// Info implements Model.
func (r *RateLimited) Info() Info { return r.inner.Info() }

// BreakerConfig configures the circuit breaker decorator.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before allowing a probe call.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure
	// counts. If 0, failures never reset until the circuit opens.
	Interval time.Duration
}

// Breaker wraps a Model with circuit breaker protection. When the wrapped
// model fails repeatedly, the circuit opens and subsequent calls fail fast
// without reaching the provider, preventing retry storms.
type Breaker struct {
	inner   Model
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps inner with a circuit breaker. Zero-valued config fields
// get sensible defaults.
func NewBreaker(inner Model, cfg BreakerConfig, logger logging.Logger) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	info := inner.Info()
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "model:" + info.Provider + "/" + info.Model,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

// Chat implements Model. Calls are routed through the circuit breaker.
func (b *Breaker) Chat(ctx context.Context, messages []Message) (string, error) {
	out, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Chat(ctx, messages)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("model %q circuit open: %w", b.inner.Info().Model, err)
		}
		return "", err
	}
	return out, nil
}

// Info implements Model.
func (b *Breaker) Info() Info { return b.inner.Info() }

// State returns the current circuit breaker state for monitoring.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

// Compile-time interface checks.
var (
	_ Model = (*RateLimited)(nil)
	_ Model = (*Breaker)(nil)
	_ Model = (*MockModel)(nil)
)
