package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := NewMockModel()
	inner.FailWith(errors.New("provider down"))

	b := NewBreaker(inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.Chat(context.Background(), nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// Open circuit fails fast without reaching the provider.
	calls := inner.CallCount()
	_, err := b.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, calls, inner.CallCount())
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := NewMockModel("hello")
	b := NewBreaker(inner, BreakerConfig{}, nil)

	out, err := b.Chat(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, inner.Info(), b.Info())
}

func TestRateLimitedRespectsContext(t *testing.T) {
	inner := NewMockModel("a", "b")
	// One request per hour with burst 1: the second call must block.
	rl := NewRateLimited(inner, 1.0/3600, 1)

	_, err := rl.Chat(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rl.Chat(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.CallCount())
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	attempts := 0
	out, err := Retry(context.Background(), 3, time.Millisecond, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), 2, time.Millisecond, func() (string, error) {
		attempts++
		return "", errors.New("always failing")
	})
	assert.EqualError(t, err, "always failing")
	assert.Equal(t, 2, attempts)
}
