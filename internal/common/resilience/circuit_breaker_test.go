package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
	"github.com/AlibekovAA/recordkeeper/internal/common/resilience"
)

var errDB = errors.New("connection refused")

func failing(context.Context) error { return errDB }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  2,
		ResetAfter: time.Minute,
		Now:        clk.Now,
	})

	assert.ErrorIs(t, cb.Call(context.Background(), failing), errDB)
	assert.ErrorIs(t, cb.Call(context.Background(), failing), errDB)

	called := false
	err := cb.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, commonerrors.ErrCircuitOpen)
	assert.False(t, called)
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreaker_ResetsAfterWindow(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  1,
		ResetAfter: time.Minute,
		Now:        clk.Now,
	})

	_ = cb.Call(context.Background(), failing)
	assert.True(t, cb.IsOpen())

	clk.Advance(2 * time.Minute)

	assert.False(t, cb.IsOpen())
	assert.NoError(t, cb.Call(context.Background(), func(context.Context) error { return nil }))
}

func TestCircuitBreaker_IgnoresExpectedErrors(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})

	_ = cb.Call(context.Background(), func(context.Context) error { return pgx.ErrNoRows })
	_ = cb.Call(context.Background(), func(context.Context) error { return commonerrors.ErrInvalidPayload })

	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_AppliesTimeout(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Threshold: 5, Timeout: 10 * time.Millisecond})

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCircuitBreaker_IgnoresAbandonedCalls(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_OwnTimeoutCounts(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  1,
		Timeout:    10 * time.Millisecond,
		ResetAfter: time.Minute,
	})

	_ = cb.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.True(t, cb.IsOpen())
}
