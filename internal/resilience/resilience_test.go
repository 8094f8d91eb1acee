package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("kavin", BreakerConfig{Failures: 2, ResetTimeout: time.Minute})

	assert.ErrorIs(t, b.Execute(context.Background(), fail), errBoom)
	assert.Equal(t, Closed, b.State())
	assert.ErrorIs(t, b.Execute(context.Background(), fail), errBoom)
	assert.Equal(t, Open, b.State())

	calls := 0
	err := b.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker("kavin", BreakerConfig{Failures: 2, ResetTimeout: time.Minute})

	_ = b.Execute(context.Background(), fail)
	require.NoError(t, b.Execute(context.Background(), succeed))
	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	b := NewBreaker("db", BreakerConfig{Failures: 1, ResetTimeout: 30 * time.Second})
	b.now = func() time.Time { return now }

	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, Open, b.State())

	now = now.Add(31 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	// A failed probe reopens.
	assert.ErrorIs(t, b.Execute(context.Background(), fail), errBoom)
	assert.Equal(t, Open, b.State())

	now = now.Add(31 * time.Second)
	require.NoError(t, b.Execute(context.Background(), succeed))
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_ShouldTripFilters(t *testing.T) {
	b := NewBreaker("x", BreakerConfig{
		Failures:   1,
		ShouldTrip: func(err error) bool { return IsTransient(err) },
	})

	_ = b.Execute(context.Background(), fail)
	assert.Equal(t, Closed, b.State())

	_ = b.Execute(context.Background(), func(context.Context) error {
		return Transient(errBoom, 503)
	})
	assert.Equal(t, Open, b.State())
}

func TestExecuteVal(t *testing.T) {
	b := NewBreaker("x", BreakerConfig{})
	v, err := ExecuteVal(context.Background(), b, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	b.Reset()
	assert.Equal(t, Closed, b.State())
}

func TestBreakers_GetAndStates(t *testing.T) {
	r := NewBreakers(NewBreakerConfig(1, time.Minute))
	assert.Same(t, r.Get("kavin"), r.Get("kavin"))

	_ = r.Get("db").Execute(context.Background(), fail)
	states := r.States()
	assert.Equal(t, Closed, states["kavin"])
	assert.Equal(t, Open, states["db"])
}

func TestNewBreakerConfig_Defaults(t *testing.T) {
	cfg := NewBreakerConfig(0, 0)
	assert.Equal(t, 3, cfg.Failures)
	assert.Equal(t, time.Minute, cfg.ResetTimeout)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errBoom, 502)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 2, Initial: time.Millisecond}, func(context.Context) error {
		calls++
		return Transient(errBoom, 500)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Initial: time.Hour}, func(context.Context) error {
		calls++
		return Transient(errBoom, 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal(t *testing.T) {
	v, err := DoVal(context.Background(), Policy{}, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 3 * time.Second}.withDefaults()
	assert.Equal(t, time.Second, p.delay(0))
	assert.Equal(t, 2*time.Second, p.delay(1))
	assert.Equal(t, 3*time.Second, p.delay(5))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errBoom))
	assert.True(t, IsTransient(Transient(errBoom, 429)))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.Nil(t, Transient(nil, 500))

	assert.True(t, IsTransientStatus(503))
	assert.False(t, IsTransientStatus(404))
}
