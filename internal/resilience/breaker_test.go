package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fidelia-cart/internal/obs"
)

var errDown = errors.New("redis down")

func fail(context.Context) error { return errDown }
func succeed(context.Context) error { return nil }

func TestBreakerTransitions(t *testing.T) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := &bytes.Buffer{}
	b := NewBreaker("events_test", 2, 0.5, time.Minute).WithLogger(zerolog.New(logs))
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpenCircuit)
	require.False(t, called)

	clock = clock.Add(time.Minute)
	require.NoError(t, b.Do(ctx, succeed))
	require.Equal(t, Closed, b.State())

	require.Contains(t, logs.String(), "breaker_transition")
	require.Equal(t, 1.0, testutil.ToFloat64(obs.BreakerTransitionsTotal.WithLabelValues("events_test", "closed", "open")))
	require.Equal(t, 0.0, testutil.ToFloat64(obs.BreakerState.WithLabelValues("events_test")))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("", 1, 1, time.Second)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	require.Error(t, b.Do(ctx, fail))
	require.Equal(t, Open, b.State())
	clock = clock.Add(2 * time.Second)
	require.Error(t, b.Do(ctx, fail))
	require.Equal(t, Open, b.State())
	require.ErrorIs(t, b.Do(ctx, succeed), ErrOpenCircuit)
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker("cancel", 1, 0.5, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Do(ctx, func(ctx context.Context) error { return ctx.Err() }), context.Canceled)
	require.Equal(t, Closed, b.State())
}
