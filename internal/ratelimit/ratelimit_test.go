package ratelimit

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/cueledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiterMemoryStoreCapsRequests(t *testing.T) {
	l, err := NewLimiter(LimiterParams{
		Config: config.Config{RateLimit: "2-M"},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)
	require.True(t, l.Enabled())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "org-1")
		require.NoError(t, err)
		assert.False(t, res.Reached)
	}

	res, err := l.Allow(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, res.Reached)

	other, err := l.Allow(ctx, "org-2")
	require.NoError(t, err)
	assert.False(t, other.Reached)
}

func TestLimiterDisabledWhenRateEmpty(t *testing.T) {
	l, err := NewLimiter(LimiterParams{Config: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "org-1")
	require.NoError(t, err)
	assert.False(t, res.Reached)
}

func TestLimiterRejectsMalformedRate(t *testing.T) {
	_, err := NewLimiter(LimiterParams{Config: config.Config{RateLimit: "lots"}, Log: zap.NewNop()})
	assert.Error(t, err)
}

func TestCustomerLockWithoutRedisRunsInline(t *testing.T) {
	lock := NewCustomerLock(NewLocker(nil), zap.NewNop())

	called := false
	err := lock.WithCustomer(context.Background(), 1, 2, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, lock.WithCustomer(context.Background(), 1, 2, func() error { return boom }), boom)

	var nilLock *CustomerLock
	assert.NoError(t, nilLock.WithCustomer(context.Background(), 1, 2, func() error { return nil }))
}

func TestLockerRejectsMissingClient(t *testing.T) {
	var l *Locker
	_, ok, err := l.TryLock(context.Background(), "k", 0)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
}
