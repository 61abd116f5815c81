package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	keyCustomerLock = "cueledger:lock:customer:%s:%s"

	defaultLockTTL  = 15 * time.Second
	defaultLockWait = 3 * time.Second
	lockRetryDelay  = 50 * time.Millisecond
)

var ErrCustomerBusy = apperr.Conflict("customer_busy", "another settlement for this customer is in progress")

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// CustomerLock serializes settlements touching one customer's balances across
// processes. The database guards stay authoritative; the lock only turns a
// lost race into a fast, retryable conflict.
type CustomerLock struct {
	locker *Locker
	log    *zap.Logger
	ttl    time.Duration
	wait   time.Duration
}

func NewCustomerLock(locker *Locker, log *zap.Logger) *CustomerLock {
	return &CustomerLock{
		locker: locker,
		log:    log.Named("ratelimit.customer_lock"),
		ttl:    defaultLockTTL,
		wait:   defaultLockWait,
	}
}

// WithCustomer runs fn while holding the customer's lock. Without redis, or
// when redis errors, fn runs unlocked.
func (c *CustomerLock) WithCustomer(ctx context.Context, orgID, customerID snowflake.ID, fn func() error) error {
	if c == nil || c.locker == nil {
		return fn()
	}

	key := fmt.Sprintf(keyCustomerLock, orgID.String(), customerID.String())
	deadline := time.Now().Add(c.wait)

	for {
		token, ok, err := c.locker.TryLock(ctx, key, c.ttl)
		if err != nil {
			c.log.Warn("customer lock unavailable, relying on database guards",
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
			return fn()
		}
		if ok {
			defer func() {
				if err := c.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					c.log.Warn("failed to release customer lock", zap.String("key", key), zap.Error(err))
				}
			}()
			return fn()
		}

		if time.Now().After(deadline) {
			return ErrCustomerBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}
