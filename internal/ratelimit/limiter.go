package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cueledger/internal/config"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const limiterPrefix = "cueledger:limit"

// Limiter caps write requests per account. It shares counters through redis
// when available and falls back to a per-process store otherwise.
type Limiter struct {
	instance *limiter.Limiter
}

type LimiterParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

func NewLimiter(p LimiterParams) (*Limiter, error) {
	formatted := strings.TrimSpace(p.Config.RateLimit)
	if formatted == "" {
		return nil, nil
	}

	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if p.Redis != nil {
		store, err = sredis.NewStoreWithOptions(p.Redis, limiter.StoreOptions{Prefix: limiterPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix})
	}

	p.Log.Named("ratelimit").Info("request limiter configured",
		zap.String("rate", formatted),
		zap.Bool("shared", p.Redis != nil),
	)
	return &Limiter{instance: limiter.New(store, rate)}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.instance != nil
}

// Allow consumes one token for key.
func (l *Limiter) Allow(ctx context.Context, key string) (limiter.Context, error) {
	if !l.Enabled() {
		return limiter.Context{Reached: false}, nil
	}
	return l.instance.Get(ctx, key)
}
