package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	ratelimitdomain "github.com/railzwaylabs/landedcost/internal/ratelimit/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const window = time.Minute

type ServiceParam struct {
	fx.In

	Redis  *redis.Client
	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
}

type service struct {
	redis   *redis.Client
	log     *zap.Logger
	clock   clock.Clock
	enabled bool
	limit   int
}

func NewService(p ServiceParam) ratelimitdomain.Service {
	return &service{
		redis:   p.Redis,
		log:     p.Log.Named("ratelimit.service"),
		clock:   p.Clock,
		enabled: p.Config.RateLimit.Enabled,
		limit:   p.Config.RateLimit.RequestsPerMinute,
	}
}

func (s *service) Allow(ctx context.Context, key string) (ratelimitdomain.Decision, error) {
	if !s.enabled || s.limit <= 0 {
		return ratelimitdomain.Decision{Allowed: true, Limit: s.limit, Remaining: s.limit}, nil
	}

	now := s.clock.Now(ctx)
	start := now.Truncate(window)
	decision := ratelimitdomain.Decision{Limit: s.limit, ResetAt: start.Add(window)}

	// Key: ratelimit:{caller}:{window start} e.g. ratelimit:user-1:28480320
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, start.Unix()/int64(window.Seconds()))

	val, err := s.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		s.log.Error("failed to increment rate limit counter", zap.String("key", key), zap.Error(err))
		// Fail open so a redis outage does not take calculations down.
		decision.Allowed = true
		decision.Remaining = s.limit
		return decision, nil
	}
	if val == 1 {
		s.redis.Expire(ctx, redisKey, 2*window)
	}

	if val > int64(s.limit) {
		return decision, ratelimitdomain.ErrRateLimited
	}
	decision.Allowed = true
	decision.Remaining = s.limit - int(val)
	return decision, nil
}
