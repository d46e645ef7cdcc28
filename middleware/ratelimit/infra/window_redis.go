package infra

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"error-relay/middleware/ratelimit/domain"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed lua/sliding_window.lua
var slidingWindowScript string

var _ domain.Limiter = (*RedisWindowStore)(nil)

// RedisWindowStore é a janela deslizante compartilhada: várias réplicas do relay
// contam o mesmo cliente. A checagem e o registro rodam num único script Lua,
// então são atômicos no Redis.
type RedisWindowStore struct {
	cmd    redis.Cmdable
	script *redis.Script

	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisWindowOption {
	return func(s *RedisWindowStore) { s.now = now }
}

func NewRedisWindowStore(cmd redis.Cmdable, limit int, window time.Duration, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		cmd:    cmd,
		script: redis.NewScript(slidingWindowScript),
		limit:  limit,
		window: window,
		prefix: "ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) Allow(ctx context.Context, key domain.Key) (domain.Quota, error) {
	member, err := uuid.NewV4()
	if err != nil {
		return domain.Quota{}, fmt.Errorf("window member: %w", err)
	}

	res, err := s.script.Run(ctx, s.cmd,
		[]string{s.windowKey(key)},
		s.window.Milliseconds(),
		s.limit,
		s.now().UnixMilli(),
		member.String(),
	).Int64Slice()
	if err != nil {
		return domain.Quota{}, fmt.Errorf("sliding window script: %w", err)
	}
	if len(res) != 3 {
		return domain.Quota{}, fmt.Errorf("sliding window script: unexpected reply %v", res)
	}

	return domain.Quota{
		Allowed:    res[0] == 1,
		Limit:      s.limit,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

func (s *RedisWindowStore) windowKey(key domain.Key) string {
	return fmt.Sprintf("%s:window:%s", s.prefix, key)
}
