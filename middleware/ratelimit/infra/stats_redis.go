package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"error-relay/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore acumula as decisões do rate limit no Redis:
//
//	<prefix>:total            hash allowed/denied (não expira)
//	<prefix>:route            hash "<METHOD> <path>:allowed|denied"
//	<prefix>:bucket:<unix>    hash allowed/denied por intervalo (expira em ttl)
//	<prefix>:offenders        zset cliente -> requests negadas (só com trackOffenders)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	ttl    time.Duration
	// bucket <= 0 desliga os hashes por intervalo
	bucket         time.Duration
	trackOffenders bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = d }
}

// WithStatsTrackOffenders guarda a chave de cada cliente negado. A chave é o IP
// (ou o header configurado); desligado por padrão.
func WithStatsTrackOffenders(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackOffenders = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) bucketKey(at time.Time) string {
	start := at.Truncate(s.bucket).Unix()
	return s.prefix + ":bucket:" + strconv.FormatInt(start, 10)
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := ev.Outcome()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if route := strings.TrimSpace(ev.Route); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.bucket > 0 {
		key := s.bucketKey(at)
		pipe.HIncrBy(ctx, key, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if s.trackOffenders && !ev.Allowed {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			key := s.prefix + ":offenders"
			pipe.ZIncrBy(ctx, key, 1, k)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate limit stats: %w", err)
	}
	return nil
}

// Offender é um cliente com o total de requests negadas.
type Offender struct {
	Key    domain.Key
	Denied int64
}

// TopOffenders devolve os n clientes mais negados, do maior para o menor.
func (s *RedisStatsStore) TopOffenders(ctx context.Context, n int) ([]Offender, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, s.prefix+":offenders", 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit offenders: %w", err)
	}
	out := make([]Offender, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, Offender{Key: domain.Key(member), Denied: int64(z.Score)})
	}
	return out, nil
}
