package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// Cache holds the taken slot labels of a (doctor, date). Entries are hints:
// a miss or an error falls back to the store.
//
// Every entry belongs to a generation. Invalidate advances the generation, so
// a fill computed before an invalidation lands under a generation nobody reads.
type Cache interface {
	Generation(ctx context.Context, doctorID string, date time.Time) (uint64, error)
	GetTaken(ctx context.Context, doctorID string, date time.Time, gen uint64) (taken []string, ok bool, err error)
	SetTaken(ctx context.Context, doctorID string, date time.Time, gen uint64, taken []string) error
	Invalidate(ctx context.Context, doctorID string, date time.Time) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Generation(context.Context, string, time.Time) (uint64, error) { return 0, nil }
func (NopCache) GetTaken(context.Context, string, time.Time, uint64) ([]string, bool, error) {
	return nil, false, nil
}
func (NopCache) SetTaken(context.Context, string, time.Time, uint64, []string) error { return nil }
func (NopCache) Invalidate(context.Context, string, time.Time) error                 { return nil }

// generationTTL bounds how long an idle generation counter survives. It must
// exceed the entry TTL so a counter never resets while entries of an older
// generation are still live.
const generationTTL = 48 * time.Hour

type RedisCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration, prefix string) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if ttl >= generationTTL {
		ttl = generationTTL / 2
	}
	if prefix == "" {
		prefix = "availability"
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) genKey(doctorID string, date time.Time) string {
	return fmt.Sprintf("%s:gen:%s:%s", c.prefix, doctorID, model.FormatDate(date))
}

func (c *RedisCache) key(doctorID string, date time.Time, gen uint64) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.prefix, doctorID, model.FormatDate(date), gen)
}

func (c *RedisCache) Generation(ctx context.Context, doctorID string, date time.Time) (uint64, error) {
	raw, err := c.rdb.Get(ctx, c.genKey(doctorID, date)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) GetTaken(ctx context.Context, doctorID string, date time.Time, gen uint64) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(doctorID, date, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var taken []string
	if err := json.Unmarshal(raw, &taken); err != nil {
		return nil, false, fmt.Errorf("decode cached slots: %w", err)
	}
	return taken, true, nil
}

func (c *RedisCache) SetTaken(ctx context.Context, doctorID string, date time.Time, gen uint64, taken []string) error {
	if taken == nil {
		taken = []string{}
	}
	raw, err := json.Marshal(taken)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key(doctorID, date, gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, doctorID string, date time.Time) error {
	k := c.genKey(doctorID, date)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, k)
		p.Expire(ctx, k, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}
