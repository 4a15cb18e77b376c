package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ShopCatalog/internal/catalog"
)

const (
	redisIndexKey  = "catalog:snapshots"
	redisKeyPrefix = "catalog:snapshot:"
)

func redisKey(id string) string { return redisKeyPrefix + id }

// dumpScript stores the blob and indexes it with a score strictly above the
// current newest entry, so two dumps in the same millisecond keep their order.
var dumpScript = redis.NewScript(`
local score = tonumber(ARGV[2])
local top = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if top[2] then
	local next = tonumber(top[2]) + 1
	if next > score then
		score = next
	end
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[1], score, ARGV[3])
return score
`)

// RedisStore keeps each snapshot under its own key and orders them with a
// sorted set scored by creation time in unix millis, bumped past the newest
// entry on collisions.
type RedisStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) Dump(ctx context.Context, entries []catalog.Entry) (string, error) {
	now := s.now()
	data, err := Encode(entries, now)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	id := uuid.NewString()
	keys := []string{redisIndexKey, redisKey(id)}
	err = dumpScript.Run(ctx, s.rdb, keys, data, now.UnixMilli(), id).Err()
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Restore(ctx context.Context) ([]catalog.Entry, error) {
	for {
		ids, err := s.rdb.ZRevRange(ctx, redisIndexKey, 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		if len(ids) == 0 {
			return nil, catalog.ErrNoSnapshot
		}
		id := ids[0]

		data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Index entry without a value; drop it and look again.
			if err := s.rdb.ZRem(ctx, redisIndexKey, id).Err(); err != nil {
				return nil, fmt.Errorf("drop stale snapshot %s: %w", id, err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", id, err)
		}

		entries, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", id, err)
		}

		_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, redisKey(id))
			p.ZRem(ctx, redisIndexKey, id)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("remove snapshot %s: %w", id, err)
		}
		return entries, nil
	}
}
