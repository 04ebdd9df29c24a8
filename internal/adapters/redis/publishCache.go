package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// PublishCacheRedis keeps a per-user ZSET of recently published post ids,
// scored by publish time.
type PublishCacheRedis struct {
	Client *redis.Client
}

func NewPublishCacheRedis(client *redis.Client) *PublishCacheRedis {
	return &PublishCacheRedis{Client: client}
}

func key(userID string) string {
	return "published:" + userID
}

func (r *PublishCacheRedis) RecordPublished(ctx context.Context, userID, postID string, at time.Time) error {
	z := &redis.Z{
		Score:  float64(at.Unix()),
		Member: postID,
	}
	if err := r.Client.ZAdd(ctx, key(userID), z).Err(); err != nil {
		return err
	}
	// Keep the feed bounded.
	return r.Client.ZRemRangeByRank(ctx, key(userID), 0, -101).Err()
}

func (r *PublishCacheRedis) RecentPublished(ctx context.Context, userID string, limit int64) ([]string, error) {
	return r.Client.ZRevRange(ctx, key(userID), 0, limit-1).Result()
}
