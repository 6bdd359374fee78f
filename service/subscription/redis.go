package subscription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// evictScript deletes the user only while the stored descriptor is byte-identical to ARGV[2].
var evictScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call('HDEL', KEYS[2], ARGV[1])
return redis.call('HDEL', KEYS[1], ARGV[1])
`)

// RedisStore keeps descriptors in one hash and their update times in a second
// hash, both keyed by user id.
type RedisStore struct {
	client     *redis.Client
	key        string
	updatedKey string
}

func NewRedisStore(ctx context.Context, redisURL, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisStoreFromClient(client, keyPrefix), nil
}

func NewRedisStoreFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		key:        keyPrefix + "subscriptions",
		updatedKey: keyPrefix + "subscriptions:updated",
	}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Subscription, error) {
	var descCmd, updatedCmd *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		descCmd = pipe.HGet(ctx, s.key, userID)
		updatedCmd = pipe.HGet(ctx, s.updatedKey, userID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	descriptor, err := descCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Subscription{
		UserID:     userID,
		Descriptor: []byte(descriptor),
		UpdatedAt:  parseMillis(updatedCmd.Val()),
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, sub Subscription) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, sub.UserID, string(sub.Descriptor))
		pipe.HSet(ctx, s.updatedKey, sub.UserID, sub.UpdatedAt.UnixMilli())
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.key, userID)
		pipe.HDel(ctx, s.updatedKey, userID)
		return nil
	})
	return err
}

func (s *RedisStore) Evict(ctx context.Context, sub Subscription) (bool, error) {
	n, err := evictScript.Run(ctx, s.client, []string{s.key, s.updatedKey}, sub.UserID, string(sub.Descriptor)).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Subscription, error) {
	var descCmd, updatedCmd *redis.StringStringMapCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		descCmd = pipe.HGetAll(ctx, s.key)
		updatedCmd = pipe.HGetAll(ctx, s.updatedKey)
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := updatedCmd.Val()
	subs := make([]Subscription, 0, len(descCmd.Val()))
	for userID, descriptor := range descCmd.Val() {
		subs = append(subs, Subscription{
			UserID:     userID,
			Descriptor: []byte(descriptor),
			UpdatedAt:  parseMillis(updated[userID]),
		})
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].UserID < subs[j].UserID })
	return subs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
