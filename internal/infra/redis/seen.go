package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// SeenSet records enqueued urls in a redis set so repeated discovery runs do
// not publish the same candidate twice.
type SeenSet struct {
	client *goredis.Client
	key    string
}

func Connect(ctx context.Context, addr, key string) (*SeenSet, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &SeenSet{client: client, key: key}, nil
}

func (s *SeenSet) MarkSeen(ctx context.Context, url string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("add to seen set: %w", err)
	}
	return added == 1, nil
}

func (s *SeenSet) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count seen set: %w", err)
	}
	return n, nil
}

func (s *SeenSet) Close() error {
	return s.client.Close()
}
