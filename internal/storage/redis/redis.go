// Package redis содержит key-value хранилище на Redis с уведомлениями через pub/sub.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mmeshcher/storefront/internal/storage"
)

var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Subscriber = (*Store)(nil)
)

const channelPrefix = "kv:"

// Store реализует storage.Store поверх Redis.
type Store struct {
	client *goredis.Client
}

// New подключается к Redis по адресу addr и проверяет соединение.
func New(addr string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close закрывает соединение с Redis.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get возвращает значение по ключу.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set записывает значение и публикует уведомление в канал ключа одной транзакцией MULTI/EXEC:
// при ошибке не применяется ни запись, ни уведомление.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Publish(ctx, channelPrefix+key, "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Subscribe подписывается на канал ключа.
func (s *Store) Subscribe(ctx context.Context, key string) (<-chan struct{}, error) {
	pubsub := s.client.Subscribe(ctx, channelPrefix+key)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", key, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
