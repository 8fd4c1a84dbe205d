package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) RedisStore {
	return RedisStore{client: client}
}

func (s RedisStore) Get(c context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s RedisStore) Set(c context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(c, key, value, ttl).Err()
}

func (s RedisStore) Del(c context.Context, key string) error {
	return s.client.Del(c, key).Err()
}

func (s RedisStore) Update(c context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	err := s.client.Watch(c, func(tx *redis.Tx) error {
		found := true
		current, err := tx.Get(c, key).Bytes()
		if errors.Is(err, redis.Nil) {
			found = false
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(c, func(pipe redis.Pipeliner) error {
			pipe.Set(c, key, next, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrTxFailed
	}
	return err
}

func (s RedisStore) Ping(c context.Context) error {
	return s.client.Ping(c).Err()
}
