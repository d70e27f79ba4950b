package credstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Service interface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves a record by key.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read credential record")
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, err.Error())
	}

	return &record, nil
}

// Set stores a record, overwriting any existing record for the key. Records
// do not expire; they are removed by an explicit Delete on disconnect.
func (s *RedisStore) Set(ctx context.Context, key string, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal credential record")
	}

	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to write credential record")
	}

	return nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete credential record")
	}

	return nil
}
