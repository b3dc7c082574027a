// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string // Redis server address (host:port)
	Password  string // Redis password (optional)
	DB        int    // Redis database number
	KeyPrefix string // Prepended to every key (default "streamreaper:")
}

// RedisStore keeps each broadcast in a hash and orders them in a sorted set
// scored by created_at_ms. Equal scores sort by member, which is the stream
// ID, so paging matches broadcast.Less.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "streamreaper:"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) indexKey() string { return s.prefix + "broadcasts:by_created" }

func (s *RedisStore) recordKey(streamID string) string { return s.prefix + "broadcast:" + streamID }

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Put(ctx context.Context, b broadcast.Broadcast) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = broadcast.StatusCreated
	}

	key := s.recordKey(b.StreamID)
	// HSETNX and ZADD NX leave an existing creation time untouched.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "created_at_ms", b.CreatedAtMs)
		pipe.HSet(ctx, key,
			"stream_id", b.StreamID,
			"name", b.Name,
			"type", b.Type,
			"status", string(b.Status),
		)
		pipe.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(b.CreatedAtMs), Member: b.StreamID})
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, streamID string) (broadcast.Broadcast, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(streamID)).Result()
	if err != nil {
		return broadcast.Broadcast{}, err
	}
	return decodeRedisRecord(streamID, fields)
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	return int(n), err
}

func (s *RedisStore) ListPage(ctx context.Context, offset, limit int) ([]broadcast.Broadcast, error) {
	offset, limit, ok := normalizePage(offset, limit)
	if !ok {
		return []broadcast.Broadcast{}, nil
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []broadcast.Broadcast{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]broadcast.Broadcast, 0, len(ids))
	for i, id := range ids {
		b, err := decodeRedisRecord(id, cmds[i].Val())
		if errors.Is(err, broadcast.ErrNotFound) {
			// deleted between ZRANGE and HGETALL
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("index entry %s: %w", id, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, streamID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(streamID))
		pipe.ZRem(ctx, s.indexKey(), streamID)
		return nil
	})
	return err
}

func decodeRedisRecord(streamID string, fields map[string]string) (broadcast.Broadcast, error) {
	if len(fields) == 0 {
		return broadcast.Broadcast{}, broadcast.ErrNotFound
	}
	created, err := strconv.ParseInt(fields["created_at_ms"], 10, 64)
	if err != nil {
		return broadcast.Broadcast{}, errors.New("corrupt created_at_ms")
	}
	return broadcast.Broadcast{
		StreamID:    streamID,
		Name:        fields["name"],
		Type:        fields["type"],
		Status:      broadcast.Status(fields["status"]),
		CreatedAtMs: created,
	}, nil
}
