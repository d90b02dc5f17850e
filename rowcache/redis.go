package rowcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tingold/district-atlas/stats"
)

// Redis is a Backend shared between service instances.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis connects to addr and selects db.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// NewRedis returns a backend storing entries for ttl.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Get(ctx context.Context, key string) ([]stats.Row, bool, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rows, err := stats.DecodeRows(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	if rows == nil {
		rows = []stats.Row{}
	}
	return rows, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, rows []stats.Row) error {
	if rows == nil {
		rows = []stats.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, data, r.ttl).Err()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
