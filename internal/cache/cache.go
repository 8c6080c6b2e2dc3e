// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides a Redis-backed key/value store with expiry. It
// serves double duty as the per-profile rate limiter and as a memoizer for
// slowly-changing metadata catalogs. Expiry is enforced server-side by
// Redis, so reads after the TTL simply miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key composes a cache key from its parts using the connector key grammar,
// e.g. Key(tenantID, profileID, "uas") or Key(tenantID, "columns").
func Key(parts ...string) string {
	return strings.Join(parts, "__")
}

// Store is the capability the cache exposes to consumers. Implemented by
// Cache; faked in tests.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
}

// Cache is a Redis-backed TTL cache. Values are stored as JSON.
type Cache struct {
	rdb *redis.Client
}

// New creates a cache backed by Redis.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Set writes a value under key with the given TTL, overwriting any previous
// entry. Writes are idempotent overwrites, so concurrent refreshes of the
// same key cannot corrupt state.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache SET %s: %w", key, err)
	}

	return nil
}

// Get reads the value under key into dest. It returns false on a miss or
// after expiry, without an error.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache GET %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return true, nil
}

// Delete removes the given keys and reports how many existed.
func (c *Cache) Delete(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache DEL: %w", err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}
