// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cache provides a small time-bounded cache for upstream list lookups.
//
// Entries expire after their TTL and writers are expected to Delete the keys
// they invalidate. Two backends are available: an in-process memory cache and
// Redis, for deployments running more than one replica.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key with a TTL.
type Cache interface {
	// Get returns the value for key. The boolean is false on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// RedisURL selects the Redis backend when set, e.g. redis://localhost:6379/0.
	RedisURL string

	// KeyPrefix is prepended to all Redis keys.
	KeyPrefix string
}

// New returns the backend selected by cfg.
func New(ctx context.Context, cfg Config) (Cache, error) {
	if cfg.RedisURL == "" {
		return NewMemory(), nil
	}
	return NewRedis(ctx, RedisConfig{URL: cfg.RedisURL, KeyPrefix: cfg.KeyPrefix})
}
