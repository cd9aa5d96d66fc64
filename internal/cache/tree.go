// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache for serialized full-tree listings.
// Tree reads vastly outnumber structural mutations, so the rendered JSON of
// a scope's tree is kept in Valkey and dropped whenever a mutation touches
// that scope. Stale reads during a concurrent mutation are acceptable; a
// half-written tree is not, and can't happen because writers commit
// atomically before invalidating.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"arbor/internal/models"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached tree listings.
	treeKeyPrefix = "tree:"

	// DefaultTreeTTL bounds staleness even if an invalidation is lost.
	DefaultTreeTTL = 5 * time.Minute
)

// TreeCache manages cached tree listings in Valkey, keyed by owner scope.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a new tree cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// OwnerKey returns the cache key for an owner scope's full tree.
func OwnerKey(owner models.OwnerScope) string {
	return fmt.Sprintf("%s:%s", owner.Kind, owner.ID)
}

// SubtreeKey returns the cache key for a subtree listing rooted at a node.
func SubtreeKey(owner models.OwnerScope, rootID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", owner.Kind, owner.ID, rootID)
}

// Get retrieves a cached tree payload. Returns nil, false on miss.
func (tc *TreeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := tc.client.Get(ctx, treeKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("tree cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("tree cache hit", "key", key)
	return val, true
}

// Set stores a serialized tree payload with the configured TTL.
func (tc *TreeCache) Set(ctx context.Context, key string, payload []byte) {
	if err := tc.client.Set(ctx, treeKeyPrefix+key, payload, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "key", key, "error", err)
	}
}

// InvalidateOwner removes every cached listing for an owner scope, the
// full tree and all subtree views included. Called after each committed
// structural mutation.
func (tc *TreeCache) InvalidateOwner(ctx context.Context, owner models.OwnerScope) {
	pattern := treeKeyPrefix + OwnerKey(owner) + "*"
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := tc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("tree cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("tree cache delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("tree cache invalidated", "owner", OwnerKey(owner), "deleted", deleted)
	}
}
