// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"arbor/internal/models"
)

// testValkeyClient returns a Valkey client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, treeKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(host, port, os.Getenv("VALKEY_PASSWORD"))
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestOwnerKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	if got := OwnerKey(models.CollectionOwner(id)); got != "collection:"+id.String() {
		t.Errorf("OwnerKey collection: got %q", got)
	}
	if got := OwnerKey(models.TemplateOwner(id)); got != "template:"+id.String() {
		t.Errorf("OwnerKey template: got %q", got)
	}
}

func TestSubtreeKey(t *testing.T) {
	owner := models.CollectionOwner(uuid.MustParse("11111111-2222-3333-4444-555555555555"))
	root := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	want := "collection:11111111-2222-3333-4444-555555555555:aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	if got := SubtreeKey(owner, root); got != want {
		t.Errorf("SubtreeKey: got %q, want %q", got, want)
	}
}

func TestTreeCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	tc := NewTreeCache(client, 1*time.Minute)

	ctx := context.Background()
	key := OwnerKey(models.CollectionOwner(uuid.New()))

	// Miss.
	data, ok := tc.Get(ctx, key)
	if ok {
		t.Error("expected cache miss")
	}
	if data != nil {
		t.Error("expected nil data on miss")
	}

	// Set.
	payload := []byte(`[{"id":"n1","name":"Stages"}]`)
	tc.Set(ctx, key, payload)

	// Hit.
	data, ok = tc.Get(ctx, key)
	if !ok {
		t.Error("expected cache hit")
	}
	if string(data) != string(payload) {
		t.Errorf("data mismatch: got %q, want %q", data, payload)
	}
}

func TestTreeCacheInvalidateOwner(t *testing.T) {
	client := testValkeyClient(t)
	tc := NewTreeCache(client, 1*time.Minute)

	ctx := context.Background()
	owner := models.CollectionOwner(uuid.New())
	other := models.CollectionOwner(uuid.New())

	// Full tree plus two subtree views for the owner, one entry for another
	// collection that must survive.
	tc.Set(ctx, OwnerKey(owner), []byte("full"))
	tc.Set(ctx, SubtreeKey(owner, uuid.New()), []byte("sub-a"))
	tc.Set(ctx, SubtreeKey(owner, uuid.New()), []byte("sub-b"))
	tc.Set(ctx, OwnerKey(other), []byte("other"))

	if _, ok := tc.Get(ctx, OwnerKey(owner)); !ok {
		t.Fatal("expected cache hit before invalidation")
	}

	tc.InvalidateOwner(ctx, owner)

	if _, ok := tc.Get(ctx, OwnerKey(owner)); ok {
		t.Error("expected full-tree miss after invalidation")
	}
	keys, err := client.Keys(ctx, treeKeyPrefix+OwnerKey(owner)+"*").Result()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys for invalidated owner, found %v", keys)
	}

	if _, ok := tc.Get(ctx, OwnerKey(other)); !ok {
		t.Error("other owner's entry should survive invalidation")
	}
}

func TestTreeCacheTTLExpiry(t *testing.T) {
	client := testValkeyClient(t)
	tc := NewTreeCache(client, 50*time.Millisecond)

	ctx := context.Background()
	key := OwnerKey(models.TemplateOwner(uuid.New()))

	tc.Set(ctx, key, []byte("ephemeral"))
	if _, ok := tc.Get(ctx, key); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := tc.Get(ctx, key); ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestNewTreeCacheDefaultTTL(t *testing.T) {
	// TTL = 0 should use the default.
	tc := NewTreeCache(nil, 0)
	if tc.ttl != DefaultTreeTTL {
		t.Errorf("expected DefaultTreeTTL (%v), got %v", DefaultTreeTTL, tc.ttl)
	}

	tc = NewTreeCache(nil, 2*time.Minute)
	if tc.ttl != 2*time.Minute {
		t.Errorf("expected explicit TTL to stick, got %v", tc.ttl)
	}
}
