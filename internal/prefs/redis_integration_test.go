//go:build integration

package prefs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Run with: REDIS_URL=redis://localhost:6379/0 go test -tags=integration ./internal/prefs

func TestIntegration_RedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}

	ctx := context.Background()
	store, err := NewRedisStoreFromURL(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()

	session := uuid.NewString()
	defer store.Clear(ctx, session)

	if err := store.Save(ctx, session, map[string]string{FieldSearchTerm: `"tea"`, FieldPage: `2`}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, session, map[string]string{FieldPage: `3`}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, session)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[FieldSearchTerm] != `"tea"` || got[FieldPage] != `3` {
		t.Fatalf("unexpected values %v", got)
	}

	ttl, err := store.client.TTL(ctx, key(session)).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected a TTL on the hash, got %v (err=%v)", ttl, err)
	}

	if err := store.Clear(ctx, session); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = store.Load(ctx, session)
	if len(got) != 0 {
		t.Fatalf("expected empty after Clear, got %v", got)
	}
}
