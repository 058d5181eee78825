package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"visa-checker/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	store.Put(app.NewSession("s-1", sampleCatalog()))
	if !mr.Exists("wizard:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("wizard:session:s-1"); got != "visa" {
		t.Fatalf("expected catalog id as marker value, got %q", got)
	}

	live, err := store.Live(context.Background())
	if err != nil || live != 1 {
		t.Fatalf("expected 1 live session, got %d (%v)", live, err)
	}

	store.Delete("s-1")
	if mr.Exists("wizard:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed locally")
	}
}

func TestSessionStoreSlidesTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	store.Put(app.NewSession("s-1", sampleCatalog()))

	mr.FastForward(50 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session")
	}
	mr.FastForward(50 * time.Second)
	if !mr.Exists("wizard:session:s-1") {
		t.Fatalf("expected marker TTL to be refreshed by Get")
	}
}
