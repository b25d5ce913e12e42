package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestSaveAndRevoke(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "u1", "t1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := s.Active(ctx, "u1", "t1")
	if err != nil || !ok {
		t.Fatalf("expected active token, got %v %v", ok, err)
	}
	if err := s.Revoke(ctx, "u1", "t1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, _ = s.Active(ctx, "u1", "t1")
	if ok {
		t.Fatalf("expected revoked token")
	}
}

func TestRevokeAll(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "u1", "t1", time.Hour)
	_ = s.Save(ctx, "u1", "t2", time.Hour)
	_ = s.Save(ctx, "u2", "t3", time.Hour)

	if err := s.RevokeAll(ctx, "u1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, id := range []string{"t1", "t2"} {
		if ok, _ := s.Active(ctx, "u1", id); ok {
			t.Fatalf("expected %s revoked", id)
		}
	}
	if ok, _ := s.Active(ctx, "u2", "t3"); !ok {
		t.Fatalf("other users must keep their sessions")
	}
}

func TestExpiry(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "u1", "t1", time.Minute)
	mr.FastForward(2 * time.Minute)
	if ok, _ := s.Active(ctx, "u1", "t1"); ok {
		t.Fatalf("expected expired token")
	}
}

func TestRevokeAllWithoutSessions(t *testing.T) {
	s, _ := newStore(t)
	if err := s.RevokeAll(context.Background(), "nobody"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
