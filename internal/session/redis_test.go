package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	sel := 1
	want := model.SessionState{Phase: model.PhaseFeedback, QuestionIndex: 3, Selected: &sel, Completed: []int{0, 1, 2}}
	if err := store.Put(ctx, "s1", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("memorylane:session:s1") {
		t.Fatal("expected redis key to be set")
	}
	if ttl := mr.TTL("memorylane:session:s1"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Phase != want.Phase || got.QuestionIndex != 3 || got.Selected == nil || *got.Selected != 1 || len(got.Completed) != 3 {
		t.Errorf("got %+v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("memorylane:session:s1") {
		t.Fatal("expected redis key to be removed")
	}
}

func TestRedisStoreMissingAndExpired(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = store.Put(ctx, "s2", model.SessionState{Phase: model.PhaseAnswering, Completed: []int{}})
	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "s2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired snapshot: expected ErrNotFound, got %v", err)
	}
}

func TestManagerMirrorsToRedis(t *testing.T) {
	mr, client := newTestRedis(t)
	m := NewManager(testQuestions(), testOptions(), NewRedisStore(client, time.Minute), time.Minute)
	t.Cleanup(m.Close)

	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Start()
	s.Select(2)

	got, err := NewRedisStore(client, 0).Load(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("load mirrored snapshot: %v", err)
	}
	if got.Phase != model.PhaseFeedback || !got.Correct {
		t.Errorf("mirrored state = %+v", got)
	}
	if !mr.Exists("memorylane:session:" + s.ID) {
		t.Error("expected key for the session")
	}
}
