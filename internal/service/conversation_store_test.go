package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"anon-relay/internal/domain"
)

func TestMemorySessionStore_PutGetDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "alice"); ok || err != nil {
		t.Fatalf("expected no session, got ok=%v err=%v", ok, err)
	}
	session := domain.ConversationSession{CallerID: "alice", State: domain.StateAwaitingRecipient}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "alice")
	if err != nil || !ok || got.State != domain.StateAwaitingRecipient {
		t.Fatalf("expected stored session, got %+v ok=%v err=%v", got, ok, err)
	}

	session.State = domain.StateAwaitingHistoryTarget
	_ = store.Put(ctx, session)
	got, _, _ = store.Get(ctx, "alice")
	if got.State != domain.StateAwaitingHistoryTarget {
		t.Fatalf("expected put to replace the session, got %s", got.State)
	}

	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "alice"); ok {
		t.Fatalf("expected session to be deleted")
	}
	if err := store.Put(ctx, domain.ConversationSession{CallerID: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMemorySessionStore_ExpiresAfterTTL(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Put(ctx, domain.ConversationSession{CallerID: "alice", State: domain.StateAwaitingMessage})
	_ = store.Put(ctx, domain.ConversationSession{CallerID: "bob", State: domain.StateAwaitingMessage})

	now = now.Add(30 * time.Second)
	if _, ok, _ := store.Get(ctx, "alice"); !ok {
		t.Fatalf("expected session before TTL")
	}
	// Put renueva el TTL.
	_ = store.Put(ctx, domain.ConversationSession{CallerID: "bob", State: domain.StateAwaitingMessage})

	now = now.Add(45 * time.Second)
	if _, ok, _ := store.Get(ctx, "alice"); ok {
		t.Fatalf("expected alice to expire")
	}
	if _, ok, _ := store.Get(ctx, "bob"); !ok {
		t.Fatalf("expected bob to survive after refresh")
	}
}

func TestMemorySessionStore_Prune(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Put(ctx, domain.ConversationSession{CallerID: "a", State: domain.StateAwaitingMessage})
	_ = store.Put(ctx, domain.ConversationSession{CallerID: "b", State: domain.StateAwaitingMessage})
	now = now.Add(2 * time.Minute)
	_ = store.Put(ctx, domain.ConversationSession{CallerID: "c", State: domain.StateAwaitingMessage})

	if removed := store.Prune(); removed != 2 {
		t.Fatalf("expected 2 pruned sessions, got %d", removed)
	}
	if _, ok, _ := store.Get(ctx, "c"); !ok {
		t.Fatalf("expected fresh session to remain")
	}
}

func TestMemorySessionStore_RunJanitorStopsOnCancel(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected janitor to stop after cancel")
	}
}

type mockRedisKV struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newMockRedisKV() *mockRedisKV {
	return &mockRedisKV{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.failGet != nil {
		cmd.SetErr(m.failGet)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisSessionStore_RoundTripWithTTL(t *testing.T) {
	kv := newMockRedisKV()
	store := &redisSessionStore{client: kv, ttl: 10 * time.Minute, prefix: "relay:session:"}
	ctx := context.Background()

	session := domain.ConversationSession{
		CallerID:    "alice",
		State:       domain.StateAwaitingReplyBody,
		ReplyTarget: &domain.ReplyTarget{MessageID: 9, ChannelID: 4},
	}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	if kv.ttls["relay:session:alice"] != 10*time.Minute {
		t.Fatalf("expected key TTL, got %v", kv.ttls["relay:session:alice"])
	}

	var stored domain.ConversationSession
	if err := json.Unmarshal([]byte(kv.values["relay:session:alice"]), &stored); err != nil {
		t.Fatalf("expected JSON value, got %v", err)
	}

	got, ok, err := store.Get(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("expected session, got ok=%v err=%v", ok, err)
	}
	if got.ReplyTarget == nil || got.ReplyTarget.MessageID != 9 || got.ReplyTarget.ChannelID != 4 {
		t.Fatalf("unexpected reply target %+v", got.ReplyTarget)
	}

	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, "alice"); ok || err != nil {
		t.Fatalf("expected redis.Nil to map to absent, got ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStore_PropagatesErrors(t *testing.T) {
	kv := newMockRedisKV()
	kv.failGet = errors.New("connection refused")
	store := &redisSessionStore{client: kv, ttl: time.Minute, prefix: "relay:session:"}

	if _, _, err := store.Get(context.Background(), "alice"); !errors.Is(err, kv.failGet) {
		t.Fatalf("expected redis error, got %v", err)
	}
	kv.failGet = nil
	kv.values["relay:session:bob"] = "{not json"
	if _, _, err := store.Get(context.Background(), "bob"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewRedisSessionStore_NilClient(t *testing.T) {
	if store := NewRedisSessionStore(nil, time.Minute); store != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
