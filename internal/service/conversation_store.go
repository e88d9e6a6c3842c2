package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"anon-relay/internal/domain"
)

const defaultSessionTTL = 15 * time.Minute

// SessionStore guarda como mucho una sesión de conversación por caller.
// Las sesiones abandonadas expiran tras el TTL.
type SessionStore interface {
	Get(ctx context.Context, callerID string) (domain.ConversationSession, bool, error)
	Put(ctx context.Context, session domain.ConversationSession) error
	Delete(ctx context.Context, callerID string) error
}

type memorySessionEntry struct {
	session   domain.ConversationSession
	expiresAt time.Time
}

// MemorySessionStore mantiene sesiones en proceso con expiración perezosa.
type MemorySessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memorySessionEntry
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySessionStore{
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		items: make(map[string]memorySessionEntry),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, callerID string) (domain.ConversationSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[callerID]
	if !ok {
		return domain.ConversationSession{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.items, callerID)
		return domain.ConversationSession{}, false, nil
	}
	return entry.session, true, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session domain.ConversationSession) error {
	if strings.TrimSpace(session.CallerID) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.CallerID] = memorySessionEntry{
		session:   session,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, callerID)
	return nil
}

// Prune elimina sesiones expiradas y devuelve cuántas quitó.
func (s *MemorySessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

// RunJanitor ejecuta Prune periódicamente hasta que ctx se cancela.
func (s *MemorySessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKV
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore comparte sesiones entre instancias; la expiración la
// hace Redis con el TTL de la clave.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &redisSessionStore{
		client: client,
		ttl:    ttl,
		prefix: "relay:session:",
	}
}

func (s *redisSessionStore) Get(ctx context.Context, callerID string) (domain.ConversationSession, bool, error) {
	if strings.TrimSpace(callerID) == "" {
		return domain.ConversationSession{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := s.client.Get(ctx, s.prefix+callerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ConversationSession{}, false, nil
	}
	if err != nil {
		return domain.ConversationSession{}, false, err
	}
	var session domain.ConversationSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.ConversationSession{}, false, err
	}
	return session, true, nil
}

func (s *redisSessionStore) Put(ctx context.Context, session domain.ConversationSession) error {
	if strings.TrimSpace(session.CallerID) == "" {
		return ErrInvalidInput
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+session.CallerID, raw, s.ttl).Err()
}

func (s *redisSessionStore) Delete(ctx context.Context, callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+callerID).Err()
}
