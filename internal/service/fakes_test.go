package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"anon-relay/internal/domain"
	"anon-relay/internal/repository"
	"anon-relay/internal/transport"
)

// mockUserRepo imita la unicidad de external_id de la tabla users.
type mockUserRepo struct {
	mu         sync.Mutex
	byExternal map[string]domain.User
	byID       map[int64]domain.User
	seq        int64
	inserts    int

	// loseRace simula que otra transacción inserta primero.
	loseRace    bool
	conflictErr bool
	getErr      error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byExternal: make(map[string]domain.User),
		byID:       make(map[int64]domain.User),
	}
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	u, ok := m.byExternal[externalID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByAnonymousID(_ context.Context, anonymousID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[anonymousID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) InsertIfAbsent(_ context.Context, externalID, displayLabel string) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loseRace || m.conflictErr {
		m.insertLocked(externalID, "competitor")
		if m.conflictErr {
			return domain.User{}, false, errors.Join(repository.ErrConflict, errors.New("duplicate key"))
		}
		return domain.User{}, false, nil
	}
	if _, ok := m.byExternal[externalID]; ok {
		return domain.User{}, false, nil
	}
	return m.insertLocked(externalID, displayLabel), true, nil
}

func (m *mockUserRepo) insertLocked(externalID, label string) domain.User {
	m.seq++
	m.inserts++
	u := domain.User{AnonymousID: m.seq, ExternalID: externalID, DisplayLabel: label, CreatedAt: time.Now().UTC()}
	m.byExternal[externalID] = u
	m.byID[u.AnonymousID] = u
	return u
}

func (m *mockUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byExternal)
}

// mockChannelRepo imita UNIQUE (participant_low, participant_high).
type mockChannelRepo struct {
	mu      sync.Mutex
	byPair  map[[2]int64]domain.Channel
	byID    map[int64]domain.Channel
	seq     int64
	inserts int
}

func newMockChannelRepo() *mockChannelRepo {
	return &mockChannelRepo{
		byPair: make(map[[2]int64]domain.Channel),
		byID:   make(map[int64]domain.Channel),
	}
}

func (m *mockChannelRepo) FindByPair(_ context.Context, low, high int64) (domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.byPair[[2]int64{low, high}]
	if !ok {
		return domain.Channel{}, pgx.ErrNoRows
	}
	return ch, nil
}

func (m *mockChannelRepo) GetByID(_ context.Context, channelID int64) (domain.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.byID[channelID]
	if !ok {
		return domain.Channel{}, pgx.ErrNoRows
	}
	return ch, nil
}

func (m *mockChannelRepo) InsertIfAbsent(_ context.Context, low, high int64) (domain.Channel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if low >= high {
		return domain.Channel{}, false, errors.New("check constraint channels_pair_order")
	}
	key := [2]int64{low, high}
	if _, ok := m.byPair[key]; ok {
		return domain.Channel{}, false, nil
	}
	m.seq++
	m.inserts++
	ch := domain.Channel{ID: m.seq, ParticipantLow: low, ParticipantHigh: high, CreatedAt: time.Now().UTC()}
	m.byPair[key] = ch
	m.byID[ch.ID] = ch
	return ch, true, nil
}

func (m *mockChannelRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPair)
}

// mockMessageRepo ordena como ORDER BY created_at, message_id.
type mockMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	seq       int64
	clock     func() time.Time
	createErr error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{clock: func() time.Time { return time.Now().UTC() }}
}

func (m *mockMessageRepo) Create(_ context.Context, channelID, senderID int64, body string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return domain.Message{}, m.createErr
	}
	m.seq++
	msg := domain.Message{ID: m.seq, ChannelID: channelID, SenderID: senderID, Body: body, CreatedAt: m.clock()}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, messageID int64) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return domain.Message{}, pgx.ErrNoRows
}

func (m *mockMessageRepo) ForEachByChannel(_ context.Context, channelID int64, fn func(domain.Message) error) error {
	m.mu.Lock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	for _, msg := range out {
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockMessageRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type mockSender struct {
	mu      sync.Mutex
	sent    []transport.OutboundMessage
	acks    []string
	failFor map[string]error
}

func (m *mockSender) Send(_ context.Context, msg transport.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[msg.ChatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) AckButton(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, id)
	return nil
}

// to devuelve los mensajes entregados a un chat, en orden.
func (m *mockSender) to(chatID string) []transport.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []transport.OutboundMessage
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockSender) last(chatID string) transport.OutboundMessage {
	msgs := m.to(chatID)
	if len(msgs) == 0 {
		return transport.OutboundMessage{}
	}
	return msgs[len(msgs)-1]
}
