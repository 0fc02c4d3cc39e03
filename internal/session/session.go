package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Mode selects which menu a dual-role actor sees.
type Mode string

const (
	ModeStudent  Mode = "student"
	ModeEmployer Mode = "employer"
)

// Intent is work to resume once the active flow commits.
type Intent string

const (
	IntentNone          Intent = ""
	IntentCreatePosting Intent = "create_posting"
)

// Session is the per-actor conversational state. It is never written to the
// relational store.
type Session struct {
	ActorID   int64             `json:"actor_id"`
	Flow      string            `json:"flow,omitempty"`
	Step      int               `json:"step"`
	Values    map[string]string `json:"values,omitempty"`
	Mode      Mode              `json:"mode,omitempty"`
	Pending   Intent            `json:"pending,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *Session) InFlow() bool {
	return s.Flow != ""
}

// ClearFlow drops the active flow and its collected values.
func (s *Session) ClearFlow() {
	s.Flow = ""
	s.Step = 0
	s.Values = nil
}

var ErrNotFound = errors.New("session not found")

type Store interface {
	// Get returns ErrNotFound when the actor has no live session.
	Get(ctx context.Context, actorID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, actorID int64) error
}

// Load returns the stored session or a fresh one.
func Load(ctx context.Context, store Store, actorID int64) (*Session, error) {
	s, err := store.Get(ctx, actorID)
	if errors.Is(err, ErrNotFound) {
		return &Session{ActorID: actorID}, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]Session),
	}
}

func (m *MemoryStore) Get(ctx context.Context, actorID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[actorID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, actorID)
		return nil, ErrNotFound
	}
	out := s
	out.Values = copyValues(s.Values)
	return &out, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *s
	stored.UpdatedAt = m.now()
	stored.Values = copyValues(s.Values)
	m.sessions[s.ActorID] = stored
	s.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, actorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, actorID)
	return nil
}

func copyValues(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
