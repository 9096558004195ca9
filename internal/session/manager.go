package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pavelanni/memorylane/internal/model"
)

// Manager owns the live sessions of one process. Snapshots are mirrored to a
// Store after every change so a session can be rebuilt after it was swept.
type Manager struct {
	questions []model.Question
	opts      Options
	store     Store
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager for the given question set. A nil store keeps
// snapshots in memory. A non-positive ttl disables sweeping.
func NewManager(questions []model.Question, opts Options, store Store, ttl time.Duration) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		questions: questions,
		opts:      opts,
		store:     store,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Create starts tracking a new session in the not-started phase.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s := m.build(id, nil)
	if err := m.store.Put(ctx, id, s.Snapshot()); err != nil {
		s.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session for id, rebuilding it from the store when it
// is no longer held in memory.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	st, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s = m.build(id, &st)
	m.sessions[id] = s
	return s, nil
}

// Save writes the session's snapshot to the store.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Put(ctx, s.ID, s.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Drop forgets a session and its snapshot.
func (m *Manager) Drop(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return m.store.Delete(ctx, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep releases sessions idle since before now-ttl. Their snapshots stay in
// the store, so a returning visitor resumes where they left off.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-m.ttl)

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if n := m.Sweep(t); n > 0 {
				slog.Debug("swept idle sessions", "count", n)
			}
		}
	}
}

// Close releases every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range live {
		s.Close()
	}
}

func (m *Manager) build(id string, st *model.SessionState) *Session {
	// Timer-driven transitions (loading -> final) happen outside any request,
	// so every change is mirrored from here.
	return newSession(id, m.questions, st, m.opts, m.now, func(s *Session) {
		if err := m.store.Put(context.Background(), s.ID, s.Snapshot()); err != nil {
			slog.Error("mirror session", "id", s.ID, "error", err)
		}
	})
}
