package chat

import (
	"context"
	"sort"
	"sync"
)

// MemorySessionsRepo is an in-memory SessionsRepo for tests and local
// development without a database.
type MemorySessionsRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	messages *MemoryMessagesRepo
}

// NewMemorySessionsRepo builds a sessions repo. When messages is non-nil,
// session deletion cascades into it.
func NewMemorySessionsRepo(messages *MemoryMessagesRepo) *MemorySessionsRepo {
	return &MemorySessionsRepo{
		sessions: make(map[string]Session),
		messages: messages,
	}
}

func (r *MemorySessionsRepo) Create(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *MemorySessionsRepo) GetByID(ctx context.Context, id, ownerID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemorySessionsRepo) ListByOwner(ctx context.Context, ownerID string) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemorySessionsRepo) Update(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sessions[s.ID]
	if !ok || existing.OwnerID != s.OwnerID {
		return ErrNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *MemorySessionsRepo) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.sessions, id)
	if r.messages != nil {
		r.messages.deleteBySession(id)
	}
	return nil
}

// MemoryMessagesRepo is an in-memory MessagesRepo.
type MemoryMessagesRepo struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMemoryMessagesRepo builds an empty messages repo.
func NewMemoryMessagesRepo() *MemoryMessagesRepo {
	return &MemoryMessagesRepo{}
}

func (r *MemoryMessagesRepo) Append(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *MemoryMessagesRepo) ListBySession(ctx context.Context, sessionID, ownerID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Message
	for _, m := range r.messages {
		if m.SessionID == sessionID && m.OwnerID == ownerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryMessagesRepo) deleteBySession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
}

var (
	_ SessionsRepo = (*MemorySessionsRepo)(nil)
	_ MessagesRepo = (*MemoryMessagesRepo)(nil)
)
