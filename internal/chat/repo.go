package chat

import "context"

// SessionsRepo persists sessions. All reads and writes are owner-scoped:
// an id belonging to a different owner behaves as absent.
type SessionsRepo interface {
	Create(ctx context.Context, s Session) error
	GetByID(ctx context.Context, id, ownerID string) (Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Session, error)
	Update(ctx context.Context, s Session) error
	// Delete removes the session and all its messages. Deleting an id the
	// owner does not hold returns ErrNotFound.
	Delete(ctx context.Context, id, ownerID string) error
}

// MessagesRepo persists messages. Messages are append-only.
type MessagesRepo interface {
	Append(ctx context.Context, m Message) error
	ListBySession(ctx context.Context, sessionID, ownerID string) ([]Message, error)
}
