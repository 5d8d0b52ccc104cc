package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGSessionsRepo implements SessionsRepo using Postgres.
type PGSessionsRepo struct {
	DB *sql.DB
}

const sessionColumns = `id, owner_id, title, knowledge_scope, is_pinned, created_at, updated_at`

// Create inserts a new session row.
func (r *PGSessionsRepo) Create(ctx context.Context, s Session) error {
	const query = `
INSERT INTO chat_sessions (id, owner_id, title, knowledge_scope, is_pinned, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.OwnerID, s.Title, s.KnowledgeScope, s.IsPinned, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

// GetByID fetches a session by (id, owner); other owners' ids are absent.
func (r *PGSessionsRepo) GetByID(ctx context.Context, id, ownerID string) (Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE id = $1 AND owner_id = $2
LIMIT 1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

// ListByOwner returns the owner's sessions, pinned first, newest activity
// first within each group.
func (r *PGSessionsRepo) ListByOwner(ctx context.Context, ownerID string) ([]Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE owner_id = $1
ORDER BY is_pinned DESC, updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes the mutable session attributes.
func (r *PGSessionsRepo) Update(ctx context.Context, s Session) error {
	const query = `
UPDATE chat_sessions
SET title = $3, knowledge_scope = $4, is_pinned = $5, updated_at = $6
WHERE id = $1 AND owner_id = $2`
	res, err := r.DB.ExecContext(ctx, query, s.ID, s.OwnerID, s.Title, s.KnowledgeScope, s.IsPinned, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the session's messages, then the session, in one
// transaction. The FK cascade is a backstop; the explicit order keeps the
// messages table authoritative even without it.
func (r *PGSessionsRepo) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE session_id = $1 AND owner_id = $2`, id, ownerID); err != nil {
		return fmt.Errorf("delete messages for session %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.KnowledgeScope, &s.IsPinned, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// PGMessagesRepo implements MessagesRepo using Postgres.
type PGMessagesRepo struct {
	DB *sql.DB
}

// Append inserts a message row. Sources are stored as JSONB.
func (r *PGMessagesRepo) Append(ctx context.Context, m Message) error {
	var sources any
	if len(m.Sources) > 0 {
		encoded, err := json.Marshal(m.Sources)
		if err != nil {
			return fmt.Errorf("encode sources for message %s: %w", m.ID, err)
		}
		sources = encoded
	}

	const query = `
INSERT INTO chat_messages (id, session_id, owner_id, role, content, scope, sources, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.SessionID, m.OwnerID, m.Role, m.Content, m.Scope, sources, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message %s: %w", m.ID, err)
	}
	return nil
}

// ListBySession returns the session's messages in creation order.
func (r *PGMessagesRepo) ListBySession(ctx context.Context, sessionID, ownerID string) ([]Message, error) {
	const query = `
SELECT id, session_id, owner_id, role, content, scope, sources, created_at
FROM chat_messages
WHERE session_id = $1 AND owner_id = $2
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var sources []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.OwnerID, &m.Role, &m.Content, &m.Scope, &sources, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, fmt.Errorf("decode sources for message %s: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var (
	_ SessionsRepo = (*PGSessionsRepo)(nil)
	_ MessagesRepo = (*PGMessagesRepo)(nil)
)
