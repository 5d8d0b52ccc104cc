package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-backend/internal/agent"
	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/telemetry"
)

// DocumentsDirectory is the slice of the documents service the chat flow
// needs: candidate ids for the agent and metadata for cited sources.
type DocumentsDirectory interface {
	VisibleIDs(ctx context.Context, callerID string, scope documents.Scope) ([]string, error)
	ResolveRefs(ctx context.Context, ids []string) ([]documents.Document, error)
}

// Service orchestrates sessions, messages and the agent collaborator.
type Service struct {
	Sessions SessionsRepo
	Messages MessagesRepo
	Docs     DocumentsDirectory
	Agent    agent.Client

	// StoreTimeout bounds each repository call.
	StoreTimeout time.Duration
}

// NewService constructs a chat Service.
func NewService(sessions SessionsRepo, messages MessagesRepo, docs DocumentsDirectory, ag agent.Client) *Service {
	return &Service{
		Sessions:     sessions,
		Messages:     messages,
		Docs:         docs,
		Agent:        ag,
		StoreTimeout: 10 * time.Second,
	}
}

// SendInput is one inbound chat message. SessionID empty means a new
// conversation.
type SendInput struct {
	OwnerID   string
	SessionID string
	Text      string
	Scope     documents.Scope
}

// SendResult is the outcome of one message round trip.
type SendResult struct {
	Session        Session
	Created        bool
	UserMessage    Message
	AssistantReply Message
}

// ResolveOrCreate returns the session for the given id, or creates a new
// one when no id is supplied. A caller-supplied id that does not exist for
// this owner is a not-found error, never an implicit create.
func (s *Service) ResolveOrCreate(ctx context.Context, sessionID, ownerID, firstMessage string, scope documents.Scope) (Session, bool, error) {
	if ownerID == "" {
		return Session{}, false, ErrInvalidInput
	}

	if sessionID != "" {
		session, err := s.getSession(ctx, sessionID, ownerID)
		if err != nil {
			return Session{}, false, err
		}
		return session, false, nil
	}

	now := time.Now().UTC()
	session := Session{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Title:          DeriveTitle(firstMessage),
		KnowledgeScope: string(scope),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	createCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Sessions.Create(createCtx, session); err != nil {
		return Session{}, false, fmt.Errorf("%w: create session: %v", ErrStore, err)
	}

	telemetry.Info("chat.session.created", map[string]any{
		"session_id": session.ID,
		"owner_id":   ownerID,
		"scope":      string(scope),
	})
	return session, true, nil
}

// SendMessage runs one full round trip: resolve the session, persist the
// user message, consult the agent with the caller's visible documents, and
// persist the assistant reply with its cited sources.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (SendResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return SendResult{}, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}

	session, created, err := s.ResolveOrCreate(ctx, in.SessionID, in.OwnerID, in.Text, in.Scope)
	if err != nil {
		return SendResult{}, err
	}

	now := time.Now().UTC()
	userMsg := Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		OwnerID:   in.OwnerID,
		Role:      RoleUser,
		Content:   in.Text,
		Scope:     string(in.Scope),
		CreatedAt: now,
	}
	if err := s.appendMessage(ctx, userMsg); err != nil {
		// A session created by this very call would be left behind empty;
		// remove it so a failed first message does not litter the list.
		if created {
			if derr := s.deleteSession(ctx, session.ID, in.OwnerID); derr != nil && !errors.Is(derr, ErrNotFound) {
				telemetry.Warn("chat.session.cleanup_failed", map[string]any{
					"session_id": session.ID,
					"error":      derr.Error(),
				})
			}
		}
		return SendResult{}, fmt.Errorf("%w: append user message: %v", ErrStore, err)
	}
	metrics.IncChatMessage()

	candidates, err := s.Docs.VisibleIDs(ctx, in.OwnerID, in.Scope)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: list candidate documents: %v", ErrStore, err)
	}

	reply, err := s.Agent.Send(ctx, session.ID, in.Text, candidates)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrAgent, err)
	}

	sources, err := s.resolveSources(ctx, reply.DocumentIDs)
	if err != nil {
		return SendResult{}, err
	}

	assistantMsg := Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		OwnerID:   in.OwnerID,
		Role:      RoleAssistant,
		Content:   reply.Text,
		Scope:     string(in.Scope),
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.appendMessage(ctx, assistantMsg); err != nil {
		return SendResult{}, fmt.Errorf("%w: append assistant message: %v", ErrStore, err)
	}
	metrics.IncChatMessage()

	session.KnowledgeScope = string(in.Scope)
	session.UpdatedAt = time.Now().UTC()
	touchCtx, cancelTouch := s.storeCtx(ctx)
	defer cancelTouch()
	if err := s.Sessions.Update(touchCtx, session); err != nil && !errors.Is(err, ErrNotFound) {
		telemetry.Warn("chat.session.touch_failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	return SendResult{
		Session:        session,
		Created:        created,
		UserMessage:    userMsg,
		AssistantReply: assistantMsg,
	}, nil
}

// ListSessions returns the owner's sessions, pinned first.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]Session, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	sessions, err := s.Sessions.ListByOwner(listCtx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStore, err)
	}
	return sessions, nil
}

// ListMessages returns a session's messages in order, owner-checked.
func (s *Service) ListMessages(ctx context.Context, sessionID, ownerID string) ([]Message, error) {
	if _, err := s.getSession(ctx, sessionID, ownerID); err != nil {
		return nil, err
	}
	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	messages, err := s.Messages.ListBySession(listCtx, sessionID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrStore, err)
	}
	return messages, nil
}

// UpdateInput is a partial session update. Nil fields are left unchanged;
// a present-but-empty title is ignored rather than emptying the title.
type UpdateInput struct {
	Title    *string
	IsPinned *bool
}

// Update applies rename/pin changes to a session.
func (s *Service) Update(ctx context.Context, sessionID, ownerID string, in UpdateInput) (Session, error) {
	session, err := s.getSession(ctx, sessionID, ownerID)
	if err != nil {
		return Session{}, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		session.Title = DeriveTitle(*in.Title)
	}
	if in.IsPinned != nil {
		session.IsPinned = *in.IsPinned
	}
	session.UpdatedAt = time.Now().UTC()

	updateCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Sessions.Update(updateCtx, session); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: update session: %v", ErrStore, err)
	}
	return session, nil
}

// Delete removes a session and all its messages.
func (s *Service) Delete(ctx context.Context, sessionID, ownerID string) error {
	err := s.deleteSession(ctx, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete session: %v", ErrStore, err)
	}
	telemetry.Info("chat.session.deleted", map[string]any{
		"session_id": sessionID,
		"owner_id":   ownerID,
	})
	return nil
}

func (s *Service) getSession(ctx context.Context, sessionID, ownerID string) (Session, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Sessions.GetByID(ctx, sessionID, ownerID)
}

func (s *Service) appendMessage(ctx context.Context, msg Message) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Messages.Append(ctx, msg)
}

func (s *Service) deleteSession(ctx context.Context, sessionID, ownerID string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Sessions.Delete(ctx, sessionID, ownerID)
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) resolveSources(ctx context.Context, ids []string) ([]SourceRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := s.Docs.ResolveRefs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve sources: %v", ErrStore, err)
	}
	out := make([]SourceRef, 0, len(docs))
	for _, d := range docs {
		out = append(out, SourceRef{
			DocumentID:  d.ID,
			DisplayName: d.DisplayName,
			StorageKey:  d.StorageKey,
		})
	}
	return out, nil
}
