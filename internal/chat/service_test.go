package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowledge-backend/internal/agent"
	"knowledge-backend/internal/documents"
)

// fakeAgent echoes the message and cites the first candidate document.
type fakeAgent struct {
	lastExternalID string
	lastCandidates []string
	err            error
}

func (a *fakeAgent) Send(ctx context.Context, externalID, text string, candidates []string) (agent.Reply, error) {
	if a.err != nil {
		return agent.Reply{}, a.err
	}
	a.lastExternalID = externalID
	a.lastCandidates = candidates
	reply := agent.Reply{Text: "echo: " + text}
	if len(candidates) > 0 {
		reply.DocumentIDs = []string{candidates[0]}
	}
	return reply, nil
}

type fakeDirectory struct {
	docs map[string]documents.Document
}

func (d *fakeDirectory) VisibleIDs(ctx context.Context, callerID string, scope documents.Scope) ([]string, error) {
	var ids []string
	for id, doc := range d.docs {
		if scope.Allows(callerID, doc.OwnerID, doc.IsShared) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *fakeDirectory) ResolveRefs(ctx context.Context, ids []string) ([]documents.Document, error) {
	var out []documents.Document
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func chatFixture(t *testing.T) (*Service, *fakeAgent) {
	t.Helper()
	messages := NewMemoryMessagesRepo()
	sessions := NewMemorySessionsRepo(messages)
	ag := &fakeAgent{}
	dir := &fakeDirectory{docs: map[string]documents.Document{
		"doc-1": {ID: "doc-1", DisplayName: "handbook.pdf", StorageKey: "documents/company/handbook.pdf", IsShared: true},
	}}
	return NewService(sessions, messages, dir, ag), ag
}

func TestSendMessageCreatesSession(t *testing.T) {
	svc, ag := chatFixture(t)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, SendInput{
		OwnerID: "u1",
		Text:    "  Hello there, can you help?  ",
		Scope:   documents.ScopeAll,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if !result.Created {
		t.Fatal("first message must create the session")
	}
	if result.Session.Title != "Hello there, can you help?" {
		t.Fatalf("unexpected title %q", result.Session.Title)
	}
	if result.UserMessage.ID == result.AssistantReply.ID {
		t.Fatal("messages must carry distinct generated ids")
	}
	if result.UserMessage.Role != RoleUser || result.AssistantReply.Role != RoleAssistant {
		t.Fatalf("unexpected roles %q/%q", result.UserMessage.Role, result.AssistantReply.Role)
	}
	if ag.lastExternalID != result.Session.ID {
		t.Fatalf("agent must receive the session id, got %q", ag.lastExternalID)
	}
	if len(ag.lastCandidates) != 1 || ag.lastCandidates[0] != "doc-1" {
		t.Fatalf("unexpected candidates %v", ag.lastCandidates)
	}
	if len(result.AssistantReply.Sources) != 1 || result.AssistantReply.Sources[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected sources %v", result.AssistantReply.Sources)
	}
}

func TestSendMessageIdenticalTextDistinctIDs(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "same text", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("first SendMessage: %v", err)
	}
	second, err := svc.SendMessage(ctx, SendInput{
		OwnerID:   "u1",
		SessionID: first.Session.ID,
		Text:      "same text",
		Scope:     documents.ScopeAll,
	})
	if err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}

	if second.Created {
		t.Fatal("existing session must not be re-created")
	}
	if first.UserMessage.ID == second.UserMessage.ID {
		t.Fatal("identical text in the same session must still get unique message ids")
	}

	messages, err := svc.ListMessages(ctx, first.Session.ID, "u1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
}

func TestSendMessageUnknownSessionNeverCreates(t *testing.T) {
	svc, _ := chatFixture(t)

	_, err := svc.SendMessage(context.Background(), SendInput{
		OwnerID:   "u1",
		SessionID: "guessed-id",
		Text:      "hi",
		Scope:     documents.ScopeAll,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sessions, err := svc.ListSessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatal("failed resolve must not create a session")
	}
}

func TestSessionIsolation(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "private", Scope: documents.ScopeMy})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	id := result.Session.ID

	if _, err := svc.ListMessages(ctx, id, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner listing messages: got %v", err)
	}
	if _, err := svc.Update(ctx, id, "u2", UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner updating: got %v", err)
	}
	if err := svc.Delete(ctx, id, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner deleting: got %v", err)
	}
	// The rightful owner still sees it.
	if _, err := svc.ListMessages(ctx, id, "u1"); err != nil {
		t.Fatalf("owner listing messages: %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "original title", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	id := result.Session.ID

	empty := ""
	updated, err := svc.Update(ctx, id, "u1", UpdateInput{Title: &empty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "original title" {
		t.Fatalf("empty title must be ignored, got %q", updated.Title)
	}

	newTitle := "renamed"
	pinned := true
	updated, err = svc.Update(ctx, id, "u1", UpdateInput{Title: &newTitle, IsPinned: &pinned})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed" || !updated.IsPinned {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestListSessionsPinnedFirst(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "older", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "newer", Scope: documents.ScopeAll}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	pinned := true
	if _, err := svc.Update(ctx, first.Session.ID, "u1", UpdateInput{IsPinned: &pinned}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sessions, err := svc.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != first.Session.ID {
		t.Fatal("pinned session must sort first")
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "to delete", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	id := result.Session.ID

	if err := svc.Delete(ctx, id, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.ListMessages(ctx, id, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session fetch after delete: got %v", err)
	}

	// Messages are gone from the underlying repo too, not just masked.
	messages, err := svc.Messages.ListBySession(ctx, id, "u1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no orphaned messages, got %d", len(messages))
	}
}

func TestSendMessageAgentFailure(t *testing.T) {
	svc, ag := chatFixture(t)
	ag.err = errors.New("backend down")

	_, err := svc.SendMessage(context.Background(), SendInput{OwnerID: "u1", Text: "hi", Scope: documents.ScopeAll})
	if !errors.Is(err, ErrAgent) {
		t.Fatalf("expected ErrAgent, got %v", err)
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	svc, _ := chatFixture(t)
	_, err := svc.SendMessage(context.Background(), SendInput{OwnerID: "u1", Text: "   ", Scope: documents.ScopeAll})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// failingMessages rejects every append, for partial-state tests.
type failingMessages struct {
	*MemoryMessagesRepo
}

func (failingMessages) Append(ctx context.Context, msg Message) error {
	return errors.New("db down")
}

func TestSendMessageAppendFailureRemovesNewSession(t *testing.T) {
	mem := NewMemoryMessagesRepo()
	sessions := NewMemorySessionsRepo(mem)
	svc := NewService(sessions, failingMessages{mem}, &fakeDirectory{}, &fakeAgent{})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "hello", Scope: documents.ScopeAll})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}

	list, err := svc.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("failed first message must not leave an empty session behind")
	}
}

func TestSendMessageAppendFailureKeepsExistingSession(t *testing.T) {
	svc, _ := chatFixture(t)
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "hello", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	svc.Messages = failingMessages{NewMemoryMessagesRepo()}
	_, err = svc.SendMessage(ctx, SendInput{
		OwnerID:   "u1",
		SessionID: first.Session.ID,
		Text:      "second",
		Scope:     documents.ScopeAll,
	})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}

	list, err := svc.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 1 {
		t.Fatal("append failure on an existing session must not delete it")
	}
}

// recordingSessions / recordingMessages note whether each call's context
// carried a deadline.
type ctxRecorder struct {
	deadlines map[string]bool
}

func (r *ctxRecorder) record(call string, ctx context.Context) {
	_, ok := ctx.Deadline()
	r.deadlines[call] = ok
}

type recordingSessions struct {
	*MemorySessionsRepo
	rec *ctxRecorder
}

func (r recordingSessions) Create(ctx context.Context, s Session) error {
	r.rec.record("sessions.Create", ctx)
	return r.MemorySessionsRepo.Create(ctx, s)
}

func (r recordingSessions) GetByID(ctx context.Context, id, ownerID string) (Session, error) {
	r.rec.record("sessions.GetByID", ctx)
	return r.MemorySessionsRepo.GetByID(ctx, id, ownerID)
}

func (r recordingSessions) ListByOwner(ctx context.Context, ownerID string) ([]Session, error) {
	r.rec.record("sessions.ListByOwner", ctx)
	return r.MemorySessionsRepo.ListByOwner(ctx, ownerID)
}

func (r recordingSessions) Update(ctx context.Context, s Session) error {
	r.rec.record("sessions.Update", ctx)
	return r.MemorySessionsRepo.Update(ctx, s)
}

func (r recordingSessions) Delete(ctx context.Context, id, ownerID string) error {
	r.rec.record("sessions.Delete", ctx)
	return r.MemorySessionsRepo.Delete(ctx, id, ownerID)
}

type recordingMessages struct {
	*MemoryMessagesRepo
	rec *ctxRecorder
}

func (r recordingMessages) Append(ctx context.Context, msg Message) error {
	r.rec.record("messages.Append", ctx)
	return r.MemoryMessagesRepo.Append(ctx, msg)
}

func (r recordingMessages) ListBySession(ctx context.Context, sessionID, ownerID string) ([]Message, error) {
	r.rec.record("messages.ListBySession", ctx)
	return r.MemoryMessagesRepo.ListBySession(ctx, sessionID, ownerID)
}

func TestRepoCallsCarryDeadline(t *testing.T) {
	rec := &ctxRecorder{deadlines: map[string]bool{}}
	mem := NewMemoryMessagesRepo()
	sessions := recordingSessions{MemorySessionsRepo: NewMemorySessionsRepo(mem), rec: rec}
	messages := recordingMessages{MemoryMessagesRepo: mem, rec: rec}
	svc := NewService(sessions, messages, &fakeDirectory{}, &fakeAgent{})
	svc.StoreTimeout = 50 * time.Millisecond
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, SendInput{OwnerID: "u1", Text: "hello", Scope: documents.ScopeAll})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := svc.ListSessions(ctx, "u1"); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if _, err := svc.ListMessages(ctx, result.Session.ID, "u1"); err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if err := svc.Delete(ctx, result.Session.ID, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	calls := []string{
		"sessions.Create", "sessions.GetByID", "sessions.ListByOwner",
		"sessions.Update", "sessions.Delete",
		"messages.Append", "messages.ListBySession",
	}
	for _, call := range calls {
		if !rec.deadlines[call] {
			t.Errorf("%s ran without a per-call timeout on its context", call)
		}
	}
}
