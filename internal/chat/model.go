package chat

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is an owner-scoped conversation. Sessions are strictly
// partitioned by owner: no cross-owner access exists, admin included.
type Session struct {
	ID             string
	OwnerID        string
	Title          string
	KnowledgeScope string
	IsPinned       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message is one immutable entry in a session. Sources is assistant-only:
// the documents the agent actually referenced, in its order.
type Message struct {
	ID        string
	SessionID string
	OwnerID   string
	Role      string
	Content   string
	Scope     string
	Sources   []SourceRef
	CreatedAt time.Time
}

// SourceRef points a message at a document it cited.
type SourceRef struct {
	DocumentID  string `json:"documentId"`
	DisplayName string `json:"displayName"`
	StorageKey  string `json:"storageKey"`
}
