package chat

import "time"

type sessionResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	KnowledgeScope string    `json:"knowledgeScope"`
	IsPinned       bool      `json:"isPinned"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type messageResponse struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Scope     string      `json:"scope"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type sendResponse struct {
	Session        sessionResponse `json:"session"`
	Created        bool            `json:"created"`
	Message        messageResponse `json:"message"`
	AssistantReply messageResponse `json:"reply"`
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
		Title:          s.Title,
		KnowledgeScope: s.KnowledgeScope,
		IsPinned:       s.IsPinned,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      m.Role,
		Content:   m.Content,
		Scope:     m.Scope,
		Sources:   m.Sources,
		CreatedAt: m.CreatedAt,
	}
}
