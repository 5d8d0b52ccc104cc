package agent

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the agent backend could not be reached or
// returned a non-success status.
var ErrUnavailable = errors.New("agent unavailable")

// Reply is the agent's answer to one user message.
type Reply struct {
	Text        string
	DocumentIDs []string
}

// Client is the conversational agent collaborator. The caller passes the
// external conversation id (sessions map 1:1 to external conversations)
// and the document ids the agent may draw on; the reply names the subset
// it actually referenced.
type Client interface {
	Send(ctx context.Context, externalID, text string, candidateDocumentIDs []string) (Reply, error)
}
