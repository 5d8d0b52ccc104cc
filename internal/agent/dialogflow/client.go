package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"knowledge-backend/internal/agent"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client implements agent.Client against a Dialogflow CX agent. Each
// session maps to one CX session; candidate document ids travel as query
// parameters and referenced ids come back in the response payload.
type Client struct {
	endpoint   string
	project    string
	location   string
	agentID    string
	httpClient *http.Client
}

// NewClient constructs a Dialogflow CX client using application default
// credentials.
func NewClient(ctx context.Context, project, location, agentID, endpoint string) (*Client, error) {
	if strings.TrimSpace(project) == "" || strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("AGENT_PROJECT and AGENT_ID are required")
	}
	if strings.TrimSpace(location) == "" {
		location = "us-central1"
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = fmt.Sprintf("https://%s-dialogflow.googleapis.com", location)
	}

	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("load google credentials: %w", err)
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 60 * time.Second

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		project:    project,
		location:   location,
		agentID:    agentID,
		httpClient: httpClient,
	}, nil
}

type detectIntentRequest struct {
	QueryInput  queryInput   `json:"queryInput"`
	QueryParams *queryParams `json:"queryParams,omitempty"`
}

type queryInput struct {
	Text         textInput `json:"text"`
	LanguageCode string    `json:"languageCode"`
}

type textInput struct {
	Text string `json:"text"`
}

type queryParams struct {
	Parameters map[string]any `json:"parameters,omitempty"`
}

type detectIntentResponse struct {
	QueryResult struct {
		ResponseMessages []struct {
			Text struct {
				Text []string `json:"text"`
			} `json:"text"`
		} `json:"responseMessages"`
		Parameters map[string]any `json:"parameters"`
	} `json:"queryResult"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Send posts one message into the CX session named by externalID.
func (c *Client) Send(ctx context.Context, externalID, text string, candidateDocumentIDs []string) (agent.Reply, error) {
	url := fmt.Sprintf("%s/v3/projects/%s/locations/%s/agents/%s/sessions/%s:detectIntent",
		c.endpoint, c.project, c.location, c.agentID, externalID)

	reqBody := detectIntentRequest{
		QueryInput: queryInput{
			Text:         textInput{Text: text},
			LanguageCode: "en",
		},
	}
	if len(candidateDocumentIDs) > 0 {
		reqBody.QueryParams = &queryParams{
			Parameters: map[string]any{"candidate_document_ids": candidateDocumentIDs},
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return agent.Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return agent.Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return agent.Reply{}, fmt.Errorf("%w: %v", agent.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return agent.Reply{}, fmt.Errorf("%w: read response: %v", agent.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return agent.Reply{}, fmt.Errorf("%w: status %d", agent.ErrUnavailable, resp.StatusCode)
	}

	var parsed detectIntentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return agent.Reply{}, fmt.Errorf("%w: decode response: %v", agent.ErrUnavailable, err)
	}
	if parsed.Error != nil {
		return agent.Reply{}, fmt.Errorf("%w: %s", agent.ErrUnavailable, parsed.Error.Message)
	}

	var texts []string
	for _, msg := range parsed.QueryResult.ResponseMessages {
		texts = append(texts, msg.Text.Text...)
	}

	return agent.Reply{
		Text:        strings.Join(texts, "\n"),
		DocumentIDs: referencedIDs(parsed.QueryResult.Parameters),
	}, nil
}

// referencedIDs pulls the referenced_document_ids parameter out of the CX
// query result; absent or malformed values yield an empty list.
func referencedIDs(params map[string]any) []string {
	raw, ok := params["referenced_document_ids"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ agent.Client = (*Client)(nil)
