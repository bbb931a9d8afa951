package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dwaltig/agentdeck/internal/types"
)

// Backend is the request/response surface the view and chat layers
// depend on. The live implementation is Client; tests substitute fakes.
type Backend interface {
	DashboardMetrics(ctx context.Context) (*types.DashboardMetrics, error)
	Conversations(ctx context.Context) ([]types.ConversationEntry, error)
	ActiveCases(ctx context.Context) ([]types.CaseSummary, error)
	CaseDetails(ctx context.Context, caseID string) (*types.CaseDetail, error)
	LearningMetrics(ctx context.Context) (*types.LearningMetrics, error)
	ChatHistory(ctx context.Context) ([]types.ChatMessage, error)
	SendChatMessage(ctx context.Context, message string) (*types.ChatResponse, error)
}

// Client talks to the backend's dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given backend origin.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DashboardMetrics fetches the full dashboard snapshot.
func (c *Client) DashboardMetrics(ctx context.Context) (*types.DashboardMetrics, error) {
	var out types.DashboardMetrics
	if err := c.getJSON(ctx, "/dashboard-metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations fetches the ordered agent conversation stream.
func (c *Client) Conversations(ctx context.Context) ([]types.ConversationEntry, error) {
	var out []types.ConversationEntry
	if err := c.getJSON(ctx, "/agents/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveCases fetches the current case list.
func (c *Client) ActiveCases(ctx context.Context) ([]types.CaseSummary, error) {
	var out []types.CaseSummary
	if err := c.getJSON(ctx, "/cases/active", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CaseDetails fetches the detail view for one case. Details are always
// fetched fresh, never cached across selections.
func (c *Client) CaseDetails(ctx context.Context, caseID string) (*types.CaseDetail, error) {
	var out types.CaseDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/cases/%s/details", caseID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LearningMetrics fetches the learning dashboard snapshot.
func (c *Client) LearningMetrics(ctx context.Context) (*types.LearningMetrics, error) {
	var out types.LearningMetrics
	if err := c.getJSON(ctx, "/learning/metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatHistory fetches the ordered chat transcript.
func (c *Client) ChatHistory(ctx context.Context) ([]types.ChatMessage, error) {
	var out []types.ChatMessage
	if err := c.getJSON(ctx, "/chat/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendChatMessage posts one user message and returns the agent reply.
func (c *Client) SendChatMessage(ctx context.Context, message string) (*types.ChatResponse, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/message", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat message failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out types.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON issues a GET and decodes a JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
