package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roamplan/roamplan/internal"
)

// The planning agent (tool-calling, deduplication heuristics) lives in a
// separate service; this client is the only thing that talks to it.

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
	TripID  *int64        `json:"trip_id,omitempty"`
	GuestID string        `json:"guest_id,omitempty"`
}

type ChatResponse struct {
	Reply   string `json:"reply"`
	TripID  *int64 `json:"trip_id,omitempty"`
	Created bool   `json:"created,omitempty"`
}

type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	MaxWorkers     int
}

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	slots      chan struct{}
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	workers := config.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Client{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		slots:      make(chan struct{}, workers),
	}
}

// Chat forwards one user message to the planning service and returns its
// reply. Concurrent calls are capped at the configured worker count so a
// burst of chats cannot exhaust connections to the agent. Failures surface
// as errors; nothing here retries.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for assistant slot: %w", ctx.Err())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("assistant request failed", "error", err)
		return nil, internal.NewExternalError("assistant request failed", internal.ErrCodeAssistantFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("assistant returned non-OK status", "status", resp.StatusCode)
		return nil, internal.NewExternalError(
			fmt.Sprintf("assistant returned status %d", resp.StatusCode),
			internal.ErrCodeAssistantFailure, nil)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode assistant response: %w", err)
	}

	return &chatResp, nil
}
