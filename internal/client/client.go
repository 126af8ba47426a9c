// Package client talks to the forwarder's runtime endpoint on behalf of the
// chat UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/models/dto"
	"github.com/hongminglow/agentauth/internal/sse"
)

// TokenSource yields the token to attach to each request, if any.
type TokenSource interface {
	Token() (string, bool)
}

// StatusError is returned when the forwarder answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("runtime responded %d: %s", e.StatusCode, e.Message)
}

// RunError is a RUN_ERROR event reported by the agent.
type RunError struct {
	Message string
}

func (e *RunError) Error() string {
	return "agent run failed: " + e.Message
}

// Client posts chat requests and decodes the streamed events.
type Client struct {
	url    string
	agent  string
	tokens TokenSource
	http   *http.Client
}

// New returns a client for the runtime endpoint at url. A nil httpClient
// means http.DefaultClient.
func New(url, agent string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, agent: agent, tokens: tokens, http: httpClient}
}

// Send runs one chat turn over messages and calls onEvent for every event in
// the response stream.
func (c *Client) Send(ctx context.Context, threadID string, messages []agui.Message, onEvent func(agui.Event)) error {
	req := dto.ChatRequest{
		Agent:      c.agent,
		ThreadID:   threadID,
		Messages:   messages,
		Properties: map[string]any{},
	}
	token, hasToken := c.tokens.Token()
	if hasToken {
		req.Properties[agui.AuthorizationProp] = token
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if hasToken {
		httpReq.Header.Set("Authorization", auth.BearerHeader(token))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	scanner := sse.NewScanner(resp.Body)
	for scanner.Next() {
		var ev agui.Event
		if err := json.Unmarshal([]byte(scanner.Event().Data), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Type == agui.EventRunError {
			return &RunError{Message: ev.Message}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Message != "" {
		return env.Message
	}
	return strings.TrimSpace(string(raw))
}
