package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/auth"
)

// UpstreamError is returned when the agent answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("agent responded %d: %s", e.StatusCode, e.Message)
}

// Ensure HTTPAgent satisfies the Agent interface at compile time.
var _ Agent = (*HTTPAgent)(nil)

// HTTPAgent runs a remote AG-UI agent over HTTP.
type HTTPAgent struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPAgent returns an agent posting runs to url. A nil client means
// http.DefaultClient.
func NewHTTPAgent(name, url string, client *http.Client) *HTTPAgent {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAgent{name: name, url: url, client: client}
}

// Name returns the agent name.
func (a *HTTPAgent) Name() string {
	return a.name
}

// URL returns the remote endpoint.
func (a *HTTPAgent) URL() string {
	return a.url
}

// Run POSTs input to the agent and returns the SSE response body.
func (a *HTTPAgent) Run(ctx context.Context, input agui.RunAgentInput, token string) (io.ReadCloser, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal run input: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", auth.BearerHeader(token))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call agent %s: %w", a.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}
	return resp.Body, nil
}
