package dto

import (
	"encoding/json"

	"github.com/hongminglow/agentauth/internal/agui"
)

// ChatRequest is the body the chat client POSTs to the runtime endpoint.
// Properties are forwarded to the agent untouched, except "authorization",
// which always carries the caller's token.
type ChatRequest struct {
	Agent      string          `json:"agent,omitempty"`
	ThreadID   string          `json:"threadId,omitempty"`
	RunID      string          `json:"runId,omitempty"`
	Messages   []agui.Message  `json:"messages"`
	State      json.RawMessage `json:"state,omitempty"`
	Tools      []agui.Tool     `json:"tools,omitempty"`
	Context    []agui.Context  `json:"context,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}
