// Package agui defines the subset of the AG-UI agent protocol spoken between
// the forwarder and a remote agent runtime.
package agui

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Event types streamed by an agent run.
const (
	EventRunStarted         = "RUN_STARTED"
	EventRunFinished        = "RUN_FINISHED"
	EventRunError           = "RUN_ERROR"
	EventTextMessageStart   = "TEXT_MESSAGE_START"
	EventTextMessageContent = "TEXT_MESSAGE_CONTENT"
	EventTextMessageEnd     = "TEXT_MESSAGE_END"
	EventToolCallStart      = "TOOL_CALL_START"
	EventToolCallArgs       = "TOOL_CALL_ARGS"
	EventToolCallEnd        = "TOOL_CALL_END"
)

// AuthorizationProp is the forwarded property carrying the caller's token.
const AuthorizationProp = "authorization"

// Message is a chat message.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes a client-side tool the agent may call.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Context is a piece of client-provided context.
type Context struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// RunAgentInput is the body POSTed to an agent to start a run.
type RunAgentInput struct {
	ThreadID       string          `json:"threadId"`
	RunID          string          `json:"runId"`
	Messages       []Message       `json:"messages"`
	State          json.RawMessage `json:"state,omitempty"`
	Tools          []Tool          `json:"tools"`
	Context        []Context       `json:"context"`
	ForwardedProps map[string]any  `json:"forwardedProps,omitempty"`
}

// Authorization returns the forwarded token, if any.
func (in RunAgentInput) Authorization() string {
	if in.ForwardedProps == nil {
		return ""
	}
	v, _ := in.ForwardedProps[AuthorizationProp].(string)
	return v
}

// Event is one streamed run event. Only the fields relevant to Type are set.
type Event struct {
	Type       string `json:"type"`
	ThreadID   string `json:"threadId,omitempty"`
	RunID      string `json:"runId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	Role       string `json:"role,omitempty"`
	Delta      string `json:"delta,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolCallName,omitempty"`
	Message    string `json:"message,omitempty"`
}
