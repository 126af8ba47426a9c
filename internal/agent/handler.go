// Package agent is a deterministic stand-in for the remote agent runtime. It
// reads the forwarded token the same way a real deployment would and answers
// over the AG-UI event stream.
package agent

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/http/respond"
	"github.com/hongminglow/agentauth/internal/sse"
)

// Handler serves the run endpoint and a health check.
type Handler struct {
	name   string
	logger *zap.Logger
}

// NewHandler returns a handler for the agent called name.
func NewHandler(name string, logger *zap.Logger) *Handler {
	return &Handler{name: name, logger: logger}
}

// Register wires the routes into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/", h.handleRun)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]string{"status": "ok", "agent": h.name})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}
	var in agui.RunAgentInput
	if err := respond.DecodeJSON(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}

	id := Authenticate(Configurable(in), r.Header.Get("Authorization"))
	if id.Authenticated() {
		h.logger.Info("authenticated user", zap.String("user_id", id.UserID), zap.String("name", id.Name))
	} else {
		h.logger.Info("no authentication found; using anonymous user")
	}

	reply, call := Answer(id, LastUserMessage(in.Messages))

	out := sse.NewWriter(w)
	w.WriteHeader(http.StatusOK)
	for _, ev := range runEvents(in, reply, call) {
		if err := out.WriteJSON(ev); err != nil {
			h.logger.Debug("client went away", zap.Error(err))
			return
		}
	}
}

func runEvents(in agui.RunAgentInput, reply string, call *ToolCall) []agui.Event {
	events := []agui.Event{{Type: agui.EventRunStarted, ThreadID: in.ThreadID, RunID: in.RunID}}

	if call != nil {
		callID := uuid.NewString()
		args, _ := json.Marshal(map[string]string{"location": call.Location})
		events = append(events,
			agui.Event{Type: agui.EventToolCallStart, ToolCallID: callID, ToolName: call.Name},
			agui.Event{Type: agui.EventToolCallArgs, ToolCallID: callID, Delta: string(args)},
			agui.Event{Type: agui.EventToolCallEnd, ToolCallID: callID},
		)
	}

	msgID := uuid.NewString()
	events = append(events, agui.Event{Type: agui.EventTextMessageStart, MessageID: msgID, Role: agui.RoleAssistant})
	for _, chunk := range strings.SplitAfter(reply, " ") {
		if chunk == "" {
			continue
		}
		events = append(events, agui.Event{Type: agui.EventTextMessageContent, MessageID: msgID, Delta: chunk})
	}
	return append(events,
		agui.Event{Type: agui.EventTextMessageEnd, MessageID: msgID},
		agui.Event{Type: agui.EventRunFinished, ThreadID: in.ThreadID, RunID: in.RunID},
	)
}
