package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/http/respond"
	"github.com/hongminglow/agentauth/internal/models/dto"
	"github.com/hongminglow/agentauth/internal/runtime"
	"github.com/hongminglow/agentauth/internal/sse"
)

// ChatHandler forwards chat requests to the agent runtime and relays the
// event stream back to the caller.
type ChatHandler struct {
	runtime *runtime.Runtime
	path    string
	logger  *zap.Logger
}

// NewChatHandler constructs the handler serving path.
func NewChatHandler(rt *runtime.Runtime, path string, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{runtime: rt, path: path, logger: logger}
}

// Register attaches the runtime endpoint to the mux.
func (h *ChatHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(h.path, h.handleChat)
	mux.HandleFunc(h.path+"/info", h.handleInfo)
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}
	var req dto.ChatRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token := runtime.RequestToken(req, r.Header.Get("Authorization"))
	log := h.logger.With(
		zap.String("agent", req.Agent),
		zap.String("thread_id", req.ThreadID),
		zap.String("user_id", auth.IdentityFromAuthorization(token).UserID),
	)

	stream, err := h.runtime.Run(r.Context(), req, token)
	if err != nil {
		var upstream *runtime.UpstreamError
		switch {
		case errors.Is(err, runtime.ErrUnknownAgent):
			respond.Error(w, http.StatusNotFound, err.Error())
		case errors.As(err, &upstream):
			log.Warn("agent rejected run", zap.Int("status", upstream.StatusCode), zap.String("message", upstream.Message))
			respond.Error(w, http.StatusBadGateway, upstream.Error())
		default:
			log.Error("forward chat failed", zap.Error(err))
			respond.Error(w, http.StatusBadGateway, "agent unavailable")
		}
		return
	}
	defer stream.Close()

	out := sse.NewWriter(w)
	w.WriteHeader(http.StatusOK)
	out.Flush()

	relayed := 0
	scanner := sse.NewScanner(stream)
	for scanner.Next() {
		if err := out.WriteEvent(scanner.Event()); err != nil {
			log.Debug("client went away", zap.Error(err))
			return
		}
		relayed++
	}
	if err := scanner.Err(); err != nil && r.Context().Err() == nil {
		log.Warn("agent stream ended with error", zap.Error(err), zap.Int("events", relayed))
		return
	}
	log.Debug("chat relayed", zap.Int("events", relayed))
}

func (h *ChatHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string][]string{"agents": h.runtime.Agents()})
}
