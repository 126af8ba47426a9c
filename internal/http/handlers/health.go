package handlers

import (
	"net/http"
	"time"

	"github.com/hongminglow/agentauth/internal/http/respond"
)

// HealthHandler reports uptime and the agents the forwarder can reach.
type HealthHandler struct {
	startedAt time.Time
	agents    func() []string
}

// NewHealthHandler creates a health endpoint handler. agents may be nil.
func NewHealthHandler(startedAt time.Time, agents func() []string) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, agents: agents}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handle)
}

type healthStatus struct {
	Status string   `json:"status"`
	Uptime string   `json:"uptime"`
	Agents []string `json:"agents,omitempty"`
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, http.MethodGet)
		return
	}
	status := healthStatus{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.agents != nil {
		status.Agents = h.agents()
	}
	respond.JSON(w, http.StatusOK, "ok", status)
}
