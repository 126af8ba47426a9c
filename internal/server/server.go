package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/agentauth/internal/config"
	"github.com/hongminglow/agentauth/internal/http/handlers"
	"github.com/hongminglow/agentauth/internal/middleware"
	"github.com/hongminglow/agentauth/internal/runtime"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server. The runtime
// hosts a single named agent pointing at the configured deployment URL.
func New(cfg config.Config, logger *zap.Logger) *Server {
	rt := runtime.New(runtime.NewHTTPAgent(cfg.AgentName, cfg.AgentURL, &http.Client{}))
	return &Server{inner: &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, rt, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Handler builds the routed, middleware-wrapped handler around rt.
func Handler(cfg config.Config, rt *runtime.Runtime, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	health := handlers.NewHealthHandler(time.Now(), rt.Agents)
	health.Register(mux)
	chat := handlers.NewChatHandler(rt, cfg.Endpoint, logger)
	chat.Register(mux)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, mux))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
