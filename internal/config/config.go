package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds forwarder configuration sourced from env vars.
type Config struct {
	Port        string   `env:"PORT"                     envDefault:"8080"`
	AgentURL    string   `env:"LANGGRAPH_DEPLOYMENT_URL" envDefault:"http://localhost:8000"`
	AgentName   string   `env:"AGENT_NAME"               envDefault:"agent_with_auth"`
	Endpoint    string   `env:"RUNTIME_ENDPOINT"         envDefault:"/api/copilotkit"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS"     envDefault:"*" envSeparator:","`
	LogLevel    string   `env:"LOG_LEVEL"                envDefault:"info"`
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Port = fallback(cfg.Port, "8080")
	cfg.AgentURL = fallback(cfg.AgentURL, "http://localhost:8000")
	cfg.AgentName = fallback(cfg.AgentName, "agent_with_auth")
	cfg.Endpoint = normalizePath(fallback(cfg.Endpoint, "/api/copilotkit"))
	cfg.CORSOrigins = cleanList(cfg.CORSOrigins)

	if err := validateURL(cfg.AgentURL); err != nil {
		return Config{}, fmt.Errorf("LANGGRAPH_DEPLOYMENT_URL: %w", err)
	}
	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// AgentConfig holds configuration for the demo agent runtime.
type AgentConfig struct {
	Port      string `env:"PORT"       envDefault:"8000"`
	AgentName string `env:"AGENT_NAME" envDefault:"agent_with_auth"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
}

// LoadAgent reads the demo agent configuration.
func LoadAgent() (AgentConfig, error) {
	var cfg AgentConfig
	if err := env.Parse(&cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Port = fallback(cfg.Port, "8000")
	cfg.AgentName = fallback(cfg.AgentName, "agent_with_auth")
	return cfg, nil
}

// HTTPAddress returns the host:port pair for the agent to bind to.
func (c AgentConfig) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// ChatConfig holds configuration for the terminal chat client.
type ChatConfig struct {
	ServerURL   string `env:"AGENTAUTH_SERVER_URL" envDefault:"http://localhost:8080"`
	AgentName   string `env:"AGENT_NAME"           envDefault:"agent_with_auth"`
	Endpoint    string `env:"RUNTIME_ENDPOINT"     envDefault:"/api/copilotkit"`
	Store       string `env:"SESSION_STORE"        envDefault:"file"`
	StoreFile   string `env:"SESSION_FILE"`
	DatabaseURL string `env:"DATABASE_URL"`
	Namespace   string `env:"SESSION_NAMESPACE"    envDefault:"default"`
	LogLevel    string `env:"LOG_LEVEL"            envDefault:"warn"`
}

// LoadChat reads the chat client configuration.
func LoadChat() (ChatConfig, error) {
	var cfg ChatConfig
	if err := env.Parse(&cfg); err != nil {
		return ChatConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks a chat configuration after flags have been applied.
func (c *ChatConfig) Validate() error {
	c.ServerURL = strings.TrimRight(fallback(c.ServerURL, "http://localhost:8080"), "/")
	c.Endpoint = normalizePath(fallback(c.Endpoint, "/api/copilotkit"))
	c.AgentName = fallback(c.AgentName, "agent_with_auth")
	if err := validateURL(c.ServerURL); err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(c.Store), "postgres") && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required when SESSION_STORE=postgres")
	}
	return nil
}

// RuntimeURL is the full forwarder endpoint.
func (c ChatConfig) RuntimeURL() string {
	return c.ServerURL + c.Endpoint
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func normalizePath(p string) string {
	p = "/" + strings.Trim(p, "/")
	return p
}

func cleanList(in []string) []string {
	var out []string
	for _, part := range in {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
