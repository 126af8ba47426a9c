package dto

import "github.com/hongminglow/agentauth/internal/models"

// SessionResponse describes the client session as reported by the chat CLI.
type SessionResponse struct {
	LoggedIn bool         `json:"logged_in"`
	User     *models.User `json:"user,omitempty"`
	Token    string       `json:"token,omitempty"`
}
