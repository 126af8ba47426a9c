// Package session holds the mock-authenticated "current user" of a chat
// client and the fake token derived from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/models"
	"github.com/hongminglow/agentauth/internal/storage"
	"github.com/hongminglow/agentauth/internal/users"
)

// StorageKey is the key under which the current user id is persisted.
const StorageKey = "fake_user_id"

// Holder owns the current user. The token is recomputed on every transition
// and is present exactly when a user is.
type Holder struct {
	mu      sync.RWMutex
	lookup  users.Lookup
	store   storage.Store
	current *models.User
	token   string
}

// New returns a logged-out holder.
func New(lookup users.Lookup, store storage.Store) *Holder {
	return &Holder{lookup: lookup, store: store}
}

// InitialUser resolves the persisted id through the registry. It reports false
// when nothing is stored, the store cannot be read, or the id is unknown.
func (h *Holder) InitialUser(ctx context.Context) (models.User, bool) {
	id, err := h.store.Get(ctx, StorageKey)
	if err != nil || id == "" {
		return models.User{}, false
	}
	user, err := h.lookup.Find(id)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

// Restore applies InitialUser to the holder.
func (h *Holder) Restore(ctx context.Context) (models.User, bool) {
	user, ok := h.InitialUser(ctx)
	if !ok {
		return models.User{}, false
	}
	h.set(&user)
	return user, true
}

// Login makes userID the current user and persists it. Unknown ids return
// users.ErrNotFound and leave the session untouched.
func (h *Holder) Login(ctx context.Context, userID string) (models.User, error) {
	user, err := h.lookup.Find(userID)
	if err != nil {
		return models.User{}, err
	}
	if err := h.store.Set(ctx, StorageKey, user.ID); err != nil {
		return models.User{}, fmt.Errorf("persist session: %w", err)
	}
	h.set(&user)
	return user, nil
}

// Logout clears the current user and the persisted id.
func (h *Holder) Logout(ctx context.Context) error {
	h.set(nil)
	if err := h.store.Delete(ctx, StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the logged-in user.
func (h *Holder) Current() (models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return models.User{}, false
	}
	return *h.current, true
}

// Token returns the fake token derived from the current user.
func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.current != nil
}

// Users lists the identities available for login.
func (h *Holder) Users() []models.User {
	return h.lookup.List()
}

func (h *Holder) set(user *models.User) {
	token, _ := auth.DeriveToken(user)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = user
	h.token = token
}
