package services

import (
	"context"
	"encoding/json"
	"fmt"

	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/repositories"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// TokenSource supplies the bearer token for outbound requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type SessionStore interface {
	TokenSource
	Set(ctx context.Context, token string, user *models.User) error
	SetUser(ctx context.Context, user *models.User) error
	Get(ctx context.Context) (models.Session, error)
	Clear(ctx context.Context) error
	// Touch marks the session as in use so idle cleanup leaves it alone.
	Touch(ctx context.Context) error
}

type sessionStore struct {
	storage repositories.TabStorage
	scope   string
}

// NewSessionStore binds a session store to one tab scope of storage.
func NewSessionStore(storage repositories.TabStorage, scope string) SessionStore {
	return &sessionStore{storage: storage, scope: scope}
}

// Set implements SessionStore. A nil user removes any cached profile.
func (s *sessionStore) Set(ctx context.Context, token string, user *models.User) error {
	if err := s.storage.SetItem(ctx, s.scope, tokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return s.SetUser(ctx, user)
}

// SetUser implements SessionStore.
func (s *sessionStore) SetUser(ctx context.Context, user *models.User) error {
	if user == nil {
		if err := s.storage.RemoveItem(ctx, s.scope, userKey); err != nil {
			return fmt.Errorf("failed to remove user: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.storage.SetItem(ctx, s.scope, userKey, string(data)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

// Get implements SessionStore.
func (s *sessionStore) Get(ctx context.Context) (models.Session, error) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return models.Session{}, err
	}

	session := models.Session{Token: token}

	raw, ok, err := s.storage.GetItem(ctx, s.scope, userKey)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to read user: %w", err)
	}
	if ok {
		var user models.User
		// An undecodable profile is treated as absent.
		if json.Unmarshal([]byte(raw), &user) == nil {
			session.User = &user
		}
	}
	return session, nil
}

// Token implements TokenSource.
func (s *sessionStore) Token(ctx context.Context) (string, error) {
	token, _, err := s.storage.GetItem(ctx, s.scope, tokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// Clear implements SessionStore.
func (s *sessionStore) Clear(ctx context.Context) error {
	if err := s.storage.Clear(ctx, s.scope); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Touch implements SessionStore.
func (s *sessionStore) Touch(ctx context.Context) error {
	if err := s.storage.Touch(ctx, s.scope); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}
