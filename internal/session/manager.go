// Package session provides session management for the API service.
// Sessions live in Redis with TTL-based expiration; the store also keeps a
// per-user pointer to the active session and the user's "remember me"
// preference, which decides whether a prior session survives the next login.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

const (
	// RememberTTL is the session lifetime when the user asked to stay signed in.
	RememberTTL = 30 * 24 * time.Hour
	// DefaultTTL is the server-side lifetime of a non-remembered session.
	DefaultTTL = 24 * time.Hour
)

// Manager defines the interface for session management operations
type Manager interface {
	Create(ctx context.Context, userID, email string, remember bool) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Validate(ctx context.Context, sessionID string) (bool, error)

	// RevokeUserSession discards the user's active session, if any.
	RevokeUserSession(ctx context.Context, userID string) error

	// RememberPreference reports the user's persisted "remember me" choice.
	// found is false when the user never made a choice.
	RememberPreference(ctx context.Context, userID string) (remember, found bool, err error)
	SetRememberPreference(ctx context.Context, userID string, remember bool) error
}

type manager struct {
	store Store
}

// NewManager creates a new session manager
func NewManager(store Store) Manager {
	return &manager{store: store}
}

func sessionKey(id string) string      { return fmt.Sprintf("session:%s", id) }
func userSessionKey(uid string) string { return fmt.Sprintf("usersession:%s", uid) }
func rememberKey(uid string) string    { return fmt.Sprintf("remember:%s", uid) }

// Create issues a new session for the user. The remember flag selects the
// session lifetime and is persisted as the user's preference.
func (m *manager) Create(ctx context.Context, userID, email string, remember bool) (*Session, error) {
	ttl := DefaultTTL
	if remember {
		ttl = RememberTTL
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.store.Set(ctx, sessionKey(sess.ID), string(data), ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	// Track the active session per user so it can be revoked on the next
	// login when the remember preference says not to persist it.
	if err := m.store.Set(ctx, userSessionKey(userID), sess.ID, ttl); err != nil {
		return nil, fmt.Errorf("failed to index session by user: %w", err)
	}

	if err := m.SetRememberPreference(ctx, userID, remember); err != nil {
		return nil, fmt.Errorf("failed to persist remember preference: %w", err)
	}

	return sess, nil
}

// Get retrieves a session by ID
func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := m.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, ErrInvalidSession
	}

	if time.Now().After(sess.ExpiresAt) {
		// Redis TTL should have reaped this already; clean up regardless.
		_ = m.store.Delete(ctx, sessionKey(sessionID))
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

// Delete removes a session
func (m *manager) Delete(ctx context.Context, sessionID string) error {
	sess, err := m.Get(ctx, sessionID)
	if err == nil {
		_ = m.store.Delete(ctx, userSessionKey(sess.UserID))
	}
	return m.store.Delete(ctx, sessionKey(sessionID))
}

// Validate checks if a session exists and is valid
func (m *manager) Validate(ctx context.Context, sessionID string) (bool, error) {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return sess != nil, nil
}

// RevokeUserSession discards the active session of the given user.
func (m *manager) RevokeUserSession(ctx context.Context, userID string) error {
	sessionID, err := m.store.Get(ctx, userSessionKey(userID))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user session: %w", err)
	}

	if err := m.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return m.store.Delete(ctx, userSessionKey(userID))
}

// RememberPreference reports the persisted remember choice for the user.
func (m *manager) RememberPreference(ctx context.Context, userID string) (bool, bool, error) {
	val, err := m.store.Get(ctx, rememberKey(userID))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return val == "true", true, nil
}

// SetRememberPreference persists the remember choice. The flag has no TTL:
// it reflects the user's last explicit choice, not the session lifetime.
func (m *manager) SetRememberPreference(ctx context.Context, userID string, remember bool) error {
	val := "false"
	if remember {
		val = "true"
	}
	return m.store.Set(ctx, rememberKey(userID), val, 0)
}
