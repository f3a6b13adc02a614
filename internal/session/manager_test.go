package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store used to exercise the manager without Redis.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return val, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func TestManager_CreateAndGet(t *testing.T) {
	mgr := NewManager(newMemStore())
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "user-1", "user@example.com", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Expected non-empty session ID")
	}

	got, err := mgr.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-1" || got.Email != "user@example.com" {
		t.Errorf("Unexpected session contents: %+v", got)
	}
	if got.Remember {
		t.Error("Expected remember=false")
	}

	wantExpiry := time.Now().Add(DefaultTTL)
	if got.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || got.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("Expected ~24h expiry, got %v", got.ExpiresAt)
	}
}

func TestManager_RememberExtendsLifetime(t *testing.T) {
	mgr := NewManager(newMemStore())
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "user-1", "user@example.com", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !sess.Remember {
		t.Error("Expected remember=true on session")
	}
	if sess.ExpiresAt.Sub(sess.CreatedAt) != RememberTTL {
		t.Errorf("Expected %v lifetime, got %v", RememberTTL, sess.ExpiresAt.Sub(sess.CreatedAt))
	}

	remember, found, err := mgr.RememberPreference(ctx, "user-1")
	if err != nil {
		t.Fatalf("RememberPreference failed: %v", err)
	}
	if !found || !remember {
		t.Errorf("Expected persisted remember=true, got remember=%v found=%v", remember, found)
	}
}

func TestManager_RememberPreferenceUnset(t *testing.T) {
	mgr := NewManager(newMemStore())

	_, found, err := mgr.RememberPreference(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("RememberPreference failed: %v", err)
	}
	if found {
		t.Error("Expected found=false for a user with no stored preference")
	}
}

func TestManager_GetExpiredSession(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	expired := &Session{
		ID:        "expired-id",
		UserID:    "user-1",
		Email:     "user@example.com",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	data, _ := json.Marshal(expired)
	store.data[sessionKey(expired.ID)] = string(data)

	if _, err := mgr.Get(ctx, expired.ID); err != ErrSessionExpired {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if _, ok := store.data[sessionKey(expired.ID)]; ok {
		t.Error("Expected expired session to be removed from the store")
	}
}

func TestManager_Delete(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "user-1", "user@example.com", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mgr.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := mgr.Get(ctx, sess.ID); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	if _, ok := store.data[userSessionKey("user-1")]; ok {
		t.Error("Expected user session index to be cleared")
	}
}

func TestManager_RevokeUserSession(t *testing.T) {
	mgr := NewManager(newMemStore())
	ctx := context.Background()

	sess, err := mgr.Create(ctx, "user-1", "user@example.com", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mgr.RevokeUserSession(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeUserSession failed: %v", err)
	}
	if _, err := mgr.Get(ctx, sess.ID); err != ErrSessionNotFound {
		t.Errorf("Expected session to be gone after revoke, got %v", err)
	}

	// Revoking a user with no session is a no-op.
	if err := mgr.RevokeUserSession(ctx, "user-without-session"); err != nil {
		t.Errorf("Expected nil for user without session, got %v", err)
	}
}
