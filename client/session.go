package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Profile is the signed-in user as last reported by the server.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session caches the signed-in profile on disk so a client can restore its
// UI state across restarts. It is never trusted for authorization; the server
// only honours the session cookie.
type Session struct {
	mu   sync.RWMutex
	path string
	user *Profile
}

// LoadSession reads the session file at path. A missing file yields an empty session.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var stored struct {
		User *Profile `json:"user"`
	}
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.user = stored.User
	return s, nil
}

// NewMemorySession returns a session that is never written to disk.
func NewMemorySession() *Session {
	return &Session{}
}

// User returns the cached profile.
func (s *Session) User() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Profile{}, false
	}
	return *s.user, true
}

// SignedIn reports whether a profile is cached.
func (s *Session) SignedIn() bool {
	_, ok := s.User()
	return ok
}

// Set caches p and saves the session.
func (s *Session) Set(p Profile) error {
	s.mu.Lock()
	s.user = &p
	s.mu.Unlock()
	return s.Save()
}

// Clear forgets the cached profile and saves the session.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return s.Save()
}

// Save writes the session file atomically. Memory sessions are a no-op.
func (s *Session) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	b, err := json.MarshalIndent(struct {
		User *Profile `json:"user"`
	}{s.user}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
