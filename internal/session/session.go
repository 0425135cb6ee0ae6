// Package session holds the signed-in user's bearer token and role for the
// lifetime of the process, backed by a private file so it survives restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"central-illustration/internal/client"
	"central-illustration/internal/models"
)

var ErrNotLoggedIn = errors.New("not logged in")

// State is what gets persisted.
type State struct {
	AccessToken string      `json:"access_token"`
	Role        models.Role `json:"role"`
	Username    string      `json:"username"`
}

// API is the slice of the client a login needs.
type API interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Me(ctx context.Context) (*models.CurrentUser, error)
}

// Session is safe for concurrent use. Login and Logout are its only writers.
type Session struct {
	path string

	mu    sync.RWMutex
	state State
}

// DefaultPath is <user config dir>/central-illustration/session.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "central-illustration", "session.json"), nil
}

// Open loads the session stored at path. A missing file is an empty session.
func Open(path string) (*Session, error) {
	s := &Session{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// Token implements client.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) LoggedIn() bool { return s.Token() != "" }

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken != "" && s.state.Role == models.RoleAdmin
}

// Login obtains a token, resolves the role behind it and persists both.
// Nothing is stored unless every step succeeds.
func (s *Session) Login(ctx context.Context, api API, username, password string) (State, error) {
	tok, err := api.Login(ctx, username, password)
	if err != nil {
		return State{}, err
	}
	me, err := api.Me(client.WithToken(ctx, tok.AccessToken))
	if err != nil {
		return State{}, fmt.Errorf("resolve user: %w", err)
	}

	next := State{AccessToken: tok.AccessToken, Role: me.Role, Username: me.Username}
	if err := s.write(next); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return next, nil
}

// Logout forgets the token and removes the stored file.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Session) write(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
