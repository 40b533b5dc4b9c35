package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// Session is the persisted client state.
type Session struct {
	AccessToken  string `toml:"spotify_access_token"`
	RefreshToken string `toml:"spotify_refresh_token"`
	// TokenExpiry is a unix timestamp in milliseconds. Zero means unknown.
	TokenExpiry  int64   `toml:"spotify_token_expiry"`
	CodeVerifier string  `toml:"pkce_code_verifier"`
	OAuthState   string  `toml:"oauth_state"`
	ClientID     string  `toml:"user_spotify_client_id"`
	AdminToken   string  `toml:"admin_auth_token"`
	VotedForIDs  []int64 `toml:"voted_for_ids"`
}

// Expiry converts TokenExpiry to a [time.Time]; the zero time when unset.
func (s *Session) Expiry() time.Time {
	if s.TokenExpiry == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.TokenExpiry)
}

// Expired reports whether the access token must be refreshed before use.
func (s *Session) Expired(now time.Time) bool {
	return s.TokenExpiry == 0 || now.UnixMilli() > s.TokenExpiry
}

// HasVoted reports whether id was recorded with [Session.RecordVote].
func (s *Session) HasVoted(id int64) bool {
	return slices.Contains(s.VotedForIDs, id)
}

// RecordVote remembers id. Recording the same id twice is a no-op.
func (s *Session) RecordVote(id int64) {
	if !s.HasVoted(id) {
		s.VotedForIDs = append(s.VotedForIDs, id)
	}
}

// clearSpotify drops everything tied to the Spotify login, keeping the client id.
func (s *Session) clearSpotify() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.TokenExpiry = 0
	s.CodeVerifier = ""
	s.OAuthState = ""
}

// Store loads and saves a [Session].
type Store interface {
	Load() (*Session, error)
	Save(*Session) error
}

// FileStore persists the session as TOML at Path.
type FileStore struct {
	Path string
}

// NewFileStore creates a [FileStore] for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the session file. A missing file yields an empty session.
func (f *FileStore) Load() (*Session, error) {
	var s Session
	if _, err := toml.DecodeFile(f.Path, &s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Session{}, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return &s, nil
}

// Save writes the session atomically with owner only permissions.
func (f *FileStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu      sync.Mutex
	session Session
}

// NewMemoryStore creates a [MemoryStore] seeded with s (which may be nil).
func NewMemoryStore(s *Session) *MemoryStore {
	m := &MemoryStore{}
	if s != nil {
		m.session = *s
		m.session.VotedForIDs = slices.Clone(s.VotedForIDs)
	}
	return m
}

func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	s.VotedForIDs = slices.Clone(m.session.VotedForIDs)
	return &s, nil
}

func (m *MemoryStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = *s
	m.session.VotedForIDs = slices.Clone(s.VotedForIDs)
	return nil
}
