package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/skipper/internal/shared"
	"golang.org/x/oauth2"
)

// ClientIDLength is the length of every Spotify application client id.
const ClientIDLength = 32

// Provider performs the OAuth calls for one client id.
type Provider interface {
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// ProviderFunc builds a [Provider] for the client id the user saved.
type ProviderFunc func(clientID string) (Provider, error)

// Status summarises the session for display.
type Status struct {
	LoggedIn        bool
	ClientID        string
	Expiry          time.Time
	HasRefreshToken bool
	AdminLoggedIn   bool
}

// Manager owns the Spotify token lifecycle.
type Manager struct {
	store    Store
	provider ProviderFunc
	logger   *log.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewManager creates a [Manager].
func NewManager(store Store, provider ProviderFunc, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		store:    store,
		provider: provider,
		logger:   shared.WithLogger(logger, "component", "auth"),
		now:      time.Now,
	}
}

// update loads the session, applies fn and saves the result.
func (m *Manager) update(fn func(*Session) error) error {
	s, err := m.store.Load()
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return m.store.Save(s)
}

// SaveClientID stores the user's Spotify application client id.
func (m *Manager) SaveClientID(clientID string) error {
	clientID = strings.TrimSpace(clientID)
	if len(clientID) != ClientIDLength {
		return fmt.Errorf("%w: got %d characters", shared.ErrInvalidClientID, len(clientID))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(func(s *Session) error {
		s.ClientID = clientID
		return nil
	})
}

// ClearClientID forgets the saved client id.
func (m *Manager) ClearClientID() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(func(s *Session) error {
		s.ClientID = ""
		return nil
	})
}

// ClientID returns the saved client id, if any.
func (m *Manager) ClientID() (string, error) {
	s, err := m.store.Load()
	if err != nil {
		return "", err
	}
	return s.ClientID, nil
}

// BeginLogin generates and stores a PKCE verifier and state and returns the
// authorization URL the user must open.
func (m *Manager) BeginLogin() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if s.ClientID == "" {
		return "", shared.ErrMissingClientID
	}

	p, err := m.provider(s.ClientID)
	if err != nil {
		return "", err
	}

	s.CodeVerifier = oauth2.GenerateVerifier()
	s.OAuthState = shared.GenerateID()
	if err := m.store.Save(s); err != nil {
		return "", err
	}

	return p.AuthURL(s.OAuthState, s.CodeVerifier), nil
}

// CompleteLogin exchanges the authorization code using the stored verifier.
// A state mismatch or failed exchange logs the user out.
func (m *Manager) CompleteLogin(ctx context.Context, state, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load()
	if err != nil {
		return err
	}

	if s.CodeVerifier == "" {
		return fmt.Errorf("%w: no login in progress", shared.ErrAuthFailed)
	}
	if s.OAuthState != "" && state != s.OAuthState {
		m.logout(s)
		return shared.ErrInvalidState
	}

	p, err := m.provider(s.ClientID)
	if err != nil {
		return err
	}

	token, err := p.Exchange(ctx, code, s.CodeVerifier)
	if err != nil {
		m.logger.Error("error exchanging code for token", "err", err)
		m.logout(s)
		return err
	}

	m.storeToken(s, token)
	s.CodeVerifier = ""
	s.OAuthState = ""
	if err := m.store.Save(s); err != nil {
		return err
	}

	m.logger.Info("spotify login complete", "expires", s.Expiry().Format(time.RFC3339))
	return nil
}

// ValidAccessToken returns an access token that has not expired, refreshing it
// first when the stored expiry is missing or in the past. Without a refresh
// token, or when the refresh fails, the user is logged out.
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load()
	if err != nil {
		return "", err
	}

	if !s.Expired(m.now()) {
		if s.AccessToken == "" {
			return "", shared.ErrNotAuthenticated
		}
		return s.AccessToken, nil
	}

	m.logger.Info("access token expired, refreshing")
	return m.refresh(ctx, s)
}

func (m *Manager) refresh(ctx context.Context, s *Session) (string, error) {
	if s.RefreshToken == "" {
		m.logger.Warn("no refresh token available, logging out")
		m.logout(s)
		return "", shared.ErrNoRefreshToken
	}

	p, err := m.provider(s.ClientID)
	if err != nil {
		m.logout(s)
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	token, err := p.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.Error("error refreshing token", "err", err)
		m.logout(s)
		if errors.Is(err, shared.ErrRefreshFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	m.storeToken(s, token)
	if err := m.store.Save(s); err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// storeToken copies token into s. An absent refresh token keeps the old one.
func (m *Manager) storeToken(s *Session, token *oauth2.Token) {
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}

	switch {
	case !token.Expiry.IsZero():
		s.TokenExpiry = token.Expiry.UnixMilli()
	case token.ExpiresIn > 0:
		s.TokenExpiry = m.now().Add(time.Duration(token.ExpiresIn) * time.Second).UnixMilli()
	default:
		s.TokenExpiry = 0
	}
}

// Logout clears the Spotify tokens and any pending login. The client id is kept.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(func(s *Session) error {
		s.clearSpotify()
		return nil
	})
}

func (m *Manager) logout(s *Session) {
	s.clearSpotify()
	if err := m.store.Save(s); err != nil {
		m.logger.Error("failed to clear session", "err", err)
	}
}

// LoggedIn reports whether an access token is stored.
func (m *Manager) LoggedIn() bool {
	s, err := m.store.Load()
	if err != nil {
		return false
	}
	return s.AccessToken != ""
}

// Status reports the current session state.
func (m *Manager) Status() (Status, error) {
	s, err := m.store.Load()
	if err != nil {
		return Status{}, err
	}
	return Status{
		LoggedIn:        s.AccessToken != "",
		ClientID:        s.ClientID,
		Expiry:          s.Expiry(),
		HasRefreshToken: s.RefreshToken != "",
		AdminLoggedIn:   s.AdminToken != "",
	}, nil
}

// AdminToken returns the stored moderator token or [shared.ErrNotAuthenticated].
func (m *Manager) AdminToken() (string, error) {
	s, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if s.AdminToken == "" {
		return "", shared.ErrNotAuthenticated
	}
	return s.AdminToken, nil
}

// SetAdminToken stores (or, when empty, clears) the moderator token.
func (m *Manager) SetAdminToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(func(s *Session) error {
		s.AdminToken = token
		return nil
	})
}

// RecordVote remembers that the user has already weighed in on a submission.
func (m *Manager) RecordVote(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(func(s *Session) error {
		s.RecordVote(id)
		return nil
	})
}
