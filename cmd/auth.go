package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/skipper/internal/auth"
	"github.com/desertthunder/skipper/internal/server"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 5 * time.Minute

// AuthLogin runs the PKCE flow: it serves the loopback callback, opens the
// browser at the Spotify consent page and waits for the redirect.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	manager, authURL, err := r.beginLogin(cmd.Bool("save-token"))
	if err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, r.config.Credentials.Spotify.RedirectURI)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen for the oauth callback on %s: %w", redirect.Host, err)
	}

	callback := server.NewOAuthHandler(redirect.Path, manager.CompleteLogin)
	router := server.NewBasicRouter()
	router.Handler(callback)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	srv := server.NewServer(redirect.Host, router, shared.WithLogger(r.logger, "component", "oauth"), time.Second)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(srvCtx, ln) }()

	r.writePlain("Opening browser for Spotify authorization...\n")
	r.writePlain("If the browser does not open, visit:\n\n  %s\n\n", authURL)
	if err := shared.OpenBrowser(ctx, authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	timeout := r.config.Monitor.LoginTimeout.Duration
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loginErr := callback.Wait(waitCtx)
	stop()
	if err := <-served; err != nil {
		r.logger.Warn("oauth callback server", "error", err)
	}
	if loginErr != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, loginErr)
	}

	r.writePlain("✓ Logged in to Spotify\n")

	if cmd.Bool("save-token") {
		return r.saveRefreshToken()
	}
	return nil
}

// beginLogin starts the PKCE flow. A login whose refresh token is saved for the
// daily song job also asks for playlist access.
func (r *Runner) beginLogin(saveToken bool) (*auth.Manager, string, error) {
	manager := r.authManager()
	if saveToken {
		manager = auth.NewManager(r.sessionStore(), r.libraryProvider, r.logger)
	}

	authURL, err := manager.BeginLogin()
	if err != nil {
		return nil, "", err
	}
	return manager, authURL, nil
}

// saveRefreshToken copies the session's refresh token into the config file so
// the server's daily song job can act as this account.
func (r *Runner) saveRefreshToken() error {
	session, err := r.sessionStore().Load()
	if err != nil {
		return err
	}
	if session.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	if id := r.config.Credentials.Spotify.ClientID; id != session.ClientID {
		r.logger.Warn("refresh token was issued to a different client id than the configured one", "session", session.ClientID, "config", id)
	}
	r.config.Credentials.Spotify.RefreshToken = session.RefreshToken

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return r.writePlain("✓ Refresh token saved to %s\n", r.configPath)
}

// AuthLogout clears the Spotify tokens. The client id is kept.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.authManager().Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out of Spotify\n")
}

// AuthStatus prints the session state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := r.authManager().Status()
	if err != nil {
		return err
	}

	clientID := status.ClientID
	if clientID == "" {
		clientID = "(not set)"
	}
	r.writePlain("Client ID: %s\n", clientID)

	if !status.LoggedIn {
		r.writePlain("Spotify: ✗ Not logged in\n")
	} else {
		r.writePlain("Spotify: ✓ Logged in\n")
		if !status.Expiry.IsZero() {
			r.writePlain("Token expires: %s\n", status.Expiry.Local().Format(time.RFC1123))
		}
		if !status.HasRefreshToken {
			r.writePlain("Refresh token: missing, log in again when the token expires\n")
		}
	}

	if status.AdminLoggedIn {
		return r.writePlain("Admin: ✓ Logged in\n")
	}
	return r.writePlain("Admin: ✗ Not logged in\n")
}

// AuthClientID saves or clears the user's Spotify application client id.
func (r *Runner) AuthClientID(ctx context.Context, cmd *cli.Command) error {
	manager := r.authManager()

	if cmd.Bool("clear") {
		if err := manager.ClearClientID(); err != nil {
			return err
		}
		return r.writePlain("✓ Client ID cleared\n")
	}

	id := cmd.StringArg("id")
	if id == "" {
		current, err := manager.ClientID()
		if err != nil {
			return err
		}
		if current == "" {
			return fmt.Errorf("%w: client id", shared.ErrMissingArgument)
		}
		return r.writePlain("%s\n", current)
	}

	if err := manager.SaveClientID(id); err != nil {
		return err
	}
	return r.writePlain("✓ Client ID saved\n")
}
