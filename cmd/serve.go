package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/skipper/internal/repositories"
	"github.com/desertthunder/skipper/internal/server"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/desertthunder/skipper/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Serve checks the database, applies migrations and runs the HTTP API until
// the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	if err := config.ValidateServer(); err != nil {
		return err
	}

	db, dialect, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	r.logger.Info("database connection ok", "driver", dialect)

	applied, err := shared.RunMigrations(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied)
	}

	songs := repositories.NewDailySongRepository(db, dialect)

	api := &server.API{
		Artists:     repositories.NewArtistRepository(db, dialect),
		Submissions: repositories.NewSubmissionRepository(db, dialect),
		DailySong:   songs,
		Auth:        server.NewAuthenticator(config.Admin),
		Logger:      shared.WithLogger(r.logger, "component", "api"),
		CronSecret:  config.Cron.Secret,
		SubmitRate:  config.Server.SubmitRate,
		SubmitBurst: config.Server.SubmitBurst,

		TrustedProxies: config.Server.TrustedProxies,
	}

	selector, err := r.dailySongSelector(ctx, songs, nil)
	if err != nil {
		r.logger.Warn("daily song selection disabled", "error", err)
	} else {
		api.Selector = selector
		defer selector.Wait()
	}

	handler := server.NewHandler(api, config.Server.FrontendURL)
	srv := server.NewServer(config.Server.Addr(), handler, r.logger, config.Server.ShutdownTTL.Duration)
	return srv.Run(ctx)
}

// dailySongSelector builds the song of the day job from the app's Spotify
// credentials. It fails when the client id, secret or refresh token is missing.
func (r *Runner) dailySongSelector(ctx context.Context, store tasks.SongStore, playlists []string) (*tasks.DailySongSelector, error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify client_id, client_secret and refresh_token are required", shared.ErrMissingCredentials)
	}

	opts := append([]services.SpotifyOption{
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.DailySong.RequestsPerSecond),
	}, r.spotify...)

	svc, err := services.NewSpotifyService(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"redirect_uri":  creds.RedirectURI,
	}, opts...)
	if err != nil {
		return nil, err
	}

	if len(playlists) == 0 {
		playlists = r.config.DailySong.Playlists
	}

	svc.SetTokenRefreshCallback(func(tok *oauth2.Token) {
		r.logger.Debug("spotify access token refreshed", "expiry", tok.Expiry)
		if tok.RefreshToken != "" && tok.RefreshToken != creds.RefreshToken {
			r.logger.Warn("spotify rotated the refresh token, run 'skipper auth login --save-token' if the job starts failing")
		}
	})

	tokens := svc.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	return tasks.NewDailySongSelector(svc, tokens, store,
		tasks.WithPlaylists(playlists...),
		tasks.WithTimeout(r.config.DailySong.Timeout.Duration),
		tasks.WithLogger(r.logger),
	), nil
}
