package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/skipper/internal/auth"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	api     *services.APIService
	store   auth.Store
	manager *auth.Manager
	spotify []services.SpotifyOption
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	API        *services.APIService
	Store      auth.Store
	// Spotify options are appended to every Spotify client the runner builds.
	Spotify []services.SpotifyOption
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		api:        opts.API,
		store:      opts.Store,
		spotify:    opts.Spotify,
	}
}

// SetConfig replaces the loaded configuration and resets the clients built from it.
func (r *Runner) SetConfig(config *shared.Config, path string) {
	r.config = config
	r.configPath = path
	r.manager = nil
}

// SetLogger swaps the logger, e.g. to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.manager = nil
}

func (r *Runner) apiClient() *services.APIService {
	if r.api == nil {
		r.api = services.NewAPIService(r.config.Monitor.APIURL, r.httpClient)
	}
	return r.api
}

func (r *Runner) sessionStore() auth.Store {
	if r.store == nil {
		r.store = auth.NewFileStore(shared.ExpandPath(r.config.Monitor.SessionPath))
	}
	return r.store
}

func (r *Runner) authManager() *auth.Manager {
	if r.manager == nil {
		r.manager = auth.NewManager(r.sessionStore(), r.spotifyProvider, r.logger)
	}
	return r.manager
}

// spotifyService builds a client for clientID. The monitor runs as a PKCE
// public client so no secret is passed.
func (r *Runner) spotifyService(clientID string, extra ...services.SpotifyOption) (*services.SpotifyService, error) {
	opts := append([]services.SpotifyOption{services.WithHTTPClient(r.httpClient)}, extra...)
	opts = append(opts, r.spotify...)
	return services.NewSpotifyService(map[string]string{
		"client_id":    clientID,
		"redirect_uri": r.config.Credentials.Spotify.RedirectURI,
	}, opts...)
}

func (r *Runner) spotifyProvider(clientID string) (auth.Provider, error) {
	return r.spotifyService(clientID)
}

// libraryProvider also requests read access to the account's playlists.
func (r *Runner) libraryProvider(clientID string) (auth.Provider, error) {
	return r.spotifyService(clientID, services.WithScopes(slices.Concat(services.PlaybackScopes, services.LibraryScopes)...))
}

func (r *Runner) openDB() (*sql.DB, shared.Dialect, error) {
	db, dialect, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	return db, dialect, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
