package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
	"golang.org/x/oauth2"
)

const (
	playlistPageSize = 50
	DefaultTimeout   = 2 * time.Minute
	maxPlaylistPages = 20
)

// DefaultPlaylists are the playlist names the daily song is drawn from.
var DefaultPlaylists = []string{"4.0", "4.5", "5.0"}

// Library reads playlists from the Spotify Web API.
type Library interface {
	UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*services.SpotifyPaginatedPlaylists, error)
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]services.SpotifyPlaylistTrack, error)
}

// SongStore persists the song of the day.
type SongStore interface {
	Upsert(ctx context.Context, song *models.DailySong) error
}

// DailySongSelector picks a random track from a set of named playlists.
type DailySongSelector struct {
	library   Library
	tokens    oauth2.TokenSource
	store     SongStore
	playlists []string
	timeout   time.Duration
	logger    *log.Logger
	pick      func(n int) int

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// SelectorOption configures a [DailySongSelector].
type SelectorOption func(*DailySongSelector)

// WithPlaylists overrides [DefaultPlaylists].
func WithPlaylists(names ...string) SelectorOption {
	return func(s *DailySongSelector) {
		if len(names) > 0 {
			s.playlists = names
		}
	}
}

// WithTimeout bounds each asynchronous run.
func WithTimeout(d time.Duration) SelectorOption {
	return func(s *DailySongSelector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SelectorOption {
	return func(s *DailySongSelector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPicker replaces the random index function.
func WithPicker(pick func(n int) int) SelectorOption {
	return func(s *DailySongSelector) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// NewDailySongSelector creates a selector. tokens should be a refreshing source
// seeded with the account's refresh token.
func NewDailySongSelector(library Library, tokens oauth2.TokenSource, store SongStore, opts ...SelectorOption) *DailySongSelector {
	s := &DailySongSelector{
		library:   library,
		tokens:    tokens,
		store:     store,
		playlists: DefaultPlaylists,
		timeout:   DefaultTimeout,
		logger:    shared.NewLogger(nil),
		pick:      rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = shared.WithLogger(s.logger, "task", "daily-song")
	return s
}

// Run selects and stores the song of the day.
func (s *DailySongSelector) Run(ctx context.Context, progress chan<- ProgressUpdate) (*models.DailySong, error) {
	if s.library == nil || s.tokens == nil || s.store == nil {
		return nil, fmt.Errorf("%w: daily song selector is not configured", shared.ErrServiceUnavailable)
	}

	s.logger.Info("starting daily song selection")

	token, err := s.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	playlists, err := s.targetPlaylists(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, fetchPlaylistsUpdate(len(playlists)))

	var candidates []services.SpotifyTrack
	for i, pl := range playlists {
		sendProgress(progress, fetchTracksUpdate(i+1, len(playlists), pl.Name))

		items, err := s.library.PlaylistTracks(ctx, token.AccessToken, pl.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("stopped reading playlist", "playlist", pl.Name, "err", err)
		}

		for _, item := range items {
			if item.Track != nil && item.Track.ID != "" {
				candidates = append(candidates, *item.Track)
			}
		}
	}

	if len(candidates) == 0 {
		return nil, shared.ErrNoTracks
	}
	sendProgress(progress, pickSongUpdate(len(candidates)))

	track := candidates[s.pick(len(candidates))]
	song := &models.DailySong{
		ID:         models.DailySongID,
		SongName:   track.Name,
		ArtistName: track.ArtistNames(),
		SpotifyURL: track.URL(),
		ImageURL:   track.Album.CoverURL(),
	}

	if err := s.store.Upsert(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to save daily song: %w", err)
	}
	sendProgress(progress, saveSongUpdate(song))

	s.logger.Info("selected song of the day", "song", song.SongName, "artist", song.ArtistName)
	return song, nil
}

// targetPlaylists pages through the user's playlists keeping the configured names.
func (s *DailySongSelector) targetPlaylists(ctx context.Context, accessToken string) ([]services.SpotifySimplePlaylist, error) {
	var matched []services.SpotifySimplePlaylist

	for page, offset := 0, 0; page < maxPlaylistPages; page++ {
		resp, err := s.library.UserPlaylists(ctx, accessToken, playlistPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}

		for _, pl := range resp.Items {
			if slices.Contains(s.playlists, pl.Name) {
				matched = append(matched, pl)
			}
		}

		offset += len(resp.Items)
		if resp.Next == nil || len(resp.Items) == 0 {
			break
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: none of %v", shared.ErrPlaylistNotFound, s.playlists)
	}
	return matched, nil
}

// RunAsync starts a selection in the background with its own timeout. It
// returns false when a run is already in progress.
func (s *DailySongSelector) RunAsync() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("daily song selection already running")
		return false
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.Run(ctx, nil); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.logger.Error("daily song selection timed out", "timeout", s.timeout)
				return
			}
			s.logger.Error("error in daily song selection", "err", err)
		}
	}()
	return true
}

// Wait blocks until background runs finish.
func (s *DailySongSelector) Wait() {
	s.wg.Wait()
}
