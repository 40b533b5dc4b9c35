package tasks

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
	"golang.org/x/oauth2"
)

type mockLibrary struct {
	playlists    []services.SpotifySimplePlaylist
	pages        int
	tracks       map[string][]services.SpotifyPlaylistTrack
	trackErrs    map[string]error
	playlistsErr error
	block        chan struct{}

	mu          sync.Mutex
	tokens      []string
	offsets     []int
	trackCalled []string
}

func (m *mockLibrary) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*services.SpotifyPaginatedPlaylists, error) {
	m.mu.Lock()
	m.tokens = append(m.tokens, accessToken)
	m.offsets = append(m.offsets, offset)
	m.mu.Unlock()

	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.playlistsErr != nil {
		return nil, m.playlistsErr
	}

	pages := max(m.pages, 1)
	per := (len(m.playlists) + pages - 1) / pages
	if per == 0 {
		return &services.SpotifyPaginatedPlaylists{}, nil
	}

	end := min(offset+per, len(m.playlists))
	resp := &services.SpotifyPaginatedPlaylists{Items: m.playlists[offset:end], Offset: offset, Limit: limit}
	if end < len(m.playlists) {
		next := "next"
		resp.Next = &next
	}
	return resp, nil
}

func (m *mockLibrary) PlaylistTracks(_ context.Context, _ string, playlistID string) ([]services.SpotifyPlaylistTrack, error) {
	m.mu.Lock()
	m.trackCalled = append(m.trackCalled, playlistID)
	m.mu.Unlock()
	return m.tracks[playlistID], m.trackErrs[playlistID]
}

type mockStore struct {
	mu    sync.Mutex
	song  *models.DailySong
	err   error
	saves int
}

func (m *mockStore) Upsert(_ context.Context, song *models.DailySong) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.song = song
	return nil
}

func (m *mockStore) saved() (*models.DailySong, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.song, m.saves
}

func staticTokens(access string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access})
}

type errTokens struct{}

func (errTokens) Token() (*oauth2.Token, error) { return nil, errors.New("invalid_grant") }

func item(id, name, artist, cover string) services.SpotifyPlaylistTrack {
	t := &services.SpotifyTrack{
		ID:      id,
		Name:    name,
		Artists: []services.SpotifyArtist{{ID: "a-" + id, Name: artist}},
	}
	if cover != "" {
		t.Album.Images = []services.SpotifyImage{{URL: cover}}
	}
	return services.SpotifyPlaylistTrack{Track: t}
}

func newSelector(lib Library, tokens oauth2.TokenSource, store SongStore, opts ...SelectorOption) *DailySongSelector {
	opts = append([]SelectorOption{WithLogger(shared.NewLogger(io.Discard))}, opts...)
	return NewDailySongSelector(lib, tokens, store, opts...)
}

func TestDailySongSelector(t *testing.T) {
	playlists := []services.SpotifySimplePlaylist{
		{ID: "p1", Name: "4.0"},
		{ID: "p2", Name: "Workout"},
		{ID: "p3", Name: "5.0"},
	}

	t.Run("picks from matching playlists", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks: map[string][]services.SpotifyPlaylistTrack{
				"p1": {item("t1", "One", "Alice", "http://img/1")},
				"p2": {item("t2", "Two", "Bob", "")},
				"p3": {item("t3", "Three", "Carol", "")},
			},
		}
		store := &mockStore{}
		s := newSelector(lib, staticTokens("access"), store, WithPicker(func(n int) int {
			if n != 2 {
				t.Errorf("expected 2 candidates, got %d", n)
			}
			return 0
		}))

		song, err := s.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if song.ID != models.DailySongID || song.SongName != "One" || song.ArtistName != "Alice" {
			t.Errorf("unexpected song %+v", song)
		}
		if song.SpotifyURL != "https://open.spotify.com/track/t1" {
			t.Errorf("unexpected url %q", song.SpotifyURL)
		}
		if song.ImageURL == nil || *song.ImageURL != "http://img/1" {
			t.Errorf("expected cover url, got %v", song.ImageURL)
		}
		if saved, _ := store.saved(); saved != song {
			t.Error("expected the picked song to be stored")
		}
		if lib.tokens[0] != "access" {
			t.Errorf("expected access token to be forwarded, got %q", lib.tokens[0])
		}
		for _, id := range lib.trackCalled {
			if id == "p2" {
				t.Error("non-matching playlist should not be read")
			}
		}
	})

	t.Run("nil image when album has no art", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p3": {item("t3", "Three", "Carol", "")}},
		}
		song, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if song.ImageURL != nil {
			t.Errorf("expected nil image, got %q", *song.ImageURL)
		}
	})

	t.Run("skips items without a track id", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks: map[string][]services.SpotifyPlaylistTrack{
				"p1": {{Track: nil}, item("", "Local", "Nobody", ""), item("t9", "Real", "Dana", "")},
			},
		}
		song, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if song.SongName != "Real" {
			t.Errorf("expected the only valid track, got %q", song.SongName)
		}
	})

	t.Run("pages through playlists", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			pages:     3,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p3": {item("t3", "Three", "Carol", "")}},
		}
		if _, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lib.offsets) != 3 || lib.offsets[2] != 2 {
			t.Errorf("unexpected offsets %v", lib.offsets)
		}
	})

	t.Run("failed page keeps gathered tracks", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p1": {item("t1", "One", "Alice", "")}},
			trackErrs: map[string]error{"p1": errors.New("page 2 failed")},
		}
		song, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if song.SongName != "One" {
			t.Errorf("unexpected song %q", song.SongName)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			lib     *mockLibrary
			tokens  oauth2.TokenSource
			store   *mockStore
			opts    []SelectorOption
			wantErr error
		}{
			{
				name:    "no matching playlist",
				lib:     &mockLibrary{playlists: []services.SpotifySimplePlaylist{{ID: "x", Name: "Other"}}},
				tokens:  staticTokens("a"),
				store:   &mockStore{},
				wantErr: shared.ErrPlaylistNotFound,
			},
			{
				name:    "no tracks",
				lib:     &mockLibrary{playlists: playlists},
				tokens:  staticTokens("a"),
				store:   &mockStore{},
				wantErr: shared.ErrNoTracks,
			},
			{
				name:    "token refresh fails",
				lib:     &mockLibrary{playlists: playlists},
				tokens:  errTokens{},
				store:   &mockStore{},
				wantErr: shared.ErrRefreshFailed,
			},
			{
				name:    "custom playlist names",
				lib:     &mockLibrary{playlists: playlists},
				tokens:  staticTokens("a"),
				store:   &mockStore{},
				opts:    []SelectorOption{WithPlaylists("Chill")},
				wantErr: shared.ErrPlaylistNotFound,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := newSelector(tt.lib, tt.tokens, tt.store, tt.opts...).Run(context.Background(), nil)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if _, saves := tt.store.saved(); saves != 0 {
					t.Error("nothing should be stored on failure")
				}
			})
		}
	})

	t.Run("list and store errors", func(t *testing.T) {
		lib := &mockLibrary{playlistsErr: errors.New("503")}
		if _, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), nil); err == nil {
			t.Error("expected playlist listing error")
		}

		lib = &mockLibrary{
			playlists: playlists,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p1": {item("t1", "One", "Alice", "")}},
		}
		store := &mockStore{err: errors.New("db closed")}
		if _, err := newSelector(lib, staticTokens("a"), store).Run(context.Background(), nil); err == nil {
			t.Error("expected store error")
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewDailySongSelector(nil, nil, nil).Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p1": {item("t1", "One", "Alice", "")}},
		}
		progress := make(chan ProgressUpdate, 10)
		if _, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), progress); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchPlaylists, FetchTracks, FetchTracks, PickSong, SaveSong}
		if len(phases) != len(want) {
			t.Fatalf("expected phases %v, got %v", want, phases)
		}
		for i := range want {
			if phases[i] != want[i] {
				t.Errorf("phase %d: expected %s, got %s", i, want[i], phases[i])
			}
		}
	})

	t.Run("progress never blocks", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: playlists,
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p1": {item("t1", "One", "Alice", "")}},
		}
		progress := make(chan ProgressUpdate)
		if _, err := newSelector(lib, staticTokens("a"), &mockStore{}).Run(context.Background(), progress); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRunAsync(t *testing.T) {
	t.Run("runs in background", func(t *testing.T) {
		lib := &mockLibrary{
			playlists: []services.SpotifySimplePlaylist{{ID: "p1", Name: "4.5"}},
			tracks:    map[string][]services.SpotifyPlaylistTrack{"p1": {item("t1", "One", "Alice", "")}},
		}
		store := &mockStore{}
		s := newSelector(lib, staticTokens("a"), store)

		if !s.RunAsync() {
			t.Fatal("expected run to start")
		}
		s.Wait()

		if song, _ := store.saved(); song == nil || song.SongName != "One" {
			t.Errorf("expected stored song, got %+v", song)
		}
	})

	t.Run("rejects overlapping runs", func(t *testing.T) {
		block := make(chan struct{})
		lib := &mockLibrary{playlists: []services.SpotifySimplePlaylist{{ID: "p1", Name: "4.5"}}, block: block}
		s := newSelector(lib, staticTokens("a"), &mockStore{})

		if !s.RunAsync() {
			t.Fatal("expected first run to start")
		}
		if s.RunAsync() {
			t.Error("expected second run to be rejected")
		}
		close(block)
		s.Wait()

		if !s.RunAsync() {
			t.Error("expected a new run after the first finished")
		}
		s.Wait()
	})

	t.Run("errors are only logged", func(t *testing.T) {
		lib := &mockLibrary{playlistsErr: errors.New("boom")}
		store := &mockStore{}
		s := newSelector(lib, staticTokens("a"), store, WithTimeout(time.Second))
		s.RunAsync()
		s.Wait()

		if _, saves := store.saved(); saves != 0 {
			t.Error("expected no save after failure")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		lib := &mockLibrary{playlists: []services.SpotifySimplePlaylist{{ID: "p1", Name: "4.5"}}, block: make(chan struct{})}
		s := newSelector(lib, staticTokens("a"), &mockStore{}, WithTimeout(10*time.Millisecond))
		s.RunAsync()

		done := make(chan struct{})
		go func() {
			s.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("run did not respect its timeout")
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		FetchPlaylists: "fetch_playlists",
		FetchTracks:    "fetch_tracks",
		PickSong:       "pick_song",
		SaveSong:       "save_song",
		Phase(99):      "",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
