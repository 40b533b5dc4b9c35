package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/skipper/internal/shared"
	tu "github.com/desertthunder/skipper/internal/testing"
	"golang.org/x/oauth2"
)

func newTestSpotify(t *testing.T, mux *http.ServeMux, creds map[string]string) *SpotifyService {
	t.Helper()
	srv := tu.NewServer(t, mux)

	if creds == nil {
		creds = map[string]string{"client_id": "test_client_id"}
	}

	s, err := NewSpotifyService(creds,
		WithBaseURL(srv.URL+"/v1"),
		WithAccountsURL(srv.URL+"/authorize", srv.URL+"/api/token"),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return s
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("Public Client", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.Endpoint.AuthStyle != oauth2.AuthStyleInParams {
				t.Error("public clients should send the client id in the request body")
			}
			if srv.RedirectURI() != defaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.RedirectURI())
			}
		})

		t.Run("Confidential Client", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.Endpoint.AuthStyle != oauth2.AuthStyleInHeader {
				t.Error("confidential clients should use basic auth")
			}
			if srv.RedirectURI() != "http://127.0.0.1:9999/callback" {
				t.Errorf("unexpected redirect uri %s", srv.RedirectURI())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "x"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		verifier := oauth2.GenerateVerifier()
		authURL, err := url.Parse(srv.AuthURL("test_state", verifier))
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}

		if authURL.Host != "accounts.spotify.com" {
			t.Errorf("auth URL should use the Spotify accounts host, got %s", authURL.Host)
		}

		q := authURL.Query()
		if q.Get("client_id") != "test_client_id" || q.Get("state") != "test_state" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("code_challenge_method") != "S256" {
			t.Errorf("expected S256 challenge, got %q", q.Get("code_challenge_method"))
		}
		if q.Get("code_challenge") != oauth2.S256ChallengeFromVerifier(verifier) {
			t.Error("challenge should be derived from the verifier")
		}
		if !strings.Contains(q.Get("scope"), "user-modify-playback-state") {
			t.Errorf("missing playback scope in %q", q.Get("scope"))
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "the-code" {
				t.Errorf("unexpected form %v", r.Form)
			}
			if r.Form.Get("code_verifier") != "the-verifier" {
				t.Errorf("expected verifier, got %q", r.Form.Get("code_verifier"))
			}
			if r.Form.Get("client_id") != "test_client_id" {
				t.Errorf("expected client id in body, got %q", r.Form.Get("client_id"))
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{
				"access_token": "access", "refresh_token": "refresh", "expires_in": 3600, "token_type": "Bearer",
			})
		})

		s := newTestSpotify(t, mux, nil)
		token, err := s.Exchange(context.Background(), "the-code", "the-verifier")
		if err != nil {
			t.Fatalf("exchange failed: %v", err)
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
		if time.Until(token.Expiry) < 59*time.Minute {
			t.Errorf("expected expiry about an hour away, got %v", token.Expiry)
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(t, w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		})

		s := newTestSpotify(t, mux, nil)
		if _, err := s.Exchange(context.Background(), "bad", "v"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "old-refresh" {
				t.Errorf("unexpected form %v", r.Form)
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"access_token": "fresh", "expires_in": 3600, "token_type": "Bearer"})
		})

		s := newTestSpotify(t, mux, nil)
		token, err := s.Refresh(context.Background(), "old-refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if token.AccessToken != "fresh" {
			t.Errorf("expected fresh token, got %s", token.AccessToken)
		}
		if token.RefreshToken != "old-refresh" {
			t.Errorf("refresh token should be kept when not rotated, got %q", token.RefreshToken)
		}
	})

	t.Run("Refresh Errors", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(t, w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		})

		s := newTestSpotify(t, mux, nil)
		if _, err := s.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
		if _, err := s.Refresh(context.Background(), "revoked"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("TokenSource Callback", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"access_token": "rotated", "expires_in": 3600, "token_type": "Bearer"})
		})

		s := newTestSpotify(t, mux, map[string]string{"client_id": "id", "client_secret": "secret"})

		var refreshed []string
		s.SetTokenRefreshCallback(func(tok *oauth2.Token) { refreshed = append(refreshed, tok.AccessToken) })

		src := s.TokenSource(context.Background(), &oauth2.Token{RefreshToken: "seed"})
		for range 3 {
			tok, err := src.Token()
			if err != nil {
				t.Fatalf("token failed: %v", err)
			}
			if tok.AccessToken != "rotated" {
				t.Errorf("unexpected token %s", tok.AccessToken)
			}
		}

		if calls.Load() != 1 {
			t.Errorf("expected a single refresh request, got %d", calls.Load())
		}
		if len(refreshed) != 1 || refreshed[0] != "rotated" {
			t.Errorf("callback should fire once, got %v", refreshed)
		}
	})

	t.Run("CurrentlyPlaying", func(t *testing.T) {
		t.Run("Playing", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
				}
				tu.WriteJSON(t, w, http.StatusOK, map[string]any{
					"is_playing": true,
					"item": map[string]any{
						"id":   "t1",
						"name": "Song",
						"artists": []map[string]string{
							{"id": "a1", "name": "First"},
							{"id": "a2", "name": "Second"},
						},
					},
				})
			})

			s := newTestSpotify(t, mux, nil)
			pb, err := s.CurrentlyPlaying(context.Background(), "tok")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pb == nil || pb.Item == nil {
				t.Fatal("expected playback item")
			}
			if pb.Item.Display() != "Song by First, Second" {
				t.Errorf("unexpected display %q", pb.Item.Display())
			}
			if ids := pb.Item.ArtistIDs(); len(ids) != 2 || ids[1] != "a2" {
				t.Errorf("unexpected artist ids %v", ids)
			}
		})

		t.Run("Idle", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			s := newTestSpotify(t, mux, nil)
			pb, err := s.CurrentlyPlaying(context.Background(), "tok")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pb != nil {
				t.Errorf("expected nil playback for 204, got %+v", pb)
			}
		})

		t.Run("Unauthorized", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
				tu.WriteJSON(t, w, http.StatusUnauthorized, map[string]any{
					"error": map[string]any{"status": 401, "message": "The access token expired"},
				})
			})

			s := newTestSpotify(t, mux, nil)
			_, err := s.CurrentlyPlaying(context.Background(), "tok")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if StatusCode(err) != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", StatusCode(err))
			}
			if !strings.Contains(err.Error(), "The access token expired") {
				t.Errorf("error should carry the spotify message: %v", err)
			}
		})

		t.Run("No Token", func(t *testing.T) {
			s := newTestSpotify(t, http.NewServeMux(), nil)
			if _, err := s.CurrentlyPlaying(context.Background(), ""); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Next", func(t *testing.T) {
		var hit atomic.Bool
		mux := http.NewServeMux()
		mux.HandleFunc("POST /v1/me/player/next", func(w http.ResponseWriter, r *http.Request) {
			hit.Store(true)
			w.WriteHeader(http.StatusNoContent)
		})

		s := newTestSpotify(t, mux, nil)
		if err := s.Next(context.Background(), "tok"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hit.Load() {
			t.Error("next endpoint was not called")
		}
	})

	t.Run("UserPlaylists", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit clamped to 50, got %s", r.URL.Query().Get("limit"))
			}
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{{"id": "p1", "name": "4.0"}, {"id": "p2", "name": "chill"}},
				"total": 2,
			})
		})

		s := newTestSpotify(t, mux, nil)
		page, err := s.UserPlaylists(context.Background(), "tok", 500, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Items) != 2 || page.Items[0].Name != "4.0" {
			t.Errorf("unexpected playlists %+v", page.Items)
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("Follows Next", func(t *testing.T) {
			mux := http.NewServeMux()
			var base string
			mux.HandleFunc("GET /v1/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("offset") == "" {
					next := base + "/v1/playlists/p1/tracks?offset=1"
					tu.WriteJSON(t, w, http.StatusOK, map[string]any{
						"items": []map[string]any{{"track": map[string]any{"id": "t1", "name": "One"}}},
						"next":  next,
					})
					return
				}
				tu.WriteJSON(t, w, http.StatusOK, map[string]any{
					"items": []map[string]any{{"track": nil}, {"track": map[string]any{"id": "t2", "name": "Two"}}},
					"next":  nil,
				})
			})

			srv := tu.NewServer(t, mux)
			base = srv.URL
			s, _ := NewSpotifyService(map[string]string{"client_id": "id"}, WithBaseURL(srv.URL+"/v1"), WithRateLimit(100))

			items, err := s.PlaylistTracks(context.Background(), "tok", "p1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("expected 3 items across pages, got %d", len(items))
			}
			if items[1].Track != nil {
				t.Error("null track should decode as nil")
			}
			if items[2].Track.ID != "t2" {
				t.Errorf("unexpected last track %+v", items[2].Track)
			}
		})

		t.Run("Failed Page Returns Partial", func(t *testing.T) {
			mux := http.NewServeMux()
			var base string
			mux.HandleFunc("GET /v1/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("offset") == "" {
					tu.WriteJSON(t, w, http.StatusOK, map[string]any{
						"items": []map[string]any{{"track": map[string]any{"id": "t1"}}},
						"next":  base + "/v1/playlists/p1/tracks?offset=1",
					})
					return
				}
				w.WriteHeader(http.StatusBadGateway)
			})

			srv := tu.NewServer(t, mux)
			base = srv.URL
			s, _ := NewSpotifyService(map[string]string{"client_id": "id"}, WithBaseURL(srv.URL+"/v1"))

			items, err := s.PlaylistTracks(context.Background(), "tok", "p1")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if len(items) != 1 {
				t.Errorf("expected items from the first page, got %d", len(items))
			}
		})
	})

	t.Run("Artist", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v1/artists/{id}", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(t, w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "name": "Looked Up"})
		})

		s := newTestSpotify(t, mux, nil)
		artist, err := s.Artist(context.Background(), "tok", "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if artist.ID != "abc" || artist.Name != "Looked Up" {
			t.Errorf("unexpected artist %+v", artist)
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		s, _ := NewSpotifyService(map[string]string{"client_id": "id"}, WithHTTPClient(client))
		if err := s.Next(context.Background(), "tok"); err == nil || !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}

func TestSpotifyTypes(t *testing.T) {
	t.Run("CoverURL", func(t *testing.T) {
		if (SpotifyAlbum{}).CoverURL() != nil {
			t.Error("expected nil cover for album without images")
		}
		album := SpotifyAlbum{Images: []SpotifyImage{{URL: "big"}, {URL: "small"}}}
		if got := album.CoverURL(); got == nil || *got != "big" {
			t.Errorf("expected first image, got %v", got)
		}
	})

	t.Run("URL", func(t *testing.T) {
		track := SpotifyTrack{ID: "t1"}
		if track.URL() != "https://open.spotify.com/track/t1" {
			t.Errorf("unexpected fallback url %s", track.URL())
		}
		track.ExternalURLs.Spotify = "https://open.spotify.com/track/t1?si=1"
		if track.URL() != "https://open.spotify.com/track/t1?si=1" {
			t.Errorf("expected external url, got %s", track.URL())
		}
	})
}

func TestNewAPIError(t *testing.T) {
	tc := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Invalid Spotify artist link."}`, want: "Invalid Spotify artist link."},
		{name: "spotify nested", body: `{"error":{"status":404,"message":"Not found."}}`, want: "Not found."},
		{name: "oauth string", body: `{"error":"invalid_client"}`, want: "invalid_client"},
		{name: "plain text", body: "Unauthorized\n", want: "Unauthorized"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.WriteHeader(http.StatusBadRequest)
			rec.WriteString(tt.body)

			apiErr := newAPIError(rec.Result())
			if apiErr.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, apiErr.Message)
			}
			if !errors.Is(apiErr, shared.ErrAPIRequest) {
				t.Error("400 errors should wrap ErrAPIRequest")
			}
		})
	}
}
