// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/skipper/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:8889/callback"
)

var (
	// PlaybackScopes are requested by the monitor login.
	PlaybackScopes = []string{"user-read-playback-state", "user-modify-playback-state", "user-read-currently-playing"}
	// LibraryScopes are needed by the account that owns the daily song playlists.
	LibraryScopes = []string{"playlist-read-private", "playlist-read-collaborative"}
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// ArtistIDs returns the ids of every credited artist.
func (t SpotifyTrack) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		ids = append(ids, a.ID)
	}
	return ids
}

// ArtistNames joins the credited artist names with ", ".
func (t SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Display renders "Track by Artist, Artist".
func (t SpotifyTrack) Display() string {
	return t.Name + " by " + t.ArtistNames()
}

// URL is the public web link for the track.
func (t SpotifyTrack) URL() string {
	if t.ExternalURLs.Spotify != "" {
		return t.ExternalURLs.Spotify
	}
	return "https://open.spotify.com/track/" + t.ID
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// CoverURL returns the first album image, or nil when there is none.
func (a SpotifyAlbum) CoverURL() *string {
	if len(a.Images) == 0 || a.Images[0].URL == "" {
		return nil
	}
	u := a.Images[0].URL
	return &u
}

// Playback is the body of GET /me/player/currently-playing.
type Playback struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           int           `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// Owner is a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is
// nil for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

type playlistTracksPage struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points Web API calls at baseURL instead of api.spotify.com.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithAccountsURL points authorization and token calls at another accounts host.
func WithAccountsURL(authURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
	}
}

// WithHTTPClient replaces the HTTP client used for every request, token calls included.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithScopes overrides the scopes requested on login.
func WithScopes(scopes ...string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Scopes = scopes }
}

// WithRateLimit caps Web API requests per second. Zero leaves requests unthrottled.
func WithRateLimit(perSecond float64) SpotifyOption {
	return func(s *SpotifyService) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// SpotifyService talks to the Spotify accounts service and Web API.
//
// Calls take the access token explicitly; token lifetime is owned by the
// caller (the monitor's session manager or the daily song token source).
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu             sync.Mutex
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// client_id is required. client_secret is optional: without it the service acts
// as a PKCE public client and sends the client id in the token request body.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := strings.TrimSpace(credentials["client_id"])
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := strings.TrimSpace(credentials["client_secret"])
	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	authStyle := oauth2.AuthStyleInParams
	if clientSecret != "" {
		authStyle = oauth2.AuthStyleInHeader
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       PlaybackScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: authStyle,
			},
		},
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Name returns the name of the service
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// RedirectURI is the loopback callback registered for this client.
func (s *SpotifyService) RedirectURI() string {
	return s.config.RedirectURL
}

// AuthURL returns the authorization URL for a PKCE login using the S256
// challenge derived from verifier.
func (s *SpotifyService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh obtains a new access token from a refresh token. The returned token
// keeps refreshToken when Spotify does not rotate it.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

// SetTokenRefreshCallback registers fn to be called whenever a token source
// from [SpotifyService.TokenSource] yields a new access token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// TokenSource returns a caching token source seeded with token. Expired tokens
// are refreshed on demand.
func (s *SpotifyService) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	s.mu.Lock()
	callback := s.onTokenRefresh
	s.mu.Unlock()

	src := s.config.TokenSource(s.oauthContext(ctx), token)
	return oauth2.ReuseTokenSource(nil, &refreshableTokenSource{source: src, callback: callback})
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// refreshableTokenSource calls callback whenever source returns a token with
// a different access token than the previous one.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// doRequest performs an authenticated request against the Web API and decodes
// the JSON body into result. endpoint is either a path below the base URL or an
// absolute URL such as a pagination "next" link. It returns the status code;
// 204 responses are not decoded.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, result any) (int, error) {
	if accessToken == "" {
		return 0, shared.ErrNotAuthenticated
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("spotify API error: %w", newAPIError(resp))
	}

	if resp.StatusCode == http.StatusNoContent || result == nil {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}

// CurrentlyPlaying returns the user's current playback, or nil when the
// player is idle (204 No Content).
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*Playback, error) {
	var playback Playback
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", accessToken, &playback)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &playback, nil
}

// Next skips to the next track in the user's queue.
func (s *SpotifyService) Next(ctx context.Context, accessToken string) error {
	_, err := s.doRequest(ctx, http.MethodPost, "/me/player/next", accessToken, nil)
	return err
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if _, err := s.doRequest(ctx, http.MethodGet, endpoint, accessToken, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistTracks pages through every item of a playlist following the "next"
// links. On a failed page the items gathered so far are returned with the error.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]SpotifyPlaylistTrack, error) {
	var items []SpotifyPlaylistTrack
	next := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	for next != "" {
		var page playlistTracksPage
		if _, err := s.doRequest(ctx, http.MethodGet, next, accessToken, &page); err != nil {
			return items, fmt.Errorf("failed to fetch tracks for playlist %s: %w", playlistID, err)
		}

		items = append(items, page.Items...)
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	return items, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, accessToken, artistID string) (*SpotifyArtist, error) {
	var artist SpotifyArtist
	endpoint := "/artists/" + url.PathEscape(artistID)
	if _, err := s.doRequest(ctx, http.MethodGet, endpoint, accessToken, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}
