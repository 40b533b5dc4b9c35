package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnsupportedDriver  = fmt.Errorf("unsupported database driver")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrMissingClientID  = fmt.Errorf("spotify client id not set")
	ErrInvalidClientID  = fmt.Errorf("spotify client id must be 32 characters")
	ErrInvalidState     = fmt.Errorf("oauth state mismatch")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrNoTracks           = fmt.Errorf("no tracks found in the target playlists")

	// Storage errors
	ErrArtistNotFound       = fmt.Errorf("artist not found")
	ErrSubmissionNotFound   = fmt.Errorf("submission not found")
	ErrDailySongNotSelected = fmt.Errorf("no song of the day has been selected yet")

	// Input validation errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrInvalidSpotifyLink = fmt.Errorf("invalid spotify artist link")
	ErrInvalidAction      = fmt.Errorf("invalid submission action")
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrInvalidFlag        = fmt.Errorf("invalid flag value")
)
