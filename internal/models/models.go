// package models defines the data model for the skipper blocklist service
package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/skipper/internal/shared"
)

// Model defines the base interface for all persistent models.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

const spotifyArtistURL = "https://open.spotify.com/artist/"

var artistLinkPattern = regexp.MustCompile(`artist/([a-zA-Z0-9]+)`)

// ParseSpotifyArtistID extracts the artist id from a Spotify artist link such as
// https://open.spotify.com/artist/06HL4z0CvFAxyc27GXpf02?si=abc.
func ParseSpotifyArtistID(link string) (string, error) {
	m := artistLinkPattern.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidSpotifyLink, link)
	}
	return m[1], nil
}

// SpotifyArtistURL returns the public web link for an artist id.
func SpotifyArtistURL(id string) string {
	return spotifyArtistURL + id
}

// Action is a moderator decision on a [Submission].
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a moderation action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidAction, s)
	}
}

// PastTense renders the action as used in moderation messages ("approved", "rejected").
func (a Action) PastTense() string {
	return string(a) + "d"
}
