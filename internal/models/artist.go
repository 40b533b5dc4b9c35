package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/skipper/internal/shared"
)

// HiddenArtistID is the id of the placeholder row that public listings omit.
const HiddenArtistID int64 = 0

// Artist is an approved blocklist entry.
type Artist struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SpotifyID string `json:"spotify_id"`
}

// Validate checks that the artist has a name and a Spotify id.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: artist name is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(a.SpotifyID) == "" {
		return fmt.Errorf("%w: artist spotify id is required", shared.ErrInvalidInput)
	}
	return nil
}

// SpotifyURL links to the artist on open.spotify.com.
func (a Artist) SpotifyURL() string {
	return SpotifyArtistURL(a.SpotifyID)
}

// Visible reports whether the artist belongs in user facing listings.
func (a Artist) Visible() bool {
	return a.ID != HiddenArtistID
}

// VisibleArtists drops the hidden placeholder artist.
func VisibleArtists(artists []Artist) []Artist {
	out := make([]Artist, 0, len(artists))
	for _, a := range artists {
		if a.Visible() {
			out = append(out, a)
		}
	}
	return out
}

// SearchArtists returns the artists whose name contains term, ignoring case.
// An empty term matches everything.
func SearchArtists(artists []Artist, term string) []Artist {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return artists
	}

	var out []Artist
	for _, a := range artists {
		if strings.Contains(strings.ToLower(a.Name), term) {
			out = append(out, a)
		}
	}
	return out
}

// ArtistIDs collects the Spotify ids of artists.
func ArtistIDs(artists []Artist) []string {
	ids := make([]string, 0, len(artists))
	for _, a := range artists {
		ids = append(ids, a.SpotifyID)
	}
	return ids
}
