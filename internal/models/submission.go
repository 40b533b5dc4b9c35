package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/skipper/internal/shared"
)

// SubmissionPending is the only status a stored submission ever has; moderated
// submissions are deleted.
const SubmissionPending = "pending"

// Submission is an artist proposed by a listener.
type Submission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SpotifyID string    `json:"spotify_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubmission builds a pending submission from the raw form input. The link
// must be a Spotify artist link.
func NewSubmission(name, link string) (*Submission, error) {
	name = strings.TrimSpace(name)
	link = strings.TrimSpace(link)
	if name == "" || link == "" {
		return nil, fmt.Errorf("%w: artist name and spotify link are required", shared.ErrMissingArgument)
	}

	id, err := ParseSpotifyArtistID(link)
	if err != nil {
		return nil, err
	}

	return &Submission{Name: name, SpotifyID: id, Status: SubmissionPending, CreatedAt: time.Now().UTC()}, nil
}

// Validate checks the required fields.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: submission name is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(s.SpotifyID) == "" {
		return fmt.Errorf("%w: submission spotify id is required", shared.ErrInvalidInput)
	}
	return nil
}

// Artist converts an approved submission into a blocklist entry.
func (s Submission) Artist() Artist {
	return Artist{Name: s.Name, SpotifyID: s.SpotifyID}
}

// SpotifyURL links to the submitted artist on open.spotify.com.
func (s Submission) SpotifyURL() string {
	return SpotifyArtistURL(s.SpotifyID)
}
