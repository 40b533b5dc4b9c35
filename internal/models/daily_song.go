package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/skipper/internal/shared"
)

// DailySongID is the fixed primary key of the song of the day row.
const DailySongID int64 = 1

// DailySong is the track picked for the day. ImageURL is nil when the album has no art.
type DailySong struct {
	ID         int64   `json:"id"`
	SongName   string  `json:"song_name"`
	ArtistName string  `json:"artist_name"`
	SpotifyURL string  `json:"spotify_url"`
	ImageURL   *string `json:"image_url"`
}

// Validate checks the required fields.
func (d *DailySong) Validate() error {
	if strings.TrimSpace(d.SongName) == "" {
		return fmt.Errorf("%w: song name is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(d.SpotifyURL) == "" {
		return fmt.Errorf("%w: spotify url is required", shared.ErrInvalidInput)
	}
	return nil
}

// String renders "Song by Artist".
func (d DailySong) String() string {
	return d.SongName + " by " + d.ArtistName
}
