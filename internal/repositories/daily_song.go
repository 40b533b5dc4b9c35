package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

// DailySongRepository persists the single song of the day row.
type DailySongRepository struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewDailySongRepository creates a new [DailySongRepository] with the given database connection
func NewDailySongRepository(db *sql.DB, dialect shared.Dialect) *DailySongRepository {
	return &DailySongRepository{db: db, dialect: dialect}
}

// Get returns the current song of the day or [shared.ErrDailySongNotSelected].
func (r *DailySongRepository) Get(ctx context.Context) (*models.DailySong, error) {
	var (
		song  models.DailySong
		image sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT song_name, artist_name, spotify_url, image_url FROM daily_song WHERE id = ?", models.DailySongID,
	).Scan(&song.SongName, &song.ArtistName, &song.SpotifyURL, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrDailySongNotSelected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query daily song: %w", err)
	}

	song.ID = models.DailySongID
	if image.Valid {
		song.ImageURL = &image.String
	}
	return &song, nil
}

// Upsert replaces the song of the day.
func (r *DailySongRepository) Upsert(ctx context.Context, song *models.DailySong) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var image sql.NullString
	if song.ImageURL != nil {
		image = sql.NullString{String: *song.ImageURL, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, r.upsertQuery(), models.DailySongID, song.SongName, song.ArtistName, song.SpotifyURL, image); err != nil {
		return fmt.Errorf("failed to upsert daily song: %w", err)
	}
	return nil
}

func (r *DailySongRepository) upsertQuery() string {
	const insert = "INSERT INTO daily_song (id, song_name, artist_name, spotify_url, image_url) VALUES (?, ?, ?, ?, ?)"
	if r.dialect == shared.DialectMySQL {
		return insert + ` ON DUPLICATE KEY UPDATE
			song_name = VALUES(song_name),
			artist_name = VALUES(artist_name),
			spotify_url = VALUES(spotify_url),
			image_url = VALUES(image_url)`
	}
	return insert + ` ON CONFLICT(id) DO UPDATE SET
		song_name = excluded.song_name,
		artist_name = excluded.artist_name,
		spotify_url = excluded.spotify_url,
		image_url = excluded.image_url,
		updated_at = CURRENT_TIMESTAMP`
}
