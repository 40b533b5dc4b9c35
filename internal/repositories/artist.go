package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

// ArtistRepository persists the approved blocklist.
type ArtistRepository struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewArtistRepository creates a new [ArtistRepository] with the given database connection
func NewArtistRepository(db *sql.DB, dialect shared.Dialect) *ArtistRepository {
	return &ArtistRepository{db: db, dialect: dialect}
}

// List returns every approved artist ordered by id.
func (r *ArtistRepository) List(ctx context.Context) ([]models.Artist, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, spotify_id FROM artists ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Get retrieves an artist by id.
func (r *ArtistRepository) Get(ctx context.Context, id int64) (*models.Artist, error) {
	a, err := scanArtist(r.db.QueryRowContext(ctx, "SELECT id, name, spotify_id FROM artists WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrArtistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	return a, nil
}

// Create inserts an artist unless one with the same Spotify id already exists.
// It reports whether a row was inserted.
func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) (bool, error) {
	return addArtist(ctx, r.db, r.dialect, artist)
}

// SpotifyIDs returns the Spotify ids of every approved artist.
func (r *ArtistRepository) SpotifyIDs(ctx context.Context) ([]string, error) {
	artists, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.ArtistIDs(artists), nil
}

// Delete removes an artist by id.
func (r *ArtistRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM artists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", shared.ErrArtistNotFound, id)
	}

	return nil
}

func addArtist(ctx context.Context, q querier, dialect shared.Dialect, artist *models.Artist) (bool, error) {
	if err := artist.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	query := insertIgnore(dialect, "artists", "name, spotify_id", "?, ?")
	result, err := q.ExecContext(ctx, query, artist.Name, artist.SpotifyID)
	if err != nil {
		return false, fmt.Errorf("failed to insert artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		artist.ID = id
	}
	return true, nil
}

func scanArtist(s scanner) (*models.Artist, error) {
	var a models.Artist
	if err := s.Scan(&a.ID, &a.Name, &a.SpotifyID); err != nil {
		return nil, err
	}
	return &a, nil
}
