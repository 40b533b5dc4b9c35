package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

const selectSubmission = "SELECT id, name, spotify_id, status, created_at FROM submissions"

// SubmissionRepository persists pending submissions and applies moderation.
type SubmissionRepository struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewSubmissionRepository creates a new [SubmissionRepository] with the given database connection
func NewSubmissionRepository(db *sql.DB, dialect shared.Dialect) *SubmissionRepository {
	return &SubmissionRepository{db: db, dialect: dialect}
}

// Create stores a pending submission and returns the stored row.
func (r *SubmissionRepository) Create(ctx context.Context, name, spotifyID string) (*models.Submission, error) {
	sub := &models.Submission{Name: name, SpotifyID: spotifyID, Status: models.SubmissionPending}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO submissions (name, spotify_id, status, created_at) VALUES (?, ?, ?, ?)",
		sub.Name, sub.SpotifyID, sub.Status, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read submission id: %w", err)
	}

	return r.Get(ctx, id)
}

// Get retrieves a submission by id.
func (r *SubmissionRepository) Get(ctx context.Context, id int64) (*models.Submission, error) {
	return getSubmission(ctx, r.db, id)
}

// List returns every pending submission, newest first.
func (r *SubmissionRepository) List(ctx context.Context) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, selectSubmission+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := []models.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return submissions, nil
}

// Manage applies a moderation action in one transaction. Approving copies the
// submission into artists (ignoring a duplicate Spotify id); both actions then
// delete the submission. Nothing changes when the submission does not exist.
func (r *SubmissionRepository) Manage(ctx context.Context, id int64, action models.Action) (*models.Submission, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sub, err := getSubmission(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	switch action {
	case models.ActionApprove:
		artist := sub.Artist()
		if _, err := addArtist(ctx, tx, r.dialect, &artist); err != nil {
			return nil, err
		}
	case models.ActionReject:
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidAction, action)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM submissions WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit moderation: %w", err)
	}

	return sub, nil
}

func getSubmission(ctx context.Context, q querier, id int64) (*models.Submission, error) {
	sub, err := scanSubmission(q.QueryRowContext(ctx, selectSubmission+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrSubmissionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query submission: %w", err)
	}
	return sub, nil
}

func scanSubmission(s scanner) (*models.Submission, error) {
	var sub models.Submission
	if err := s.Scan(&sub.ID, &sub.Name, &sub.SpotifyID, &sub.Status, &sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}
