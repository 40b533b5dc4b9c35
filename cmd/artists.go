package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/skipper/internal/formatter"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/urfave/cli/v3"
)

// ArtistsList prints the public blocklist.
func (r *Runner) ArtistsList(ctx context.Context, cmd *cli.Command) error {
	artists, err := r.apiClient().Artists(ctx)
	if err != nil {
		return err
	}
	return r.renderArtists(cmd, models.VisibleArtists(artists))
}

// ArtistsSearch prints blocked artists whose name contains the query.
func (r *Runner) ArtistsSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	artists, err := r.apiClient().Artists(ctx)
	if err != nil {
		return err
	}
	return r.renderArtists(cmd, models.SearchArtists(models.VisibleArtists(artists), query))
}

func (r *Runner) renderArtists(cmd *cli.Command, artists []models.Artist) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := formatter.Artists(artists, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("wrote artists", "count", len(artists), "path", path)
		return r.writePlain("✓ Wrote %d artist(s) to %s\n", len(artists), path)
	}
	return r.writeBytes(data)
}

// Submit proposes an artist for the blocklist. With --lookup the artist is
// resolved on Spotify first and its canonical name replaces the given one.
func (r *Runner) Submit(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	link := cmd.StringArg("link")

	sub, err := models.NewSubmission(name, link)
	if err != nil {
		return err
	}

	if cmd.Bool("lookup") {
		if name, err = r.lookupArtist(ctx, sub.SpotifyID); err != nil {
			return err
		}
		sub.Name = name
	}

	result, err := r.apiClient().Submit(ctx, sub.Name, sub.SpotifyURL())
	if err != nil {
		return err
	}

	if err := r.authManager().RecordVote(result.Submission.ID); err != nil {
		r.logger.Warn("failed to record submission", "error", err)
	}

	r.writePlain("✓ %s\n", result.Message)
	return r.writePlain("Submission #%d: %s (%s)\n", result.Submission.ID, result.Submission.Name, result.Submission.SpotifyID)
}

func (r *Runner) lookupArtist(ctx context.Context, spotifyID string) (string, error) {
	manager := r.authManager()

	clientID, err := manager.ClientID()
	if err != nil {
		return "", err
	}
	if clientID == "" {
		return "", shared.ErrMissingClientID
	}

	token, err := manager.ValidAccessToken(ctx)
	if err != nil {
		return "", err
	}

	svc, err := r.spotifyService(clientID)
	if err != nil {
		return "", err
	}

	artist, err := svc.Artist(ctx, token, spotifyID)
	if err != nil {
		return "", fmt.Errorf("failed to look up artist %s: %w", spotifyID, err)
	}
	r.logger.Debug("resolved artist", "id", artist.ID, "name", artist.Name)
	return artist.Name, nil
}
