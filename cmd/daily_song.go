package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/skipper/internal/formatter"
	"github.com/desertthunder/skipper/internal/repositories"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/desertthunder/skipper/internal/tasks"
	"github.com/urfave/cli/v3"
)

// DailySongRun picks and stores a new song of the day, printing progress as it goes.
func (r *Runner) DailySongRun(ctx context.Context, cmd *cli.Command) error {
	db, dialect, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := shared.RunMigrations(ctx, db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	selector, err := r.dailySongSelector(ctx, repositories.NewDailySongRepository(db, dialect), cmd.StringSlice("playlist"))
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range progress {
			r.logger.Debug("daily song", "phase", u.Phase, "step", u.Step, "total", u.Total)
			r.writePlain("  %s\n", u.Message)
		}
	}()

	song, err := selector.Run(ctx, progress)
	close(progress)
	<-printed
	if err != nil {
		return err
	}

	data, err := formatter.DailySongToText(song)
	if err != nil {
		return err
	}
	r.writePlain("\n")
	return r.writeBytes(data)
}

// DailySongShow prints the current song of the day from the API.
func (r *Runner) DailySongShow(ctx context.Context, cmd *cli.Command) error {
	song, err := r.apiClient().DailySong(ctx)
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return shared.ErrDailySongNotSelected
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(song, true)
	}

	data, err := formatter.DailySongToText(song)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
