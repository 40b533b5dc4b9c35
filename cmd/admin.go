package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/skipper/internal/formatter"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/urfave/cli/v3"
)

// AdminLogin exchanges moderator credentials for a token and stores it in the session.
func (r *Runner) AdminLogin(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password (or SKIPPER_ADMIN_PASSWORD)", shared.ErrMissingArgument)
	}

	token, err := r.apiClient().AdminLogin(ctx, cmd.String("username"), password)
	if err != nil {
		return err
	}

	if err := r.authManager().SetAdminToken(token); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as moderator\n")
}

// AdminLogout forgets the moderator token.
func (r *Runner) AdminLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.authManager().SetAdminToken(""); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AdminSubmissions lists pending submissions.
func (r *Runner) AdminSubmissions(ctx context.Context, cmd *cli.Command) error {
	token, err := r.adminToken()
	if err != nil {
		return err
	}

	subs, err := r.apiClient().Submissions(ctx, token)
	if err != nil {
		return r.adminError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string][]models.Submission{"submissions": subs}, true)
	}

	data, err := formatter.SubmissionsToText(subs)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// AdminApprove approves a submission, adding its artist to the blocklist.
func (r *Runner) AdminApprove(ctx context.Context, cmd *cli.Command) error {
	return r.manageSubmission(ctx, cmd, models.ActionApprove)
}

// AdminReject rejects a submission.
func (r *Runner) AdminReject(ctx context.Context, cmd *cli.Command) error {
	return r.manageSubmission(ctx, cmd, models.ActionReject)
}

func (r *Runner) manageSubmission(ctx context.Context, cmd *cli.Command, action models.Action) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	token, err := r.adminToken()
	if err != nil {
		return err
	}

	msg, err := r.apiClient().ManageSubmission(ctx, token, id, action)
	if err != nil {
		return r.adminError(err)
	}
	return r.writePlain("✓ %s\n", msg)
}

// AdminDeleteArtist removes an artist from the blocklist.
func (r *Runner) AdminDeleteArtist(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	token, err := r.adminToken()
	if err != nil {
		return err
	}

	msg, err := r.apiClient().DeleteArtist(ctx, token, id)
	if err != nil {
		return r.adminError(err)
	}
	return r.writePlain("✓ %s\n", msg)
}

func (r *Runner) adminToken() (string, error) {
	token, err := r.authManager().AdminToken()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return "", fmt.Errorf("%w: run 'skipper admin login' first", err)
	}
	return token, err
}

// adminError drops a token the server no longer accepts so the next command
// asks for a fresh login.
func (r *Runner) adminError(err error) error {
	var apiErr *services.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode != http.StatusUnauthorized && apiErr.StatusCode != http.StatusForbidden {
		return err
	}

	if clearErr := r.authManager().SetAdminToken(""); clearErr != nil {
		r.logger.Warn("failed to clear admin token", "error", clearErr)
	}
	return fmt.Errorf("%w: %v, run 'skipper admin login' again", shared.ErrNotAuthenticated, err)
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", shared.ErrInvalidArgument, s)
	}
	return id, nil
}
