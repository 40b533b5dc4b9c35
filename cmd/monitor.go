package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/skipper/internal/monitor"
	"github.com/desertthunder/skipper/internal/shared"
	"github.com/desertthunder/skipper/internal/ui"
	"github.com/urfave/cli/v3"
)

// Monitor watches playback until interrupted. The dashboard is the default;
// --plain prints one line per status change.
func (r *Runner) Monitor(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("plain") {
		return r.monitorPlain(ctx)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(shared.ExpandPath(r.config.Monitor.LogPath))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	mon, err := r.newMonitor()
	if err != nil {
		return err
	}
	defer mon.Stop()

	model := ui.NewModel(ctx, mon, r.authManager())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func (r *Runner) monitorPlain(ctx context.Context) error {
	if !r.authManager().LoggedIn() {
		return fmt.Errorf("%w: run 'skipper auth login' first", shared.ErrNotAuthenticated)
	}

	mon, err := r.newMonitor()
	if err != nil {
		return err
	}

	if err := mon.RefreshBlocklist(ctx); err != nil {
		r.logger.Warn("failed to load blocklist", "error", err)
	}
	r.writePlain("Loaded %d blocked artist(s)\n", mon.Blocked().Len())

	mon.Start(ctx)
	defer mon.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-mon.Updates():
			r.writePlain("[%s] %s\n", u.Time.Format("15:04:05"), u.Message)
			if !u.Monitoring && u.Message == monitor.MsgAuthError {
				return fmt.Errorf("%w: run 'skipper auth login' again", shared.ErrNotAuthenticated)
			}
		}
	}
}

// newMonitor wires the monitor to the user's Spotify client, the session's
// token manager and the blocklist API.
func (r *Runner) newMonitor() (*monitor.Monitor, error) {
	manager := r.authManager()

	clientID, err := manager.ClientID()
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, fmt.Errorf("%w: run 'skipper auth client-id <id>' first", shared.ErrMissingClientID)
	}

	player, err := r.spotifyService(clientID)
	if err != nil {
		return nil, err
	}

	cfg := r.config.Monitor
	return monitor.New(player, manager, r.apiClient(), monitor.Options{
		PollInterval:    cfg.PollInterval.Duration,
		SkipRecheck:     cfg.SkipRecheck.Duration,
		RefreshInterval: cfg.RefreshInterval.Duration,
		Logger:          r.logger,
	}), nil
}
