// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/skipper/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "skipper",
		Usage:   "Skip Spotify tracks by blocked artists and run the shared blocklist service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SKIPPER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Minimum log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

// Before loads configuration shared by every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")

	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(); err != nil {
		return ctx, err
	}

	level := config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	r.SetConfig(config, path)
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, dailySongCommand, authCommand, monitorCommand,
		artistsCommand, submitCommand, adminCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// serveCommand runs the blocklist HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the blocklist HTTP API",
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "from-env",
						Usage: "Write the effective configuration, environment overrides included",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// dailySongCommand handles the song of the day.
func dailySongCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "daily-song",
		Aliases: []string{"song"},
		Usage:   "Song of the day",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Pick a new song of the day from the configured playlists",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "playlist",
						Usage: "Playlist name to draw from (repeatable, overrides config)",
					},
				},
				Action: r.DailySongRun,
			},
			{
				Name:  "show",
				Usage: "Show the current song of the day",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DailySongShow,
			},
		},
	}
}

// authCommand handles the Spotify session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in to Spotify in the browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "save-token",
						Usage: "Also store the refresh token in the config file for the daily song job",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the Spotify tokens",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Action: r.AuthStatus,
			},
			{
				Name:  "client-id",
				Usage: "Save (or with --clear, remove) the Spotify client id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Remove the saved client id",
					},
				},
				Action: r.AuthClientID,
			},
		},
	}
}

// monitorCommand watches playback and skips blocked artists.
func monitorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Watch Spotify playback and skip tracks by blocked artists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print status lines instead of the dashboard",
			},
		},
		Action: r.Monitor,
	}
}

// artistsCommand reads the public blocklist.
func artistsCommand(r *Runner) *cli.Command {
	formatFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, csv, markdown, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to file instead of stdout",
			},
		}
	}

	return &cli.Command{
		Name:  "artists",
		Usage: "Browse the blocklist",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List blocked artists",
				Flags:  formatFlags(),
				Action: r.ArtistsList,
			},
			{
				Name:  "search",
				Usage: "Search blocked artists by name",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags:  formatFlags(),
				Action: r.ArtistsSearch,
			},
		},
	}
}

// submitCommand proposes an artist.
func submitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submit an artist for the blocklist",
		ArgsUsage: "<name> <spotify-link>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
			&cli.StringArg{Name: "link"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "lookup",
				Usage: "Check the artist on Spotify first and use its canonical name",
			},
		},
		Action: r.Submit,
	}
}

// adminCommand moderates submissions.
func adminCommand(r *Runner) *cli.Command {
	idArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "id"}} }

	return &cli.Command{
		Name:  "admin",
		Usage: "Moderate submissions and the blocklist",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in as the moderator",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Admin username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Admin password",
						Sources: cli.EnvVars("SKIPPER_ADMIN_PASSWORD"),
					},
				},
				Action: r.AdminLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the moderator token",
				Action: r.AdminLogout,
			},
			{
				Name:  "submissions",
				Usage: "List pending submissions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AdminSubmissions,
			},
			{
				Name:      "approve",
				Usage:     "Approve a submission and block its artist",
				Arguments: idArg(),
				Action:    r.AdminApprove,
			},
			{
				Name:      "reject",
				Usage:     "Reject a submission",
				Arguments: idArg(),
				Action:    r.AdminReject,
			},
			{
				Name:      "delete-artist",
				Usage:     "Remove an artist from the blocklist",
				Arguments: idArg(),
				Action:    r.AdminDeleteArtist,
			},
		},
	}
}
