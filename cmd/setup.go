package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/skipper/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureConfigFile(); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver)

	db, dialect, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(ctx, db, dialect); err != nil {
			return err
		}
		current, err := shared.CurrentVersion(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		return r.writePlain("✓ Rolled back to schema version %d\n", current)
	}

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	current, err := shared.CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", dialect)
	return r.writePlain("✓ Database ready (schema version %d, %d migration(s) applied)\n", current, applied)
}

// ensureConfigFile writes the example configuration when no file exists at
// the configured path.
func (r *Runner) ensureConfigFile() error {
	if r.configPath == "" {
		return nil
	}
	if _, err := os.Stat(r.configPath); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	r.logger.Info("config file not found, creating from template", "path", r.configPath)
	return shared.CreateConfigFile(r.configPath)
}

// SetupConfig writes a configuration file. With --from-env the effective
// configuration, environment overrides included, is written instead of the
// commented template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		return fmt.Errorf("%w: --config", shared.ErrMissingArgument)
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", shared.ErrInvalidArgument, path)
	}

	if cmd.Bool("from-env") {
		if err := shared.SaveConfig(path, r.config); err != nil {
			return err
		}
		return r.writePlain("✓ Configuration written to %s\n", path)
	}

	if exists {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Configuration template written to %s\n", path)
	return r.writePlain("Fill in [admin], [cron] and [credentials.spotify] before running 'skipper serve'\n")
}
