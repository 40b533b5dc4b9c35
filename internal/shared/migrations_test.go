package shared

import (
	"context"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	for _, dialect := range []Dialect{DialectSQLite, DialectMySQL} {
		t.Run("loadMigrations "+string(dialect), func(t *testing.T) {
			migrations, err := loadMigrations(dialect)
			if err != nil {
				t.Fatalf("failed to load migrations: %v", err)
			}

			if len(migrations) != 2 {
				t.Fatalf("expected 2 migrations, got %d", len(migrations))
			}

			for i := 1; i < len(migrations); i++ {
				if migrations[i].Version <= migrations[i-1].Version {
					t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
				}
			}

			if migrations[0].Name != "blocklist" {
				t.Errorf("expected first migration named blocklist, got %q", migrations[0].Name)
			}
		})
	}

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(DialectSQLite, ":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		applied, err := RunMigrations(ctx, db, DialectSQLite)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if applied != 2 {
			t.Errorf("expected 2 applied migrations, got %d", applied)
		}

		for _, table := range []string{"artists", "submissions", "daily_song"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(ctx, db, DialectSQLite); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		version, err := CurrentVersion(ctx, db)
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}
		if version != 1 {
			t.Errorf("expected version 1 after rollback, got %d", version)
		}

		if _, err := db.Exec("SELECT 1 FROM daily_song LIMIT 1"); err == nil {
			t.Error("daily_song should be dropped after rollback")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(DialectSQLite, ":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(ctx, db, DialectSQLite); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		applied, err := RunMigrations(ctx, db, DialectSQLite)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if applied != 0 {
			t.Errorf("expected no migrations on second run, got %d", applied)
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- heading\nCREATE TABLE x (id INT); -- trailing\n\n")
		if got != "CREATE TABLE x (id INT);" {
			t.Errorf("unexpected result %q", got)
		}
	})
}
