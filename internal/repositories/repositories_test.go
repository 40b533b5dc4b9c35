package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(context.Background(), db, shared.DialectSQLite); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestArtistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add and List", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)

		for _, a := range []models.Artist{{Name: "First", SpotifyID: "s1"}, {Name: "Second", SpotifyID: "s2"}} {
			artist := a
			inserted, err := repo.Create(ctx, &artist)
			if err != nil {
				t.Fatalf("failed to add artist: %v", err)
			}
			if !inserted {
				t.Errorf("expected %s to be inserted", artist.Name)
			}
			if artist.ID == 0 {
				t.Error("artist id should be set after insert")
			}
		}

		artists, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if len(artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(artists))
		}
		if artists[0].Name != "First" || artists[1].SpotifyID != "s2" {
			t.Errorf("unexpected artists %+v", artists)
		}
	})

	t.Run("Add ignores duplicate spotify id", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)

		if _, err := repo.Create(ctx, &models.Artist{Name: "Original", SpotifyID: "dup"}); err != nil {
			t.Fatalf("failed to add artist: %v", err)
		}
		inserted, err := repo.Create(ctx, &models.Artist{Name: "Copy", SpotifyID: "dup"})
		if err != nil {
			t.Fatalf("duplicate insert should not error: %v", err)
		}
		if inserted {
			t.Error("duplicate should not be inserted")
		}

		artists, _ := repo.List(ctx)
		if len(artists) != 1 || artists[0].Name != "Original" {
			t.Errorf("unexpected artists %+v", artists)
		}
	})

	t.Run("Add validation", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)
		if _, err := repo.Create(ctx, &models.Artist{Name: "No ID"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("List empty", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)
		artists, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if artists == nil || len(artists) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", artists)
		}
	})

	t.Run("SpotifyIDs", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)
		for _, id := range []string{"x1", "x2"} {
			if _, err := repo.Create(ctx, &models.Artist{Name: id, SpotifyID: id}); err != nil {
				t.Fatalf("failed to add artist: %v", err)
			}
		}

		ids, err := repo.SpotifyIDs(ctx)
		if err != nil {
			t.Fatalf("failed to list ids: %v", err)
		}
		if len(ids) != 2 || ids[0] != "x1" || ids[1] != "x2" {
			t.Errorf("unexpected ids %v", ids)
		}
	})

	t.Run("Get and Delete", func(t *testing.T) {
		repo := NewArtistRepository(setupTestDB(t), shared.DialectSQLite)
		artist := &models.Artist{Name: "Gone", SpotifyID: "g1"}
		if _, err := repo.Create(ctx, artist); err != nil {
			t.Fatalf("failed to add artist: %v", err)
		}

		got, err := repo.Get(ctx, artist.ID)
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if got.Name != "Gone" {
			t.Errorf("expected Gone, got %s", got.Name)
		}

		if err := repo.Delete(ctx, artist.ID); err != nil {
			t.Fatalf("failed to delete artist: %v", err)
		}

		if _, err := repo.Get(ctx, artist.ID); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, artist.ID); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound on second delete, got %v", err)
		}
	})
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t), shared.DialectSQLite)

		sub, err := repo.Create(ctx, "Artist", "abc")
		if err != nil {
			t.Fatalf("failed to create submission: %v", err)
		}
		if sub.ID == 0 {
			t.Error("submission id should be set")
		}
		if sub.Status != models.SubmissionPending {
			t.Errorf("expected pending status, got %s", sub.Status)
		}
		if sub.CreatedAt.IsZero() {
			t.Error("created_at should be set")
		}
		if time.Since(sub.CreatedAt) > time.Minute {
			t.Errorf("created_at should be recent, got %v", sub.CreatedAt)
		}
	})

	t.Run("List newest first", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t), shared.DialectSQLite)
		for _, name := range []string{"oldest", "middle", "newest"} {
			if _, err := repo.Create(ctx, name, name); err != nil {
				t.Fatalf("failed to create submission: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}

		subs, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list submissions: %v", err)
		}
		if len(subs) != 3 {
			t.Fatalf("expected 3 submissions, got %d", len(subs))
		}
		if subs[0].Name != "newest" || subs[2].Name != "oldest" {
			t.Errorf("unexpected order: %s, %s, %s", subs[0].Name, subs[1].Name, subs[2].Name)
		}
	})

	t.Run("Manage approve", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSubmissionRepository(db, shared.DialectSQLite)
		artists := NewArtistRepository(db, shared.DialectSQLite)

		sub, err := repo.Create(ctx, "Approved", "ap1")
		if err != nil {
			t.Fatalf("failed to create submission: %v", err)
		}

		got, err := repo.Manage(ctx, sub.ID, models.ActionApprove)
		if err != nil {
			t.Fatalf("failed to approve: %v", err)
		}
		if got.Name != "Approved" {
			t.Errorf("expected managed submission to be returned, got %+v", got)
		}

		list, _ := artists.List(ctx)
		if len(list) != 1 || list[0].SpotifyID != "ap1" {
			t.Errorf("expected approved artist on blocklist, got %+v", list)
		}

		if _, err := repo.Get(ctx, sub.ID); !errors.Is(err, shared.ErrSubmissionNotFound) {
			t.Errorf("submission should be deleted, got %v", err)
		}
	})

	t.Run("Manage approve duplicate artist", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSubmissionRepository(db, shared.DialectSQLite)
		artists := NewArtistRepository(db, shared.DialectSQLite)

		if _, err := artists.Create(ctx, &models.Artist{Name: "Existing", SpotifyID: "dup"}); err != nil {
			t.Fatalf("failed to add artist: %v", err)
		}
		sub, _ := repo.Create(ctx, "Again", "dup")

		if _, err := repo.Manage(ctx, sub.ID, models.ActionApprove); err != nil {
			t.Fatalf("approving a duplicate should succeed: %v", err)
		}

		list, _ := artists.List(ctx)
		if len(list) != 1 || list[0].Name != "Existing" {
			t.Errorf("expected blocklist unchanged, got %+v", list)
		}
		if subs, _ := repo.List(ctx); len(subs) != 0 {
			t.Errorf("submission should be deleted, got %d", len(subs))
		}
	})

	t.Run("Manage reject", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSubmissionRepository(db, shared.DialectSQLite)
		artists := NewArtistRepository(db, shared.DialectSQLite)

		sub, _ := repo.Create(ctx, "Rejected", "rj1")
		if _, err := repo.Manage(ctx, sub.ID, models.ActionReject); err != nil {
			t.Fatalf("failed to reject: %v", err)
		}

		if list, _ := artists.List(ctx); len(list) != 0 {
			t.Errorf("rejected artist should not be added, got %+v", list)
		}
		if subs, _ := repo.List(ctx); len(subs) != 0 {
			t.Errorf("submission should be deleted, got %d", len(subs))
		}
	})

	t.Run("Manage not found", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t), shared.DialectSQLite)
		if _, err := repo.Manage(ctx, 404, models.ActionApprove); !errors.Is(err, shared.ErrSubmissionNotFound) {
			t.Errorf("expected ErrSubmissionNotFound, got %v", err)
		}
	})

	t.Run("Manage invalid action rolls back", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t), shared.DialectSQLite)
		sub, _ := repo.Create(ctx, "Keep", "k1")

		if _, err := repo.Manage(ctx, sub.ID, models.Action("ban")); !errors.Is(err, shared.ErrInvalidAction) {
			t.Errorf("expected ErrInvalidAction, got %v", err)
		}
		if _, err := repo.Get(ctx, sub.ID); err != nil {
			t.Errorf("submission should survive an invalid action: %v", err)
		}
	})
}

func TestDailySongRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get before selection", func(t *testing.T) {
		repo := NewDailySongRepository(setupTestDB(t), shared.DialectSQLite)
		if _, err := repo.Get(ctx); !errors.Is(err, shared.ErrDailySongNotSelected) {
			t.Errorf("expected ErrDailySongNotSelected, got %v", err)
		}
	})

	t.Run("Upsert replaces", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDailySongRepository(db, shared.DialectSQLite)
		img := "https://i.scdn.co/image/first"

		first := &models.DailySong{SongName: "First", ArtistName: "A", SpotifyURL: "https://open.spotify.com/track/1", ImageURL: &img}
		if err := repo.Upsert(ctx, first); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := repo.Get(ctx)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.SongName != "First" || got.ImageURL == nil || *got.ImageURL != img {
			t.Errorf("unexpected song %+v", got)
		}

		second := &models.DailySong{SongName: "Second", ArtistName: "B, C", SpotifyURL: "https://open.spotify.com/track/2"}
		if err := repo.Upsert(ctx, second); err != nil {
			t.Fatalf("failed to upsert second: %v", err)
		}

		got, err = repo.Get(ctx)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.SongName != "Second" || got.ArtistName != "B, C" {
			t.Errorf("unexpected song %+v", got)
		}
		if got.ImageURL != nil {
			t.Errorf("expected nil image url, got %v", *got.ImageURL)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM daily_song").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 1 {
			t.Errorf("expected a single row, got %d", count)
		}
	})

	t.Run("Upsert validation", func(t *testing.T) {
		repo := NewDailySongRepository(setupTestDB(t), shared.DialectSQLite)
		if err := repo.Upsert(ctx, &models.DailySong{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("MySQL upsert query", func(t *testing.T) {
		repo := NewDailySongRepository(nil, shared.DialectMySQL)
		if q := repo.upsertQuery(); !strings.Contains(q, "ON DUPLICATE KEY UPDATE") {
			t.Errorf("unexpected mysql upsert %s", q)
		}
	})
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	db.Close()

	if _, err := NewArtistRepository(db, shared.DialectSQLite).List(ctx); err == nil {
		t.Error("expected error listing artists on closed database")
	}
	if _, err := NewSubmissionRepository(db, shared.DialectSQLite).Manage(ctx, 1, models.ActionApprove); err == nil {
		t.Error("expected error managing submission on closed database")
	}
	if _, err := NewDailySongRepository(db, shared.DialectSQLite).Get(ctx); err == nil || errors.Is(err, shared.ErrDailySongNotSelected) {
		t.Errorf("expected query error on closed database, got %v", err)
	}
}

func TestInsertIgnore(t *testing.T) {
	if got := insertIgnore(shared.DialectMySQL, "artists", "name", "?"); got != "INSERT IGNORE INTO artists (name) VALUES (?)" {
		t.Errorf("unexpected mysql statement %s", got)
	}
	if got := insertIgnore(shared.DialectSQLite, "artists", "name", "?"); got != "INSERT OR IGNORE INTO artists (name) VALUES (?)" {
		t.Errorf("unexpected sqlite statement %s", got)
	}
}
