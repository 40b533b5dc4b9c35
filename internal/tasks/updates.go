package tasks

import (
	"fmt"

	"github.com/desertthunder/skipper/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase of the daily song selection.
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchTracks
	PickSong
	SaveSong
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case PickSong:
		return "pick_song"
	case SaveSong:
		return "save_song"
	default:
		return ""
	}
}

// sendProgress sends update without blocking. A nil channel is ignored.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchPlaylistsUpdate(found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d matching playlists", found),
		Data:    found,
	}
}

func fetchTracksUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching tracks from %q (%d/%d)...", name, step, total),
		Data:    name,
	}
}

func pickSongUpdate(candidates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PickSong,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Picking from %d tracks", candidates),
		Data:    candidates,
	}
}

func saveSongUpdate(song *models.DailySong) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSong,
		Step:    1,
		Total:   1,
		Message: "Saved song of the day: " + song.String(),
		Data:    song,
	}
}
