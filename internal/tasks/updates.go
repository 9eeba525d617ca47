package tasks

import (
	"fmt"

	"github.com/desertthunder/toptracks/internal/models"
)

// ProgressUpdate represents a progress event during a sync.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current target number (1-based), 0 for run-level phases
	Total   int    // Number of targets in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchUser Phase = iota
	FetchPlaylists
	FetchTopTracks
	ResolvePlaylist
	CreatePlaylist
	ReplaceTracks
	TargetDone
	TargetFailed
)

func (p Phase) String() string {
	switch p {
	case FetchUser:
		return "fetch_user"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case ResolvePlaylist:
		return "resolve_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case ReplaceTracks:
		return "replace_tracks"
	case TargetDone:
		return "target_done"
	case TargetFailed:
		return "target_failed"
	default:
		return ""
	}
}

func fetchUserUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchUser, Total: total, Message: "Fetching Spotify profile..."}
}

func fetchPlaylistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchPlaylists, Total: total, Message: "Fetching your playlists..."}
}

func fetchTopTracksUpdate(step, total int, target models.Target) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTopTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching top %d tracks (%s)...", target.Limit, target.Range.Label()),
		Data:    target,
	}
}

func resolvePlaylistUpdate(step, total int, playlist models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found playlist %q (%d tracks)", playlist.Name, playlist.TrackCount),
		Data:    playlist,
	}
}

func createPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func replaceTracksUpdate(step, total int, name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplaceTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Replacing tracks of %q with %d tracks...", name, count),
	}
}

func targetDoneUpdate(step, total int, result TargetResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TargetDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ %s", result.Target),
		Data:    result,
	}
}

func targetFailedUpdate(step, total int, result TargetResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TargetFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ %s: %v", result.Target, result.Err),
		Data:    result,
	}
}
