package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/tasks"
)

const rule = "═══════════════════════════════════════"

// Header renders title between two rules.
func Header(title string) string {
	return fmt.Sprintf("%s\n%s\n%s\n", rule, Styles.Title(title), rule)
}

// TrackList renders tracks as a numbered list in rank order.
func TrackList(tracks []models.Track) string {
	if len(tracks) == 0 {
		return Styles.Help("(no tracks)") + "\n"
	}

	var b strings.Builder
	width := len(fmt.Sprint(len(tracks)))
	for _, t := range tracks {
		line := t.Title
		if t.Artist != "" {
			line = t.Artist + " - " + t.Title
		}
		fmt.Fprintf(&b, "%*d. %s\n", width, t.Rank, line)
	}
	return b.String()
}

// Summary renders one line per target of a sync run.
func Summary(result *tasks.SyncResult) string {
	var b strings.Builder

	title := "Sync complete"
	if result.DryRun {
		title = "Dry run complete"
	}
	if result.User != nil {
		title += " for " + result.User.ID
	}
	b.WriteString(Header(title))

	for _, res := range result.Results {
		if res.Err != nil {
			fmt.Fprintf(&b, "%s %s\n  %s\n", Styles.Err("✗"), res.Target, Styles.Err(res.Err.Error()))
			continue
		}

		verb := "replaced"
		if res.Created {
			verb = "created"
		}
		if result.DryRun {
			verb = "would be " + verb
		}

		count := len(models.TrackIDs(res.Tracks))
		fmt.Fprintf(&b, "%s %s: %s with %d tracks\n", Styles.OK("✓"), res.Target, verb, count)
		if res.Playlist != nil && res.Playlist.ID != "" {
			fmt.Fprintf(&b, "  %s\n", Styles.Help("https://open.spotify.com/playlist/"+res.Playlist.ID))
		}
	}

	if failed := len(result.Failed()); failed > 0 {
		fmt.Fprintf(&b, "\n%s\n", Styles.Warn(fmt.Sprintf("%d of %d playlists failed", failed, len(result.Results))))
	}

	return b.String()
}
