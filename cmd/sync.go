package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/tasks"
	"github.com/desertthunder/toptracks/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync replaces every configured playlist with the current top tracks for its range.
//
// The command fails if any playlist failed, after every playlist has been attempted.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.IsSet("limit") {
		limit := cmd.Int("limit")
		for i := range config.Sync.Playlists {
			config.Sync.Playlists[i].Limit = limit
		}
	}

	targets, err := config.Targets()
	if err != nil {
		return err
	}

	svc, err := r.spotify(ctx, config)
	if err != nil {
		return err
	}

	syncer := tasks.NewSyncer(tasks.SyncOpts{
		Service: svc,
		Logger:  r.logger,
		Now:     r.now,
		Public:  config.Sync.Public,
		DryRun:  cmd.Bool("dry-run"),
	})

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logProgress(update)
		}
	}()

	result, err := syncer.Run(ctx, targets, progress)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if u := config.Credentials.Spotify.Username; u != "" && result.User != nil && u != result.User.ID {
		r.logger.Warn("configured username differs from the authorized account", "username", u, "account", result.User.ID)
	}

	if err := r.writePlain("%s", ui.Summary(result)); err != nil {
		return err
	}

	return result.Err()
}

func (r *Runner) logProgress(update tasks.ProgressUpdate) {
	if update.Step == 0 {
		r.logger.Info(update.Message)
		return
	}

	attrs := append([]any{"step", fmt.Sprintf("%d/%d", update.Step, update.Total)}, progressAttrs(update)...)
	switch update.Phase {
	case tasks.TargetFailed:
		// already logged by the syncer
		r.logger.Debug(update.Message, append(attrs, "phase", update.Phase)...)
	default:
		r.logger.Info(update.Message, attrs...)
	}
}

// progressAttrs turns the phase-specific payload of update into log key/value pairs.
func progressAttrs(update tasks.ProgressUpdate) []any {
	switch data := update.Data.(type) {
	case models.Target:
		return []any{"range", data.Range, "limit", data.Limit}
	case models.Playlist:
		return []any{"id", data.ID}
	case tasks.TargetResult:
		if data.Playlist == nil || data.Playlist.ID == "" {
			return []any{"created", data.Created}
		}
		return []any{"id", data.Playlist.ID, "created", data.Created}
	}
	return nil
}
