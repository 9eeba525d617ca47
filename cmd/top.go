package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/toptracks/internal/formatter"
	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/desertthunder/toptracks/internal/ui"
	"github.com/urfave/cli/v3"
)

// Top prints or exports the ranked top tracks for one time range.
//
// Without --format or --output the list is rendered for the terminal. With --output and no
// --format the format follows the file extension.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	timeRange, err := models.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	limit := cmd.Int("limit")
	if limit < 1 || limit > models.MaxTopTracks {
		return fmt.Errorf("%w: --limit must be between 1 and %d", shared.ErrInvalidArgument, models.MaxTopTracks)
	}

	output := cmd.String("output")
	name := cmd.String("format")
	if cmd.Bool("json") {
		name = string(formatter.JSON)
	}
	if name == "" && output != "" {
		name = strings.TrimPrefix(filepath.Ext(output), ".")
	}

	var format formatter.Format
	if name != "" {
		if format, err = formatter.ParseFormat(name); err != nil {
			return err
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := r.spotify(ctx, config)
	if err != nil {
		return err
	}

	tracks, err := svc.TopTracks(ctx, timeRange, limit)
	if err != nil {
		return err
	}

	if format == "" && output == "" {
		r.writePlain("%s", ui.Header(fmt.Sprintf("Top %d tracks: %s", len(tracks), timeRange.Label())))
		return r.writePlain("%s", ui.TrackList(tracks))
	}
	if format == "" {
		format = formatter.Text
	}

	export := &formatter.Export{Range: timeRange, Generated: r.now(), Tracks: tracks}

	if output != "" {
		path, err := formatter.WriteExport(export, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("export written", "path", path, "format", format)
		return r.writePlain("✓ Wrote %d tracks to %s\n", len(tracks), path)
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
