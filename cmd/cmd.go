// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

// newApp builds the root command. Without a subcommand it runs a sync.
func newApp(r *Runner) *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a dotenv file loaded before the environment is read",
			Value: ".env",
		},
	}

	return &cli.Command{
		Name:     "toptracks",
		Usage:    "Keep Spotify playlists filled with your top tracks",
		Version:  version,
		Flags:    append(flags, syncFlags(true)...),
		Before:   r.before,
		Action:   r.Sync,
		Commands: r.register(),
	}
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func configFlag(local bool) cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
		Local:   local,
	}
}

// syncFlags are shared by the root command and sync. On the root they are local so
// subcommands can declare their own.
func syncFlags(local bool) []cli.Flag {
	return []cli.Flag{
		configFlag(local),
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Number of top tracks per playlist (1-50), overrides the config file",
			Local:   local,
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Fetch and resolve playlists without changing them",
			Local: local,
		},
	}
}

// syncCommand replaces every configured playlist with the matching top tracks.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Replace the configured playlists with your current top tracks",
		Flags:  syncFlags(false),
		Action: r.Sync,
	}
}

// topCommand prints top tracks without touching any playlist.
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Print your top tracks for a time range",
		Flags: []cli.Flag{
			configFlag(false),
			&cli.StringFlag{
				Name:    "range",
				Aliases: []string{"r"},
				Usage:   "Time range: short_term, medium_term or long_term",
				Value:   "short_term",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of tracks (1-50)",
				Value:   50,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: text, csv, markdown or json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON (same as --format json)",
			},
		},
		Action: r.Top,
	}
}

// authCommand manages the cached Spotify token.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize in the browser and cache the token",
				Flags:  []cli.Flag{configFlag(false)},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Delete the cached token",
				Flags:  []cli.Flag{configFlag(false)},
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show whether a token is cached and when it expires",
				Flags: []cli.Flag{
					configFlag(false),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// initCommand writes the example configuration.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write an example config.toml",
		Flags:  []cli.Flag{configFlag(false)},
		Action: r.Init,
	}
}
