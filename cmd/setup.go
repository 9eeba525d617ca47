package main

import (
	"context"

	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/urfave/cli/v3"
)

// Init writes the example configuration to the --config path. An existing file is left alone.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	redirect := shared.DefaultConfig().Credentials.Spotify.RedirectURI

	r.writePlain("✓ Config written to %s\n\n", path)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Create an app at https://developer.spotify.com/dashboard with redirect URI %s\n", redirect)
	r.writePlain("2. Set client_id and client_secret in %s, or SPOTIFY_CLIENT_ID and SPOTIFY_SECRET\n", path)
	return r.writePlain("3. Run 'toptracks auth login'\n")
}
