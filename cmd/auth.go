package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser authorization and overwrites the cached token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	authorizer, err := r.oauth(config)
	if err != nil {
		return err
	}

	if _, err := authorizer.Login(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("✓ Token cached at %s\n\n", config.TokenPath())
	return r.writePlain("You can now use: toptracks sync\n")
}

// AuthLogout deletes the cached token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	authorizer, err := r.oauth(config)
	if err != nil {
		return err
	}

	if err := authorizer.Logout(); err != nil {
		return err
	}

	r.logger.Info("token cache cleared", "path", config.TokenPath())
	return r.writePlain("✓ Removed cached token %s\n", config.TokenPath())
}

// AuthStatus reports on the cached token without contacting Spotify.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	authorizer, err := r.oauth(config)
	if err != nil {
		return err
	}

	status, err := authorizer.Status()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Token cache: %s\n", status.Path)
	if !status.Cached {
		return r.writePlain("Status: not logged in (run 'toptracks auth login')\n")
	}

	state := "expired"
	if status.Valid {
		state = "valid"
	}
	r.writePlain("Status: %s, expires %s\n", state, status.Expiry.Local().Format(time.RFC1123))
	return r.writePlain("Refreshable: %v\n", status.Refreshable)
}
