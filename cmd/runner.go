package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/services"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	authorizer  services.Authorizer
	service     services.Service
	lookupEnv   func(string) (string, bool)
	logger      *log.Logger
	output      io.Writer
	input       *bufio.Reader
	interactive bool
	now         func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Authorizer and Service replace what the commands would otherwise build from the
// config file; they exist so commands can run against fakes.
type RunnerOpts struct {
	Config      *shared.Config
	Authorizer  services.Authorizer
	Service     services.Service
	LookupEnv   func(string) (string, bool) // Defaults to [os.LookupEnv]
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader // Defaults to [os.Stdin]
	Interactive bool      // Whether Input is a terminal; detected when Input is nil
	Now         func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
		opts.Interactive = isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:      opts.Config,
		authorizer:  opts.Authorizer,
		service:     opts.Service,
		lookupEnv:   opts.LookupEnv,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       bufio.NewReader(opts.Input),
		interactive: opts.Interactive,
		now:         opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, topCommand, authCommand, initCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration for cmd: dotenv file, then config file (or the runner's
// config), then the environment. The result is validated before it is returned so that
// configuration errors surface before any network call.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return nil, err
	}

	config, err := r.readConfig(cmd)
	if err != nil {
		return nil, err
	}

	config.ApplyEnv(r.lookupEnv)

	if config.Credentials.Spotify.Username == "" && r.interactive {
		config.Credentials.Spotify.Username = r.promptUsername()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (r *Runner) readConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		config := *r.config
		config.Sync.Playlists = slices.Clone(r.config.Sync.Playlists)
		return &config, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.logger.Debug("loaded config", "path", path)
		return config, nil
	case errors.Is(err, shared.ErrMissingConfig) && !cmd.IsSet("config"):
		r.logger.Debug("config file not found, using defaults and environment", "path", path)
		return shared.DefaultConfig(), nil
	default:
		return nil, err
	}
}

func (r *Runner) promptUsername() string {
	r.writePlain("Spotify username (leave blank to use the authorized account): ")
	line, err := r.input.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// oauth builds the browser-based authorizer for config.
func (r *Runner) oauth(config *shared.Config) (*services.OAuthAuthorizer, error) {
	sp := config.Credentials.Spotify
	return services.NewOAuthAuthorizer(services.OAuthOpts{
		ClientID:     sp.ClientID,
		ClientSecret: sp.ClientSecret,
		RedirectURI:  sp.RedirectURI,
		Cache:        shared.NewTokenCache(config.TokenPath()),
		Timeout:      config.Auth.Timeout.Duration,
		Output:       r.output,
		Logger:       r.logger,
	})
}

// spotify returns the service commands talk to, authorizing if needed.
func (r *Runner) spotify(ctx context.Context, config *shared.Config) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	authorizer := r.authorizer
	if authorizer == nil {
		a, err := r.oauth(config)
		if err != nil {
			return nil, err
		}
		authorizer = a
	}

	client, err := authorizer.Client(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewSpotifyService(services.SpotifyOpts{
		HTTPClient:        client,
		RequestsPerSecond: config.Sync.RequestsPerSecond,
		Logger:            r.logger,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
