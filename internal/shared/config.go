package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/toptracks/internal/models"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Username     string `toml:"username"`
}

// AuthConfig controls the authorization flow and token cache.
type AuthConfig struct {
	TokenDir string   `toml:"token_dir"`
	Timeout  Duration `toml:"timeout"`
}

// SyncConfig lists the playlists to maintain.
type SyncConfig struct {
	Limit             int              `toml:"limit"`
	RequestsPerSecond float64          `toml:"requests_per_second"`
	Public            bool             `toml:"public"`
	Playlists         []PlaylistConfig `toml:"playlists"`
}

// PlaylistConfig is one [[sync.playlists]] entry. Limit falls back to [SyncConfig.Limit] when zero.
type PlaylistConfig struct {
	Range string `toml:"range"`
	Name  string `toml:"name"`
	Limit int    `toml:"limit,omitempty"`
}

// Duration wraps [time.Duration] so it can be written as "2m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig]. A file that declares any
// [[sync.playlists]] replaces the default playlists entirely; entries never inherit default fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	defaults := config.Sync.Playlists
	config.Sync.Playlists = nil

	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	if !md.IsDefined("sync", "playlists") {
		config.Sync.Playlists = defaults
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process environment.
//
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides credentials with values found through lookup (usually [os.LookupEnv]).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	sp := &c.Credentials.Spotify
	set(&sp.ClientID, "SPOTIFY_CLIENT_ID")
	set(&sp.ClientSecret, "SPOTIFY_SECRET", "CLIENT_SECRET")
	set(&sp.Username, "SPOTIFY_USERNAME")
	set(&sp.RedirectURI, "SPOTIFY_REDIRECT_URI")
}

// Validate checks that credentials are present and every playlist target is well formed.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" {
		return fmt.Errorf("%w: client_id is not set (SPOTIFY_CLIENT_ID)", ErrMissingCredentials)
	}
	if sp.ClientSecret == "" {
		return fmt.Errorf("%w: client_secret is not set (SPOTIFY_SECRET)", ErrMissingCredentials)
	}

	u, err := url.Parse(sp.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q is not an absolute URL", ErrInvalidConfig, sp.RedirectURI)
	}

	if c.Sync.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}

	if _, err := c.Targets(); err != nil {
		return err
	}

	return nil
}

// Targets converts the [[sync.playlists]] entries into [models.Target] values.
func (c *Config) Targets() ([]models.Target, error) {
	if len(c.Sync.Playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists configured", ErrInvalidConfig)
	}

	targets := make([]models.Target, 0, len(c.Sync.Playlists))
	for i, p := range c.Sync.Playlists {
		r, err := models.ParseTimeRange(p.Range)
		if err != nil {
			return nil, fmt.Errorf("%w: playlists[%d]: %v", ErrInvalidConfig, i, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("%w: playlists[%d]: name is empty", ErrInvalidConfig, i)
		}

		limit := p.Limit
		if limit == 0 {
			limit = c.Sync.Limit
		}
		if limit < 1 || limit > models.MaxTopTracks {
			return nil, fmt.Errorf("%w: playlists[%d]: limit %d out of range 1..%d", ErrInvalidConfig, i, limit, models.MaxTopTracks)
		}

		targets = append(targets, models.Target{Range: r, Name: p.Name, Limit: limit})
	}

	return targets, nil
}

// TokenPath returns the token cache file for the configured username.
func (c *Config) TokenPath() string {
	name := "token.json"
	if u := c.Credentials.Spotify.Username; u != "" {
		name = fmt.Sprintf("token-%s.json", strings.NewReplacer("/", "_", `\`, "_").Replace(u))
	}
	return filepath.Join(ExpandHome(c.Auth.TokenDir), name)
}
