package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/toptracks/internal/models"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "test_client_id"
	config.Credentials.Spotify.ClientSecret = "test_secret"
	return config
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Credentials.Spotify.RedirectURI != "http://localhost:8888/callback" {
			t.Errorf("expected redirect URI http://localhost:8888/callback, got %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Auth.Timeout.Duration != 2*time.Minute {
			t.Errorf("expected auth timeout 2m, got %v", config.Auth.Timeout)
		}

		if config.Sync.Limit != 50 {
			t.Errorf("expected sync limit 50, got %d", config.Sync.Limit)
		}

		targets, err := config.Targets()
		if err != nil {
			t.Fatalf("expected default targets to be valid, got %v", err)
		}

		want := []models.Target{
			{Range: models.ShortTerm, Name: "Top Tracks - Last Month", Limit: 50},
			{Range: models.MediumTerm, Name: "Top Tracks - Last 6 Months", Limit: 50},
		}
		if len(targets) != len(want) {
			t.Fatalf("expected %d targets, got %d", len(want), len(targets))
		}
		for i := range want {
			if targets[i] != want[i] {
				t.Errorf("target %d = %+v, want %+v", i, targets[i], want[i])
			}
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Auth.TokenDir != DefaultConfig().Auth.TokenDir {
			t.Errorf("created config token dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
username = "alice"

[auth]
timeout = "30s"

[sync]
limit = 25

[[sync.playlists]]
range = "long_term"
name = "All Time"
limit = 10
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:8888/callback" {
			t.Errorf("expected redirect URI to keep default, got %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Auth.Timeout.Duration != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", config.Auth.Timeout)
		}

		targets, err := config.Targets()
		if err != nil {
			t.Fatalf("expected valid targets, got %v", err)
		}
		if len(targets) != 1 {
			t.Fatalf("expected playlists to replace defaults, got %d targets", len(targets))
		}
		if targets[0].Range != models.LongTerm || targets[0].Limit != 10 {
			t.Errorf("unexpected target %+v", targets[0])
		}
	})

	t.Run("LoadConfig playlist entries do not inherit defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[[sync.playlists]]\nrange = \"long_term\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if len(config.Sync.Playlists) != 1 || config.Sync.Playlists[0].Name != "" {
			t.Fatalf("expected a single unnamed entry, got %+v", config.Sync.Playlists)
		}

		if _, err := config.Targets(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for entry without a name, got %v", err)
		}
	})

	t.Run("LoadConfig without playlists keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[sync]\nlimit = 20\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		targets, err := config.Targets()
		if err != nil {
			t.Fatalf("expected valid targets, got %v", err)
		}
		if len(targets) != 2 {
			t.Fatalf("expected default playlists, got %d targets", len(targets))
		}
		for _, target := range targets {
			if target.Limit != 20 {
				t.Errorf("expected sync limit 20 on %s, got %d", target.Name, target.Limit)
			}
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Malformed", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[sync\nlimit ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	t.Run("environment overrides file", func(t *testing.T) {
		config := validConfig()
		config.ApplyEnv(env(map[string]string{
			"SPOTIFY_CLIENT_ID": "env_id",
			"SPOTIFY_SECRET":    "env_secret",
			"SPOTIFY_USERNAME":  "bob",
		}))

		sp := config.Credentials.Spotify
		if sp.ClientID != "env_id" || sp.ClientSecret != "env_secret" || sp.Username != "bob" {
			t.Errorf("unexpected credentials %+v", sp)
		}
	})

	t.Run("CLIENT_SECRET fallback", func(t *testing.T) {
		config := DefaultConfig()
		config.ApplyEnv(env(map[string]string{"CLIENT_SECRET": "fallback"}))

		if config.Credentials.Spotify.ClientSecret != "fallback" {
			t.Errorf("expected CLIENT_SECRET to be used, got %q", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("SPOTIFY_SECRET wins over CLIENT_SECRET", func(t *testing.T) {
		config := DefaultConfig()
		config.ApplyEnv(env(map[string]string{"CLIENT_SECRET": "fallback", "SPOTIFY_SECRET": "primary"}))

		if config.Credentials.Spotify.ClientSecret != "primary" {
			t.Errorf("expected SPOTIFY_SECRET to win, got %q", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("empty values are ignored", func(t *testing.T) {
		config := validConfig()
		config.ApplyEnv(env(map[string]string{"SPOTIFY_CLIENT_ID": ""}))

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client id to be kept, got %q", config.Credentials.Spotify.ClientID)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("loads variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "TOPTRACKS_TEST_NEW=from_file\nTOPTRACKS_TEST_SET=from_file\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		t.Setenv("TOPTRACKS_TEST_SET", "from_env")
		t.Setenv("TOPTRACKS_TEST_NEW", "")
		os.Unsetenv("TOPTRACKS_TEST_NEW")

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("failed to load env file: %v", err)
		}

		if got := os.Getenv("TOPTRACKS_TEST_NEW"); got != "from_file" {
			t.Errorf("expected from_file, got %q", got)
		}
		if got := os.Getenv("TOPTRACKS_TEST_SET"); got != "from_env" {
			t.Errorf("expected existing variable to win, got %q", got)
		}
	})
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.Credentials.Spotify.ClientID = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "missing client secret",
			mutate:  func(c *Config) { c.Credentials.Spotify.ClientSecret = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "relative redirect uri",
			mutate:  func(c *Config) { c.Credentials.Spotify.RedirectURI = "/callback" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown range",
			mutate:  func(c *Config) { c.Sync.Playlists[0].Range = "yearly" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "empty name",
			mutate:  func(c *Config) { c.Sync.Playlists[1].Name = "" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "limit too large",
			mutate:  func(c *Config) { c.Sync.Limit = 51 },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "no playlists",
			mutate:  func(c *Config) { c.Sync.Playlists = nil },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Sync.RequestsPerSecond = -1 },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig()
			tc.mutate(config)

			err := config.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTokenPath(t *testing.T) {
	config := DefaultConfig()
	config.Auth.TokenDir = "/tmp/tokens"

	if got := config.TokenPath(); got != filepath.Join("/tmp/tokens", "token.json") {
		t.Errorf("unexpected token path %s", got)
	}

	config.Credentials.Spotify.Username = "a/b"
	if got := config.TokenPath(); !strings.HasSuffix(got, "token-a_b.json") {
		t.Errorf("expected sanitized username in token path, got %s", got)
	}
}
