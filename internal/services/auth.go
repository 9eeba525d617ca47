package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toptracks/internal/server"
	"github.com/desertthunder/toptracks/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const defaultAuthTimeout = 2 * time.Minute

// Scopes requested by the authorization flow.
var Scopes = []string{
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// OAuthAuthorizer implements [Authorizer] with the authorization code flow and an on-disk token cache.
//
// A cached token is reused and refreshed silently; every refreshed token is written back to the cache.
// Without a usable cached token the browser is opened and a local callback server waits for the redirect.
type OAuthAuthorizer struct {
	config      *oauth2.Config
	cache       *shared.TokenCache
	timeout     time.Duration
	openBrowser func(string) error
	output      io.Writer
	logger      *log.Logger
}

// OAuthOpts contains configuration options for creating an OAuthAuthorizer.
type OAuthOpts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Cache        *shared.TokenCache

	// Timeout bounds the wait for the browser callback; defaults to 2 minutes.
	Timeout time.Duration

	// Endpoint overrides the Spotify accounts service.
	Endpoint *oauth2.Endpoint

	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser func(string) error

	// Output receives user-facing prompts, defaults to [os.Stderr].
	Output io.Writer
	Logger *log.Logger
}

// NewOAuthAuthorizer validates opts and returns an authorizer. It performs no network calls.
func NewOAuthAuthorizer(opts OAuthOpts) (*OAuthAuthorizer, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrMissingCredentials)
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("%w: token cache is required", shared.ErrInvalidArgument)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAuthTimeout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyauth.AuthURL, TokenURL: spotifyauth.TokenURL}
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}

	return &OAuthAuthorizer{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		cache:       opts.Cache,
		timeout:     opts.Timeout,
		openBrowser: opts.OpenBrowser,
		output:      opts.Output,
		logger:      opts.Logger,
	}, nil
}

// AuthURL returns the URL the user visits to grant access.
func (a *OAuthAuthorizer) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Client returns an HTTP client authorized with the cached token, running [OAuthAuthorizer.Login] when
// there is no cached token or it can no longer be refreshed.
func (a *OAuthAuthorizer) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.cache.Load()
	switch {
	case errors.Is(err, shared.ErrNoCachedToken):
		a.logger.Info("no cached token, starting authorization", "cache", a.cache.Path())
		if token, err = a.Login(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		a.logger.Warn("ignoring unreadable token cache", "error", err)
		if token, err = a.Login(ctx); err != nil {
			return nil, err
		}
	case !token.Valid() && token.RefreshToken == "":
		a.logger.Info("cached token expired without refresh token, starting authorization")
		if token, err = a.Login(ctx); err != nil {
			return nil, err
		}
	}

	source := a.tokenSource(ctx, token)
	if _, err := source.Token(); err != nil {
		var re *oauth2.RetrieveError
		if !errors.As(err, &re) {
			return nil, fmt.Errorf("%w: token refresh: %v", shared.ErrAuthFailed, err)
		}

		a.logger.Warn("token refresh rejected, starting authorization", "status", re.Response.StatusCode)
		if token, err = a.Login(ctx); err != nil {
			return nil, err
		}
		source = a.tokenSource(ctx, token)
	}

	return oauth2.NewClient(ctx, source), nil
}

// Login runs the interactive authorization flow and caches the resulting token.
func (a *OAuthAuthorizer) Login(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateState()

	srv, err := server.NewCallbackServer(a.config.RedirectURL, a.config, state, a.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	authURL := a.AuthURL(state)
	fmt.Fprintln(a.output, "→ Opening browser for Spotify authorization...")
	if err := a.openBrowser(authURL); err != nil {
		a.logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintf(a.output, "Please open this URL in your browser:\n%s\n\n", authURL)
	}
	fmt.Fprintf(a.output, "→ Waiting for authorization (%v timeout)...\n", a.timeout)

	token, err := srv.Wait(ctx, a.timeout)
	if err != nil {
		return nil, err
	}

	if err := a.cache.Save(token); err != nil {
		return nil, err
	}

	a.logger.Info("authorization successful", "cache", a.cache.Path())
	return token, nil
}

// Logout removes the cached token.
func (a *OAuthAuthorizer) Logout() error {
	return a.cache.Clear()
}

// TokenStatus summarizes the cached token.
type TokenStatus struct {
	Path        string    `json:"path"`
	Cached      bool      `json:"cached"`
	Valid       bool      `json:"valid"`
	Refreshable bool      `json:"refreshable"`
	Expiry      time.Time `json:"expiry,omitzero"`
}

// Status reports on the cached token without contacting the network.
func (a *OAuthAuthorizer) Status() (*TokenStatus, error) {
	status := &TokenStatus{Path: a.cache.Path()}

	token, err := a.cache.Load()
	if errors.Is(err, shared.ErrNoCachedToken) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	status.Cached = true
	status.Valid = token.Valid()
	status.Refreshable = token.RefreshToken != ""
	status.Expiry = token.Expiry
	return status, nil
}

func (a *OAuthAuthorizer) tokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return &refreshableTokenSource{
		source: a.config.TokenSource(ctx, token),
		last:   token,
		callback: func(t *oauth2.Token) {
			if err := a.cache.Save(t); err != nil {
				a.logger.Warn("failed to save refreshed token", "error", err)
				return
			}
			a.logger.Debug("refreshed token saved", "expiry", t.Expiry)
		},
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes callback whenever the access token changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     *oauth2.Token
	mu       sync.Mutex
}

func (s *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := s.last == nil || s.last.AccessToken != token.AccessToken
	s.last = token
	s.mu.Unlock()

	if changed && s.callback != nil {
		s.callback(token)
	}

	return token, nil
}
