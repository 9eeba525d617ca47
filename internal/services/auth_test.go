package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/toptracks/internal/shared"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	*httptest.Server
	mu            sync.Mutex
	grants        map[string]int
	rejectRefresh bool
}

func newTokenServer(t *testing.T, rejectRefresh bool) *tokenServer {
	t.Helper()

	ts := &tokenServer{grants: map[string]int{}, rejectRefresh: rejectRefresh}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		grant := r.Form.Get("grant_type")
		ts.mu.Lock()
		ts.grants[grant]++
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case grant == "authorization_code" && r.Form.Get("code") == "test-code":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "issued",
				"token_type":    "Bearer",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
			})
		case grant == "refresh_token" && !ts.rejectRefresh:
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "refreshed",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) count(grant string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.grants[grant]
}

// freeRedirectURI reserves a loopback port and releases it for the callback server.
func freeRedirectURI(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "http://" + addr + "/callback"
}

// fakeBrowser completes the authorization by calling the redirect URI like a browser would.
type fakeBrowser struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *fakeBrowser) open(authURL string) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	if b.err != nil {
		return b.err
	}

	u, err := url.Parse(authURL)
	if err != nil {
		return err
	}
	q := u.Query()
	callback := q.Get("redirect_uri") + "?" + url.Values{"state": {q.Get("state")}, "code": {"test-code"}}.Encode()

	resp, err := http.Get(callback)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (b *fakeBrowser) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestAuthorizer(t *testing.T, ts *tokenServer, browser *fakeBrowser, out io.Writer) (*OAuthAuthorizer, *shared.TokenCache) {
	t.Helper()

	cache := shared.NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	a, err := NewOAuthAuthorizer(OAuthOpts{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  freeRedirectURI(t),
		Cache:        cache,
		Timeout:      5 * time.Second,
		Endpoint:     &oauth2.Endpoint{AuthURL: "https://accounts.example.test/authorize", TokenURL: ts.URL},
		OpenBrowser:  browser.open,
		Output:       out,
		Logger:       shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create authorizer: %v", err)
	}
	return a, cache
}

// authHeader returns the Authorization header a client sends.
func authHeader(t *testing.T, client *http.Client) string {
	t.Helper()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return got
}

func TestOAuthAuthorizer(t *testing.T) {
	ctx := context.Background()

	t.Run("NewOAuthAuthorizer", func(t *testing.T) {
		cache := shared.NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

		tests := []struct {
			name string
			opts OAuthOpts
			want error
		}{
			{"missing client id", OAuthOpts{ClientSecret: "s", RedirectURI: "http://localhost/cb", Cache: cache}, shared.ErrMissingCredentials},
			{"missing secret", OAuthOpts{ClientID: "c", RedirectURI: "http://localhost/cb", Cache: cache}, shared.ErrMissingCredentials},
			{"missing redirect", OAuthOpts{ClientID: "c", ClientSecret: "s", Cache: cache}, shared.ErrMissingCredentials},
			{"missing cache", OAuthOpts{ClientID: "c", ClientSecret: "s", RedirectURI: "http://localhost/cb"}, shared.ErrInvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := NewOAuthAuthorizer(tt.opts); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Authorizer Interface", func(t *testing.T) {
		a, _ := newTestAuthorizer(t, newTokenServer(t, false), &fakeBrowser{}, io.Discard)
		var _ Authorizer = a
	})

	t.Run("AuthURL", func(t *testing.T) {
		a, _ := newTestAuthorizer(t, newTokenServer(t, false), &fakeBrowser{}, io.Discard)
		u, err := url.Parse(a.AuthURL("abc123"))
		if err != nil {
			t.Fatalf("invalid URL: %v", err)
		}

		q := u.Query()
		if q.Get("client_id") != "client" || q.Get("state") != "abc123" || q.Get("response_type") != "code" {
			t.Errorf("unexpected query %v", q)
		}
		for _, scope := range Scopes {
			if !strings.Contains(q.Get("scope"), scope) {
				t.Errorf("expected scope %q in %q", scope, q.Get("scope"))
			}
		}
	})

	t.Run("Client uses valid cached token", func(t *testing.T) {
		ts := newTokenServer(t, false)
		browser := &fakeBrowser{}
		a, cache := newTestAuthorizer(t, ts, browser, io.Discard)

		cache.Save(&oauth2.Token{AccessToken: "cached", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})

		client, err := a.Client(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := authHeader(t, client); got != "Bearer cached" {
			t.Errorf("expected cached token, got %q", got)
		}
		if browser.count() != 0 {
			t.Error("browser should not be opened with a valid cached token")
		}
		if ts.count("refresh_token") != 0 {
			t.Error("valid token should not be refreshed")
		}
	})

	t.Run("Client runs authorization without cache", func(t *testing.T) {
		ts := newTokenServer(t, false)
		browser := &fakeBrowser{}
		var out bytes.Buffer
		a, cache := newTestAuthorizer(t, ts, browser, &out)

		client, err := a.Client(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := authHeader(t, client); got != "Bearer issued" {
			t.Errorf("expected issued token, got %q", got)
		}
		if browser.count() != 1 {
			t.Errorf("expected browser to be opened once, got %d", browser.count())
		}

		saved, err := cache.Load()
		if err != nil {
			t.Fatalf("expected token to be cached, got %v", err)
		}
		if saved.AccessToken != "issued" || saved.RefreshToken != "refresh-1" {
			t.Errorf("unexpected cached token %+v", saved)
		}
		if !strings.Contains(out.String(), "Opening browser") {
			t.Errorf("expected prompt in output, got %q", out.String())
		}
	})

	t.Run("Client refreshes expired token and caches it", func(t *testing.T) {
		ts := newTokenServer(t, false)
		browser := &fakeBrowser{}
		a, cache := newTestAuthorizer(t, ts, browser, io.Discard)

		cache.Save(&oauth2.Token{
			AccessToken:  "stale",
			TokenType:    "Bearer",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(-time.Hour),
		})

		client, err := a.Client(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := authHeader(t, client); got != "Bearer refreshed" {
			t.Errorf("expected refreshed token, got %q", got)
		}
		if browser.count() != 0 {
			t.Error("browser should not be opened when refresh succeeds")
		}

		saved, err := cache.Load()
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if saved.AccessToken != "refreshed" {
			t.Errorf("expected refreshed token to be cached, got %q", saved.AccessToken)
		}
		if saved.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh token to be kept, got %q", saved.RefreshToken)
		}
	})

	t.Run("Client re-authorizes when refresh is rejected", func(t *testing.T) {
		ts := newTokenServer(t, true)
		browser := &fakeBrowser{}
		a, cache := newTestAuthorizer(t, ts, browser, io.Discard)

		cache.Save(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Hour),
		})

		client, err := a.Client(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := authHeader(t, client); got != "Bearer issued" {
			t.Errorf("expected newly issued token, got %q", got)
		}
		if browser.count() != 1 {
			t.Errorf("expected one browser authorization, got %d", browser.count())
		}
		if ts.count("refresh_token") == 0 {
			t.Error("expected a refresh attempt")
		}
	})

	t.Run("Client re-authorizes expired token without refresh token", func(t *testing.T) {
		ts := newTokenServer(t, false)
		browser := &fakeBrowser{}
		a, cache := newTestAuthorizer(t, ts, browser, io.Discard)

		cache.Save(&oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)})

		if _, err := a.Client(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if browser.count() != 1 {
			t.Errorf("expected one browser authorization, got %d", browser.count())
		}
	})

	t.Run("Login prints URL when browser fails and times out", func(t *testing.T) {
		ts := newTokenServer(t, false)
		browser := &fakeBrowser{err: errors.New("no display")}
		var out bytes.Buffer
		a, cache := newTestAuthorizer(t, ts, browser, &out)
		a.timeout = 50 * time.Millisecond

		_, err := a.Login(ctx)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(out.String(), "https://accounts.example.test/authorize") {
			t.Errorf("expected authorization URL in output, got %q", out.String())
		}
		if _, err := cache.Load(); !errors.Is(err, shared.ErrNoCachedToken) {
			t.Errorf("expected nothing cached, got %v", err)
		}
	})

	t.Run("Login fails when redirect port is taken", func(t *testing.T) {
		ts := newTokenServer(t, false)
		a, _ := newTestAuthorizer(t, ts, &fakeBrowser{}, io.Discard)

		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		defer l.Close()
		a.config.RedirectURL = "http://" + l.Addr().String() + "/callback"

		if _, err := a.Login(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Status and Logout", func(t *testing.T) {
		a, cache := newTestAuthorizer(t, newTokenServer(t, false), &fakeBrowser{}, io.Discard)

		status, err := a.Status()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Cached || status.Path != cache.Path() {
			t.Errorf("unexpected status %+v", status)
		}

		expiry := time.Now().Add(time.Hour).Round(time.Second)
		cache.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry})

		status, err = a.Status()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.Cached || !status.Valid || !status.Refreshable || !status.Expiry.Equal(expiry) {
			t.Errorf("unexpected status %+v", status)
		}

		if err := a.Logout(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		status, _ = a.Status()
		if status.Cached {
			t.Error("expected no cached token after logout")
		}
	})
}

type sequenceSource struct {
	tokens []*oauth2.Token
	err    error
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	t := s.tokens[min(s.i, len(s.tokens)-1)]
	s.i++
	return t, nil
}

func TestRefreshableTokenSource(t *testing.T) {
	first := &oauth2.Token{AccessToken: "one"}
	second := &oauth2.Token{AccessToken: "two"}

	t.Run("callback fires only when the access token changes", func(t *testing.T) {
		var saved []string
		src := &refreshableTokenSource{
			source:   &sequenceSource{tokens: []*oauth2.Token{first, first, second, second}},
			last:     first,
			callback: func(t *oauth2.Token) { saved = append(saved, t.AccessToken) },
		}

		for range 4 {
			if _, err := src.Token(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if len(saved) != 1 || saved[0] != "two" {
			t.Errorf("expected one callback for the new token, got %v", saved)
		}
	})

	t.Run("callback fires for the first token without a previous one", func(t *testing.T) {
		calls := 0
		src := &refreshableTokenSource{
			source:   &sequenceSource{tokens: []*oauth2.Token{first}},
			callback: func(*oauth2.Token) { calls++ },
		}

		src.Token()
		if calls != 1 {
			t.Errorf("expected 1 callback, got %d", calls)
		}
	})

	t.Run("errors are passed through", func(t *testing.T) {
		want := errors.New("boom")
		src := &refreshableTokenSource{
			source:   &sequenceSource{err: want},
			callback: func(*oauth2.Token) { t.Error("callback should not fire on error") },
		}

		if _, err := src.Token(); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})
}
